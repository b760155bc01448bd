package submission

const ellipsis = "..."

// Summary limits applied when recording content.
const (
	TextSummaryLimit    = 300
	CaptionSummaryLimit = 200
)

// Summarize caps text at limit runes, replacing the tail with "..." when it was
// cut. Counting runes rather than bytes keeps multi-byte text intact; the
// result is never longer than limit runes.
func Summarize(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-len(ellipsis)]) + ellipsis
}

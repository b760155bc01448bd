package submission

import "time"

// Kind distinguishes homework from lecture notes.
type Kind string

const (
	KindHomework Kind = "homework"
	KindNotes    Kind = "notes"
)

// ContentType describes what a submission physically is.
type ContentType string

const (
	ContentText       ContentType = "text"
	ContentPhoto      ContentType = "photo"
	ContentDocument   ContentType = "document"
	ContentPhotoAlbum ContentType = "photo_album"
)

// Submission is one recorded piece of work. Rows are immutable once created;
// only bulk admin reset or a cascading student deletion removes them.
type Submission struct {
	ID         int64
	StudentID  int64
	Kind       Kind
	Section    string
	TopicID    string
	TopicTitle string
	Content    ContentType
	Summary    string
	// FileRefs is the opaque content reference: a single file id for photos and
	// documents, a ";"-joined list for albums, empty for plain text.
	FileRefs  string
	MessageID int // zero for albums, no single message represents them
	Date      string
	CreatedAt time.Time
}

// MissReason is the per-student, per-date placeholder explaining why nothing
// was submitted. The nightly sweep creates it with an empty reason; the first
// qualifying free-text message from the student closes it.
type MissReason struct {
	StudentID int64
	Date      string
	Reason    string
}

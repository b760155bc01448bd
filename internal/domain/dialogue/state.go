package dialogue

import (
	"homework_intake_bot/internal/domain/submission"
)

// State is the position of one student in the submission flow. It is a closed
// set of variants; transitions move strictly forward along
// Start -> ChoosingSection -> ChoosingTopic -> WaitingForContent, or reset to
// Start (or AdminPanel inside admin sub-flows). Nothing survives a restart.
type State interface {
	isState()
}

// Start is the initial and terminal default: no active flow.
type Start struct{}

// ChoosingSection means the student picked a submission kind and the section
// choice is pending.
type ChoosingSection struct {
	Kind submission.Kind
}

// ChoosingTopic means the section is chosen and the topic choice is pending.
type ChoosingTopic struct {
	Kind    submission.Kind
	Section string
}

// WaitingForContent means the topic is chosen and the actual content
// (photo, document or text) is awaited.
type WaitingForContent struct {
	Kind       submission.Kind
	Section    string
	TopicID    string
	TopicTitle string
}

// AdminPanel is the administrator's menu context.
type AdminPanel struct{}

// AdminAwaitingExportTarget means the next text names a student to export.
type AdminAwaitingExportTarget struct{}

// AdminAwaitingDeleteTarget means the next text names a student to delete.
type AdminAwaitingDeleteTarget struct{}

func (Start) isState()                     {}
func (ChoosingSection) isState()           {}
func (ChoosingTopic) isState()             {}
func (WaitingForContent) isState()         {}
func (AdminPanel) isState()                {}
func (AdminAwaitingExportTarget) isState() {}
func (AdminAwaitingDeleteTarget) isState() {}

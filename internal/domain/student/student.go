package student

import (
	"database/sql"
	"time"
)

// Student is a pupil known to the bot. A row is created or refreshed on every
// inbound event, so the table always reflects the latest profile data.
type Student struct {
	TelegramID int64
	Username   sql.NullString // optional @handle
	FirstName  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DisplayName prefers the handle over the first name, mirroring how students
// appear in reports.
func (s *Student) DisplayName() string {
	if s.Username.Valid && s.Username.String != "" {
		return s.Username.String
	}
	return s.FirstName
}

package announcement

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/integrity"
)

type Announcement struct {
	ID          string     `json:"id" bson:"_id,omitempty"`
	ClassroomID string     `json:"classroom_id" bson:"classroom_id"`
	AuthorID    string     `json:"author_id" bson:"author_id"`
	Title       string     `json:"title" bson:"title"`
	Content     string     `json:"content" bson:"content"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"` // UTC
	UpdatedAt   *time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

var (
	_ core.Record     = (*Announcement)(nil)
	_ integrity.Owner = (*Announcement)(nil)
)

func (a *Announcement) RecordID() string      { return a.ID }
func (a *Announcement) RecordKind() core.Kind { return core.KindAnnouncement }

func (a *Announcement) RefID(field string) string {
	if field == integrity.FieldAuthor {
		return a.AuthorID
	}
	return ""
}

func (a *Announcement) ClearRef(field string) {
	if field == integrity.FieldAuthor {
		a.AuthorID = ""
	}
}

// NewAnnouncement contains information needed to post an Announcement.
type NewAnnouncement struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
}

func (na *NewAnnouncement) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Content = core.CleanString(na.Content)
	return validate.Struct(na)
}

// UpdateAnnouncement defines what may be modified; empty fields keep
// their current value.
type UpdateAnnouncement struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (ua *UpdateAnnouncement) Validate(validate *validator.Validate) error {
	ua.Title = core.CleanString(ua.Title)
	ua.Content = core.CleanString(ua.Content)
	return validate.Struct(ua)
}

package classroom

import (
	"crypto/rand"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/integrity"
)

// Lifecycle status. Archiving is a soft delete: the classroom stays
// readable but refuses joins and edits.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type Classroom struct {
	ID          string `json:"id" bson:"_id,omitempty"`
	Name        string `json:"name" bson:"name"`
	Term        string `json:"term" bson:"term"`
	Section     string `json:"section,omitempty" bson:"section,omitempty"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`

	InstructorID string   `json:"instructor_id" bson:"instructor_id"`
	StudentIDs   []string `json:"student_ids" bson:"student_ids"`

	JoinCode  string     `json:"join_code" bson:"join_code"`
	Status    string     `json:"status" bson:"status"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" bson:"deleted_at,omitempty"` // when archived
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`                     // UTC
}

var (
	_ core.Record         = (*Classroom)(nil)
	_ integrity.Owner     = (*Classroom)(nil)
	_ integrity.ListOwner = (*Classroom)(nil)
)

func (c *Classroom) RecordID() string      { return c.ID }
func (c *Classroom) RecordKind() core.Kind { return core.KindClassroom }

func (c *Classroom) RefID(field string) string {
	if field == integrity.FieldInstructor {
		return c.InstructorID
	}
	return ""
}

func (c *Classroom) ClearRef(field string) {
	if field == integrity.FieldInstructor {
		c.InstructorID = ""
	}
}

func (c *Classroom) RefIDs(field string) []string {
	if field == integrity.FieldStudents {
		return append([]string(nil), c.StudentIDs...)
	}
	return nil
}

func (c *Classroom) SetRefIDs(field string, ids []string) {
	if field == integrity.FieldStudents {
		c.StudentIDs = ids
	}
}

func (c *Classroom) IsArchived() bool {
	return c.Status == StatusInactive
}

func (c *Classroom) HasStudent(id string) bool {
	for _, sid := range c.StudentIDs {
		if sid == id {
			return true
		}
	}
	return false
}

// NewClassroom contains information needed to create a Classroom.
type NewClassroom struct {
	Name        string `json:"name" validate:"required"`
	Term        string `json:"term" validate:"required"`
	Section     string `json:"section"`
	Description string `json:"description"`
}

func (nc *NewClassroom) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Term = core.CleanString(nc.Term)
	nc.Section = core.CleanString(nc.Section)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

// UpdateClassroom defines what may be modified; empty fields keep their
// current value.
type UpdateClassroom struct {
	Name        string `json:"name"`
	Term        string `json:"term"`
	Section     string `json:"section"`
	Description string `json:"description"`
}

func (uc *UpdateClassroom) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	uc.Term = core.CleanString(uc.Term)
	uc.Section = core.CleanString(uc.Section)
	uc.Description = core.CleanString(uc.Description)
	return validate.Struct(uc)
}

const (
	joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // no 0/O, 1/I
	joinCodeLen      = 6
)

// GenerateJoinCode returns a short shareable enrollment code.
func GenerateJoinCode() (string, error) {
	buf := make([]byte, joinCodeLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = joinCodeAlphabet[int(b)%len(joinCodeAlphabet)]
	}
	return string(buf), nil
}

package grading

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/integrity"
)

type Assignment struct {
	ID             string     `json:"id" bson:"_id,omitempty"`
	ClassroomID    string     `json:"classroom_id" bson:"classroom_id"`
	Title          string     `json:"title" bson:"title"`
	Description    string     `json:"description,omitempty" bson:"description,omitempty"`
	PointsPossible float64    `json:"points_possible" bson:"points_possible"`
	DueDate        *time.Time `json:"due_date,omitempty" bson:"due_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at" bson:"created_at"` // UTC
}

var _ core.Record = (*Assignment)(nil)

func (a *Assignment) RecordID() string      { return a.ID }
func (a *Assignment) RecordKind() core.Kind { return core.KindAssignment }

// Grade scores one student on one assignment. The (assignment, student)
// pair is unique; a nil Score means graded-but-cleared or not yet scored.
type Grade struct {
	ID           string    `json:"id" bson:"_id,omitempty"`
	AssignmentID string    `json:"assignment_id" bson:"assignment_id"`
	StudentID    string    `json:"student_id" bson:"student_id"`
	Score        *float64  `json:"score" bson:"score,omitempty"`
	Feedback     string    `json:"feedback,omitempty" bson:"feedback,omitempty"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"` // UTC
}

var (
	_ core.Record     = (*Grade)(nil)
	_ integrity.Owner = (*Grade)(nil)
)

func (g *Grade) RecordID() string      { return g.ID }
func (g *Grade) RecordKind() core.Kind { return core.KindGrade }

func (g *Grade) RefID(field string) string {
	if field == integrity.FieldStudent {
		return g.StudentID
	}
	return ""
}

func (g *Grade) ClearRef(field string) {
	if field == integrity.FieldStudent {
		g.StudentID = ""
	}
}

// NewAssignment contains information needed to create an Assignment.
type NewAssignment struct {
	Title          string     `json:"title" validate:"required"`
	Description    string     `json:"description"`
	PointsPossible float64    `json:"points_possible" validate:"required,gt=0"`
	DueDate        *time.Time `json:"due_date"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	return validate.Struct(na)
}

// GradeInput sets or overwrites a student's grade on an assignment.
type GradeInput struct {
	StudentID string   `json:"student_id" validate:"required"`
	Score     *float64 `json:"score" validate:"omitempty,gte=0"`
	Feedback  string   `json:"feedback"`
}

func (gi *GradeInput) Validate(validate *validator.Validate) error {
	gi.StudentID = core.CleanString(gi.StudentID)
	gi.Feedback = core.CleanString(gi.Feedback)
	return validate.Struct(gi)
}

package user

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

// Roles. A user's role is unset until their first profile setup and can
// only ever be set once; admin is granted out-of-band (admin CLI).
const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

type User struct {
	ID       string `json:"id" bson:"_id,omitempty"`
	Email    string `json:"email" bson:"email"`
	GoogleID string `json:"-" bson:"google_id"`
	Name     string `json:"name" bson:"name"`
	Picture  string `json:"picture,omitempty" bson:"picture,omitempty"`
	Role     string `json:"role,omitempty" bson:"role,omitempty"`

	// profile fields, filled in later
	StudentID string `json:"student_id,omitempty" bson:"student_id,omitempty"`
	Major     string `json:"major,omitempty" bson:"major,omitempty"`
	GradYear  int    `json:"grad_year,omitempty" bson:"grad_year,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"` // UTC
}

var _ core.Record = (*User)(nil)

func (u User) RecordID() string      { return u.ID }
func (u User) RecordKind() core.Kind { return core.KindUser }
func (u User) IsStudent() bool       { return u.Role == RoleStudent }
func (u User) IsInstructor() bool    { return u.Role == RoleInstructor }
func (u User) IsAdmin() bool         { return u.Role == RoleAdmin }

// Identity is a verified identity-provider profile; how it got verified is
// the transport layer's business.
type Identity struct {
	ExternalID string
	Email      string
	Name       string
	Picture    string
}

// NewStudent contains information needed to enroll a student who has not
// signed in yet (manual add or roster import).
type NewStudent struct {
	Email     string `json:"email" validate:"required,email"`
	Name      string `json:"name" validate:"required"`
	StudentID string `json:"student_id" validate:"omitempty,alphanum_"`
	Major     string `json:"major"`
	GradYear  int    `json:"grad_year"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Name = core.CleanString(ns.Name)
	ns.StudentID = core.CleanString(ns.StudentID)
	ns.Major = core.CleanString(ns.Major)
	return validate.Struct(ns)
}

// ProfileUpdate defines what a user may change on their own profile.
// Role is whitelisted: it can only go from unset to student|instructor.
type ProfileUpdate struct {
	Role      string  `json:"role" validate:"omitempty,oneof=student instructor"`
	StudentID *string `json:"student_id" validate:"omitempty,alphanum_"`
	Major     *string `json:"major"`
	GradYear  *int    `json:"grad_year"`
}

func (pu *ProfileUpdate) Validate(validate *validator.Validate) error {
	pu.Role = core.CleanString(pu.Role, true /* lower */)
	return validate.Struct(pu)
}

// AvatarURL builds a generated-initials avatar for users created without
// an identity-provider picture.
func AvatarURL(name string) string {
	return "https://ui-avatars.com/api/?name=" + strings.ReplaceAll(name, " ", "+")
}

// ParseGradYear parses a grad-year cell from a roster CSV; bad values are
// simply dropped, matching the lenient import behavior.
func ParseGradYear(s string) int {
	yr, err := strconv.Atoi(core.CleanString(s))
	if err != nil || yr < 0 {
		return 0
	}
	return yr
}

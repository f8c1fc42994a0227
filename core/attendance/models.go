package attendance

import (
	"crypto/rand"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/integrity"
)

// Check-in statuses.
const (
	StatusPresent = "present"
	StatusLate    = "late"
	StatusAbsent  = "absent"
	StatusExcused = "excused"
)

// Record is one student's check-in, embedded in its session.
type Record struct {
	StudentID string    `json:"student_id" bson:"student_id"`
	Status    string    `json:"status" bson:"status"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"` // UTC
}

type Session struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	ClassroomID string    `json:"classroom_id" bson:"classroom_id"`
	Date        time.Time `json:"date" bson:"date"` // UTC
	Code        string    `json:"code" bson:"code"`
	IsOpen      bool      `json:"is_open" bson:"is_open"`
	Records     []Record  `json:"records" bson:"records"`
}

var (
	_ core.Record         = (*Session)(nil)
	_ integrity.ListOwner = (*Session)(nil)
)

func (s *Session) RecordID() string      { return s.ID }
func (s *Session) RecordKind() core.Kind { return core.KindAttendanceSession }

func (s *Session) RefIDs(field string) []string {
	if field != integrity.FieldRecords {
		return nil
	}
	ids := make([]string, len(s.Records))
	for i, r := range s.Records {
		ids[i] = r.StudentID
	}
	return ids
}

// SetRefIDs keeps the records whose students survived, in order. The
// session itself is never deleted; an empty record list is fine.
func (s *Session) SetRefIDs(field string, ids []string) {
	if field != integrity.FieldRecords {
		return
	}
	kept := make([]Record, 0, len(ids))
	i := 0
	for _, r := range s.Records {
		if i < len(ids) && r.StudentID == ids[i] {
			kept = append(kept, r)
			i++
		}
	}
	s.Records = kept
}

func (s *Session) RecordFor(studentID string) *Record {
	for i := range s.Records {
		if s.Records[i].StudentID == studentID {
			return &s.Records[i]
		}
	}
	return nil
}

// CheckIn is a student's self check-in request.
type CheckIn struct {
	Code string `json:"code" validate:"required"`
}

func (ci *CheckIn) Validate(validate *validator.Validate) error {
	ci.Code = core.CleanString(ci.Code)
	return validate.Struct(ci)
}

// ManualCheckIn lets the instructor set or overwrite a student's record.
type ManualCheckIn struct {
	StudentID string `json:"student_id" validate:"required"`
	Status    string `json:"status" validate:"required,oneof=present late absent excused"`
}

func (mc *ManualCheckIn) Validate(validate *validator.Validate) error {
	mc.StudentID = core.CleanString(mc.StudentID)
	mc.Status = core.CleanString(mc.Status, true /* lower */)
	return validate.Struct(mc)
}

// SessionUpdate opens or closes a session for self check-in.
type SessionUpdate struct {
	IsOpen *bool `json:"is_open" validate:"required"`
}

func (su *SessionUpdate) Validate(validate *validator.Validate) error {
	return validate.Struct(su)
}

const codeLen = 4

// GenerateCode returns a numeric code students type in to check in.
func GenerateCode() (string, error) {
	buf := make([]byte, codeLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = '0' + b%10
	}
	return string(buf), nil
}

package integrity

import "github.com/trezcool/darasa/core"

// Governed reference field names. Owners switch on these in their
// RefID/ClearRef/RefIDs/SetRefIDs implementations.
const (
	FieldInstructor = "instructor"
	FieldStudents   = "students"
	FieldStudent    = "student"
	FieldAuthor     = "author"
	FieldRecords    = "records"
)

// Rule declares how a relational field behaves when its target is missing:
// a required field invalidates its owner (cascade delete), an optional one
// is cleared, and a multi-valued one has the dead entry dropped.
type Rule struct {
	Target   core.Kind
	Required bool
	Multi    bool
}

type ruleKey struct {
	owner core.Kind
	field string
}

// rules is the single relationship table driving repair policy. Repair
// behavior is never re-derived per call site; adding a governed reference
// means adding a row here and implementing the owner accessor.
//
// Assignment.classroom and Grade.assignment deliberately have no row:
// they are not self-healed.
var rules = map[ruleKey]Rule{
	{core.KindClassroom, FieldInstructor}:      {Target: core.KindUser, Required: true},
	{core.KindClassroom, FieldStudents}:        {Target: core.KindUser, Multi: true},
	{core.KindGrade, FieldStudent}:             {Target: core.KindUser, Required: true},
	{core.KindAnnouncement, FieldAuthor}:       {Target: core.KindUser, Required: true},
	{core.KindAttendanceSession, FieldRecords}: {Target: core.KindUser, Multi: true},
}

// RuleFor returns the integrity rule governing owner.field, if any.
func RuleFor(owner core.Kind, field string) (Rule, bool) {
	rule, ok := rules[ruleKey{owner, field}]
	return rule, ok
}

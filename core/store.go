package core

import "context"

// Kind names a record collection in the document store.
type Kind string

const (
	KindUser              Kind = "users"
	KindClassroom         Kind = "classrooms"
	KindAssignment        Kind = "assignments"
	KindGrade             Kind = "grades"
	KindAttendanceSession Kind = "attendance_sessions"
	KindAnnouncement      Kind = "announcements"
)

// Record is any persisted document.
type Record interface {
	RecordID() string
	RecordKind() Kind
}

// Store is the loose document-store contract: id-keyed CRUD with no
// cross-collection integrity enforcement. Deleting a record leaves any
// references to it dangling; the integrity package heals over that.
type Store interface {
	// Exists reports whether a record of the given kind exists.
	// A returned error means the store itself failed, not that the
	// record is missing.
	Exists(ctx context.Context, kind Kind, id string) (bool, error)
	Save(ctx context.Context, rec Record) error
	Delete(ctx context.Context, rec Record) error
}

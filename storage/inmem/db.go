// Package inmemdb is a storage backend for tests and local hacking. It
// keeps every collection in a mutexed map and honors the same uniqueness
// rules the real indexes enforce.
package inmemdb

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/announcement"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/classroom"
	"github.com/trezcool/darasa/core/grading"
	"github.com/trezcool/darasa/core/user"
)

type (
	DB struct {
		user         *userTable
		classroom    *classroomTable
		assignment   *assignmentTable
		grade        *gradeTable
		session      *sessionTable
		announcement *announcementTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]user.User
	}
	classroomTable struct {
		sync.RWMutex
		table map[string]classroom.Classroom
	}
	assignmentTable struct {
		sync.RWMutex
		table map[string]grading.Assignment
	}
	gradeTable struct {
		sync.RWMutex
		table map[string]grading.Grade
	}
	sessionTable struct {
		sync.RWMutex
		table map[string]attendance.Session
	}
	announcementTable struct {
		sync.RWMutex
		table map[string]announcement.Announcement
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:         &userTable{table: make(map[string]user.User)},
		classroom:    &classroomTable{table: make(map[string]classroom.Classroom)},
		assignment:   &assignmentTable{table: make(map[string]grading.Assignment)},
		grade:        &gradeTable{table: make(map[string]grading.Grade)},
		session:      &sessionTable{table: make(map[string]attendance.Session)},
		announcement: &announcementTable{table: make(map[string]announcement.Announcement)},
	}
	return db, nil
}

var _ core.Store = (*DB)(nil)

func (db *DB) Exists(ctx context.Context, kind core.Kind, id string) (bool, error) {
	switch kind {
	case core.KindUser:
		db.user.RLock()
		defer db.user.RUnlock()
		_, ok := db.user.table[id]
		return ok, nil
	case core.KindClassroom:
		db.classroom.RLock()
		defer db.classroom.RUnlock()
		_, ok := db.classroom.table[id]
		return ok, nil
	case core.KindAssignment:
		db.assignment.RLock()
		defer db.assignment.RUnlock()
		_, ok := db.assignment.table[id]
		return ok, nil
	case core.KindGrade:
		db.grade.RLock()
		defer db.grade.RUnlock()
		_, ok := db.grade.table[id]
		return ok, nil
	case core.KindAttendanceSession:
		db.session.RLock()
		defer db.session.RUnlock()
		_, ok := db.session.table[id]
		return ok, nil
	case core.KindAnnouncement:
		db.announcement.RLock()
		defer db.announcement.RUnlock()
		_, ok := db.announcement.table[id]
		return ok, nil
	}
	return false, errUnknownKind(kind)
}

func (db *DB) Save(ctx context.Context, rec core.Record) error {
	switch r := rec.(type) {
	case *classroom.Classroom:
		db.classroom.Lock()
		defer db.classroom.Unlock()
		db.classroom.table[r.ID] = cloneClassroom(*r)
	case *grading.Grade:
		db.grade.Lock()
		defer db.grade.Unlock()
		db.grade.table[r.ID] = *r
	case *attendance.Session:
		db.session.Lock()
		defer db.session.Unlock()
		db.session.table[r.ID] = cloneSession(*r)
	case *announcement.Announcement:
		db.announcement.Lock()
		defer db.announcement.Unlock()
		db.announcement.table[r.ID] = *r
	case *grading.Assignment:
		db.assignment.Lock()
		defer db.assignment.Unlock()
		db.assignment.table[r.ID] = *r
	default:
		return errUnknownKind(rec.RecordKind())
	}
	return nil
}

func (db *DB) Delete(ctx context.Context, rec core.Record) error {
	switch rec.RecordKind() {
	case core.KindUser:
		db.user.Lock()
		defer db.user.Unlock()
		delete(db.user.table, rec.RecordID())
	case core.KindClassroom:
		db.classroom.Lock()
		defer db.classroom.Unlock()
		delete(db.classroom.table, rec.RecordID())
	case core.KindAssignment:
		db.assignment.Lock()
		defer db.assignment.Unlock()
		delete(db.assignment.table, rec.RecordID())
	case core.KindGrade:
		db.grade.Lock()
		defer db.grade.Unlock()
		delete(db.grade.table, rec.RecordID())
	case core.KindAttendanceSession:
		db.session.Lock()
		defer db.session.Unlock()
		delete(db.session.table, rec.RecordID())
	case core.KindAnnouncement:
		db.announcement.Lock()
		defer db.announcement.Unlock()
		delete(db.announcement.table, rec.RecordID())
	default:
		return errUnknownKind(rec.RecordKind())
	}
	return nil
}

func errUnknownKind(kind core.Kind) error {
	return errors.Errorf("unknown record kind %q", kind)
}

func cloneClassroom(c classroom.Classroom) classroom.Classroom {
	c.StudentIDs = append([]string(nil), c.StudentIDs...)
	return c
}

func cloneSession(s attendance.Session) attendance.Session {
	s.Records = append([]attendance.Record(nil), s.Records...)
	return s
}

package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core/attendance"
)

type attendanceRepository struct {
	db *sessionTable
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db.session}
}

func (repo *attendanceRepository) CreateSession(ctx context.Context, s attendance.Session) (attendance.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s.ID = uuid.New().String()
	repo.db.table[s.ID] = cloneSession(s)
	return s, nil
}

func (repo *attendanceRepository) GetSessionByID(ctx context.Context, id string) (attendance.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.table[id]; ok {
		return cloneSession(s), nil
	}
	return attendance.Session{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) QuerySessionsByClassroom(ctx context.Context, classroomID string) ([]attendance.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var res []attendance.Session
	for _, s := range repo.db.table {
		if s.ClassroomID == classroomID {
			res = append(res, cloneSession(s))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Date.After(res[j].Date) })
	return res, nil
}

func (repo *attendanceRepository) QueryAllSessions(ctx context.Context) ([]attendance.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	res := make([]attendance.Session, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		res = append(res, cloneSession(s))
	}
	return res, nil
}

func (repo *attendanceRepository) UpdateSession(ctx context.Context, s attendance.Session) (attendance.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[s.ID]; !ok {
		return attendance.Session{}, attendance.ErrNotFound
	}
	repo.db.table[s.ID] = cloneSession(s)
	return s, nil
}

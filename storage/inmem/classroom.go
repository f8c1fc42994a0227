package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core/classroom"
)

type classroomRepository struct {
	db *classroomTable
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(db *DB) classroom.Repository {
	return &classroomRepository{db: db.classroom}
}

func (repo *classroomRepository) CreateClassroom(ctx context.Context, c classroom.Classroom) (classroom.Classroom, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = uuid.New().String()
	repo.db.table[c.ID] = cloneClassroom(c)
	return c, nil
}

func (repo *classroomRepository) GetClassroomByID(ctx context.Context, id string) (classroom.Classroom, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.table[id]; ok {
		return cloneClassroom(c), nil
	}
	return classroom.Classroom{}, classroom.ErrNotFound
}

func (repo *classroomRepository) GetClassroomByJoinCode(ctx context.Context, code string) (classroom.Classroom, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, c := range repo.db.table {
		if c.JoinCode == code {
			return cloneClassroom(c), nil
		}
	}
	return classroom.Classroom{}, classroom.ErrNotFound
}

func (repo *classroomRepository) QueryClassroomsByInstructor(ctx context.Context, instructorID string) ([]classroom.Classroom, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var res []classroom.Classroom
	for _, c := range repo.db.table {
		if c.InstructorID == instructorID {
			res = append(res, cloneClassroom(c))
		}
	}
	return res, nil
}

func (repo *classroomRepository) QueryClassroomsByStudent(ctx context.Context, studentID string) ([]classroom.Classroom, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var res []classroom.Classroom
	for _, c := range repo.db.table {
		if c.HasStudent(studentID) {
			res = append(res, cloneClassroom(c))
		}
	}
	return res, nil
}

func (repo *classroomRepository) QueryAllClassrooms(ctx context.Context) ([]classroom.Classroom, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	res := make([]classroom.Classroom, 0, len(repo.db.table))
	for _, c := range repo.db.table {
		res = append(res, cloneClassroom(c))
	}
	return res, nil
}

func (repo *classroomRepository) UpdateClassroom(ctx context.Context, c classroom.Classroom) (classroom.Classroom, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[c.ID]; !ok {
		return classroom.Classroom{}, classroom.ErrNotFound
	}
	repo.db.table[c.ID] = cloneClassroom(c)
	return c, nil
}

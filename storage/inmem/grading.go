package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core/grading"
)

type gradingRepository struct {
	assignments *assignmentTable
	grades      *gradeTable
}

var _ grading.Repository = (*gradingRepository)(nil) // interface compliance check

func NewGradingRepository(db *DB) grading.Repository {
	return &gradingRepository{assignments: db.assignment, grades: db.grade}
}

func (repo *gradingRepository) CreateAssignment(ctx context.Context, a grading.Assignment) (grading.Assignment, error) {
	repo.assignments.Lock()
	defer repo.assignments.Unlock()

	a.ID = uuid.New().String()
	repo.assignments.table[a.ID] = a
	return a, nil
}

func (repo *gradingRepository) GetAssignmentByID(ctx context.Context, id string) (grading.Assignment, error) {
	repo.assignments.RLock()
	defer repo.assignments.RUnlock()

	if a, ok := repo.assignments.table[id]; ok {
		return a, nil
	}
	return grading.Assignment{}, grading.ErrAssignmentNotFound
}

func (repo *gradingRepository) QueryAssignmentsByClassroom(ctx context.Context, classroomID string) ([]grading.Assignment, error) {
	repo.assignments.RLock()
	defer repo.assignments.RUnlock()

	var res []grading.Assignment
	for _, a := range repo.assignments.table {
		if a.ClassroomID == classroomID {
			res = append(res, a)
		}
	}
	return res, nil
}

func (repo *gradingRepository) GetGrade(ctx context.Context, assignmentID, studentID string) (grading.Grade, error) {
	repo.grades.RLock()
	defer repo.grades.RUnlock()

	for _, g := range repo.grades.table {
		if g.AssignmentID == assignmentID && g.StudentID == studentID {
			return g, nil
		}
	}
	return grading.Grade{}, grading.ErrGradeNotFound
}

func (repo *gradingRepository) QueryGradesByAssignment(ctx context.Context, assignmentID string) ([]grading.Grade, error) {
	repo.grades.RLock()
	defer repo.grades.RUnlock()

	var res []grading.Grade
	for _, g := range repo.grades.table {
		if g.AssignmentID == assignmentID {
			res = append(res, g)
		}
	}
	return res, nil
}

func (repo *gradingRepository) QueryGradesByAssignments(ctx context.Context, assignmentIDs []string) ([]grading.Grade, error) {
	ids := make(map[string]struct{}, len(assignmentIDs))
	for _, id := range assignmentIDs {
		ids[id] = struct{}{}
	}

	repo.grades.RLock()
	defer repo.grades.RUnlock()

	var res []grading.Grade
	for _, g := range repo.grades.table {
		if _, ok := ids[g.AssignmentID]; ok {
			res = append(res, g)
		}
	}
	return res, nil
}

func (repo *gradingRepository) QueryAllGrades(ctx context.Context) ([]grading.Grade, error) {
	repo.grades.RLock()
	defer repo.grades.RUnlock()

	res := make([]grading.Grade, 0, len(repo.grades.table))
	for _, g := range repo.grades.table {
		res = append(res, g)
	}
	return res, nil
}

func (repo *gradingRepository) UpsertGrade(ctx context.Context, g grading.Grade) (grading.Grade, error) {
	repo.grades.Lock()
	defer repo.grades.Unlock()

	if g.ID == "" {
		for _, existing := range repo.grades.table {
			if existing.AssignmentID == g.AssignmentID && existing.StudentID == g.StudentID {
				g.ID = existing.ID
				break
			}
		}
	}
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	repo.grades.table[g.ID] = g
	return g, nil
}

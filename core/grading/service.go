package grading

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/integrity"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrGradeNotFound      = errors.New("grade not found")
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		GetAssignmentByID(ctx context.Context, id string) (Assignment, error)
		QueryAssignmentsByClassroom(ctx context.Context, classroomID string) ([]Assignment, error)
		GetGrade(ctx context.Context, assignmentID, studentID string) (Grade, error)
		QueryGradesByAssignment(ctx context.Context, assignmentID string) ([]Grade, error)
		QueryGradesByAssignments(ctx context.Context, assignmentIDs []string) ([]Grade, error)
		QueryAllGrades(ctx context.Context) ([]Grade, error)
		UpsertGrade(ctx context.Context, g Grade) (Grade, error)
	}

	// StudentGrade pairs a grade with its resolved student.
	StudentGrade struct {
		Grade   Grade     `json:"grade"`
		Student user.User `json:"student"`
	}

	Service interface {
		CreateAssignment(ctx context.Context, classroomID string, na NewAssignment) (Assignment, error)
		GetAssignment(ctx context.Context, id string) (Assignment, error)
		QueryAssignments(ctx context.Context, classroomID string) ([]Assignment, error)
		UpsertGrade(ctx context.Context, a *Assignment, gi GradeInput) (Grade, error)
		// StudentGrade returns one student's grade on an assignment;
		// ErrGradeNotFound when none has been entered yet.
		StudentGrade(ctx context.Context, assignmentID, studentID string) (Grade, error)
		// AssignmentGrades lists all grades on an assignment with their
		// students resolved. A grade whose student no longer exists is
		// cascade-deleted and omitted from the result.
		AssignmentGrades(ctx context.Context, a *Assignment) ([]StudentGrade, error)
		// ExportGradesCSV writes the classroom gradebook: one column per
		// assignment plus an average percentage, one row per roster student.
		ExportGradesCSV(ctx context.Context, classroomID string, roster []user.User, w io.Writer) error
	}

	service struct {
		repo     Repository
		users    user.Service
		resolver *integrity.Resolver
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, users user.Service, resolver *integrity.Resolver) Service {
	return &service{repo: repo, users: users, resolver: resolver}
}

func (svc *service) CreateAssignment(ctx context.Context, classroomID string, na NewAssignment) (Assignment, error) {
	a := Assignment{
		ClassroomID:    classroomID,
		Title:          na.Title,
		Description:    na.Description,
		PointsPossible: na.PointsPossible,
		DueDate:        na.DueDate,
		CreatedAt:      time.Now().UTC(),
	}
	return svc.repo.CreateAssignment(ctx, a)
}

func (svc *service) GetAssignment(ctx context.Context, id string) (Assignment, error) {
	return svc.repo.GetAssignmentByID(ctx, id)
}

func (svc *service) QueryAssignments(ctx context.Context, classroomID string) ([]Assignment, error) {
	return svc.repo.QueryAssignmentsByClassroom(ctx, classroomID)
}

func (svc *service) UpsertGrade(ctx context.Context, a *Assignment, gi GradeInput) (Grade, error) {
	if _, err := svc.users.GetByID(ctx, gi.StudentID); err != nil {
		return Grade{}, err
	}

	g, err := svc.repo.GetGrade(ctx, a.ID, gi.StudentID)
	if err != nil {
		if errors.Cause(err) != ErrGradeNotFound {
			return Grade{}, err
		}
		g = Grade{AssignmentID: a.ID, StudentID: gi.StudentID}
	}
	g.Score = gi.Score
	g.Feedback = gi.Feedback
	g.UpdatedAt = time.Now().UTC()
	return svc.repo.UpsertGrade(ctx, g)
}

func (svc *service) StudentGrade(ctx context.Context, assignmentID, studentID string) (Grade, error) {
	return svc.repo.GetGrade(ctx, assignmentID, studentID)
}

func (svc *service) AssignmentGrades(ctx context.Context, a *Assignment) ([]StudentGrade, error) {
	grades, err := svc.repo.QueryGradesByAssignment(ctx, a.ID)
	if err != nil {
		return nil, err
	}

	results := make([]StudentGrade, 0, len(grades))
	for i := range grades {
		g := grades[i]
		res, err := svc.resolver.Resolve(ctx, &g, integrity.FieldStudent)
		if err != nil {
			return nil, err
		}
		if res != integrity.Valid {
			continue
		}
		student, err := svc.users.GetByID(ctx, g.StudentID)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				continue
			}
			return nil, err
		}
		results = append(results, StudentGrade{Grade: g, Student: student})
	}
	return results, nil
}

func (svc *service) ExportGradesCSV(ctx context.Context, classroomID string, roster []user.User, w io.Writer) error {
	assignments, err := svc.repo.QueryAssignmentsByClassroom(ctx, classroomID)
	if err != nil {
		return err
	}

	ids := make([]string, len(assignments))
	for i, a := range assignments {
		ids[i] = a.ID
	}
	grades, err := svc.repo.QueryGradesByAssignments(ctx, ids)
	if err != nil {
		return err
	}

	// (student, assignment) -> grade; avoids an N*M query fan-out
	type gradeKey struct{ studentID, assignmentID string }
	gradeMap := make(map[gradeKey]Grade, len(grades))
	for _, g := range grades {
		gradeMap[gradeKey{g.StudentID, g.AssignmentID}] = g
	}

	students := append([]user.User(nil), roster...)
	sort.Slice(students, func(i, j int) bool { return students[i].Name < students[j].Name })

	cw := csv.NewWriter(w)
	header := []string{"Name", "Email", "Student ID"}
	for _, a := range assignments {
		header = append(header, fmt.Sprintf("%s (/%s)", a.Title, strconv.FormatFloat(a.PointsPossible, 'f', -1, 64)))
	}
	header = append(header, "Average %")
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "writing CSV header")
	}

	for _, s := range students {
		row := []string{
			core.SanitizeCSVField(s.Name),
			core.SanitizeCSVField(s.Email),
			core.SanitizeCSVField(s.StudentID),
		}

		var totalPct float64
		var count int
		for _, a := range assignments {
			g, ok := gradeMap[gradeKey{s.ID, a.ID}]
			if !ok || g.Score == nil {
				row = append(row, "")
				continue
			}
			row = append(row, strconv.FormatFloat(*g.Score, 'f', -1, 64))
			if a.PointsPossible > 0 {
				totalPct += *g.Score / a.PointsPossible * 100
				count++
			}
		}

		var avg float64
		if count > 0 {
			avg = totalPct / float64(count)
		}
		row = append(row, fmt.Sprintf("%.1f%%", avg))

		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "writing CSV row")
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing CSV")
}

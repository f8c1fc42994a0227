package grading_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/grading"
	"github.com/trezcool/darasa/core/integrity"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/storage/inmem"
)

func setup(t *testing.T) (user.Service, grading.Service) {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	usrSvc := user.NewService(inmemdb.NewUserRepository(db))
	resolver := integrity.NewResolver(db, integrity.NewEngine(db, nil))
	svc := grading.NewService(inmemdb.NewGradingRepository(db), usrSvc, resolver)
	return usrSvc, svc
}

func enroll(t *testing.T, usrSvc user.Service, name, email string) user.User {
	usr, err := usrSvc.Enroll(context.Background(), user.NewStudent{Email: email, Name: name})
	if err != nil {
		t.Fatalf("enroll() failed: %v", err)
	}
	return usr
}

func fPtr(f float64) *float64 { return &f }

func TestService_UpsertGrade(t *testing.T) {
	ctx := context.Background()
	usrSvc, svc := setup(t)
	stu := enroll(t, usrSvc, "Stu", "stu@test.test")

	a, err := svc.CreateAssignment(ctx, "class1", grading.NewAssignment{Title: "HW 1", PointsPossible: 20})
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}

	if _, err = svc.UpsertGrade(ctx, &a, grading.GradeInput{StudentID: "ghost"}); errors.Cause(err) != user.ErrNotFound {
		t.Errorf("UpsertGrade() err = %v, want %v", err, user.ErrNotFound)
	}

	g, err := svc.UpsertGrade(ctx, &a, grading.GradeInput{StudentID: stu.ID, Score: fPtr(18), Feedback: "nice"})
	if err != nil {
		t.Fatalf("UpsertGrade() failed: %v", err)
	}
	if g.Score == nil || *g.Score != 18 || g.Feedback != "nice" {
		t.Errorf("grade = %+v", g)
	}

	// regrading overwrites the same record
	g2, err := svc.UpsertGrade(ctx, &a, grading.GradeInput{StudentID: stu.ID, Score: fPtr(19.5)})
	if err != nil {
		t.Fatalf("UpsertGrade() failed: %v", err)
	}
	if g2.ID != g.ID {
		t.Errorf("regrade created a new record: %s != %s", g2.ID, g.ID)
	}
	if g2.Score == nil || *g2.Score != 19.5 {
		t.Errorf("regrade = %+v", g2)
	}
	if g2.Feedback != "" {
		t.Errorf("stale feedback kept on regrade: %q", g2.Feedback)
	}
}

func TestService_AssignmentGrades_omitsDeletedStudents(t *testing.T) {
	ctx := context.Background()
	usrSvc, svc := setup(t)
	s1 := enroll(t, usrSvc, "A", "a@test.test")
	s2 := enroll(t, usrSvc, "B", "b@test.test")

	a, err := svc.CreateAssignment(ctx, "class1", grading.NewAssignment{Title: "HW 1", PointsPossible: 20})
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	if _, err = svc.UpsertGrade(ctx, &a, grading.GradeInput{StudentID: s1.ID, Score: fPtr(10)}); err != nil {
		t.Fatalf("UpsertGrade() failed: %v", err)
	}
	if _, err = svc.UpsertGrade(ctx, &a, grading.GradeInput{StudentID: s2.ID, Score: fPtr(15)}); err != nil {
		t.Fatalf("UpsertGrade() failed: %v", err)
	}

	if err = usrSvc.Delete(ctx, s1.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	grades, err := svc.AssignmentGrades(ctx, &a)
	if err != nil {
		t.Fatalf("AssignmentGrades() failed: %v", err)
	}
	if len(grades) != 1 || grades[0].Student.ID != s2.ID {
		t.Errorf("grades = %+v, want only %s's", grades, s2.ID)
	}

	// the orphaned grade was cascade-deleted, not just hidden
	if _, err = svc.StudentGrade(ctx, a.ID, s1.ID); errors.Cause(err) != grading.ErrGradeNotFound {
		t.Errorf("StudentGrade() err = %v, want %v", err, grading.ErrGradeNotFound)
	}
}

func TestService_ExportGradesCSV(t *testing.T) {
	ctx := context.Background()
	usrSvc, svc := setup(t)
	alice := enroll(t, usrSvc, "Alice", "alice@test.test")
	bob := enroll(t, usrSvc, "Bob", "bob@test.test")

	hw, err := svc.CreateAssignment(ctx, "class1", grading.NewAssignment{Title: "HW 1", PointsPossible: 20})
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	quiz, err := svc.CreateAssignment(ctx, "class1", grading.NewAssignment{Title: "Quiz", PointsPossible: 10})
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}

	if _, err = svc.UpsertGrade(ctx, &hw, grading.GradeInput{StudentID: alice.ID, Score: fPtr(18)}); err != nil {
		t.Fatalf("UpsertGrade() failed: %v", err)
	}
	if _, err = svc.UpsertGrade(ctx, &quiz, grading.GradeInput{StudentID: alice.ID, Score: fPtr(8)}); err != nil {
		t.Fatalf("UpsertGrade() failed: %v", err)
	}
	// bob only did the quiz
	if _, err = svc.UpsertGrade(ctx, &quiz, grading.GradeInput{StudentID: bob.ID, Score: fPtr(5)}); err != nil {
		t.Fatalf("UpsertGrade() failed: %v", err)
	}

	var buf bytes.Buffer
	if err = svc.ExportGradesCSV(ctx, "class1", []user.User{bob, alice}, &buf); err != nil {
		t.Fatalf("ExportGradesCSV() failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "HW 1 (/20)") || !strings.Contains(lines[0], "Quiz (/10)") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasSuffix(lines[0], "Average %") {
		t.Errorf("header = %q", lines[0])
	}

	// rows are sorted by name; ungraded cells stay empty
	if !strings.HasPrefix(lines[1], "Alice,") || !strings.HasSuffix(lines[1], "85.0%") {
		t.Errorf("alice row = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "Bob,") || !strings.HasSuffix(lines[2], "50.0%") {
		t.Errorf("bob row = %q", lines[2])
	}
}

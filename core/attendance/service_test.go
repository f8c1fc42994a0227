package attendance_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/integrity"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/storage/inmem"
)

func setup(t *testing.T) (user.Service, attendance.Service) {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	usrSvc := user.NewService(inmemdb.NewUserRepository(db))
	resolver := integrity.NewResolver(db, integrity.NewEngine(db, nil))
	svc := attendance.NewService(inmemdb.NewAttendanceRepository(db), usrSvc, resolver)
	return usrSvc, svc
}

func enroll(t *testing.T, usrSvc user.Service, name, email string) user.User {
	usr, err := usrSvc.Enroll(context.Background(), user.NewStudent{Email: email, Name: name})
	if err != nil {
		t.Fatalf("enroll() failed: %v", err)
	}
	return usr
}

func TestService_Create(t *testing.T) {
	_, svc := setup(t)

	s, err := svc.Create(context.Background(), "class1")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if !s.IsOpen {
		t.Error("new session is not open")
	}
	if len(s.Code) != 4 {
		t.Errorf("Code = %q, want 4 digits", s.Code)
	}
	for _, r := range s.Code {
		if r < '0' || r > '9' {
			t.Errorf("Code %q is not numeric", s.Code)
			break
		}
	}
}

func TestService_CheckIn(t *testing.T) {
	ctx := context.Background()
	usrSvc, svc := setup(t)
	stu := enroll(t, usrSvc, "Stu", "stu@test.test")

	s, err := svc.Create(ctx, "class1")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if err = svc.CheckIn(ctx, &s, "0000", stu); errors.Cause(err) != attendance.ErrBadCode {
		t.Errorf("CheckIn() err = %v, want %v", err, attendance.ErrBadCode)
	}

	if err = svc.CheckIn(ctx, &s, s.Code, stu); err != nil {
		t.Fatalf("CheckIn() failed: %v", err)
	}
	rec := s.RecordFor(stu.ID)
	if rec == nil || rec.Status != attendance.StatusPresent {
		t.Errorf("record = %+v, want present", rec)
	}

	if err = svc.CheckIn(ctx, &s, s.Code, stu); errors.Cause(err) != attendance.ErrAlreadyCheckedIn {
		t.Errorf("CheckIn() err = %v, want %v", err, attendance.ErrAlreadyCheckedIn)
	}

	if err = svc.SetOpen(ctx, &s, false); err != nil {
		t.Fatalf("SetOpen() failed: %v", err)
	}
	other := enroll(t, usrSvc, "Other", "other@test.test")
	if err = svc.CheckIn(ctx, &s, s.Code, other); errors.Cause(err) != attendance.ErrSessionClosed {
		t.Errorf("CheckIn() err = %v, want %v", err, attendance.ErrSessionClosed)
	}
}

func TestService_ManualCheckIn(t *testing.T) {
	ctx := context.Background()
	usrSvc, svc := setup(t)
	stu := enroll(t, usrSvc, "Stu", "stu@test.test")

	s, err := svc.Create(ctx, "class1")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if err = svc.ManualCheckIn(ctx, &s, attendance.ManualCheckIn{StudentID: "ghost", Status: attendance.StatusLate}); errors.Cause(err) != user.ErrNotFound {
		t.Errorf("ManualCheckIn() err = %v, want %v", err, user.ErrNotFound)
	}

	if err = svc.ManualCheckIn(ctx, &s, attendance.ManualCheckIn{StudentID: stu.ID, Status: attendance.StatusExcused}); err != nil {
		t.Fatalf("ManualCheckIn() failed: %v", err)
	}
	if rec := s.RecordFor(stu.ID); rec == nil || rec.Status != attendance.StatusExcused {
		t.Errorf("record = %+v, want excused", rec)
	}

	// a second manual entry overrides in place
	if err = svc.ManualCheckIn(ctx, &s, attendance.ManualCheckIn{StudentID: stu.ID, Status: attendance.StatusLate}); err != nil {
		t.Fatalf("ManualCheckIn() failed: %v", err)
	}
	if len(s.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(s.Records))
	}
	if s.Records[0].Status != attendance.StatusLate {
		t.Errorf("status = %s, want %s", s.Records[0].Status, attendance.StatusLate)
	}
}

func TestService_Records_healsDeletedStudents(t *testing.T) {
	ctx := context.Background()
	usrSvc, svc := setup(t)
	s1 := enroll(t, usrSvc, "A", "a@test.test")
	s2 := enroll(t, usrSvc, "B", "b@test.test")

	s, err := svc.Create(ctx, "class1")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	for _, stu := range []user.User{s1, s2} {
		if err = svc.ManualCheckIn(ctx, &s, attendance.ManualCheckIn{StudentID: stu.ID, Status: attendance.StatusPresent}); err != nil {
			t.Fatalf("ManualCheckIn() failed: %v", err)
		}
	}

	if err = usrSvc.Delete(ctx, s1.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	records, err := svc.Records(ctx, &s)
	if err != nil {
		t.Fatalf("Records() failed: %v", err)
	}
	if len(records) != 1 || records[0].Student.ID != s2.ID {
		t.Errorf("records = %+v, want only %s's", records, s2.ID)
	}

	// the session survives its dead records
	stored, err := svc.GetByID(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if len(stored.Records) != 1 {
		t.Errorf("stored records = %+v", stored.Records)
	}
}

func TestService_ExportCSV(t *testing.T) {
	ctx := context.Background()
	usrSvc, svc := setup(t)
	alice := enroll(t, usrSvc, "Alice", "alice@test.test")
	bob := enroll(t, usrSvc, "Bob", "bob@test.test")

	s1, err := svc.Create(ctx, "class1")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	s2, err := svc.Create(ctx, "class1")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	// alice made both, bob was late once and missed the other
	for _, s := range []*attendance.Session{&s1, &s2} {
		if err = svc.ManualCheckIn(ctx, s, attendance.ManualCheckIn{StudentID: alice.ID, Status: attendance.StatusPresent}); err != nil {
			t.Fatalf("ManualCheckIn() failed: %v", err)
		}
	}
	if err = svc.ManualCheckIn(ctx, &s1, attendance.ManualCheckIn{StudentID: bob.ID, Status: attendance.StatusLate}); err != nil {
		t.Fatalf("ManualCheckIn() failed: %v", err)
	}

	var buf bytes.Buffer
	if err = svc.ExportCSV(ctx, "class1", []user.User{bob, alice}, &buf); err != nil {
		t.Fatalf("ExportCSV() failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "Name,Email,Student ID,") || !strings.HasSuffix(lines[0], "Attendance Rate") {
		t.Errorf("header = %q", lines[0])
	}

	if !strings.HasPrefix(lines[1], "Alice,") || !strings.HasSuffix(lines[1], "present,present,100.0%") {
		t.Errorf("alice row = %q", lines[1])
	}
	// only "present" counts toward the rate
	if !strings.HasPrefix(lines[2], "Bob,") || !strings.HasSuffix(lines[2], "0.0%") {
		t.Errorf("bob row = %q", lines[2])
	}
	if !strings.Contains(lines[2], "late") || !strings.Contains(lines[2], "absent") {
		t.Errorf("bob row = %q", lines[2])
	}
}

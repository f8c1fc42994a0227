package attendance

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/integrity"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound         = errors.New("attendance session not found")
	ErrSessionClosed    = errors.New("session is closed")
	ErrBadCode          = errors.New("invalid check-in code")
	ErrAlreadyCheckedIn = errors.New("already checked in")
)

type (
	Repository interface {
		CreateSession(ctx context.Context, s Session) (Session, error)
		GetSessionByID(ctx context.Context, id string) (Session, error)
		QuerySessionsByClassroom(ctx context.Context, classroomID string) ([]Session, error) // newest first
		QueryAllSessions(ctx context.Context) ([]Session, error)
		UpdateSession(ctx context.Context, s Session) (Session, error)
	}

	// StudentRecord pairs a check-in record with its resolved student.
	StudentRecord struct {
		Record  Record    `json:"record"`
		Student user.User `json:"student"`
	}

	Service interface {
		Create(ctx context.Context, classroomID string) (Session, error)
		GetByID(ctx context.Context, id string) (Session, error)
		Query(ctx context.Context, classroomID string) ([]Session, error)
		SetOpen(ctx context.Context, s *Session, open bool) error
		// CheckIn appends a "present" record for the student. Enrollment is
		// the caller's concern; this only guards the session state itself.
		CheckIn(ctx context.Context, s *Session, code string, student user.User) error
		ManualCheckIn(ctx context.Context, s *Session, mc ManualCheckIn) error
		// Records lists the session's check-ins with students resolved.
		// Records of deleted students are dropped from the stored session;
		// the session itself survives, however empty it ends up.
		Records(ctx context.Context, s *Session) ([]StudentRecord, error)
		// ExportCSV writes the attendance sheet: one column per session date
		// plus a rate column, one row per roster student.
		ExportCSV(ctx context.Context, classroomID string, roster []user.User, w io.Writer) error
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

func (svc *service) Create(ctx context.Context, classroomID string) (Session, error) {
	code, err := GenerateCode()
	if err != nil {
		return Session{}, errors.Wrap(err, "generating check-in code")
	}
	s := Session{
		ClassroomID: classroomID,
		Date:        time.Now().UTC(),
		Code:        code,
		IsOpen:      true,
	}
	return svc.repo.CreateSession(ctx, s)
}

func (svc *service) GetByID(ctx context.Context, id string) (Session, error) {
	return svc.repo.GetSessionByID(ctx, id)
}

func (svc *service) Query(ctx context.Context, classroomID string) ([]Session, error) {
	return svc.repo.QuerySessionsByClassroom(ctx, classroomID)
}

func (svc *service) SetOpen(ctx context.Context, s *Session, open bool) error {
	s.IsOpen = open
	upd, err := svc.repo.UpdateSession(ctx, *s)
	if err != nil {
		return err
	}
	*s = upd
	return nil
}

func (svc *service) CheckIn(ctx context.Context, s *Session, code string, student user.User) error {
	if !s.IsOpen {
		return ErrSessionClosed
	}
	if s.Code != code {
		return ErrBadCode
	}
	if s.RecordFor(student.ID) != nil {
		return ErrAlreadyCheckedIn
	}

	s.Records = append(s.Records, Record{
		StudentID: student.ID,
		Status:    StatusPresent,
		Timestamp: time.Now().UTC(),
	})
	upd, err := svc.repo.UpdateSession(ctx, *s)
	if err != nil {
		return err
	}
	*s = upd
	return nil
}

func (svc *service) ManualCheckIn(ctx context.Context, s *Session, mc ManualCheckIn) error {
	if _, err := svc.users.GetByID(ctx, mc.StudentID); err != nil {
		return err
	}

	if rec := s.RecordFor(mc.StudentID); rec != nil {
		rec.Status = mc.Status
		rec.Timestamp = time.Now().UTC()
	} else {
		s.Records = append(s.Records, Record{
			StudentID: mc.StudentID,
			Status:    mc.Status,
			Timestamp: time.Now().UTC(),
		})
	}
	upd, err := svc.repo.UpdateSession(ctx, *s)
	if err != nil {
		return err
	}
	*s = upd
	return nil
}

func (svc *service) Records(ctx context.Context, s *Session) ([]StudentRecord, error) {
	if _, err := svc.resolver.SafeList(ctx, s, integrity.FieldRecords); err != nil {
		return nil, err
	}

	results := make([]StudentRecord, 0, len(s.Records))
	for _, r := range s.Records {
		student, err := svc.users.GetByID(ctx, r.StudentID)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				continue
			}
			return nil, err
		}
		results = append(results, StudentRecord{Record: r, Student: student})
	}
	return results, nil
}

func (svc *service) ExportCSV(ctx context.Context, classroomID string, roster []user.User, w io.Writer) error {
	sessions, err := svc.repo.QuerySessionsByClassroom(ctx, classroomID)
	if err != nil {
		return err
	}
	// heal every session's records before reading them
	for i := range sessions {
		if _, err := svc.resolver.SafeList(ctx, &sessions[i], integrity.FieldRecords); err != nil {
			return err
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Date.Before(sessions[j].Date) })

	students := append([]user.User(nil), roster...)
	sort.Slice(students, func(i, j int) bool { return students[i].Name < students[j].Name })

	cw := csv.NewWriter(w)
	header := []string{"Name", "Email", "Student ID"}
	for _, s := range sessions {
		header = append(header, s.Date.Format("2006-01-02"))
	}
	header = append(header, "Attendance Rate")
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "writing CSV header")
	}

	for _, stu := range students {
		row := []string{
			core.SanitizeCSVField(stu.Name),
			core.SanitizeCSVField(stu.Email),
			core.SanitizeCSVField(stu.StudentID),
		}

		var present int
		for i := range sessions {
			status := StatusAbsent
			if rec := sessions[i].RecordFor(stu.ID); rec != nil {
				status = rec.Status
			}
			row = append(row, status)
			if status == StatusPresent {
				present++
			}
		}

		var rate float64
		if len(sessions) > 0 {
			rate = float64(present) / float64(len(sessions)) * 100
		}
		row = append(row, fmt.Sprintf("%.1f%%", rate))

		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "writing CSV row")
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing CSV")
}

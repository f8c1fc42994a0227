package classroom

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/integrity"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound      = errors.New("classroom not found")
	ErrArchived      = errors.New("classroom is archived")
	ErrBadJoinCode   = errors.New("invalid join code")
	ErrCodeExhausted = errors.New("could not generate a unique join code")
)

type (
	Repository interface {
		CreateClassroom(ctx context.Context, c Classroom) (Classroom, error)
		GetClassroomByID(ctx context.Context, id string) (Classroom, error)
		GetClassroomByJoinCode(ctx context.Context, code string) (Classroom, error)
		QueryClassroomsByInstructor(ctx context.Context, instructorID string) ([]Classroom, error)
		QueryClassroomsByStudent(ctx context.Context, studentID string) ([]Classroom, error)
		QueryAllClassrooms(ctx context.Context) ([]Classroom, error)
		UpdateClassroom(ctx context.Context, c Classroom) (Classroom, error)
	}

	Service interface {
		Create(ctx context.Context, instructor user.User, nc NewClassroom) (Classroom, error)
		GetByID(ctx context.Context, id string) (Classroom, error)
		Update(ctx context.Context, id string, uc UpdateClassroom) (Classroom, error)
		Archive(ctx context.Context, id string) (Classroom, error)
		Join(ctx context.Context, student user.User, code string) (Classroom, error)
		// QueryByMember lists classrooms the user teaches or attends,
		// skipping any healed away mid-iteration.
		QueryByMember(ctx context.Context, usr user.User) ([]Classroom, error)
		// Instructor resolves the owning instructor. A dangling instructor
		// reference invalidates the whole classroom: it is cascade-deleted
		// and ErrNotFound returned.
		Instructor(ctx context.Context, c *Classroom) (user.User, error)
		// Roster returns the enrolled students through the safe accessor;
		// zombie entries are dropped from the stored list as a side effect.
		Roster(ctx context.Context, c *Classroom) ([]user.User, error)
		IsEnrolled(ctx context.Context, c *Classroom, usr user.User) (bool, error)
		AddStudent(ctx context.Context, c *Classroom, student user.User) error
		RemoveStudent(ctx context.Context, c *Classroom, studentID string) error
		ImportRosterCSV(ctx context.Context, c *Classroom, r io.Reader) (int, error)
		ExportRosterCSV(ctx context.Context, c *Classroom, w io.Writer) error
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

func (svc *service) Create(ctx context.Context, instructor user.User, nc NewClassroom) (Classroom, error) {
	code, err := svc.newJoinCode(ctx)
	if err != nil {
		return Classroom{}, err
	}
	return svc.repo.CreateClassroom(ctx, Classroom{
		Name:         nc.Name,
		Term:         nc.Term,
		Section:      nc.Section,
		Description:  nc.Description,
		InstructorID: instructor.ID,
		StudentIDs:   []string{},
		JoinCode:     code,
		Status:       StatusActive,
		CreatedAt:    time.Now().UTC(),
	})
}

// newJoinCode generates codes until one is free; collisions are rare so a
// handful of attempts is plenty.
func (svc *service) newJoinCode(ctx context.Context) (string, error) {
	for attempts := 0; attempts < 5; attempts++ {
		code, err := GenerateJoinCode()
		if err != nil {
			return "", errors.Wrap(err, "generating join code")
		}
		if _, err = svc.repo.GetClassroomByJoinCode(ctx, code); err != nil {
			if errors.Cause(err) == ErrNotFound {
				return code, nil
			}
			return "", err
		}
	}
	return "", ErrCodeExhausted
}

func (svc *service) GetByID(ctx context.Context, id string) (Classroom, error) {
	return svc.repo.GetClassroomByID(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, uc UpdateClassroom) (Classroom, error) {
	c, err := svc.repo.GetClassroomByID(ctx, id)
	if err != nil {
		return Classroom{}, err
	}
	if c.IsArchived() {
		return Classroom{}, ErrArchived
	}
	if uc.Name != "" {
		c.Name = uc.Name
	}
	if uc.Term != "" {
		c.Term = uc.Term
	}
	if uc.Section != "" {
		c.Section = uc.Section
	}
	if uc.Description != "" {
		c.Description = uc.Description
	}
	return svc.repo.UpdateClassroom(ctx, c)
}

func (svc *service) Archive(ctx context.Context, id string) (Classroom, error) {
	c, err := svc.repo.GetClassroomByID(ctx, id)
	if err != nil {
		return Classroom{}, err
	}
	if c.IsArchived() {
		return c, nil
	}
	now := time.Now().UTC()
	c.Status = StatusInactive
	c.DeletedAt = &now
	return svc.repo.UpdateClassroom(ctx, c)
}

func (svc *service) Join(ctx context.Context, student user.User, code string) (Classroom, error) {
	c, err := svc.repo.GetClassroomByJoinCode(ctx, strings.ToUpper(core.CleanString(code)))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Classroom{}, ErrBadJoinCode
		}
		return Classroom{}, err
	}
	if c.IsArchived() {
		return Classroom{}, ErrArchived
	}
	if c.HasStudent(student.ID) {
		return c, nil
	}
	c.StudentIDs = append(c.StudentIDs, student.ID)
	return svc.repo.UpdateClassroom(ctx, c)
}

func (svc *service) QueryByMember(ctx context.Context, usr user.User) ([]Classroom, error) {
	teaching, err := svc.repo.QueryClassroomsByInstructor(ctx, usr.ID)
	if err != nil {
		return nil, err
	}
	attending, err := svc.repo.QueryClassroomsByStudent(ctx, usr.ID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(teaching)+len(attending))
	out := make([]Classroom, 0, len(teaching)+len(attending))
	for _, c := range append(teaching, attending...) {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true

		c := c
		res, err := svc.resolver.Resolve(ctx, &c, integrity.FieldInstructor)
		if err != nil {
			return nil, err
		}
		if res != integrity.Valid {
			// classroom was purged while we iterated; skip it
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (svc *service) Instructor(ctx context.Context, c *Classroom) (user.User, error) {
	res, err := svc.resolver.Resolve(ctx, c, integrity.FieldInstructor)
	if err != nil {
		return user.User{}, err
	}
	if res != integrity.Valid {
		return user.User{}, ErrNotFound
	}
	usr, err := svc.users.GetByID(ctx, c.InstructorID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, ErrNotFound
		}
		return user.User{}, err
	}
	return usr, nil
}

func (svc *service) Roster(ctx context.Context, c *Classroom) ([]user.User, error) {
	ids, err := svc.resolver.SafeList(ctx, c, integrity.FieldStudents)
	if err != nil {
		return nil, err
	}
	students := make([]user.User, 0, len(ids))
	for _, id := range ids {
		usr, err := svc.users.GetByID(ctx, id)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				continue // vanished between existence check and load
			}
			return nil, err
		}
		students = append(students, usr)
	}
	return students, nil
}

func (svc *service) IsEnrolled(ctx context.Context, c *Classroom, usr user.User) (bool, error) {
	ids, err := svc.resolver.SafeList(ctx, c, integrity.FieldStudents)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == usr.ID {
			return true, nil
		}
	}
	return false, nil
}

func (svc *service) AddStudent(ctx context.Context, c *Classroom, student user.User) error {
	if c.HasStudent(student.ID) {
		return nil
	}
	c.StudentIDs = append(c.StudentIDs, student.ID)
	updated, err := svc.repo.UpdateClassroom(ctx, *c)
	if err != nil {
		return err
	}
	*c = updated
	return nil
}

func (svc *service) RemoveStudent(ctx context.Context, c *Classroom, studentID string) error {
	if !c.HasStudent(studentID) {
		return nil
	}
	kept := make([]string, 0, len(c.StudentIDs))
	for _, id := range c.StudentIDs {
		if id != studentID {
			kept = append(kept, id)
		}
	}
	c.StudentIDs = kept
	updated, err := svc.repo.UpdateClassroom(ctx, *c)
	if err != nil {
		return err
	}
	*c = updated
	return nil
}

// ImportRosterCSV enrolls students from a CSV with (at least) email and
// name columns; header names are case-insensitive. Rows missing email or
// name are skipped. Returns how many students were newly added.
func (svc *service) ImportRosterCSV(ctx context.Context, c *Classroom, r io.Reader) (int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return 0, errors.Wrap(err, "reading CSV header")
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[core.CleanString(name, true /* lower */)] = i
	}
	cell := func(row []string, name string) string {
		if i, ok := cols[name]; ok && i < len(row) {
			return core.CleanString(row[i])
		}
		return ""
	}

	var added int
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return added, errors.Wrap(err, "reading CSV row")
		}

		ns := user.NewStudent{
			Email:     core.CleanString(cell(row, "email"), true /* lower */),
			Name:      cell(row, "name"),
			StudentID: cell(row, "student_id"),
			Major:     cell(row, "major"),
			GradYear:  user.ParseGradYear(cell(row, "grad_year")),
		}
		if ns.Email == "" || ns.Name == "" {
			continue
		}

		student, err := svc.users.Enroll(ctx, ns)
		if err != nil {
			return added, err
		}
		if !c.HasStudent(student.ID) {
			c.StudentIDs = append(c.StudentIDs, student.ID)
			added++
		}
	}

	if added > 0 {
		updated, err := svc.repo.UpdateClassroom(ctx, *c)
		if err != nil {
			return added, err
		}
		*c = updated
	}
	return added, nil
}

func (svc *service) ExportRosterCSV(ctx context.Context, c *Classroom, w io.Writer) error {
	students, err := svc.Roster(ctx, c)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err = cw.Write([]string{"Name", "Email", "Student ID", "Major", "Grad Year"}); err != nil {
		return errors.Wrap(err, "writing CSV header")
	}
	for _, s := range students {
		var gradYear string
		if s.GradYear != 0 {
			gradYear = strconv.Itoa(s.GradYear)
		}
		row := []string{
			core.SanitizeCSVField(s.Name),
			core.SanitizeCSVField(s.Email),
			core.SanitizeCSVField(s.StudentID),
			core.SanitizeCSVField(s.Major),
			core.SanitizeCSVField(gradYear),
		}
		if err = cw.Write(row); err != nil {
			return errors.Wrap(err, "writing CSV row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing CSV")
}

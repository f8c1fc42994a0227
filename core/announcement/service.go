package announcement

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/integrity"
	"github.com/trezcool/darasa/core/user"
)

var ErrNotFound = errors.New("announcement not found")

type (
	Repository interface {
		CreateAnnouncement(ctx context.Context, a Announcement) (Announcement, error)
		GetAnnouncementByID(ctx context.Context, id string) (Announcement, error)
		QueryAnnouncementsByClassroom(ctx context.Context, classroomID string) ([]Announcement, error) // newest first
		QueryAllAnnouncements(ctx context.Context) ([]Announcement, error)
		UpdateAnnouncement(ctx context.Context, a Announcement) (Announcement, error)
		DeleteAnnouncement(ctx context.Context, id string) error
	}

	// Detail pairs an announcement with its resolved author.
	Detail struct {
		Announcement Announcement `json:"announcement"`
		Author       user.User    `json:"author"`
	}

	Service interface {
		// Create posts the announcement and emails the roster.
		Create(ctx context.Context, classroomName, classroomID string, author user.User, roster []user.User, na NewAnnouncement) (Announcement, error)
		GetByID(ctx context.Context, id string) (Announcement, error)
		// Query lists a classroom's announcements with authors resolved.
		// One whose author no longer exists is cascade-deleted and omitted.
		Query(ctx context.Context, classroomID string) ([]Detail, error)
		Update(ctx context.Context, id string, ua UpdateAnnouncement) (Announcement, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		repo     Repository
		users    user.Service
		mailSvc  core.EmailService
		resolver *integrity.Resolver
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, users user.Service, mailSvc core.EmailService, resolver *integrity.Resolver) Service {
	return &service{repo: repo, users: users, mailSvc: mailSvc, resolver: resolver}
}

func (svc *service) Create(ctx context.Context, classroomName, classroomID string, author user.User, roster []user.User, na NewAnnouncement) (Announcement, error) {
	a := Announcement{
		ClassroomID: classroomID,
		AuthorID:    author.ID,
		Title:       na.Title,
		Content:     na.Content,
		CreatedAt:   time.Now().UTC(),
	}
	a, err := svc.repo.CreateAnnouncement(ctx, a)
	if err != nil {
		return Announcement{}, err
	}

	if len(roster) > 0 {
		bcc := make([]mail.Address, len(roster))
		for i, stu := range roster {
			bcc[i] = mail.Address{Name: stu.Name, Address: stu.Email}
		}
		svc.mailSvc.SendMessages(&core.EmailMessage{
			Bcc:     bcc,
			Subject: fmt.Sprintf("[%s] %s", classroomName, a.Title),
			BodyStr: fmt.Sprintf("%s\n\n- %s", a.Content, author.Name),
		})
	}
	return a, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Announcement, error) {
	return svc.repo.GetAnnouncementByID(ctx, id)
}

func (svc *service) Query(ctx context.Context, classroomID string) ([]Detail, error) {
	anns, err := svc.repo.QueryAnnouncementsByClassroom(ctx, classroomID)
	if err != nil {
		return nil, err
	}

	results := make([]Detail, 0, len(anns))
	for i := range anns {
		a := anns[i]
		res, err := svc.resolver.Resolve(ctx, &a, integrity.FieldAuthor)
		if err != nil {
			return nil, err
		}
		if res != integrity.Valid {
			continue
		}
		author, err := svc.users.GetByID(ctx, a.AuthorID)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				continue
			}
			return nil, err
		}
		results = append(results, Detail{Announcement: a, Author: author})
	}
	return results, nil
}

func (svc *service) Update(ctx context.Context, id string, ua UpdateAnnouncement) (Announcement, error) {
	a, err := svc.repo.GetAnnouncementByID(ctx, id)
	if err != nil {
		return Announcement{}, err
	}
	if ua.Title != "" {
		a.Title = ua.Title
	}
	if ua.Content != "" {
		a.Content = ua.Content
	}
	now := time.Now().UTC()
	a.UpdatedAt = &now
	return svc.repo.UpdateAnnouncement(ctx, a)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteAnnouncement(ctx, id)
}

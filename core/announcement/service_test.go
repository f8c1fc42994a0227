package announcement_test

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/announcement"
	"github.com/trezcool/darasa/core/integrity"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/services/email"
	"github.com/trezcool/darasa/storage/inmem"
)

func setup(t *testing.T) (user.Service, announcement.Service) {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	emailsvc.SentMessages = emailsvc.SentMessages[:0]

	conf := &core.Config{AppName: "Darasa", DefaultFromEmail: mail.Address{Address: "noreply@test.test"}}
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewService(inmemdb.NewUserRepository(db))
	resolver := integrity.NewResolver(db, integrity.NewEngine(db, nil))
	svc := announcement.NewService(inmemdb.NewAnnouncementRepository(db), usrSvc, mailSvc, resolver)
	return usrSvc, svc
}

func enroll(t *testing.T, usrSvc user.Service, name, email string) user.User {
	usr, err := usrSvc.Enroll(context.Background(), user.NewStudent{Email: email, Name: name})
	if err != nil {
		t.Fatalf("enroll() failed: %v", err)
	}
	return usr
}

func TestService_Create_notifiesRoster(t *testing.T) {
	ctx := context.Background()
	usrSvc, svc := setup(t)
	prof := enroll(t, usrSvc, "Prof", "prof@test.test")
	s1 := enroll(t, usrSvc, "A", "a@test.test")
	s2 := enroll(t, usrSvc, "B", "b@test.test")

	a, err := svc.Create(ctx, "Biology 101", "class1", prof, []user.User{s1, s2}, announcement.NewAnnouncement{
		Title:   "Exam moved",
		Content: "The midterm is now on Friday.",
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if a.AuthorID != prof.ID {
		t.Errorf("AuthorID = %s, want %s", a.AuthorID, prof.ID)
	}

	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("got %d messages, want 1", len(emailsvc.SentMessages))
	}
	msg := emailsvc.SentMessages[0]
	if msg.Subject != "[Biology 101] Exam moved" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if msg.BodyStr != "The midterm is now on Friday.\n\n- Prof" {
		t.Errorf("BodyStr = %q", msg.BodyStr)
	}
	// recipients go on BCC so students never see each other's addresses
	if len(msg.To) != 0 || len(msg.Bcc) != 2 {
		t.Errorf("To = %v, Bcc = %v", msg.To, msg.Bcc)
	}
}

func TestService_Create_emptyRoster(t *testing.T) {
	ctx := context.Background()
	usrSvc, svc := setup(t)
	prof := enroll(t, usrSvc, "Prof", "prof@test.test")

	if _, err := svc.Create(ctx, "Biology 101", "class1", prof, nil, announcement.NewAnnouncement{
		Title:   "Hello",
		Content: "Anyone here?",
	}); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if len(emailsvc.SentMessages) != 0 {
		t.Errorf("got %d messages, want none", len(emailsvc.SentMessages))
	}
}

func TestService_Query_omitsDeletedAuthors(t *testing.T) {
	ctx := context.Background()
	usrSvc, svc := setup(t)
	prof := enroll(t, usrSvc, "Prof", "prof@test.test")
	ta := enroll(t, usrSvc, "TA", "ta@test.test")

	if _, err := svc.Create(ctx, "Biology 101", "class1", prof, nil, announcement.NewAnnouncement{Title: "First", Content: "one"}); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	orphaned, err := svc.Create(ctx, "Biology 101", "class1", ta, nil, announcement.NewAnnouncement{Title: "Second", Content: "two"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if err = usrSvc.Delete(ctx, ta.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	anns, err := svc.Query(ctx, "class1")
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(anns) != 1 || anns[0].Author.ID != prof.ID {
		t.Errorf("anns = %+v, want only %s's", anns, prof.ID)
	}

	// the orphan was cascade-deleted, not just hidden
	if _, err = svc.GetByID(ctx, orphaned.ID); errors.Cause(err) != announcement.ErrNotFound {
		t.Errorf("GetByID() err = %v, want %v", err, announcement.ErrNotFound)
	}
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	usrSvc, svc := setup(t)
	prof := enroll(t, usrSvc, "Prof", "prof@test.test")

	a, err := svc.Create(ctx, "Biology 101", "class1", prof, nil, announcement.NewAnnouncement{Title: "Draft", Content: "wip"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if a.UpdatedAt != nil {
		t.Errorf("fresh announcement already has UpdatedAt: %v", a.UpdatedAt)
	}

	before := time.Now().UTC()
	upd, err := svc.Update(ctx, a.ID, announcement.UpdateAnnouncement{Content: "final"})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if upd.Title != "Draft" { // empty fields keep their value
		t.Errorf("Title = %q, want Draft", upd.Title)
	}
	if upd.Content != "final" {
		t.Errorf("Content = %q, want final", upd.Content)
	}
	if upd.UpdatedAt == nil || upd.UpdatedAt.Before(before) {
		t.Errorf("UpdatedAt = %v", upd.UpdatedAt)
	}
}

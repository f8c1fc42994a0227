package user

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		GetUserByGoogleID(ctx context.Context, gid string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		// DeleteUser hard-deletes; any references to the user are left
		// dangling for the integrity layer to heal.
		DeleteUser(ctx context.Context, id string) error
	}

	Service interface {
		// Sync gets-or-creates the account matching a verified identity
		// and refreshes name/picture drift from the provider.
		Sync(ctx context.Context, ident Identity) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		UpdateProfile(ctx context.Context, id string, pu ProfileUpdate) (User, error)
		// Enroll gets-or-creates a student by email for manual roster adds
		// and CSV imports, updating any provided profile fields.
		Enroll(ctx context.Context, ns NewStudent) (User, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Sync(ctx context.Context, ident Identity) (User, error) {
	usr, err := svc.repo.GetUserByGoogleID(ctx, ident.ExternalID)
	if err == nil {
		if usr.Name != ident.Name || usr.Picture != ident.Picture {
			usr.Name = ident.Name
			usr.Picture = ident.Picture
			usr.UpdatedAt = time.Now().UTC()
			return svc.repo.UpdateUser(ctx, usr)
		}
		return usr, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return User{}, errors.Wrap(err, "finding user by identity")
	}

	// the account may predate the first sign-in (manual add / CSV import);
	// claim it instead of colliding on the unique email
	usr, err = svc.repo.GetUserByEmail(ctx, ident.Email)
	if err == nil {
		usr.GoogleID = ident.ExternalID
		usr.Name = ident.Name
		usr.Picture = ident.Picture
		usr.UpdatedAt = time.Now().UTC()
		return svc.repo.UpdateUser(ctx, usr)
	}
	if errors.Cause(err) != ErrNotFound {
		return User{}, errors.Wrap(err, "finding user by email")
	}

	now := time.Now().UTC()
	return svc.repo.CreateUser(ctx, User{
		Email:     ident.Email,
		GoogleID:  ident.ExternalID,
		Name:      ident.Name,
		Picture:   ident.Picture,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) UpdateProfile(ctx context.Context, id string, pu ProfileUpdate) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	// role is set-once; later attempts are silently ignored
	if pu.Role != "" && usr.Role == "" {
		usr.Role = pu.Role
	}
	if pu.StudentID != nil {
		usr.StudentID = *pu.StudentID
	}
	if pu.Major != nil {
		usr.Major = *pu.Major
	}
	if pu.GradYear != nil {
		usr.GradYear = *pu.GradYear
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) Enroll(ctx context.Context, ns NewStudent) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, ns.Email)
	if err == nil {
		var changed bool
		if ns.StudentID != "" && usr.StudentID != ns.StudentID {
			usr.StudentID = ns.StudentID
			changed = true
		}
		if ns.Major != "" && usr.Major != ns.Major {
			usr.Major = ns.Major
			changed = true
		}
		if ns.GradYear != 0 && usr.GradYear != ns.GradYear {
			usr.GradYear = ns.GradYear
			changed = true
		}
		if changed {
			usr.UpdatedAt = time.Now().UTC()
			return svc.repo.UpdateUser(ctx, usr)
		}
		return usr, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return User{}, errors.Wrap(err, "finding user by email")
	}

	now := time.Now().UTC()
	return svc.repo.CreateUser(ctx, User{
		Email:     ns.Email,
		GoogleID:  "imported_" + uuid.New().String(), // placeholder until first sign-in
		Name:      ns.Name,
		Picture:   AvatarURL(ns.Name),
		StudentID: ns.StudentID,
		Major:     ns.Major,
		GradYear:  ns.GradYear,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteUser(ctx, id)
}

package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core/announcement"
)

type announcementRepository struct {
	db *announcementTable
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(db *DB) announcement.Repository {
	return &announcementRepository{db: db.announcement}
}

func (repo *announcementRepository) CreateAnnouncement(ctx context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a.ID = uuid.New().String()
	repo.db.table[a.ID] = a
	return a, nil
}

func (repo *announcementRepository) GetAnnouncementByID(ctx context.Context, id string) (announcement.Announcement, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.table[id]; ok {
		return a, nil
	}
	return announcement.Announcement{}, announcement.ErrNotFound
}

func (repo *announcementRepository) QueryAnnouncementsByClassroom(ctx context.Context, classroomID string) ([]announcement.Announcement, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var res []announcement.Announcement
	for _, a := range repo.db.table {
		if a.ClassroomID == classroomID {
			res = append(res, a)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

func (repo *announcementRepository) QueryAllAnnouncements(ctx context.Context) ([]announcement.Announcement, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	res := make([]announcement.Announcement, 0, len(repo.db.table))
	for _, a := range repo.db.table {
		res = append(res, a)
	}
	return res, nil
}

func (repo *announcementRepository) UpdateAnnouncement(ctx context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[a.ID]; !ok {
		return announcement.Announcement{}, announcement.ErrNotFound
	}
	repo.db.table[a.ID] = a
	return a, nil
}

func (repo *announcementRepository) DeleteAnnouncement(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.table, id)
	return nil
}

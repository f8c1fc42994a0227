package mongodb

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/announcement"
)

type announcementRepository struct {
	coll *mongo.Collection
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(db *DB) announcement.Repository {
	return &announcementRepository{coll: db.coll(core.KindAnnouncement)}
}

func (repo *announcementRepository) CreateAnnouncement(ctx context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	a.ID = uuid.New().String()
	if _, err := repo.coll.InsertOne(ctx, a); err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "inserting announcement")
	}
	return a, nil
}

func (repo *announcementRepository) GetAnnouncementByID(ctx context.Context, id string) (announcement.Announcement, error) {
	var a announcement.Announcement
	if err := repo.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		if err == mongo.ErrNoDocuments {
			return announcement.Announcement{}, announcement.ErrNotFound
		}
		return announcement.Announcement{}, errors.Wrap(err, "finding announcement")
	}
	return a, nil
}

func (repo *announcementRepository) query(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]announcement.Announcement, error) {
	cur, err := repo.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "querying announcements")
	}
	var res []announcement.Announcement
	if err = cur.All(ctx, &res); err != nil {
		return nil, errors.Wrap(err, "decoding announcements")
	}
	return res, nil
}

func (repo *announcementRepository) QueryAnnouncementsByClassroom(ctx context.Context, classroomID string) ([]announcement.Announcement, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return repo.query(ctx, bson.M{"classroom_id": classroomID}, opts)
}

func (repo *announcementRepository) QueryAllAnnouncements(ctx context.Context) ([]announcement.Announcement, error) {
	return repo.query(ctx, bson.M{})
}

func (repo *announcementRepository) UpdateAnnouncement(ctx context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	res, err := repo.coll.ReplaceOne(ctx, bson.M{"_id": a.ID}, a)
	if err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "updating announcement")
	}
	if res.MatchedCount == 0 {
		return announcement.Announcement{}, announcement.ErrNotFound
	}
	return a, nil
}

func (repo *announcementRepository) DeleteAnnouncement(ctx context.Context, id string) error {
	_, err := repo.coll.DeleteOne(ctx, bson.M{"_id": id})
	return errors.Wrap(err, "deleting announcement")
}

package mongodb

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
)

type attendanceRepository struct {
	coll *mongo.Collection
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{coll: db.coll(core.KindAttendanceSession)}
}

func (repo *attendanceRepository) CreateSession(ctx context.Context, s attendance.Session) (attendance.Session, error) {
	s.ID = uuid.New().String()
	if _, err := repo.coll.InsertOne(ctx, s); err != nil {
		return attendance.Session{}, errors.Wrap(err, "inserting attendance session")
	}
	return s, nil
}

func (repo *attendanceRepository) GetSessionByID(ctx context.Context, id string) (attendance.Session, error) {
	var s attendance.Session
	if err := repo.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		if err == mongo.ErrNoDocuments {
			return attendance.Session{}, attendance.ErrNotFound
		}
		return attendance.Session{}, errors.Wrap(err, "finding attendance session")
	}
	return s, nil
}

func (repo *attendanceRepository) query(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]attendance.Session, error) {
	cur, err := repo.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance sessions")
	}
	var res []attendance.Session
	if err = cur.All(ctx, &res); err != nil {
		return nil, errors.Wrap(err, "decoding attendance sessions")
	}
	return res, nil
}

func (repo *attendanceRepository) QuerySessionsByClassroom(ctx context.Context, classroomID string) ([]attendance.Session, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	return repo.query(ctx, bson.M{"classroom_id": classroomID}, opts)
}

func (repo *attendanceRepository) QueryAllSessions(ctx context.Context) ([]attendance.Session, error) {
	return repo.query(ctx, bson.M{})
}

func (repo *attendanceRepository) UpdateSession(ctx context.Context, s attendance.Session) (attendance.Session, error) {
	res, err := repo.coll.ReplaceOne(ctx, bson.M{"_id": s.ID}, s)
	if err != nil {
		return attendance.Session{}, errors.Wrap(err, "updating attendance session")
	}
	if res.MatchedCount == 0 {
		return attendance.Session{}, attendance.ErrNotFound
	}
	return s, nil
}

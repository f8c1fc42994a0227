// Package mongodb is the production storage backend. Referential
// integrity is NOT enforced here: the database keeps plain string ids
// across collections and deletes never cascade. The integrity package
// owns the cleanup.
package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/darasa/core"
)

const opTimeout = 5 * time.Second

type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ core.Store = (*DB)(nil)

func Open(ctx context.Context, conf *core.Config) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.Database.URI))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongodb")
	}
	if err = client.Ping(ctx, nil); err != nil {
		return nil, errors.Wrap(err, "pinging mongodb")
	}
	return &DB{client: client, db: client.Database(conf.Database.Name)}, nil
}

func (db *DB) Close(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}

// Ping reports whether the database is reachable; the readiness probe
// calls this.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return db.client.Ping(ctx, nil)
}

// EnsureIndexes creates the unique indexes the app relies on. Uniqueness
// is index-enforced; cross-collection references are not.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	idxs := map[core.Kind][]mongo.IndexModel{
		core.KindUser: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "google_id", Value: 1}}, Options: unique},
		},
		core.KindClassroom: {
			{Keys: bson.D{{Key: "join_code", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "instructor_id", Value: 1}}},
			{Keys: bson.D{{Key: "student_ids", Value: 1}}},
		},
		core.KindAssignment: {
			{Keys: bson.D{{Key: "classroom_id", Value: 1}}},
		},
		core.KindGrade: {
			{Keys: bson.D{{Key: "assignment_id", Value: 1}, {Key: "student_id", Value: 1}}, Options: unique},
		},
		core.KindAttendanceSession: {
			{Keys: bson.D{{Key: "classroom_id", Value: 1}, {Key: "date", Value: -1}}},
		},
		core.KindAnnouncement: {
			{Keys: bson.D{{Key: "classroom_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}

	for kind, models := range idxs {
		if _, err := db.coll(kind).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "creating %s indexes", kind)
		}
	}
	return nil
}

func (db *DB) coll(kind core.Kind) *mongo.Collection {
	return db.db.Collection(string(kind))
}

func (db *DB) Exists(ctx context.Context, kind core.Kind, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.FindOne().SetProjection(bson.M{"_id": 1})
	err := db.coll(kind).FindOne(ctx, bson.M{"_id": id}, opts).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "checking %s %q existence", kind, id)
	}
	return true, nil
}

func (db *DB) Save(ctx context.Context, rec core.Record) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	_, err := db.coll(rec.RecordKind()).ReplaceOne(ctx, bson.M{"_id": rec.RecordID()}, rec, opts)
	return errors.Wrapf(err, "saving %s %q", rec.RecordKind(), rec.RecordID())
}

func (db *DB) Delete(ctx context.Context, rec core.Record) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := db.coll(rec.RecordKind()).DeleteOne(ctx, bson.M{"_id": rec.RecordID()})
	return errors.Wrapf(err, "deleting %s %q", rec.RecordKind(), rec.RecordID())
}

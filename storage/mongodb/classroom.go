package mongodb

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/classroom"
)

type classroomRepository struct {
	coll *mongo.Collection
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(db *DB) classroom.Repository {
	return &classroomRepository{coll: db.coll(core.KindClassroom)}
}

func (repo *classroomRepository) CreateClassroom(ctx context.Context, c classroom.Classroom) (classroom.Classroom, error) {
	c.ID = uuid.New().String()
	if _, err := repo.coll.InsertOne(ctx, c); err != nil {
		return classroom.Classroom{}, errors.Wrap(err, "inserting classroom")
	}
	return c, nil
}

func (repo *classroomRepository) getOne(ctx context.Context, filter bson.M) (classroom.Classroom, error) {
	var c classroom.Classroom
	if err := repo.coll.FindOne(ctx, filter).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return classroom.Classroom{}, classroom.ErrNotFound
		}
		return classroom.Classroom{}, errors.Wrap(err, "finding classroom")
	}
	return c, nil
}

func (repo *classroomRepository) GetClassroomByID(ctx context.Context, id string) (classroom.Classroom, error) {
	return repo.getOne(ctx, bson.M{"_id": id})
}

func (repo *classroomRepository) GetClassroomByJoinCode(ctx context.Context, code string) (classroom.Classroom, error) {
	return repo.getOne(ctx, bson.M{"join_code": code})
}

func (repo *classroomRepository) query(ctx context.Context, filter bson.M) ([]classroom.Classroom, error) {
	cur, err := repo.coll.Find(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying classrooms")
	}
	var res []classroom.Classroom
	if err = cur.All(ctx, &res); err != nil {
		return nil, errors.Wrap(err, "decoding classrooms")
	}
	return res, nil
}

func (repo *classroomRepository) QueryClassroomsByInstructor(ctx context.Context, instructorID string) ([]classroom.Classroom, error) {
	return repo.query(ctx, bson.M{"instructor_id": instructorID})
}

func (repo *classroomRepository) QueryClassroomsByStudent(ctx context.Context, studentID string) ([]classroom.Classroom, error) {
	return repo.query(ctx, bson.M{"student_ids": studentID})
}

func (repo *classroomRepository) QueryAllClassrooms(ctx context.Context) ([]classroom.Classroom, error) {
	return repo.query(ctx, bson.M{})
}

func (repo *classroomRepository) UpdateClassroom(ctx context.Context, c classroom.Classroom) (classroom.Classroom, error) {
	res, err := repo.coll.ReplaceOne(ctx, bson.M{"_id": c.ID}, c)
	if err != nil {
		return classroom.Classroom{}, errors.Wrap(err, "updating classroom")
	}
	if res.MatchedCount == 0 {
		return classroom.Classroom{}, classroom.ErrNotFound
	}
	return c, nil
}

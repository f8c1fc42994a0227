package mongodb

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/grading"
)

type gradingRepository struct {
	assignments *mongo.Collection
	grades      *mongo.Collection
}

var _ grading.Repository = (*gradingRepository)(nil) // interface compliance check

func NewGradingRepository(db *DB) grading.Repository {
	return &gradingRepository{
		assignments: db.coll(core.KindAssignment),
		grades:      db.coll(core.KindGrade),
	}
}

func (repo *gradingRepository) CreateAssignment(ctx context.Context, a grading.Assignment) (grading.Assignment, error) {
	a.ID = uuid.New().String()
	if _, err := repo.assignments.InsertOne(ctx, a); err != nil {
		return grading.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return a, nil
}

func (repo *gradingRepository) GetAssignmentByID(ctx context.Context, id string) (grading.Assignment, error) {
	var a grading.Assignment
	if err := repo.assignments.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		if err == mongo.ErrNoDocuments {
			return grading.Assignment{}, grading.ErrAssignmentNotFound
		}
		return grading.Assignment{}, errors.Wrap(err, "finding assignment")
	}
	return a, nil
}

func (repo *gradingRepository) QueryAssignmentsByClassroom(ctx context.Context, classroomID string) ([]grading.Assignment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := repo.assignments.Find(ctx, bson.M{"classroom_id": classroomID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	var res []grading.Assignment
	if err = cur.All(ctx, &res); err != nil {
		return nil, errors.Wrap(err, "decoding assignments")
	}
	return res, nil
}

func (repo *gradingRepository) GetGrade(ctx context.Context, assignmentID, studentID string) (grading.Grade, error) {
	var g grading.Grade
	filter := bson.M{"assignment_id": assignmentID, "student_id": studentID}
	if err := repo.grades.FindOne(ctx, filter).Decode(&g); err != nil {
		if err == mongo.ErrNoDocuments {
			return grading.Grade{}, grading.ErrGradeNotFound
		}
		return grading.Grade{}, errors.Wrap(err, "finding grade")
	}
	return g, nil
}

func (repo *gradingRepository) queryGrades(ctx context.Context, filter bson.M) ([]grading.Grade, error) {
	cur, err := repo.grades.Find(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	var res []grading.Grade
	if err = cur.All(ctx, &res); err != nil {
		return nil, errors.Wrap(err, "decoding grades")
	}
	return res, nil
}

func (repo *gradingRepository) QueryGradesByAssignment(ctx context.Context, assignmentID string) ([]grading.Grade, error) {
	return repo.queryGrades(ctx, bson.M{"assignment_id": assignmentID})
}

func (repo *gradingRepository) QueryGradesByAssignments(ctx context.Context, assignmentIDs []string) ([]grading.Grade, error) {
	return repo.queryGrades(ctx, bson.M{"assignment_id": bson.M{"$in": assignmentIDs}})
}

func (repo *gradingRepository) QueryAllGrades(ctx context.Context) ([]grading.Grade, error) {
	return repo.queryGrades(ctx, bson.M{})
}

func (repo *gradingRepository) UpsertGrade(ctx context.Context, g grading.Grade) (grading.Grade, error) {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	// the (assignment, student) unique index turns a concurrent double
	// insert into a duplicate key error instead of a second row
	filter := bson.M{"assignment_id": g.AssignmentID, "student_id": g.StudentID}
	opts := options.Replace().SetUpsert(true)
	if _, err := repo.grades.ReplaceOne(ctx, filter, g, opts); err != nil {
		return grading.Grade{}, errors.Wrap(err, "upserting grade")
	}
	return g, nil
}

package activity

import (
	"context"
	"fmt"

	"smart-time-tracker/src/clients"
	"smart-time-tracker/src/internal/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository is the storage collaborator behind ingestion and the log query.
type Repository interface {
	InsertMany(ctx context.Context, records []*Record) error
	Find(ctx context.Context, query *ListQuery) ([]*Record, error)
}

type activityRepository struct {
	collection    *mongo.Collection
	transactional bool
}

// NewActivityRepository stores records in collectionName. With transactional
// set, each batch is inserted inside a session transaction so a failed batch
// leaves nothing behind; this needs a replica set or sharded cluster.
func NewActivityRepository(mongoClient *clients.MongoDB, collectionName string, transactional bool) Repository {
	return newActivityRepository(mongoClient.Database.Collection(collectionName), transactional)
}

func newActivityRepository(collection *mongo.Collection, transactional bool) *activityRepository {
	return &activityRepository{
		collection:    collection,
		transactional: transactional,
	}
}

// EnsureIndexes creates the index serving per-user newest-first queries.
func EnsureIndexes(ctx context.Context, mongoClient *clients.MongoDB, collectionName string) error {
	_, err := mongoClient.Database.Collection(collectionName).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("%w: create activity index: %v", models.ErrDatabaseQuery, err)
	}
	return nil
}

func (r *activityRepository) InsertMany(ctx context.Context, records []*Record) error {
	docs := make([]interface{}, 0, len(records))
	for _, rec := range records {
		docs = append(docs, rec)
	}

	insert := r.insert
	if r.transactional {
		insert = r.insertInTransaction
	}
	if err := insert(ctx, docs); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"batch":         len(records),
			"transactional": r.transactional,
		}).Error("Failed to insert activity logs")
		return fmt.Errorf("%w: %v", models.ErrDatabaseInsert, err)
	}

	logrus.WithField("count", len(docs)).Debug("Activity logs inserted")
	return nil
}

// insert is an ordered insert: it stops at the first failing document and
// keeps the ones before it.
func (r *activityRepository) insert(ctx context.Context, docs []interface{}) error {
	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	return err
}

// insertInTransaction aborts the whole batch when any document fails.
func (r *activityRepository) insertInTransaction(ctx context.Context, docs []interface{}) error {
	session, err := r.collection.Database().Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, r.insert(sc, docs)
	})
	return err
}

func (r *activityRepository) Find(ctx context.Context, query *ListQuery) ([]*Record, error) {
	filter := bson.M{}
	if query.UserID != "" {
		filter["user_id"] = query.UserID
	}

	window := bson.M{}
	if !query.From.IsZero() {
		window["$gte"] = query.From
	}
	if !query.To.IsZero() {
		window["$lte"] = query.To
	}
	if len(window) > 0 {
		filter["created_at"] = window
	}

	opts := options.Find().
		SetLimit(query.Limit).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		logrus.WithError(err).Error("Failed to find activity logs")
		return nil, fmt.Errorf("%w: %v", models.ErrDatabaseQuery, err)
	}
	defer cursor.Close(ctx)

	records := make([]*Record, 0)
	for cursor.Next(ctx) {
		var rec Record
		if err := cursor.Decode(&rec); err != nil {
			logrus.WithError(err).Error("Failed to decode activity log")
			return nil, fmt.Errorf("%w: decode activity log: %v", models.ErrDatabaseQuery, err)
		}
		records = append(records, &rec)
	}

	if err := cursor.Err(); err != nil {
		logrus.WithError(err).Error("Cursor error")
		return nil, fmt.Errorf("%w: %v", models.ErrDatabaseQuery, err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id": query.UserID,
		"count":   len(records),
		"limit":   query.Limit,
	}).Debug("Retrieved activity logs")

	return records, nil
}

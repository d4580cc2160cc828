package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/fleet-tracking/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Snapshot listing limits.
const (
	DefaultSnapshotLimit = 20
	MaxSnapshotLimit     = 200
)

var errNilCollection = errors.New("mongo collection is nil")

// ConnectMongo connects to MongoDB and verifies the connection.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri is empty")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// MongoSnapshotCollection wraps a MongoDB collection for report snapshots.
type MongoSnapshotCollection struct {
	Collection *mongo.Collection
}

// NewMongoSnapshotCollection returns the snapshot collection of a database.
func NewMongoSnapshotCollection(client *mongo.Client, database, collection string) *MongoSnapshotCollection {
	return &MongoSnapshotCollection{Collection: client.Database(database).Collection(collection)}
}

// EnsureIndexes creates the created_at index used by ListSnapshots.
func (c *MongoSnapshotCollection) EnsureIndexes(ctx context.Context) error {
	if c.Collection == nil {
		return errNilCollection
	}
	_, err := c.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "report_type", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return err
}

// InsertSnapshot inserts a snapshot and sets its generated id.
func (c *MongoSnapshotCollection) InsertSnapshot(ctx context.Context, snapshot *models.ReportSnapshot) error {
	if c.Collection == nil {
		return errNilCollection
	}
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now().UTC()
	}
	res, err := c.Collection.InsertOne(ctx, snapshot)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		snapshot.ID = id
	}
	return nil
}

// mongoSnapshotCursor wraps a MongoDB cursor for snapshot queries.
type mongoSnapshotCursor struct {
	cursor *mongo.Cursor
}

// All retrieves all results from the cursor.
func (m *mongoSnapshotCursor) All(ctx context.Context, out interface{}) error {
	return m.cursor.All(ctx, out)
}

// Close closes the cursor.
func (m *mongoSnapshotCursor) Close(ctx context.Context) error {
	return m.cursor.Close(ctx)
}

// Find queries snapshot records from the collection.
func (c *MongoSnapshotCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (SnapshotCursor, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	cursor, err := c.Collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return &mongoSnapshotCursor{cursor: cursor}, nil
}

// ListSnapshots returns the newest snapshots first.
func (c *MongoSnapshotCollection) ListSnapshots(ctx context.Context, limit int64) ([]models.ReportSnapshot, error) {
	switch {
	case limit <= 0:
		limit = DefaultSnapshotLimit
	case limit > MaxSnapshotLimit:
		limit = MaxSnapshotLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	snapshots := []models.ReportSnapshot{}
	if err := cursor.All(ctx, &snapshots); err != nil {
		return nil, err
	}
	return snapshots, nil
}

// DeleteAll deletes all snapshots from the collection.
func (c *MongoSnapshotCollection) DeleteAll(ctx context.Context) error {
	if c.Collection == nil {
		return errNilCollection
	}
	_, err := c.Collection.DeleteMany(ctx, bson.M{})
	return err
}

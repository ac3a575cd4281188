package db

import (
	"context"
	"fmt"
	"time"

	"catalog/internal/config"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Client owns the Mongo connection pool and the two catalog databases.
type Client struct {
	client    *mongo.Client
	Prosmart  *mongo.Database
	Hydralite *mongo.Database
}

// New sets up a Mongo connection pool and pings the primary.
func New(cfg config.MongoConfig) (*Client, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxConnIdleTime(cfg.MaxConnIdleTime).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ServerSelection).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	// Covers server selection and the first round trip. If it runs out the
	// service refuses to start.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Client{
		client:    client,
		Prosmart:  client.Database(cfg.ProsmartDB),
		Hydralite: client.Database(cfg.HydraliteDB),
	}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

type index struct {
	collection string
	keys       bson.D
}

var prosmartIndexes = []index{
	{"products", bson.D{{Key: "category_id", Value: 1}}},
	{"products", bson.D{{Key: "subcategory_id", Value: 1}}},
	{"products", bson.D{
		{Key: "product_name", Value: "text"},
		{Key: "product_title", Value: "text"},
		{Key: "product_description", Value: "text"},
	}},
	{"products", bson.D{{Key: "created_at", Value: -1}}},
	{"products", bson.D{{Key: "category_id", Value: 1}, {Key: "subcategory_id", Value: 1}}},
	{"categories", bson.D{{Key: "category_id", Value: 1}}},
	{"categories", bson.D{{Key: "category_name", Value: 1}}},
	{"subcategories", bson.D{{Key: "category_id", Value: 1}}},
	{"subcategories", bson.D{{Key: "subcategory_id", Value: 1}}},
	{"subcategories", bson.D{{Key: "category_id", Value: 1}, {Key: "subcategory_id", Value: 1}}},
	{"admins", bson.D{{Key: "username", Value: 1}}},
}

var hydraliteIndexes = []index{
	{"products", bson.D{{Key: "id", Value: 1}}},
	{"products", bson.D{{Key: "category", Value: 1}}},
	{"categories", bson.D{{Key: "id", Value: 1}}},
	{"categories", bson.D{{Key: "name", Value: 1}}},
}

// EnsureIndexes creates the query indexes of both databases. Creating an
// index that already exists is a no-op.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	if err := ensure(ctx, c.Prosmart, prosmartIndexes); err != nil {
		return err
	}
	return ensure(ctx, c.Hydralite, hydraliteIndexes)
}

func ensure(ctx context.Context, db *mongo.Database, indexes []index) error {
	byCollection := make(map[string][]mongo.IndexModel)
	var order []string
	for _, idx := range indexes {
		if _, ok := byCollection[idx.collection]; !ok {
			order = append(order, idx.collection)
		}
		byCollection[idx.collection] = append(byCollection[idx.collection], mongo.IndexModel{Keys: idx.keys})
	}
	for _, name := range order {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, byCollection[name]); err != nil {
			return fmt.Errorf("create indexes on %s.%s: %w", db.Name(), name, err)
		}
	}
	return nil
}

package admins

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

var (
	ErrNotFound          = errors.New("admin not found")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrPasswordRequired  = errors.New("password is not set")
)

const adminsColl = "admins"

type Store interface {
	GetByUsername(ctx context.Context, username string) (*Admin, error)
	GetByID(ctx context.Context, id string) (*Admin, error)
	Create(ctx context.Context, a *Admin) error
	TouchLastLogin(ctx context.Context, id bson.ObjectID) error
}

type Repository struct {
	db *mongo.Database
}

func NewRepository(db *mongo.Database) Store {
	return &Repository{db: db}
}

func (r *Repository) coll() *mongo.Collection { return r.db.Collection(adminsColl) }

func (r *Repository) findOne(ctx context.Context, filter bson.D) (*Admin, error) {
	var doc document
	if err := r.coll().FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return doc.admin(), nil
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (*Admin, error) {
	return r.findOne(ctx, bson.D{{Key: "username", Value: username}})
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Admin, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, bson.D{{Key: "_id", Value: oid}})
}

// Create inserts an admin whose password has been Set.
func (r *Repository) Create(ctx context.Context, a *Admin) error {
	if len(a.Password.hash) == 0 {
		return ErrPasswordRequired
	}
	if a.Role == "" {
		a.Role = RoleAdmin
	}
	if a.Permissions == nil {
		a.Permissions = []string{}
	}
	a.CreatedAt = time.Now().UTC()

	res, err := r.coll().InsertOne(ctx, document{Admin: *a, Hash: string(a.Password.hash)})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	if oid, ok := res.InsertedID.(bson.ObjectID); ok {
		a.ID = oid
	}
	return nil
}

func (r *Repository) TouchLastLogin(ctx context.Context, id bson.ObjectID) error {
	now := time.Now().UTC()
	res, err := r.coll().UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: bson.D{{Key: "last_login", Value: now}}}})
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

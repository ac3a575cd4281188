package hydralite

import (
	"time"

	"catalog/internal/assets"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// MaxHeroProducts caps the hero section selection.
const MaxHeroProducts = 2

type KeyFeature struct {
	Title       string `json:"title" bson:"title" validate:"required"`
	Description string `json:"description" bson:"description"`
}

// Product is a Hydralite product with a mixed image/video gallery.
type Product struct {
	ObjectID    bson.ObjectID   `json:"_id" bson:"_id,omitempty"`
	ID          string          `json:"id" bson:"id"`
	Name        string          `json:"name" bson:"name"`
	Description string          `json:"description" bson:"description"`
	Category    string          `json:"category,omitempty" bson:"category,omitempty"`
	Subcategory string          `json:"subcategory,omitempty" bson:"subcategory,omitempty"`
	Assets      []assets.Record `json:"assets" bson:"assets"`
	KeyFeatures []KeyFeature    `json:"key_features,omitempty" bson:"key_features,omitempty"`
	CreatedAt   time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" bson:"updated_at"`
}

type Category struct {
	ObjectID  bson.ObjectID `json:"_id" bson:"_id,omitempty"`
	ID        string        `json:"id" bson:"id"`
	Name      string        `json:"name" bson:"name"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" bson:"updated_at"`
}

// Selection is an ordered list of product ids kept in a single document,
// used for the priority list and the hero section.
type Selection struct {
	Products  []string  `json:"products" bson:"products"`
	UpdatedAt time.Time `json:"updated_at,omitzero" bson:"updated_at"`
}

type ProductFilter struct {
	Search   string
	Category string
}

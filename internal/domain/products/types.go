package products

import "time"

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Product is a ProSmart product. The gallery is stored as an ordered list
// of delivery URLs; image_urls[0] is the listing image.
type Product struct {
	ID            string    `json:"_id" bson:"_id"`
	ProductID     string    `json:"product_id" bson:"product_id"`
	Name          string    `json:"product_name" bson:"product_name"`
	Title         string    `json:"product_title" bson:"product_title"`
	Description   string    `json:"product_description" bson:"product_description"`
	ImageURLs     []string  `json:"image_urls" bson:"image_urls"`
	ImageCount    int       `json:"image_count" bson:"image_count"`
	CategoryID    string    `json:"category_id" bson:"category_id"`
	SubcategoryID string    `json:"subcategory_id" bson:"subcategory_id"`
	Status        string    `json:"status" bson:"status"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
}

type Category struct {
	ID               string    `json:"_id" bson:"_id"`
	CategoryID       string    `json:"category_id" bson:"category_id"`
	Name             string    `json:"category_name" bson:"category_name"`
	Description      string    `json:"description" bson:"description"`
	ProductIDs       []string  `json:"product_ids" bson:"product_ids"`
	SubcategoryIDs   []string  `json:"subcategory_ids" bson:"subcategory_ids"`
	ProductCount     int       `json:"product_count" bson:"product_count"`
	SubcategoryCount int       `json:"subcategory_count" bson:"subcategory_count"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" bson:"updated_at"`
}

type Subcategory struct {
	ID            string    `json:"_id" bson:"_id"`
	SubcategoryID string    `json:"subcategory_id" bson:"subcategory_id"`
	Name          string    `json:"subcategory_name" bson:"subcategory_name"`
	CategoryID    string    `json:"category_id" bson:"category_id"`
	Description   string    `json:"description" bson:"description"`
	ProductIDs    []string  `json:"product_ids" bson:"product_ids"`
	ProductCount  int       `json:"product_count" bson:"product_count"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
}

// ProductFilter narrows a product listing. "all" or empty means no filter.
type ProductFilter struct {
	Search        string
	CategoryID    string
	SubcategoryID string
}

// ProductUpdate holds the editable fields of PUT /products/{id}.
type ProductUpdate struct {
	Name          string
	Title         string
	Description   string
	CategoryID    string
	SubcategoryID string
	Status        string
	ImageURLs     []string
}

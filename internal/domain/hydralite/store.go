package hydralite

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"catalog/internal/assets"
	"catalog/internal/params"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrDuplicateProduct  = errors.New("product with this id already exists")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrDuplicateCategory = errors.New("category already exists")
	ErrCategoryInUse     = errors.New("category is used by products")
	ErrTooManyHero       = fmt.Errorf("maximum %d products allowed for hero section", MaxHeroProducts)
)

// MissingProductError names a selected product id that does not exist.
type MissingProductError struct {
	ID string
}

func (e *MissingProductError) Error() string {
	return fmt.Sprintf("product with ID %s not found", e.ID)
}

// CategoryInUseError reports how many products still use a category.
type CategoryInUseError struct {
	Count int64
}

func (e *CategoryInUseError) Error() string {
	return fmt.Sprintf("cannot delete category: %d product(s) are using this category", e.Count)
}

func (e *CategoryInUseError) Unwrap() error { return ErrCategoryInUse }

const (
	productsColl   = "products"
	categoriesColl = "categories"
	priorityColl   = "productsPriority"
	heroColl       = "HeroSectionCustomization"
)

// Store is the data access abstraction for the Hydralite catalog.
type Store interface {
	ProductIDExists(ctx context.Context, id string) (bool, error)
	ListProducts(ctx context.Context, f ProductFilter, page *params.Pagination) ([]Product, int, error)
	GetProduct(ctx context.Context, ref string) (*Product, error)
	CreateProduct(ctx context.Context, p *Product) error
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, p *Product) error

	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, ref string) (*Category, error)
	CreateCategory(ctx context.Context, c *Category) error
	RenameCategory(ctx context.Context, ref, name string) (*Category, error)
	DeleteCategory(ctx context.Context, ref string) error

	GetPriority(ctx context.Context) (*Selection, error)
	SetPriority(ctx context.Context, ids []string) (*Selection, error)
	GetHero(ctx context.Context) (*Selection, error)
	SetHero(ctx context.Context, ids []string) (*Selection, error)
}

type Repository struct {
	db *mongo.Database
}

func NewRepository(db *mongo.Database) Store {
	return &Repository{db: db}
}

// byRef matches a document by ObjectID hex when ref parses as one, or by
// its string id field otherwise.
func byRef(ref string) bson.D {
	if oid, err := bson.ObjectIDFromHex(ref); err == nil {
		return bson.D{{Key: "_id", Value: oid}}
	}
	return bson.D{{Key: "id", Value: ref}}
}

func exactName(name string) bson.Regex {
	return bson.Regex{Pattern: "^" + regexp.QuoteMeta(name) + "$", Options: "i"}
}

// ------------------------------------
// Products
// ------------------------------------

func productQuery(f ProductFilter) bson.D {
	q := bson.D{}
	if f.Search != "" {
		rx := bson.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		q = append(q, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "name", Value: rx}},
			bson.D{{Key: "description", Value: rx}},
			bson.D{{Key: "category", Value: rx}},
		}})
	}
	if f.Category != "" && f.Category != "all" {
		q = append(q, bson.E{Key: "category", Value: f.Category})
	}
	return q
}

// ListProducts returns products newest first; a nil page returns all.
func (r *Repository) ListProducts(ctx context.Context, f ProductFilter, page *params.Pagination) ([]Product, int, error) {
	coll := r.db.Collection(productsColl)
	q := productQuery(f)
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}})

	var total int64
	if page != nil {
		n, err := coll.CountDocuments(ctx, q)
		if err != nil {
			return nil, 0, fmt.Errorf("count products: %w", err)
		}
		total = n
		opts = opts.SetSkip(int64(page.Offset)).SetLimit(int64(page.Limit))
	}

	cur, err := coll.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find products: %w", err)
	}
	out := []Product{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, fmt.Errorf("decode products: %w", err)
	}
	if page == nil {
		total = int64(len(out))
	}
	return out, int(total), nil
}

func (r *Repository) GetProduct(ctx context.Context, ref string) (*Product, error) {
	var p Product
	if err := r.db.Collection(productsColl).FindOne(ctx, byRef(ref)).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

func (r *Repository) ProductIDExists(ctx context.Context, id string) (bool, error) {
	n, err := r.db.Collection(productsColl).CountDocuments(ctx, bson.D{{Key: "id", Value: id}}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check product id: %w", err)
	}
	return n > 0, nil
}

// CreateProduct inserts p. Product ids are unique.
func (r *Repository) CreateProduct(ctx context.Context, p *Product) error {
	taken, err := r.ProductIDExists(ctx, p.ID)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicateProduct
	}

	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Assets == nil {
		p.Assets = []assets.Record{}
	}
	res, err := r.db.Collection(productsColl).InsertOne(ctx, p)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	if oid, ok := res.InsertedID.(bson.ObjectID); ok {
		p.ObjectID = oid
	}
	return nil
}

func (r *Repository) UpdateProduct(ctx context.Context, p *Product) error {
	p.UpdatedAt = time.Now().UTC()
	set := bson.D{
		{Key: "name", Value: p.Name},
		{Key: "description", Value: p.Description},
		{Key: "assets", Value: p.Assets},
		{Key: "updated_at", Value: p.UpdatedAt},
	}
	unset := bson.D{}
	for _, field := range []struct {
		key   string
		value any
		empty bool
	}{
		{"category", p.Category, p.Category == ""},
		{"subcategory", p.Subcategory, p.Subcategory == ""},
		{"key_features", p.KeyFeatures, len(p.KeyFeatures) == 0},
	} {
		if field.empty {
			unset = append(unset, bson.E{Key: field.key, Value: ""})
		} else {
			set = append(set, bson.E{Key: field.key, Value: field.value})
		}
	}

	update := bson.D{{Key: "$set", Value: set}}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}
	res, err := r.db.Collection(productsColl).UpdateOne(ctx, bson.D{{Key: "_id", Value: p.ObjectID}}, update)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *Repository) DeleteProduct(ctx context.Context, p *Product) error {
	res, err := r.db.Collection(productsColl).DeleteOne(ctx, bson.D{{Key: "_id", Value: p.ObjectID}})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

// ------------------------------------
// Categories
// ------------------------------------

func (r *Repository) ListCategories(ctx context.Context) ([]Category, error) {
	cur, err := r.db.Collection(categoriesColl).Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}
	out := []Category{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	return out, nil
}

func (r *Repository) GetCategory(ctx context.Context, ref string) (*Category, error) {
	var c Category
	if err := r.db.Collection(categoriesColl).FindOne(ctx, byRef(ref)).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

func (r *Repository) nameTaken(ctx context.Context, name string, exclude *Category) (bool, error) {
	filter := bson.D{{Key: "name", Value: exactName(name)}}
	if exclude != nil {
		filter = append(filter, bson.E{Key: "_id", Value: bson.D{{Key: "$ne", Value: exclude.ObjectID}}})
	}
	n, err := r.db.Collection(categoriesColl).CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check category name: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) CreateCategory(ctx context.Context, c *Category) error {
	taken, err := r.nameTaken(ctx, c.Name, nil)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicateCategory
	}

	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	res, err := r.db.Collection(categoriesColl).InsertOne(ctx, c)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	if oid, ok := res.InsertedID.(bson.ObjectID); ok {
		c.ObjectID = oid
	}
	return nil
}

func (r *Repository) RenameCategory(ctx context.Context, ref, name string) (*Category, error) {
	c, err := r.GetCategory(ctx, ref)
	if err != nil {
		return nil, err
	}
	taken, err := r.nameTaken(ctx, name, c)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateCategory
	}

	c.Name = name
	c.UpdatedAt = time.Now().UTC()
	set := bson.D{{Key: "name", Value: c.Name}, {Key: "updated_at", Value: c.UpdatedAt}}
	res, err := r.db.Collection(categoriesColl).UpdateOne(ctx, bson.D{{Key: "_id", Value: c.ObjectID}}, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return nil, fmt.Errorf("rename category: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrCategoryNotFound
	}
	return c, nil
}

// DeleteCategory refuses while any product references the category by name.
func (r *Repository) DeleteCategory(ctx context.Context, ref string) error {
	c, err := r.GetCategory(ctx, ref)
	if err != nil {
		return err
	}
	n, err := r.db.Collection(productsColl).CountDocuments(ctx, bson.D{{Key: "category", Value: c.Name}})
	if err != nil {
		return fmt.Errorf("count category products: %w", err)
	}
	if n > 0 {
		return &CategoryInUseError{Count: n}
	}

	res, err := r.db.Collection(categoriesColl).DeleteOne(ctx, bson.D{{Key: "_id", Value: c.ObjectID}})
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// ------------------------------------
// Priority and hero selections
// ------------------------------------

func (r *Repository) GetPriority(ctx context.Context) (*Selection, error) {
	return r.getSelection(ctx, priorityColl)
}

func (r *Repository) SetPriority(ctx context.Context, ids []string) (*Selection, error) {
	return r.setSelection(ctx, priorityColl, ids)
}

func (r *Repository) GetHero(ctx context.Context) (*Selection, error) {
	return r.getSelection(ctx, heroColl)
}

func (r *Repository) SetHero(ctx context.Context, ids []string) (*Selection, error) {
	if len(ids) > MaxHeroProducts {
		return nil, ErrTooManyHero
	}
	return r.setSelection(ctx, heroColl, ids)
}

func (r *Repository) getSelection(ctx context.Context, coll string) (*Selection, error) {
	var s Selection
	if err := r.db.Collection(coll).FindOne(ctx, bson.D{}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &Selection{Products: []string{}}, nil
		}
		return nil, fmt.Errorf("get %s: %w", coll, err)
	}
	if s.Products == nil {
		s.Products = []string{}
	}
	return &s, nil
}

// setSelection checks that every non-empty id names an existing product and
// upserts the single selection document.
func (r *Repository) setSelection(ctx context.Context, coll string, ids []string) (*Selection, error) {
	if ids == nil {
		ids = []string{}
	}
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, err := r.GetProduct(ctx, id); err != nil {
			if errors.Is(err, ErrProductNotFound) {
				return nil, &MissingProductError{ID: id}
			}
			return nil, err
		}
	}

	s := &Selection{Products: ids, UpdatedAt: time.Now().UTC()}
	set := bson.D{{Key: "products", Value: s.Products}, {Key: "updated_at", Value: s.UpdatedAt}}
	_, err := r.db.Collection(coll).UpdateOne(ctx, bson.D{}, bson.D{{Key: "$set", Value: set}}, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", coll, err)
	}
	return s, nil
}

package products

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"catalog/internal/params"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var (
	ErrProductNotFound           = errors.New("product not found")
	ErrCategoryNotFound          = errors.New("category not found")
	ErrSubcategoryNotFound       = errors.New("subcategory not found")
	ErrDuplicateCategory         = errors.New("category with this name already exists")
	ErrDuplicateSubcategory      = errors.New("subcategory with this name already exists in this category")
	ErrCategoryHasProducts       = errors.New("cannot delete category with existing products")
	ErrCategoryHasSubcategories  = errors.New("cannot delete category with existing subcategories")
	ErrSubcategoriesHaveProducts = errors.New("cannot delete: one or more subcategories have products")
	ErrSubcategoryHasProducts    = errors.New("cannot delete subcategory with existing products")
)

const (
	productsColl      = "products"
	categoriesColl    = "categories"
	subcategoriesColl = "subcategories"
)

// Store is the data access abstraction for the ProSmart catalog.
// Implemented by Repository (which uses a mongo.Database).
type Store interface {
	// Products
	ProductIDExists(ctx context.Context, id string) (bool, error)
	ListProducts(ctx context.Context, f ProductFilter, page *params.Pagination) ([]Product, int, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	CreateProduct(ctx context.Context, p *Product) error
	UpdateProduct(ctx context.Context, prev *Product, u ProductUpdate) (*Product, error)
	MoveProduct(ctx context.Context, productID, subcategoryID string) (*Product, error)
	DeleteProduct(ctx context.Context, p *Product) error

	// Categories
	CategoryIDExists(ctx context.Context, id string) (bool, error)
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id string) (*Category, error)
	CreateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id string, cascade bool) (int, error)

	// Subcategories
	SubcategoryIDExists(ctx context.Context, id string) (bool, error)
	ListSubcategories(ctx context.Context, categoryID string) ([]Subcategory, error)
	GetSubcategory(ctx context.Context, id string) (*Subcategory, error)
	CreateSubcategory(ctx context.Context, s *Subcategory) error
	DeleteSubcategory(ctx context.Context, id string) error
}

type Repository struct {
	db *mongo.Database
}

func NewRepository(db *mongo.Database) Store {
	return &Repository{db: db}
}

func (r *Repository) products() *mongo.Collection { return r.db.Collection(productsColl) }
func (r *Repository) categories() *mongo.Collection { return r.db.Collection(categoriesColl) }
func (r *Repository) subcategories() *mongo.Collection { return r.db.Collection(subcategoriesColl) }

// exactName matches a name case-insensitively. The input is quoted so that
// regex metacharacters in names match literally.
func exactName(name string) bson.Regex {
	return bson.Regex{Pattern: "^" + regexp.QuoteMeta(name) + "$", Options: "i"}
}

func contains(s string) bson.Regex {
	return bson.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

func exists(ctx context.Context, coll *mongo.Collection, filter any) (bool, error) {
	n, err := coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ------------------------------------
// Products
// ------------------------------------

func (r *Repository) ProductIDExists(ctx context.Context, id string) (bool, error) {
	return exists(ctx, r.products(), bson.D{{Key: "_id", Value: id}})
}

func productQuery(f ProductFilter) bson.D {
	q := bson.D{}
	if f.Search != "" {
		rx := contains(f.Search)
		q = append(q, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "product_name", Value: rx}},
			bson.D{{Key: "product_title", Value: rx}},
			bson.D{{Key: "product_description", Value: rx}},
		}})
	}
	if f.CategoryID != "" && f.CategoryID != "all" {
		q = append(q, bson.E{Key: "category_id", Value: f.CategoryID})
	}
	if f.SubcategoryID != "" && f.SubcategoryID != "all" {
		q = append(q, bson.E{Key: "subcategory_id", Value: f.SubcategoryID})
	}
	return q
}

// ListProducts returns products newest first. With a nil page every match
// is returned.
func (r *Repository) ListProducts(ctx context.Context, f ProductFilter, page *params.Pagination) ([]Product, int, error) {
	q := productQuery(f)
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var total int64
	if page != nil {
		n, err := r.products().CountDocuments(ctx, q)
		if err != nil {
			return nil, 0, fmt.Errorf("count products: %w", err)
		}
		total = n
		opts = opts.SetSkip(int64(page.Offset)).SetLimit(int64(page.Limit))
	}

	cur, err := r.products().Find(ctx, q, opts)
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

func (r *Repository) GetProduct(ctx context.Context, id string) (*Product, error) {
	var p Product
	err := r.products().FindOne(ctx, bson.D{{Key: "product_id", Value: id}}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// CreateProduct inserts p and records it in its category and subcategory.
func (r *Repository) CreateProduct(ctx context.Context, p *Product) error {
	now := time.Now().UTC()
	p.ID = p.ProductID
	p.ImageCount = len(p.ImageURLs)
	if p.Status == "" {
		p.Status = StatusActive
	}
	p.CreatedAt, p.UpdatedAt = now, now

	if _, err := r.products().InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	if err := r.addMembership(ctx, p.ProductID, p.CategoryID, p.SubcategoryID, now); err != nil {
		return err
	}
	return nil
}

func (r *Repository) UpdateProduct(ctx context.Context, prev *Product, u ProductUpdate) (*Product, error) {
	next := *prev
	if u.Name != "" {
		next.Name = u.Name
	}
	if u.Title != "" {
		next.Title = u.Title
	}
	if u.Description != "" {
		next.Description = u.Description
	}
	if u.CategoryID != "" {
		next.CategoryID = u.CategoryID
	}
	if u.SubcategoryID != "" {
		next.SubcategoryID = u.SubcategoryID
	}
	if u.Status == StatusActive || u.Status == StatusInactive {
		next.Status = u.Status
	} else {
		next.Status = StatusActive
	}
	if u.ImageURLs != nil {
		next.ImageURLs = u.ImageURLs
	}
	next.ImageCount = len(next.ImageURLs)
	next.UpdatedAt = time.Now().UTC()

	set := bson.D{
		{Key: "product_name", Value: next.Name},
		{Key: "product_title", Value: next.Title},
		{Key: "product_description", Value: next.Description},
		{Key: "category_id", Value: next.CategoryID},
		{Key: "subcategory_id", Value: next.SubcategoryID},
		{Key: "image_urls", Value: next.ImageURLs},
		{Key: "image_count", Value: next.ImageCount},
		{Key: "status", Value: next.Status},
		{Key: "updated_at", Value: next.UpdatedAt},
	}
	res, err := r.products().UpdateOne(ctx, bson.D{{Key: "product_id", Value: prev.ProductID}}, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrProductNotFound
	}

	if err := r.moveMembership(ctx, prev, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

// MoveProduct reassigns a product to another subcategory. The category
// follows the subcategory.
func (r *Repository) MoveProduct(ctx context.Context, productID, subcategoryID string) (*Product, error) {
	sub, err := r.GetSubcategory(ctx, subcategoryID)
	if err != nil {
		return nil, err
	}
	prev, err := r.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	next := *prev
	next.SubcategoryID = sub.ID
	next.CategoryID = sub.CategoryID
	next.UpdatedAt = time.Now().UTC()

	set := bson.D{
		{Key: "subcategory_id", Value: next.SubcategoryID},
		{Key: "category_id", Value: next.CategoryID},
		{Key: "updated_at", Value: next.UpdatedAt},
	}
	res, err := r.products().UpdateOne(ctx, bson.D{{Key: "product_id", Value: productID}}, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return nil, fmt.Errorf("move product: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrProductNotFound
	}
	if err := r.moveMembership(ctx, prev, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

func (r *Repository) DeleteProduct(ctx context.Context, p *Product) error {
	res, err := r.products().DeleteOne(ctx, bson.D{{Key: "product_id", Value: p.ProductID}})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrProductNotFound
	}
	return r.removeMembership(ctx, p.ProductID, p.CategoryID, p.SubcategoryID, time.Now().UTC())
}

func (r *Repository) moveMembership(ctx context.Context, prev, next *Product) error {
	if prev.CategoryID == next.CategoryID && prev.SubcategoryID == next.SubcategoryID {
		return nil
	}
	now := time.Now().UTC()
	if err := r.removeMembership(ctx, prev.ProductID, prev.CategoryID, prev.SubcategoryID, now); err != nil {
		return err
	}
	return r.addMembership(ctx, next.ProductID, next.CategoryID, next.SubcategoryID, now)
}

func (r *Repository) addMembership(ctx context.Context, productID, categoryID, subcategoryID string, now time.Time) error {
	update := bson.D{
		{Key: "$push", Value: bson.D{{Key: "product_ids", Value: productID}}},
		{Key: "$inc", Value: bson.D{{Key: "product_count", Value: 1}}},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: now}}},
	}
	if _, err := r.categories().UpdateOne(ctx, bson.D{{Key: "_id", Value: categoryID}}, update); err != nil {
		return fmt.Errorf("add product to category: %w", err)
	}
	if _, err := r.subcategories().UpdateOne(ctx, bson.D{{Key: "_id", Value: subcategoryID}}, update); err != nil {
		return fmt.Errorf("add product to subcategory: %w", err)
	}
	return nil
}

func (r *Repository) removeMembership(ctx context.Context, productID, categoryID, subcategoryID string, now time.Time) error {
	update := bson.D{
		{Key: "$pull", Value: bson.D{{Key: "product_ids", Value: productID}}},
		{Key: "$inc", Value: bson.D{{Key: "product_count", Value: -1}}},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: now}}},
	}
	if _, err := r.categories().UpdateOne(ctx, bson.D{{Key: "_id", Value: categoryID}, {Key: "product_ids", Value: productID}}, update); err != nil {
		return fmt.Errorf("remove product from category: %w", err)
	}
	if _, err := r.subcategories().UpdateOne(ctx, bson.D{{Key: "_id", Value: subcategoryID}, {Key: "product_ids", Value: productID}}, update); err != nil {
		return fmt.Errorf("remove product from subcategory: %w", err)
	}
	return nil
}

// ------------------------------------
// Categories
// ------------------------------------

func (r *Repository) CategoryIDExists(ctx context.Context, id string) (bool, error) {
	return exists(ctx, r.categories(), bson.D{{Key: "_id", Value: id}})
}

type countRow struct {
	ID    string `bson:"_id"`
	Count int    `bson:"count"`
}

// countBy groups coll by field over the given ids.
func countBy(ctx context.Context, coll *mongo.Collection, field string, ids []string) (map[string]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: field, Value: bson.D{{Key: "$in", Value: ids}}}}}},
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$" + field}, {Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
	}
	cur, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []countRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.ID] = row.Count
	}
	return out, nil
}

// ListCategories returns every category with live product and subcategory
// counts.
func (r *Repository) ListCategories(ctx context.Context) ([]Category, error) {
	cur, err := r.categories().Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "category_name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}
	out := []Category{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, len(out))
	for i, c := range out {
		ids[i] = c.ID
	}
	products, err := countBy(ctx, r.products(), "category_id", ids)
	if err != nil {
		return nil, fmt.Errorf("count category products: %w", err)
	}
	subs, err := countBy(ctx, r.subcategories(), "category_id", ids)
	if err != nil {
		return nil, fmt.Errorf("count category subcategories: %w", err)
	}
	for i := range out {
		out[i].ProductCount = products[out[i].ID]
		out[i].SubcategoryCount = subs[out[i].ID]
	}
	return out, nil
}

func (r *Repository) GetCategory(ctx context.Context, id string) (*Category, error) {
	var c Category
	filter := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "category_id", Value: id}},
	}}}
	if err := r.categories().FindOne(ctx, filter).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

func (r *Repository) CreateCategory(ctx context.Context, c *Category) error {
	dup, err := exists(ctx, r.categories(), bson.D{{Key: "category_name", Value: exactName(c.Name)}})
	if err != nil {
		return fmt.Errorf("check category name: %w", err)
	}
	if dup {
		return ErrDuplicateCategory
	}

	now := time.Now().UTC()
	c.ID = c.CategoryID
	c.ProductIDs = []string{}
	c.SubcategoryIDs = []string{}
	c.ProductCount, c.SubcategoryCount = 0, 0
	c.CreatedAt, c.UpdatedAt = now, now
	if _, err := r.categories().InsertOne(ctx, c); err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

// DeleteCategory refuses to delete a category that still has products.
// Subcategories block the delete unless cascade is set and all of them are
// empty, in which case they are deleted too. It returns the number of
// subcategories removed.
func (r *Repository) DeleteCategory(ctx context.Context, id string, cascade bool) (int, error) {
	hasProducts, err := exists(ctx, r.products(), bson.D{{Key: "category_id", Value: id}})
	if err != nil {
		return 0, fmt.Errorf("check category products: %w", err)
	}
	if err := checkCategoryDelete(hasProducts, 0, false, false); err != nil {
		return 0, err
	}

	subs, err := r.ListSubcategories(ctx, id)
	if err != nil {
		return 0, err
	}

	busy := false
	if cascade && len(subs) > 0 {
		ids := make([]string, len(subs))
		for i, s := range subs {
			ids[i] = s.ID
		}
		busy, err = exists(ctx, r.products(), bson.D{{Key: "subcategory_id", Value: bson.D{{Key: "$in", Value: ids}}}})
		if err != nil {
			return 0, fmt.Errorf("check subcategory products: %w", err)
		}
	}
	if err := checkCategoryDelete(hasProducts, len(subs), busy, cascade); err != nil {
		return 0, err
	}

	removed := 0
	if len(subs) > 0 {
		res, err := r.subcategories().DeleteMany(ctx, bson.D{{Key: "category_id", Value: id}})
		if err != nil {
			return 0, fmt.Errorf("delete subcategories: %w", err)
		}
		removed = int(res.DeletedCount)
	}

	res, err := r.categories().DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return removed, fmt.Errorf("delete category: %w", err)
	}
	if res.DeletedCount == 0 {
		return removed, ErrCategoryNotFound
	}
	return removed, nil
}

// checkCategoryDelete applies the category delete rules: products always
// block, subcategories block unless cascade is set and none of them has
// products.
func checkCategoryDelete(hasProducts bool, subcategories int, subcategoriesBusy, cascade bool) error {
	switch {
	case hasProducts:
		return ErrCategoryHasProducts
	case subcategories == 0:
		return nil
	case !cascade:
		return ErrCategoryHasSubcategories
	case subcategoriesBusy:
		return ErrSubcategoriesHaveProducts
	}
	return nil
}

// ------------------------------------
// Subcategories
// ------------------------------------

func (r *Repository) SubcategoryIDExists(ctx context.Context, id string) (bool, error) {
	return exists(ctx, r.subcategories(), bson.D{{Key: "_id", Value: id}})
}

// ListSubcategories returns the subcategories of categoryID, or all of them
// when categoryID is empty, with live product counts.
func (r *Repository) ListSubcategories(ctx context.Context, categoryID string) ([]Subcategory, error) {
	filter := bson.D{}
	if categoryID != "" {
		filter = bson.D{{Key: "category_id", Value: categoryID}}
	}
	cur, err := r.subcategories().Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "subcategory_name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find subcategories: %w", err)
	}
	out := []Subcategory{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode subcategories: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, len(out))
	for i, s := range out {
		ids[i] = s.ID
	}
	counts, err := countBy(ctx, r.products(), "subcategory_id", ids)
	if err != nil {
		return nil, fmt.Errorf("count subcategory products: %w", err)
	}
	for i := range out {
		out[i].ProductCount = counts[out[i].ID]
	}
	return out, nil
}

func (r *Repository) GetSubcategory(ctx context.Context, id string) (*Subcategory, error) {
	var s Subcategory
	filter := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "subcategory_id", Value: id}},
	}}}
	if err := r.subcategories().FindOne(ctx, filter).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSubcategoryNotFound
		}
		return nil, fmt.Errorf("get subcategory: %w", err)
	}
	return &s, nil
}

// CreateSubcategory inserts s under an existing category. Names are unique
// per category, case-insensitively.
func (r *Repository) CreateSubcategory(ctx context.Context, s *Subcategory) error {
	cat, err := r.GetCategory(ctx, s.CategoryID)
	if err != nil {
		return err
	}
	dup, err := exists(ctx, r.subcategories(), bson.D{
		{Key: "category_id", Value: cat.ID},
		{Key: "subcategory_name", Value: exactName(s.Name)},
	})
	if err != nil {
		return fmt.Errorf("check subcategory name: %w", err)
	}
	if dup {
		return ErrDuplicateSubcategory
	}

	now := time.Now().UTC()
	s.ID = s.SubcategoryID
	s.CategoryID = cat.ID
	s.ProductIDs = []string{}
	s.ProductCount = 0
	s.CreatedAt, s.UpdatedAt = now, now
	if _, err := r.subcategories().InsertOne(ctx, s); err != nil {
		return fmt.Errorf("insert subcategory: %w", err)
	}

	update := bson.D{
		{Key: "$push", Value: bson.D{{Key: "subcategory_ids", Value: s.ID}}},
		{Key: "$inc", Value: bson.D{{Key: "subcategory_count", Value: 1}}},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: now}}},
	}
	if _, err := r.categories().UpdateOne(ctx, bson.D{{Key: "_id", Value: cat.ID}}, update); err != nil {
		return fmt.Errorf("add subcategory to category: %w", err)
	}
	return nil
}

func (r *Repository) DeleteSubcategory(ctx context.Context, id string) error {
	sub, err := r.GetSubcategory(ctx, id)
	if err != nil {
		return err
	}
	busy, err := exists(ctx, r.products(), bson.D{{Key: "subcategory_id", Value: sub.ID}})
	if err != nil {
		return fmt.Errorf("check subcategory products: %w", err)
	}
	if busy {
		return ErrSubcategoryHasProducts
	}

	res, err := r.subcategories().DeleteOne(ctx, bson.D{{Key: "_id", Value: sub.ID}})
	if err != nil {
		return fmt.Errorf("delete subcategory: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrSubcategoryNotFound
	}

	update := bson.D{
		{Key: "$pull", Value: bson.D{{Key: "subcategory_ids", Value: sub.ID}}},
		{Key: "$inc", Value: bson.D{{Key: "subcategory_count", Value: -1}}},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: time.Now().UTC()}}},
	}
	if _, err := r.categories().UpdateOne(ctx, bson.D{{Key: "_id", Value: sub.CategoryID}}, update); err != nil {
		return fmt.Errorf("remove subcategory from category: %w", err)
	}
	return nil
}

package main

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"catalog/internal/assets"
	"catalog/internal/auth"
	"catalog/internal/cache"
	"catalog/internal/config"
	"catalog/internal/domain/admins"
	"catalog/internal/domain/hydralite"
	"catalog/internal/domain/products"
	"catalog/internal/domain/storage"
	"catalog/internal/idgen"
	"catalog/internal/params"
	"catalog/internal/ratelimiter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

const cdnPrefix = "https://cdn.test/"

type stubObjects struct {
	mu      sync.Mutex
	uploads []string
	deletes []string
	failUp  bool
	pingErr error
}

func (s *stubObjects) Upload(_ context.Context, _ []byte, _ assets.Kind, dest assets.Destination) (string, error) {
	if s.failUp {
		return "", errors.New("store unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, dest.Key())
	return cdnPrefix + dest.Key(), nil
}

func (s *stubObjects) Delete(_ context.Context, id assets.Identifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, id.Key)
	return nil
}

func (s *stubObjects) ExtractIdentifier(url string) (assets.Identifier, bool) {
	if !strings.HasPrefix(url, cdnPrefix) {
		return assets.Identifier{}, false
	}
	return assets.Identifier{Key: strings.TrimPrefix(url, cdnPrefix), Kind: assets.KindFromURL(url)}, true
}

func (s *stubObjects) Ping(context.Context) error { return s.pingErr }
func (s *stubObjects) Name() string               { return "stub" }

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

// stubProducts implements the calls the handlers under test make; any other
// call panics on the nil embedded Store.
type stubProducts struct {
	products.Store
	items             map[string]*products.Product
	cats              map[string]*products.Category
	subs              map[string]*products.Subcategory
	createErr         error
	deleteErr         error
	deleteCategoryErr error
}

func newStubProducts() *stubProducts {
	return &stubProducts{
		items: map[string]*products.Product{},
		cats:  map[string]*products.Category{"cat001a": {ID: "cat001a", CategoryID: "cat001a", Name: "Skin Care"}},
		subs:  map[string]*products.Subcategory{"sub0001a": {ID: "sub0001a", SubcategoryID: "sub0001a", Name: "Gels", CategoryID: "cat001a"}},
	}
}

func (s *stubProducts) ProductIDExists(_ context.Context, id string) (bool, error) {
	_, ok := s.items[id]
	return ok, nil
}

func (s *stubProducts) GetProduct(_ context.Context, id string) (*products.Product, error) {
	p, ok := s.items[id]
	if !ok {
		return nil, products.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *stubProducts) CreateProduct(_ context.Context, p *products.Product) error {
	if s.createErr != nil {
		return s.createErr
	}
	p.ID = p.ProductID
	p.ImageCount = len(p.ImageURLs)
	s.items[p.ProductID] = p
	return nil
}

func (s *stubProducts) UpdateProduct(_ context.Context, prev *products.Product, u products.ProductUpdate) (*products.Product, error) {
	next := *prev
	if u.Name != "" {
		next.Name = u.Name
	}
	next.CategoryID, next.SubcategoryID = u.CategoryID, u.SubcategoryID
	next.ImageURLs = u.ImageURLs
	next.ImageCount = len(u.ImageURLs)
	s.items[next.ProductID] = &next
	return &next, nil
}

func (s *stubProducts) DeleteProduct(_ context.Context, p *products.Product) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.items, p.ProductID)
	return nil
}

func (s *stubProducts) GetCategory(_ context.Context, id string) (*products.Category, error) {
	c, ok := s.cats[id]
	if !ok {
		return nil, products.ErrCategoryNotFound
	}
	return c, nil
}

func (s *stubProducts) GetSubcategory(_ context.Context, id string) (*products.Subcategory, error) {
	sub, ok := s.subs[id]
	if !ok {
		return nil, products.ErrSubcategoryNotFound
	}
	return sub, nil
}

func (s *stubProducts) ListCategories(context.Context) ([]products.Category, error) {
	out := []products.Category{}
	for _, c := range s.cats {
		out = append(out, *c)
	}
	return out, nil
}

func (s *stubProducts) DeleteCategory(_ context.Context, id string, _ bool) (int, error) {
	if _, ok := s.cats[id]; !ok {
		return 0, products.ErrCategoryNotFound
	}
	return 0, s.deleteCategoryErr
}

type stubHydralite struct {
	hydralite.Store
	items     map[string]*hydralite.Product
	deleteErr error
}

func (s *stubHydralite) ProductIDExists(_ context.Context, id string) (bool, error) {
	_, ok := s.items[id]
	return ok, nil
}

func (s *stubHydralite) CreateProduct(_ context.Context, p *hydralite.Product) error {
	s.items[p.ID] = p
	return nil
}

func (s *stubHydralite) GetProduct(_ context.Context, ref string) (*hydralite.Product, error) {
	p, ok := s.items[ref]
	if !ok {
		return nil, hydralite.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *stubHydralite) UpdateProduct(_ context.Context, p *hydralite.Product) error {
	s.items[p.ID] = p
	return nil
}

func (s *stubHydralite) DeleteProduct(_ context.Context, p *hydralite.Product) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.items, p.ID)
	return nil
}

func (s *stubHydralite) ListProducts(context.Context, hydralite.ProductFilter, *params.Pagination) ([]hydralite.Product, int, error) {
	out := []hydralite.Product{}
	for _, p := range s.items {
		out = append(out, *p)
	}
	return out, len(out), nil
}

type stubAdmins struct {
	admins.Store
	byName map[string]*admins.Admin
}

func (s *stubAdmins) GetByUsername(_ context.Context, username string) (*admins.Admin, error) {
	a, ok := s.byName[username]
	if !ok {
		return nil, admins.ErrNotFound
	}
	return a, nil
}

func (s *stubAdmins) GetByID(_ context.Context, id string) (*admins.Admin, error) {
	for _, a := range s.byName {
		if a.ID.Hex() == id {
			return a, nil
		}
	}
	return nil, admins.ErrNotFound
}

func (s *stubAdmins) TouchLastLogin(context.Context, bson.ObjectID) error { return nil }

type testEnv struct {
	app       *application
	handler   http.Handler
	objects   *stubObjects
	products  *stubProducts
	hydralite *stubHydralite
	admin     *admins.Admin
	token     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		App: config.AppConfig{Env: "test", FrontendURL: "http://localhost:3000"},
		Assets: config.AssetsConfig{
			UploadConcurrency: 2,
			Timeout:           5 * time.Second,
			CompensateOnAbort: true,
			MaxUploadBytes:    10 << 20,
		},
		Auth:        config.AuthConfig{BasicUser: "ops", BasicPass: "pw"},
		RateLimiter: config.RateLimiterConfig{Enabled: true, Requests: 2, Window: time.Minute},
	}

	logger := zap.NewNop().Sugar()
	objects := &stubObjects{}
	reconciler, err := assets.NewReconciler(objects, logger, nil, assets.Config{UploadConcurrency: 2, Timeout: 5 * time.Second, CompensateOnAbort: true})
	require.NoError(t, err)

	ids, err := idgen.NewWithSeed(1, 2, "test-salt")
	require.NoError(t, err)

	admin := &admins.Admin{ID: bson.NewObjectID(), Username: "root", Role: admins.RoleAdmin, IsActive: true}
	require.NoError(t, admin.Password.Set("s3cret!"))

	env := &testEnv{
		objects:   objects,
		products:  newStubProducts(),
		hydralite: &stubHydralite{items: map[string]*hydralite.Product{}},
		admin:     admin,
	}

	authenticator := auth.NewJWTAuthenticator("test-secret", "catalog-admin", time.Hour)
	env.token, _, err = authenticator.GenerateToken(admin.ID.Hex(), admin.Role)
	require.NoError(t, err)

	env.app = &application{
		config: cfg,
		store: &storage.Container{
			Products:  env.products,
			Hydralite: env.hydralite,
			Admins:    &stubAdmins{byName: map[string]*admins.Admin{"root": admin}},
		},
		db:            stubPinger{},
		objects:       objects,
		assets:        reconciler,
		ids:           ids,
		cache:         cache.New(16, time.Minute),
		logger:        logger,
		authenticator: authenticator,
		rateLimiter:   ratelimiter.NewFixedWindowLimiter(cfg.RateLimiter.Requests, cfg.RateLimiter.Window),
		registry:      prometheus.NewRegistry(),
	}
	env.handler = env.app.mount()
	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	if authed {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

type testFile struct {
	field       string
	name        string
	contentType string
	data        []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...testFile) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		if f.contentType != "" {
			h.Set("Content-Type", f.contentType)
		}
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

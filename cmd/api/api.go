package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalog/docs" //this is required to generate swagger docs
	"catalog/internal/assets"
	"catalog/internal/auth"
	"catalog/internal/cache"
	"catalog/internal/config"
	"catalog/internal/domain/storage"
	"catalog/internal/idgen"
	"catalog/internal/objectstore"
	"catalog/internal/ratelimiter"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type application struct {
	config        *config.Config
	store         *storage.Container
	db            pinger
	objects       objectstore.Store
	assets        *assets.Reconciler
	ids           *idgen.Generator
	cache         *cache.Cache
	logger        *zap.SugaredLogger
	authenticator auth.Authenticator
	rateLimiter   ratelimiter.Limiter
	registry      *prometheus.Registry
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{app.config.App.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// uploads of large galleries need more than the default request budget
	r.Use(middleware.Timeout(app.config.Assets.Timeout + 30*time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(app.BasicAuthMiddleware())
			r.Get("/health", app.healthCheckHandler)
			r.Get("/health/storage", app.storageHealthHandler)
			r.Get("/debug/vars", expvar.Handler().ServeHTTP)
			r.Handle("/debug/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))
		})

		docsURL := fmt.Sprintf("%s/v1/swagger/doc.json", app.config.App.ExternalURL)
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(docsURL)))

		r.Route("/auth", func(r chi.Router) {
			r.With(app.RateLimiterMiddleware).Post("/login", app.loginHandler)
			r.Post("/logout", app.logoutHandler)
			r.With(app.SessionMiddleware).Get("/me", app.meHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(app.SessionMiddleware)

			r.Route("/products", func(r chi.Router) {
				r.Get("/", app.listProductsHandler)
				r.Post("/", app.createProductHandler)
				r.Route("/{productID}", func(r chi.Router) {
					r.Get("/", app.getProductHandler)
					r.Put("/", app.updateProductHandler)
					r.Patch("/", app.moveProductHandler)
					r.Delete("/", app.deleteProductHandler)
				})
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", app.listCategoriesHandler)
				r.Post("/", app.createCategoryHandler)
				r.Get("/{categoryID}/subcategories", app.listCategorySubcategoriesHandler)
				r.Delete("/{categoryID}", app.deleteCategoryHandler)
			})

			r.Route("/subcategories", func(r chi.Router) {
				r.Get("/", app.listSubcategoriesHandler)
				r.Post("/", app.createSubcategoryHandler)
				r.Delete("/{subcategoryID}", app.deleteSubcategoryHandler)
			})

			r.Route("/hydralite", func(r chi.Router) {
				r.Route("/products", func(r chi.Router) {
					r.Get("/", app.listHydraliteProductsHandler)
					r.Post("/", app.createHydraliteProductHandler)
					r.Get("/{id}", app.getHydraliteProductHandler)
					r.Put("/{id}", app.updateHydraliteProductHandler)
					r.Delete("/{id}", app.deleteHydraliteProductHandler)
				})
				r.Route("/categories", func(r chi.Router) {
					r.Get("/", app.listHydraliteCategoriesHandler)
					r.Post("/", app.createHydraliteCategoryHandler)
					r.Get("/{id}", app.getHydraliteCategoryHandler)
					r.Put("/{id}", app.renameHydraliteCategoryHandler)
					r.Delete("/{id}", app.deleteHydraliteCategoryHandler)
				})
				r.Get("/priority", app.getPriorityHandler)
				r.Put("/priority", app.setPriorityHandler)
				r.Get("/hero", app.getHeroHandler)
				r.Put("/hero", app.setHeroHandler)
			})

			r.Get("/export/products", app.exportProductsHandler)
		})
	})
	return r
}

func (app *application) run(mux http.Handler) error {
	// Docs
	docs.SwaggerInfo.Version = version
	docs.SwaggerInfo.Host = app.config.App.ExternalURL
	docs.SwaggerInfo.BasePath = "/v1"

	srv := &http.Server{
		Addr:         app.config.App.Addr,
		Handler:      mux,
		WriteTimeout: app.config.Assets.Timeout + time.Minute,
		ReadTimeout:  time.Minute,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.App.Addr, "env", app.config.App.Env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.App.Addr, "env", app.config.App.Env)

	return nil
}

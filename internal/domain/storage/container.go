package storage

import (
	"catalog/internal/db"
	"catalog/internal/domain/admins"
	"catalog/internal/domain/hydralite"
	"catalog/internal/domain/products"
)

// Container groups the repositories of both catalogs. Admin accounts live in
// the ProSmart database.
type Container struct {
	Products  products.Store
	Hydralite hydralite.Store
	Admins    admins.Store
}

func NewContainer(client *db.Client) *Container {
	return &Container{
		Products:  products.NewRepository(client.Prosmart),
		Hydralite: hydralite.NewRepository(client.Hydralite),
		Admins:    admins.NewRepository(client.Prosmart),
	}
}

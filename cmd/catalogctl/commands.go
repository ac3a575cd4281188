package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"catalog/internal/config"
	"catalog/internal/db"
	"catalog/internal/domain/admins"
	"catalog/internal/domain/storage"
	"catalog/internal/export"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// withStore connects to MongoDB for the duration of fn.
func withStore(ctx context.Context, fn func(ctx context.Context, client *db.Client, store *storage.Container, logger *zap.SugaredLogger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	base, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	logger := base.Sugar().Named("catalogctl")
	defer logger.Sync()

	client, err := db.New(cfg.Mongo)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := client.Close(closeCtx); err != nil {
			logger.Warnw("close mongo client", "error", err)
		}
	}()

	return fn(ctx, client, storage.NewContainer(client), logger)
}

func newExportCmd() *cobra.Command {
	var (
		brand  string
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every product of a brand to xlsx or json",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := export.ParseBrand(brand)
			if err != nil {
				return err
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			return withStore(cmd.Context(), func(ctx context.Context, _ *db.Client, store *storage.Container, logger *zap.SugaredLogger) error {
				sheet, err := export.Load(ctx, store.Products, store.Hydralite, b)
				if err != nil {
					return err
				}

				var w io.Writer = cmd.OutOrStdout()
				path := out
				if path != "-" {
					if path == "" {
						path = export.Filename(b, f, time.Now())
					} else if info, err := os.Stat(path); err == nil && info.IsDir() {
						path = filepath.Join(path, export.Filename(b, f, time.Now()))
					}
					file, err := os.Create(path)
					if err != nil {
						return err
					}
					defer file.Close()
					w = file
				}

				if err := export.Write(w, f, sheet); err != nil {
					return err
				}
				if path != "-" {
					logger.Infow("export written", "brand", b, "format", f, "rows", len(sheet.Rows), "path", path)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&brand, "brand", "", "prosmart or hydralite")
	cmd.Flags().StringVar(&format, "format", "xlsx", "xlsx or json")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file or directory, - for stdout (default {brand}_export_{date}.{ext})")
	_ = cmd.MarkFlagRequired("brand")
	return cmd
}

func newIndexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create the MongoDB indexes both catalogs rely on",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, client *db.Client, _ *storage.Container, logger *zap.SugaredLogger) error {
				ctx, cancel := context.WithTimeout(ctx, time.Minute)
				defer cancel()
				if err := client.EnsureIndexes(ctx); err != nil {
					return err
				}
				logger.Info("indexes ensured")
				return nil
			})
		},
	}
}

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin panel accounts",
	}
	cmd.AddCommand(newAdminCreateCmd())
	return cmd
}

func newAdminCreateCmd() *cobra.Command {
	var (
		username string
		email    string
		role     string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account, reading the password from ADMIN_PASSWORD",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw := os.Getenv("ADMIN_PASSWORD")
			if pw == "" {
				return errors.New("ADMIN_PASSWORD is not set")
			}
			if role != admins.RoleAdmin && role != admins.RoleSuperAdmin {
				return fmt.Errorf("unknown role %q", role)
			}

			a := &admins.Admin{Username: username, Email: email, Role: role, IsActive: true}
			if err := a.Password.Set(pw); err != nil {
				return err
			}

			return withStore(cmd.Context(), func(ctx context.Context, _ *db.Client, store *storage.Container, logger *zap.SugaredLogger) error {
				if err := store.Admins.Create(ctx, a); err != nil {
					return err
				}
				logger.Infow("admin created", "id", a.ID.Hex(), "username", a.Username, "role", a.Role)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Login name")
	cmd.Flags().StringVar(&email, "email", "", "Contact email")
	cmd.Flags().StringVar(&role, "role", admins.RoleAdmin, "admin or super_admin")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

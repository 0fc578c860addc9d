package repository

import (
	"context"

	"github.com/myagiz61/backend/internal/domain/model"
)

// -----------------------------
// Package catalog
// -----------------------------

type PackageRepository interface {
	// Save upserts by name; seeding is idempotent.
	Save(ctx context.Context, tx Tx, p *model.Package) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Package, error)
	FindByName(ctx context.Context, tx Tx, name string) (*model.Package, error)
	ListActiveByKind(ctx context.Context, tx Tx, kind model.PackageKind) ([]*model.Package, error)
}

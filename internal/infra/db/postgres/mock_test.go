//go:build !integration

package postgres

import (
	"context"
	"time"

	"github.com/myagiz61/backend/internal/domain/model"
	"github.com/myagiz61/backend/internal/domain/ports/repository"
	red "github.com/myagiz61/backend/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerPackageRepo mocks the database repository that the package decorator wraps.
type mockInnerPackageRepo struct {
	SaveFunc             func(ctx context.Context, tx repository.Tx, p *model.Package) error
	FindByIDFunc         func(ctx context.Context, tx repository.Tx, id string) (*model.Package, error)
	FindByNameFunc       func(ctx context.Context, tx repository.Tx, name string) (*model.Package, error)
	ListActiveByKindFunc func(ctx context.Context, tx repository.Tx, kind model.PackageKind) ([]*model.Package, error)
}

func (m *mockInnerPackageRepo) Save(ctx context.Context, tx repository.Tx, p *model.Package) error {
	return m.SaveFunc(ctx, tx, p)
}
func (m *mockInnerPackageRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Package, error) {
	return m.FindByIDFunc(ctx, tx, id)
}
func (m *mockInnerPackageRepo) FindByName(ctx context.Context, tx repository.Tx, name string) (*model.Package, error) {
	return m.FindByNameFunc(ctx, tx, name)
}
func (m *mockInnerPackageRepo) ListActiveByKind(ctx context.Context, tx repository.Tx, kind model.PackageKind) ([]*model.Package, error) {
	return m.ListActiveByKindFunc(ctx, tx, kind)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc func(ctx context.Context, key string) (string, error)
	SetFunc func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc func(ctx context.Context, keys ...string) error
}

var _ red.Cache = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc == nil {
		return nil
	}
	return m.DelFunc(ctx, keys...)
}

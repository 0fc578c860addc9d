package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/myagiz61/backend/internal/domain/model"
	"github.com/myagiz61/backend/internal/domain/ports/repository"
	"github.com/myagiz61/backend/internal/infra/metrics"
	red "github.com/myagiz61/backend/internal/infra/redis"
)

var _ repository.PackageRepository = (*packageRepoCacheDecorator)(nil)

// packageRepoCacheDecorator caches catalog reads made outside a transaction.
// Reads inside a transaction always hit the database.
type packageRepoCacheDecorator struct {
	inner repository.PackageRepository
	cache red.Cache
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewPackageRepoCacheDecorator(inner repository.PackageRepository, cache red.Cache, ttl time.Duration, logger *zerolog.Logger) repository.PackageRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	l := logger.With().Str("component", "PackageCache").Logger()
	return &packageRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   ttl,
		log:   &l,
	}
}

func packageIDKey(id string) string { return "package:id:" + id }

func packageNameKey(name string) string { return "package:name:" + name }

func packageKindKey(kind model.PackageKind) string { return "packages:kind:" + string(kind) }

// Save invalidates every key the package can be read under.
func (d *packageRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, p *model.Package) error {
	if err := d.inner.Save(ctx, tx, p); err != nil {
		return err
	}
	if err := d.cache.Del(ctx,
		packageIDKey(p.ID), packageNameKey(p.Name),
		packageKindKey(model.PackageKindMembership), packageKindKey(model.PackageKindBoost),
	); err != nil {
		d.log.Warn().Err(err).Str("package", p.Name).Msg("cache invalidation failed")
	}
	return nil
}

func (d *packageRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Package, error) {
	if tx != nil {
		return d.inner.FindByID(ctx, tx, id)
	}
	return d.one(ctx, packageIDKey(id), func() (*model.Package, error) { return d.inner.FindByID(ctx, tx, id) })
}

func (d *packageRepoCacheDecorator) FindByName(ctx context.Context, tx repository.Tx, name string) (*model.Package, error) {
	if tx != nil {
		return d.inner.FindByName(ctx, tx, name)
	}
	return d.one(ctx, packageNameKey(name), func() (*model.Package, error) { return d.inner.FindByName(ctx, tx, name) })
}

func (d *packageRepoCacheDecorator) ListActiveByKind(ctx context.Context, tx repository.Tx, kind model.PackageKind) ([]*model.Package, error) {
	if tx != nil {
		return d.inner.ListActiveByKind(ctx, tx, kind)
	}
	key := packageKindKey(kind)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var pkgs []*model.Package
		if json.Unmarshal([]byte(val), &pkgs) == nil {
			metrics.IncCacheRequest("package_list", "hit")
			return pkgs, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		d.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	metrics.IncCacheRequest("package_list", "miss")
	pkgs, err := d.inner.ListActiveByKind(ctx, tx, kind)
	if err != nil {
		return nil, err
	}
	if len(pkgs) > 0 {
		d.store(ctx, key, pkgs)
	}
	return pkgs, nil
}

func (d *packageRepoCacheDecorator) one(ctx context.Context, key string, load func() (*model.Package, error)) (*model.Package, error) {
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var p model.Package
		if json.Unmarshal([]byte(val), &p) == nil {
			metrics.IncCacheRequest("package", "hit")
			return &p, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		d.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	metrics.IncCacheRequest("package", "miss")
	p, err := load()
	if err != nil {
		return nil, err
	}
	d.store(ctx, key, p)
	return p, nil
}

func (d *packageRepoCacheDecorator) store(ctx context.Context, key string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/myagiz61/backend/internal/config"
	pg "github.com/myagiz61/backend/internal/infra/db/postgres"
	"github.com/myagiz61/backend/internal/infra/logging"
	"github.com/myagiz61/backend/internal/usecase"
)

func main() {
	// ---- Config ----
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log.Level, "console", false, true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Connect Postgres
	pool, err := pg.Connect(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	catalogUC := usecase.NewCatalogUseCase(pg.NewPostgresPackageRepo(pool), pg.NewListingRepo(pool), logger)

	// If the catalog already exists, do nothing
	memberships, err := catalogUC.ListMemberships(ctx)
	if err != nil {
		log.Fatalf("list packages: %v", err)
	}
	boosts, err := catalogUC.ListBoosts(ctx)
	if err != nil {
		log.Fatalf("list packages: %v", err)
	}
	if len(memberships)+len(boosts) > 0 {
		fmt.Printf("%d packages already present. No changes.\n", len(memberships)+len(boosts))
		for _, p := range append(memberships, boosts...) {
			fmt.Printf("  - %s (%s, days=%d, price=%s TRY)\n", p.Name, p.Kind, p.DurationDays, p.Price.StringFixed(2))
		}
		return
	}

	if err := catalogUC.Seed(ctx); err != nil {
		log.Fatalf("seed catalog: %v", err)
	}
	fmt.Println("Seeding complete.")
}

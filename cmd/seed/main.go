// seed carga un catálogo de ítems (CSV sku;name;type;active) en la tabla items.
// El catálogo real lo administra otro módulo; esto solo sirve para bases de desarrollo.
//
// Uso: go run ./cmd/seed -file catalogo.csv [-encoding auto|utf-8|iso-8859-1] [-dry-run]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jhoicas/inventory-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/inventory-ledger/pkg/config"
	"github.com/jhoicas/inventory-ledger/pkg/logger"
)

func main() {
	file := flag.String("file", "catalogo.csv", "ruta del CSV de ítems")
	encoding := flag.String("encoding", EncodingAuto, "codificación del archivo: auto, utf-8 o iso-8859-1")
	dryRun := flag.Bool("dry-run", false, "solo valida el archivo, no escribe en la base")
	flag.Parse()

	raw, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	r, err := decodeCatalog(raw, *encoding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Decodificar CSV: %v\n", err)
		os.Exit(1)
	}
	items, err := parseCatalog(r)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Parsear CSV: %v\n", err)
		os.Exit(1)
	}
	if *dryRun {
		fmt.Printf("%d ítems válidos en %s\n", len(items), *file)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()
	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("aplicar esquema")
		}
	}

	repo := postgres.NewItemRepository(pool)
	for _, it := range items {
		if err := repo.Upsert(ctx, it); err != nil {
			log.Fatal().Err(err).Str("sku", it.SKU).Msg("upsert ítem")
		}
	}
	log.Info().Int("items", len(items)).Str("file", *file).Msg("catálogo cargado")
}

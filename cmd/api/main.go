package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/application/usecase"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
	"github.com/jhoicas/inventory-ledger/internal/infrastructure/cache"
	"github.com/jhoicas/inventory-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/inventory-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/inventory-ledger/internal/interfaces/http"
	"github.com/jhoicas/inventory-ledger/pkg/config"
	"github.com/jhoicas/inventory-ledger/pkg/logger"
)

// storage repositorios y tx runner del driver elegido.
type storage struct {
	txRunner  inventory.TxRunner
	items     repository.ItemRepository
	warehouse repository.WarehouseRepository
	moves     repository.StockMoveRepository
	layers    repository.StockLayerRepository
	close     func()
}

// docsFile spec de Swagger 2.0; se regenera con `swag init -g cmd/api/main.go`.
const docsFile = "./docs/swagger.json"

// @title                       Inventory Ledger API
// @version                     1.0
// @description                 Libro de movimientos de inventario con valoración FIFO por bodega.
// @BasePath                    /
// @securityDefinitions.apikey  Bearer
// @in                          header
// @name                        Authorization
// @description                 Bearer <token>
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("db_driver", cfg.DB.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer store.close()

	stockCache, closeCache := openStockCache(ctx, cfg.Redis, log)
	defer closeCache()

	invLog := log.Component("inventory")
	registerMovementUC := inventory.NewRegisterMovementUseCase(store.txRunner, store.items, store.warehouse, stockCache, invLog)
	valuationUC := inventory.NewValuationUseCase(store.moves, store.layers, stockCache, invLog)
	warehouseUC := usecase.NewWarehouseUseCase(store.warehouse)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.AccessLog(log.Component("http")))

	// Swagger UI en local: http://localhost:<port>/docs
	if !httpRouter.MountDocs(app, docsFile, cfg.App.Name) {
		log.Warn().Str("file", docsFile).Msg("spec de Swagger no encontrado, /docs deshabilitado")
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "db_driver": cfg.DB.Driver})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		WarehouseUC:      warehouseUC,
		RegisterMovement: registerMovementUC,
		Valuation:        valuationUC,
		JWTSecret:        cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	if cfg.DB.Driver == config.DriverMemory {
		log.Warn().Msg("DB_DRIVER=memory: los datos se pierden al reiniciar")
		s := memory.NewStore()
		return &storage{
			txRunner:  s,
			items:     s.Items(),
			warehouse: s.Warehouses(),
			moves:     s.Moves(),
			layers:    s.Layers(),
			close:     func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Msg("esquema aplicado")
	}
	return &storage{
		txRunner:  postgres.NewTxRunner(pool, cfg.DB.LockTimeout),
		items:     postgres.NewItemRepository(pool),
		warehouse: postgres.NewWarehouseRepository(pool),
		moves:     postgres.NewStockMoveRepository(pool),
		layers:    postgres.NewStockLayerRepository(pool),
		close:     pool.Close,
	}, nil
}

// openStockCache conecta Redis si está configurado. Sin Redis (o si no responde) se sigue sin caché.
func openStockCache(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (inventory.StockCache, func()) {
	if !cfg.Enabled() {
		return nil, func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Addr).Msg("Redis no disponible, se continúa sin caché de stock")
		_ = client.Close()
		return nil, func() {}
	}
	log.Info().Str("addr", cfg.Addr).Dur("ttl", cfg.StockTTL).Msg("caché de stock en Redis")
	return cache.NewRedisStockCache(client, cfg.StockTTL), func() { _ = client.Close() }
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/metrics"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/inventario-ledger/internal/interfaces/http"
	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

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
		Str("storage", cfg.App.StorageDriver).
		Dur("lock_timeout", cfg.DB.LockTimeout).
		Msg("iniciando aplicación")

	ctx := context.Background()

	var (
		txRunner   inventory.TxRunner
		stockRepo  repository.StockRecordRepository
		ledgerRepo repository.StockTransactionRepository
		recipeRepo repository.RecipeRepository
	)
	switch cfg.App.StorageDriver {
	case config.StorageDriverMemory:
		// Sin persistencia: útil para desarrollo local y demos.
		store := memory.NewStore(cfg.DB.LockTimeout)
		txRunner = memory.NewTxRunner(store)
		stockRepo = memory.NewStockRecordRepository(store)
		ledgerRepo = memory.NewStockTransactionRepository(store)
		recipes := memory.NewRecipeRepository()
		if cfg.App.RecipesFile != "" {
			file, err := config.LoadRecipes(cfg.App.RecipesFile)
			if err != nil {
				log.Fatal().Err(err).Msg("recetas")
			}
			for _, r := range file.Recipes {
				reqs := make([]repository.MaterialRequirement, 0, len(r.Materials))
				for _, m := range r.Materials {
					reqs = append(reqs, repository.MaterialRequirement{MaterialID: m.MaterialID, QuantityPerUnit: m.QuantityPerUnit})
				}
				recipes.SetRecipe(r.ProductID, reqs...)
			}
			log.Info().Int("recetas", len(file.Recipes)).Str("archivo", cfg.App.RecipesFile).Msg("recetas cargadas")
		} else {
			// Sin recetas los endpoints /api/orders responden 404.
			log.Warn().Msg("RECIPES_FILE vacío: sin recetas para pedidos")
		}
		recipeRepo = recipes
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()

		if cfg.DB.AutoMigrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				log.Fatal().Err(err).Msg("migraciones")
			}
			log.Info().Msg("migraciones aplicadas")
		}

		txRunner = postgres.NewTxRunner(pool, cfg.DB.LockTimeout)
		stockRepo = postgres.NewStockRecordRepository(pool)
		ledgerRepo = postgres.NewStockTransactionRepository(pool)
		recipeRepo = postgres.NewRecipeRepository(pool)
	}

	var stockMetrics inventory.Metrics = inventory.NopMetrics{}
	if cfg.Metrics.Enabled {
		stockMetrics = metrics.NewStockMetrics(prometheus.DefaultRegisterer)
	}

	stockSvc := inventory.NewStockService(txRunner, stockRepo, ledgerRepo, stockMetrics, log)
	facade := inventory.NewInventoryFacade(txRunner, stockSvc, recipeRepo, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(httpRouter.RequestLogger(log))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})
	if cfg.Metrics.Enabled {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		Stock:     stockSvc,
		Facade:    facade,
		JWTSecret: cfg.JWT.Secret,
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

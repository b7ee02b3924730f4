package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/MarketLensHQ/MarketLens/app/repository"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/cache"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/database"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/env"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/jobqueue"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/ledgerarchive"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/plangrant"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/router"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/tokenwallet"
)

func main() {
	app, shutdown := NewApplication()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("Shutting down...")
		shutdown()
		_ = app.Shutdown()
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() (*fiber.App, func()) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/marketlens to project root
		"../../../", // Fallback
	}

	// Find the correct base path
	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}

	if basePath == "" {
		panic("Could not find project root directory")
	}

	// init fiber app
	app := fiber.New(fiber.Config{
		AppName: "MarketLens",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			"admin": env.GetEnv("METRICS_PASSWORD", "test"),
		},
	}), monitor.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app)

	shutdown := startBackgroundWorkers()

	return app, shutdown
}

// startBackgroundWorkers wires the wallet into the job queue and the monthly
// plan-grant scheduler. Returns a stop function for graceful shutdown.
func startBackgroundWorkers() func() {
	db := database.GetDB()
	wallet := tokenwallet.NewService(
		tokenwallet.NewStore(db),
		tokenwallet.WithBalanceInvalidator(func(userID uint) {
			_ = cache.InvalidateWalletBalance(userID)
		}),
	)

	manager := jobqueue.GetManager()
	queue := manager.GetQueue()
	queue.RegisterHandler(jobqueue.JobTypeRefundCredit, jobqueue.NewRefundProcessor(wallet).Handle)

	archiveCfg, err := ledgerarchive.LoadConfig()
	if err != nil {
		log.Printf("Ledger archive config error: %v", err)
	} else if archiveCfg.IsEnabled() {
		client, err := ledgerarchive.NewClient(archiveCfg)
		if err != nil {
			log.Printf("Ledger archive disabled: %v", err)
		} else {
			exporter := ledgerarchive.NewExporter(db, client, archiveCfg)
			queue.RegisterHandler(jobqueue.JobTypeLedgerArchive, jobqueue.NewArchiveProcessor(exporter).Handle)
		}
	}
	manager.Start()

	granter := plangrant.NewGranter(plangrant.NewRecipientSource(db), wallet, plangrant.CacheLocker{})
	granter.Start()

	return func() {
		granter.Stop()
		manager.Stop()
	}
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/bwmarrin/snowflake"
	"github.com/georgemunganga/printa-terminal/internal/config"
	"github.com/georgemunganga/printa-terminal/internal/logging"
	"github.com/georgemunganga/printa-terminal/internal/modules/auth"
	"github.com/georgemunganga/printa-terminal/internal/modules/catalog"
	"github.com/georgemunganga/printa-terminal/internal/modules/checkout"
	"github.com/georgemunganga/printa-terminal/internal/modules/customer"
	"github.com/georgemunganga/printa-terminal/internal/modules/pos"
	"github.com/georgemunganga/printa-terminal/internal/modules/receipt"
	"github.com/georgemunganga/printa-terminal/internal/modules/settings"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	if err := config.LoadEnvFile(); err != nil {
		log.Println("no .env file, using process environment")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(logging.Config{Mode: cfg.LogMode, File: cfg.LogFile})
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal("ping database", zap.Error(err))
	}
	logger.Info("connected to the database")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Identity & preferences ──────────────────────────────
	provider := auth.NewProvider(auth.NewPostgresRepository(db), cfg.JWTSecret, logger.Named("auth"))

	prefs, err := settings.OpenBolt(cfg.SettingsPath)
	if err != nil {
		logger.Fatal("open settings", zap.String("path", cfg.SettingsPath), zap.Error(err))
	}
	defer prefs.Close()

	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		logger.Fatal("snowflake node", zap.Int64("node", cfg.NodeID), zap.Error(err))
	}

	// ── Receipts ────────────────────────────────────────────
	opener := receipt.WriterOpener(os.Stdout)
	if cfg.ReceiptPrinter != "" {
		opener = receipt.DeviceOpener(cfg.ReceiptPrinter)
	}
	printer := receipt.NewPrinter(receipt.NewThermalRenderer(opener), receipt.Store{
		Name:    cfg.StoreName,
		Address: cfg.StoreAddress,
		Phone:   cfg.StorePhone,
	})

	// ── Terminal ────────────────────────────────────────────
	store := catalog.NewStore()
	terminal, err := pos.NewTerminal(pos.Deps{
		Catalog:         store,
		Settings:        prefs,
		Ledger:          checkout.NewPostgresLedger(db),
		Identity:        provider,
		Customers:       customer.NewService(customer.NewPostgresRepository(db), provider, cfg.IdentityTimeout, logger.Named("customer")),
		Receipts:        printer,
		Bus:             EventBus.New(),
		Node:            node,
		ScanWindow:      cfg.ScanWindow,
		IdentityTimeout: cfg.IdentityTimeout,
		Log:             logger.Named("pos"),
	})
	if err != nil {
		logger.Fatal("create terminal", zap.Error(err))
	}
	defer terminal.Close()

	// ── Catalog sync ────────────────────────────────────────
	goodsListener := newListener(cfg.DatabaseURL, logger)
	defer goodsListener.Close()
	servicesListener := newListener(cfg.DatabaseURL, logger)
	defer servicesListener.Close()

	goods := catalog.NewPostgresSource(db, goodsListener, "goods", "goods_changed", logger)
	services := catalog.NewPostgresSource(db, servicesListener, "services", "services_changed", logger)
	synchronizer := catalog.NewSynchronizer(goods, services,
		terminal.CatalogChanged, terminal.CatalogFailed, logger.Named("catalog"))
	unsubscribe, err := synchronizer.Start(ctx)
	if err != nil {
		logger.Fatal("start catalog sync", zap.Error(err))
	}
	defer unsubscribe()

	refresher, err := catalog.NewRefresher(ctx, synchronizer, cfg.CatalogRefresh, logger.Named("catalog"))
	if err != nil {
		logger.Fatal("catalog refresher", zap.Error(err))
	}
	refresher.Start()
	defer refresher.Stop()

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)

	pos.NewHandler(terminal, provider, logger.Named("http")).RegisterRoutes(router)

	// ── Start Server ────────────────────────────────────────
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		logger.Info("POS terminal server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	logger.Info("POS terminal server stopped")
}

func newListener(dsn string, logger *zap.Logger) *pq.Listener {
	return pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("catalog listener event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
}

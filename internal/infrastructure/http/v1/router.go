// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"restock/internal/core/security"
	"restock/internal/domain/audit"
	"restock/internal/domain/authz"
	"restock/internal/domain/catalogs/item"
	"restock/internal/domain/catalogs/vendor"
	"restock/internal/domain/documents/purchaseorder"
	"restock/internal/domain/documents/stockcount"
	"restock/internal/domain/documents/transfer"
	"restock/internal/domain/ledger"
	"restock/internal/infrastructure/cache"
	"restock/internal/infrastructure/http/v1/handlers"
	"restock/internal/infrastructure/http/v1/middleware"
	"restock/internal/infrastructure/storage/postgres"
	"restock/internal/infrastructure/storage/postgres/catalog_repo"
	"restock/internal/infrastructure/storage/postgres/document_repo"
	"restock/internal/infrastructure/storage/postgres/ledger_repo"
	"restock/pkg/logger"
	"restock/pkg/numerator"
)

// RouterConfig holds everything the router needs to assemble the API.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks).
	Pool *pgxpool.Pool

	// TxManager runs repository calls and transactions.
	TxManager *postgres.TxManager

	// Logger for request logging.
	Logger *logger.Logger

	// TokenValidator for access token validation.
	TokenValidator middleware.TokenValidator

	// Numerator for document number generation.
	Numerator *numerator.Service

	// ReceivingPolicy guards over-receipt on purchase orders. Optional.
	ReceivingPolicy security.ReceivingPolicy

	// Auditor records workflow snapshots. Optional.
	Auditor audit.Recorder

	// StatsCache caches movement stats. Optional, nil disables caching.
	StatsCache *cache.StatsCache
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints, no auth required
	var cachePinger handlers.Pinger
	if cfg.StatsCache != nil {
		cachePinger = cfg.StatsCache
	}
	healthHandler := handlers.NewHealthHandler(cfg.Pool, cachePinger)
	healthHandler.RegisterRoutes(router.Group("/health"))

	// API v1
	api := router.Group("/api/v1")
	protected := api.Group("")
	protected.Use(middleware.Auth(cfg.TokenValidator))

	baseHandler := handlers.NewBaseHandler()
	resolver := authz.NewContextResolver()

	// Shared repositories
	ledgerRepo := ledger_repo.NewLedgerRepo(cfg.TxManager)
	itemRepo := catalog_repo.NewItemRepo(cfg.TxManager)
	branchRepo := catalog_repo.NewBranchRepo(cfg.TxManager)
	vendorRepo := catalog_repo.NewVendorRepo(cfg.TxManager)
	orderRepo := document_repo.NewPurchaseOrderRepo(cfg.TxManager)

	// Stock ledger. The cache subscribes to ledger writes for
	// invalidation, reads go through it when it is configured.
	var invalidator ledger.StatsInvalidator
	if cfg.StatsCache != nil {
		invalidator = cfg.StatsCache
	}
	ledgerService := ledger.NewService(ledgerRepo, cfg.TxManager, invalidator)

	// --- STOCK ---
	{
		var stats handlers.StatsProvider
		if cfg.StatsCache != nil {
			stats = cfg.StatsCache
		}
		handler := handlers.NewStockHandler(baseHandler, ledgerService, stats)
		handler.RegisterRoutes(protected.Group("/stock"))
	}

	// --- VENDORS ---
	{
		service := vendor.NewService(vendorRepo, orderRepo, cfg.TxManager, resolver)
		handler := handlers.NewVendorHandler(baseHandler, service)
		handler.RegisterRoutes(protected.Group("/vendors"))
	}

	// --- ITEMS & BARCODES ---
	{
		barcodeRepo := catalog_repo.NewBarcodeRepo(cfg.TxManager)
		service := item.NewService(itemRepo, barcodeRepo, cfg.TxManager, resolver)
		handler := handlers.NewItemHandler(baseHandler, service)
		handler.RegisterRoutes(protected.Group("/items"))
	}

	// --- PURCHASE ORDERS ---
	{
		service := purchaseorder.NewService(
			orderRepo,
			ledgerService,
			vendorRepo,
			itemRepo,
			cfg.Numerator,
			cfg.TxManager,
			resolver,
			cfg.ReceivingPolicy,
			cfg.Auditor,
		)
		handler := handlers.NewPurchaseOrderHandler(baseHandler, service)
		handler.RegisterRoutes(protected.Group("/purchase-orders"))
	}

	// --- TRANSFERS ---
	{
		repo := document_repo.NewTransferRepo(cfg.TxManager)
		service := transfer.NewService(
			repo,
			ledgerService,
			branchRepo,
			cfg.Numerator,
			cfg.TxManager,
			resolver,
			cfg.Auditor,
		)
		handler := handlers.NewTransferHandler(baseHandler, service)
		handler.RegisterRoutes(protected.Group("/transfers"))
	}

	// --- STOCK COUNTS ---
	{
		repo := document_repo.NewStockCountRepo(cfg.TxManager)
		service := stockcount.NewService(
			repo,
			ledgerService,
			itemRepo,
			cfg.Numerator,
			cfg.TxManager,
			resolver,
			cfg.Auditor,
		)
		handler := handlers.NewStockCountHandler(baseHandler, service)
		handler.RegisterRoutes(protected.Group("/stock-counts"))
	}

	return router
}

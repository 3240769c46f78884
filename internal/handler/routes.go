package handler

import (
	"go-parts-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type Services struct {
	Inventory service.InventoryService
	Sales     service.SaleService
	Reports   service.ReportService
	Rollover  service.RolloverService
	Ledger    service.LedgerService
}

// SetupRoutes mounts the ledger API under /api/v1.
func SetupRoutes(app *fiber.App, svc Services) {
	invHandler := NewInventoryHandler(svc.Inventory, svc.Sales)
	saleHandler := NewSaleHandler(svc.Sales)
	reportHandler := NewReportHandler(svc.Reports, svc.Rollover)
	ledgerHandler := NewLedgerHandler(svc.Ledger)

	api := app.Group("/api/v1")

	// Category & Product Routes
	api.Post("/categories", invHandler.CreateCategory)
	api.Get("/categories", invHandler.GetCategories)
	api.Post("/products", invHandler.CreateProduct)
	api.Get("/products", invHandler.GetProducts)
	api.Get("/products/:id", invHandler.GetProduct)
	api.Post("/products/:id/batches", invHandler.CreateBatch)
	api.Get("/products/:id/batches", invHandler.GetBatches)
	api.Get("/products/:id/sales", invHandler.GetProductSales)

	// Sale Routes
	api.Post("/sales", saleHandler.CreateSale)
	api.Get("/sales", saleHandler.GetSales)
	api.Get("/sales/transactions/:id", saleHandler.GetTransaction)

	// Report Routes
	api.Get("/reports", reportHandler.GetReports)
	api.Get("/reports/:year/:month", reportHandler.GetReport)
	api.Post("/reports/:year/:month/refresh", reportHandler.RefreshReport)
	api.Post("/reports/:year/:month/finalize", reportHandler.FinalizeReport)
	api.Get("/reports/:year/:month/verify", reportHandler.VerifyReport)
	api.Get("/reports/:year/:month/export", reportHandler.ExportReport)

	// Ledger Routes
	api.Get("/ledger", ledgerHandler.GetLedger)
	api.Get("/ledger/verify", ledgerHandler.Verify)
}

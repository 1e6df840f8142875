package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/kardex-api/internal/application/auth"
	"github.com/jhoicas/kardex-api/internal/application/ledger"
	"github.com/jhoicas/kardex-api/internal/application/query"
	"github.com/jhoicas/kardex-api/internal/application/usecase"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Engine      *ledger.Engine
	Queries     *query.StockQueries
	ProductUC   *usecase.ProductUseCase
	WarehouseUC *usecase.WarehouseUseCase
	AuthUC      *auth.AuthUseCase
	JWTSecret   string
}

// Router registra las rutas de la API.
// Las mutaciones del kardex exigen rol admin o bodeguero; las lecturas
// admiten además auditor.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	writers := RequireRole(entity.RoleAdmin, entity.RoleBodeguero)
	readers := RequireRole(entity.RoleAdmin, entity.RoleBodeguero, entity.RoleAuditor)

	// Warehouses (protegido)
	warehouses := protected.Group("/warehouses")
	warehouseHandler := NewWarehouseHandler(deps.WarehouseUC)
	warehouses.Post("/", writers, warehouseHandler.Create)
	warehouses.Get("/", readers, warehouseHandler.List)
	warehouses.Get("/:id", readers, warehouseHandler.GetByID)

	// Products (protegido)
	products := protected.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC)
	products.Post("/", writers, productHandler.Create)
	products.Get("/", readers, productHandler.List)
	products.Get("/:id", readers, productHandler.GetByID)

	// Kardex: mutaciones (protegido, solo escritores)
	inv := protected.Group("/inventory")
	ledgerHandler := NewLedgerHandler(deps.Engine)
	inv.Post("/stock-in", writers, ledgerHandler.StockIn)
	inv.Post("/stock-out", writers, ledgerHandler.StockOut)
	inv.Post("/adjustments", writers, ledgerHandler.Adjustment)
	inv.Post("/reservations", writers, ledgerHandler.Reserve)
	inv.Post("/reservations/release", writers, ledgerHandler.Release)
	inv.Post("/transfers", writers, ledgerHandler.Transfer)
	inv.Delete("/stock/:product_id/:warehouse_id", RequireRole(entity.RoleAdmin), ledgerHandler.Deactivate)

	// Kardex: lecturas (protegido, incluye auditor)
	queryHandler := NewQueryHandler(deps.Queries)
	inv.Get("/stock/:product_id/:warehouse_id", readers, queryHandler.CurrentStock)
	inv.Get("/low-stock", readers, queryHandler.LowStock)
	inv.Get("/movements", readers, queryHandler.Movements)
	inv.Get("/movements/summary", readers, queryHandler.MovementSummary)
}

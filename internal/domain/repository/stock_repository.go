package repository

import (
	"context"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

// StockRepository define el puerto para consultar/actualizar stock por
// producto+bodega. Las escrituras solo ocurren dentro de transacciones
// del motor de kardex.
type StockRepository interface {
	// Get devuelve la fila o nil si el par no tiene seguimiento aún.
	Get(ctx context.Context, productID, warehouseID string) (*entity.Stock, error)
	// GetForUpdate bloquea la fila (SELECT FOR UPDATE) y la devuelve.
	// Si la fila no existe la crea en cero antes de bloquear, para que la
	// primera entrada también serialice contra escritores concurrentes.
	GetForUpdate(ctx context.Context, productID, warehouseID string) (*entity.Stock, error)
	// Update persiste cantidad y reserva de una fila ya existente (y bloqueada).
	Update(ctx context.Context, stock *entity.Stock) error
	// ListLowStock devuelve pares cuyo stock está en o bajo el umbral del
	// producto. warehouseID vacío agrega todas las bodegas.
	ListLowStock(ctx context.Context, warehouseID string) ([]LowStockItem, error)
}

// LowStockItem fila del reporte de quiebre de stock.
type LowStockItem struct {
	ProductID   string
	SKU         string
	ProductName string
	WarehouseID string
	Quantity    int64
	Reserved    int64
	Threshold   int64
}

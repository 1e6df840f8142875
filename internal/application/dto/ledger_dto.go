package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockSnapshot foto de solo lectura del stock de un par (producto, bodega).
// Available siempre se deriva: Quantity - Reserved.
type StockSnapshot struct {
	ProductID   string    `json:"product_id"`
	WarehouseID string    `json:"warehouse_id"`
	Quantity    int64     `json:"quantity"`
	Reserved    int64     `json:"reserved_quantity"`
	Available   int64     `json:"available_quantity"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MovementResult forma estable de respuesta de toda mutación del kardex:
// éxito con foto del stock, o fallo tipado con mensaje accionable.
type MovementResult struct {
	Success      bool           `json:"success"`
	Snapshot     *StockSnapshot `json:"snapshot,omitempty"`
	ErrorKind    string         `json:"error_kind,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// StockInRequest body para POST /api/inventory/stock-in.
type StockInRequest struct {
	ProductID       string           `json:"product_id"`
	WarehouseID     string           `json:"warehouse_id"`
	Quantity        int64            `json:"quantity"`
	UnitCost        *decimal.Decimal `json:"unit_cost,omitempty"`
	Reason          string           `json:"reason,omitempty"`
	ReferenceNumber string           `json:"reference_number,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	OccurredAt      *time.Time       `json:"occurred_at,omitempty"` // para asientos retroactivos
}

// StockOutRequest body para POST /api/inventory/stock-out.
type StockOutRequest struct {
	ProductID       string     `json:"product_id"`
	WarehouseID     string     `json:"warehouse_id"`
	Quantity        int64      `json:"quantity"`
	Reason          string     `json:"reason,omitempty"`
	ReferenceNumber string     `json:"reference_number,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	OccurredAt      *time.Time `json:"occurred_at,omitempty"`
}

// AdjustmentRequest body para POST /api/inventory/adjustments.
// Delta admite cualquier signo; Reason es obligatorio.
type AdjustmentRequest struct {
	ProductID       string     `json:"product_id"`
	WarehouseID     string     `json:"warehouse_id"`
	Delta           int64      `json:"delta"`
	Reason          string     `json:"reason"`
	ReferenceNumber string     `json:"reference_number,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	StockCount      bool       `json:"stock_count,omitempty"` // true si proviene de recuento físico
	OccurredAt      *time.Time `json:"occurred_at,omitempty"`
}

// ReservationRequest body para POST /api/inventory/reservations y
// /api/inventory/reservations/release.
type ReservationRequest struct {
	ProductID       string `json:"product_id"`
	WarehouseID     string `json:"warehouse_id"`
	Amount          int64  `json:"amount"`
	Reason          string `json:"reason"`
	ReferenceNumber string `json:"reference_number,omitempty"`
}

// TransferRequest body para POST /api/inventory/transfers.
type TransferRequest struct {
	ProductID       string `json:"product_id"`
	FromWarehouseID string `json:"from_warehouse_id"`
	ToWarehouseID   string `json:"to_warehouse_id"`
	Quantity        int64  `json:"quantity"`
	Reason          string `json:"reason,omitempty"`
	ReferenceNumber string `json:"reference_number,omitempty"`
}

// MovementDTO asiento del kardex en respuestas.
type MovementDTO struct {
	ID               string           `json:"id"`
	ProductID        string           `json:"product_id"`
	WarehouseID      string           `json:"warehouse_id"`
	ActorID          string           `json:"actor_id"`
	Kind             string           `json:"kind"`
	QuantityDelta    int64            `json:"quantity_delta"`
	PreviousQuantity int64            `json:"previous_quantity"`
	NewQuantity      int64            `json:"new_quantity"`
	UnitCost         *decimal.Decimal `json:"unit_cost,omitempty"`
	TotalValue       decimal.Decimal  `json:"total_value"`
	Reason           string           `json:"reason,omitempty"`
	ReferenceNumber  string           `json:"reference_number,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	OccurredAt       time.Time        `json:"occurred_at"`
	CreatedAt        time.Time        `json:"created_at"`
}

// MovementSummaryDTO agregados de movimientos de un producto en un rango.
// Siempre derivado plegando los asientos; nunca se almacena.
type MovementSummaryDTO struct {
	ProductID     string          `json:"product_id"`
	From          time.Time       `json:"from"`
	To            time.Time       `json:"to"`
	InQuantity    int64           `json:"in_quantity"`
	OutQuantity   int64           `json:"out_quantity"`
	NetMovement   int64           `json:"net_movement"`
	InValue       decimal.Decimal `json:"in_value"`
	OutValue      decimal.Decimal `json:"out_value"`
	MovementCount int             `json:"movement_count"`
}

// LowStockItemDTO fila del reporte de quiebre de stock.
type LowStockItemDTO struct {
	ProductID   string `json:"product_id"`
	SKU         string `json:"sku"`
	ProductName string `json:"product_name"`
	WarehouseID string `json:"warehouse_id"`
	Quantity    int64  `json:"quantity"`
	Reserved    int64  `json:"reserved_quantity"`
	Available   int64  `json:"available_quantity"`
	Threshold   int64  `json:"threshold"`
}

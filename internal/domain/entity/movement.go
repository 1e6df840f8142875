package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento del kardex.
const (
	MovementKindIn         = "IN"         // entrada
	MovementKindOut        = "OUT"        // salida
	MovementKindAdjustment = "ADJUSTMENT" // ajuste (recuento, daño, hallazgo)
)

// Movement es un asiento inmutable del kardex: un cambio de cantidad con
// foto del antes y el después. Nunca se actualiza después de creado.
// Debe cumplir NewQuantity = PreviousQuantity + QuantityDelta y QuantityDelta != 0.
type Movement struct {
	ID               string
	ProductID        string
	WarehouseID      string
	ActorID          string // usuario que ejecutó el movimiento
	Kind             string
	QuantityDelta    int64 // con signo: IN > 0, OUT < 0, ADJUSTMENT cualquiera
	PreviousQuantity int64
	NewQuantity      int64
	UnitCost         *decimal.Decimal // opcional, >= 0
	Reason           string
	ReferenceNumber  string
	Notes            string
	OccurredAt       time.Time // fecha del negocio (puede ser anterior a CreatedAt)
	CreatedAt        time.Time
}

// TotalValue devuelve |delta| * costo unitario. Derivado, nunca se
// almacena como columna independiente. Cero si no hay costo.
func (m *Movement) TotalValue() decimal.Decimal {
	if m.UnitCost == nil {
		return decimal.Zero
	}
	delta := m.QuantityDelta
	if delta < 0 {
		delta = -delta
	}
	return decimal.NewFromInt(delta).Mul(*m.UnitCost)
}

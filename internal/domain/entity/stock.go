package entity

import (
	"time"

	"github.com/jhoicas/kardex-api/internal/domain"
)

// Stock representa el estado actual de un producto en una bodega:
// cantidad física y cantidad reservada (no vendible). Es la unidad de
// control de concurrencia del kardex: una fila por (producto, bodega).
//
// Quantity y ReservedQuantity solo se modifican a través de los métodos
// de esta entidad; el motor de kardex es el único que los invoca.
type Stock struct {
	ProductID        string
	WarehouseID      string
	Quantity         int64 // unidades físicas, nunca negativo
	ReservedQuantity int64 // 0 <= ReservedQuantity <= Quantity
	Active           bool  // baja lógica; nunca se borra la fila mientras existan movimientos
	LastStockCountAt *time.Time
	UpdatedAt        time.Time
}

// NewStock crea la fila inicial en cero para un par (producto, bodega)
// que aún no tenía seguimiento (creación implícita en la primera entrada).
func NewStock(productID, warehouseID string, now time.Time) *Stock {
	return &Stock{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Active:      true,
		UpdatedAt:   now,
	}
}

// Available devuelve la cantidad vendible: física menos reservada.
// Derivada, nunca se almacena aparte.
func (s *Stock) Available() int64 {
	return s.Quantity - s.ReservedQuantity
}

// HasSufficientAvailable indica si hay disponible suficiente para la cantidad pedida.
func (s *Stock) HasSufficientAvailable(requested int64) bool {
	return s.Available() >= requested
}

// Reserve aparta unidades del disponible (no cambia la cantidad física).
func (s *Stock) Reserve(amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidInput
	}
	if s.Available() < amount {
		return domain.NewStockError(domain.ErrInsufficientAvailable, amount, s.Available())
	}
	s.ReservedQuantity += amount
	return nil
}

// Release devuelve unidades reservadas al disponible.
func (s *Stock) Release(amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidInput
	}
	if amount > s.ReservedQuantity {
		return domain.NewStockError(domain.ErrOverRelease, amount, s.ReservedQuantity)
	}
	s.ReservedQuantity -= amount
	return nil
}

// ApplyDelta aplica un cambio (positivo o negativo) a la cantidad física.
// Rechaza el cambio si dejaría stock negativo o menor que lo reservado.
func (s *Stock) ApplyDelta(delta int64) error {
	newQty := s.Quantity + delta
	if newQty < 0 {
		return domain.NewStockError(domain.ErrNegativeStock, -delta, s.Quantity)
	}
	if newQty < s.ReservedQuantity {
		return domain.NewStockError(domain.ErrReservedExceedsStock, -delta, s.Quantity-s.ReservedQuantity)
	}
	s.Quantity = newQty
	return nil
}

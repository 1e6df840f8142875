// Package ledger contiene las reglas puras del kardex: construcción de
// asientos (Movement) y cálculo de costo promedio. Sin I/O; el motor
// transaccional vive en application/ledger.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/kardex-api/internal/domain"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

// MovementInput campos comunes a los tres constructores de asientos.
// PreviousQuantity es la cantidad leída de la fila de stock ya bloqueada;
// el motor es responsable de leerla dentro de la misma transacción.
type MovementInput struct {
	ProductID       string
	WarehouseID     string
	ActorID         string
	PreviousQty     int64
	UnitCost        *decimal.Decimal
	Reason          string
	ReferenceNumber string
	Notes           string
	OccurredAt      time.Time
}

func (in MovementInput) validate() error {
	if in.ProductID == "" || in.WarehouseID == "" || in.ActorID == "" {
		return domain.ErrInvalidInput
	}
	if in.PreviousQty < 0 {
		return domain.ErrInvalidInput
	}
	if in.UnitCost != nil && in.UnitCost.IsNegative() {
		return domain.ErrInvalidInput
	}
	return nil
}

func build(in MovementInput, kind string, delta int64, now time.Time) *entity.Movement {
	occurredAt := in.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now
	}
	return &entity.Movement{
		// UUIDv7: ordenable por tiempo, para que el desempate por id del
		// historial reconstruya los asientos en su orden de creación aun
		// cuando compartan occurred_at (las dos patas de un traslado).
		ID:               uuid.Must(uuid.NewV7()).String(),
		ProductID:        in.ProductID,
		WarehouseID:      in.WarehouseID,
		ActorID:          in.ActorID,
		Kind:             kind,
		QuantityDelta:    delta,
		PreviousQuantity: in.PreviousQty,
		NewQuantity:      in.PreviousQty + delta,
		UnitCost:         in.UnitCost,
		Reason:           in.Reason,
		ReferenceNumber:  in.ReferenceNumber,
		Notes:            in.Notes,
		OccurredAt:       occurredAt,
		CreatedAt:        now,
	}
}

// NewStockIn construye un asiento de entrada: delta = +quantity.
// Construcción pura, no toca estado persistido.
func NewStockIn(in MovementInput, quantity int64, now time.Time) (*entity.Movement, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}
	return build(in, entity.MovementKindIn, quantity, now), nil
}

// NewStockOut construye un asiento de salida: delta = -quantity.
// Esta es la verificación autoritativa contra la foto tomada con la fila
// bloqueada; el chequeo previo del motor solo existe para dar un error claro.
func NewStockOut(in MovementInput, quantity int64, now time.Time) (*entity.Movement, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}
	if in.PreviousQty < quantity {
		return nil, domain.NewStockError(domain.ErrInsufficientStock, quantity, in.PreviousQty)
	}
	return build(in, entity.MovementKindOut, -quantity, now), nil
}

// NewAdjustment construye un asiento de ajuste con delta de cualquier signo.
// El motivo es obligatorio para auditoría.
func NewAdjustment(in MovementInput, delta int64, now time.Time) (*entity.Movement, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if delta == 0 || in.Reason == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.PreviousQty+delta < 0 {
		return nil, domain.NewStockError(domain.ErrNegativeStock, -delta, in.PreviousQty)
	}
	return build(in, entity.MovementKindAdjustment, delta, now), nil
}

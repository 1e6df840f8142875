package repository

import (
	"context"
	"time"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

// MovementFilter filtros del historial del kardex. Los campos en nil/vacío
// no filtran. El orden es siempre occurred_at DESC con desempate por id,
// así re-consultar es idempotente.
type MovementFilter struct {
	ProductID   string
	WarehouseID string
	Kind        string
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

// MovementRepository define el puerto de persistencia del kardex
// (append-only: los asientos nunca se actualizan ni se borran).
type MovementRepository interface {
	Create(ctx context.Context, movement *entity.Movement) error
	GetByID(ctx context.Context, id string) (*entity.Movement, error)
	List(ctx context.Context, filter MovementFilter) ([]*entity.Movement, error)
	// ListForReplay devuelve todos los asientos de un par (producto, bodega)
	// en orden ascendente de occurred_at (desempate por id), para
	// reconciliación contra la fila de stock.
	ListForReplay(ctx context.Context, productID, warehouseID string) ([]*entity.Movement, error)
}

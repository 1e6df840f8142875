package repository

import (
	"context"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

// ReservationLogRepository define el puerto del rastro de reservas (append-only).
type ReservationLogRepository interface {
	Create(ctx context.Context, log *entity.ReservationLog) error
	ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.ReservationLog, error)
}

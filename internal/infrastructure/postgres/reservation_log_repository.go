package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
)

var _ repository.ReservationLogRepository = (*ReservationLogRepo)(nil)

// ReservationLogRepo rastro de reservas sobre PostgreSQL (append-only).
type ReservationLogRepo struct {
	q Querier
}

// NewReservationLogRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReservationLogRepository(q Querier) *ReservationLogRepo {
	return &ReservationLogRepo{q: q}
}

// Create persiste una entrada del rastro de reservas.
func (r *ReservationLogRepo) Create(ctx context.Context, l *entity.ReservationLog) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	query := `
		INSERT INTO reservation_log (id, product_id, warehouse_id, actor_id, action, amount, reason, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		l.ID, l.ProductID, l.WarehouseID, l.ActorID, l.Action, l.Amount,
		nullIfEmpty(l.Reason), nullIfEmpty(l.Reference), l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create reservation log: %w", err)
	}
	return nil
}

// ListByProduct lista el rastro de reservas de un producto, más reciente primero.
func (r *ReservationLogRepo) ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.ReservationLog, error) {
	query := `
		SELECT id, product_id, warehouse_id, actor_id, action, amount, reason, reference, created_at
		FROM reservation_log WHERE product_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, productID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list reservation log: %w", err)
	}
	defer rows.Close()
	var list []*entity.ReservationLog
	for rows.Next() {
		var l entity.ReservationLog
		var reason, reference *string
		if err := rows.Scan(&l.ID, &l.ProductID, &l.WarehouseID, &l.ActorID, &l.Action, &l.Amount, &reason, &reference, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reservation log: %w", err)
		}
		if reason != nil {
			l.Reason = *reason
		}
		if reference != nil {
			l.Reference = *reference
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo implementación del kardex sobre PostgreSQL (usable con pool o tx).
// La tabla es append-only: aquí no hay UPDATE ni DELETE.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

const movementColumns = `id, product_id, warehouse_id, actor_id, kind, quantity_delta,
		previous_quantity, new_quantity, unit_cost, reason, reference_number, notes, occurred_at, created_at`

// Create persiste un asiento del kardex.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	if m.ID == "" {
		m.ID = uuid.Must(uuid.NewV7()).String()
	}
	query := `
		INSERT INTO movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.ProductID, m.WarehouseID, m.ActorID, m.Kind, m.QuantityDelta,
		m.PreviousQuantity, m.NewQuantity, m.UnitCost, nullIfEmpty(m.Reason),
		nullIfEmpty(m.ReferenceNumber), nullIfEmpty(m.Notes), m.OccurredAt, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create movement: %w", err)
	}
	return nil
}

// GetByID obtiene un asiento por ID (nil si no existe).
func (r *MovementRepo) GetByID(ctx context.Context, id string) (*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE id = $1`
	m, err := scanMovement(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return m, nil
}

// List devuelve asientos filtrados, siempre en orden occurred_at DESC con
// desempate por id para que la re-consulta sea idempotente.
func (r *MovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE product_id = $1`
	args := []any{f.ProductID}
	pos := 2
	if f.WarehouseID != "" {
		query += fmt.Sprintf(" AND warehouse_id = $%d", pos)
		args = append(args, f.WarehouseID)
		pos++
	}
	if f.Kind != "" {
		query += fmt.Sprintf(" AND kind = $%d", pos)
		args = append(args, f.Kind)
		pos++
	}
	if f.From != nil {
		query += fmt.Sprintf(" AND occurred_at >= $%d", pos)
		args = append(args, *f.From)
		pos++
	}
	if f.To != nil {
		query += fmt.Sprintf(" AND occurred_at <= $%d", pos)
		args = append(args, *f.To)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY occurred_at DESC, id DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, f.Limit, f.Offset)

	return r.queryMovements(ctx, query, args...)
}

// ListForReplay devuelve todos los asientos de un par en orden ascendente,
// para reconciliar la cadena prev→new contra la fila de stock.
func (r *MovementRepo) ListForReplay(ctx context.Context, productID, warehouseID string) ([]*entity.Movement, error) {
	query := `SELECT ` + movementColumns + `
		FROM movements WHERE product_id = $1 AND warehouse_id = $2
		ORDER BY occurred_at ASC, id ASC`
	return r.queryMovements(ctx, query, productID, warehouseID)
}

func (r *MovementRepo) queryMovements(ctx context.Context, query string, args ...any) ([]*entity.Movement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func scanMovement(row pgx.Row) (*entity.Movement, error) {
	var m entity.Movement
	var reason, reference, notes *string
	if err := row.Scan(
		&m.ID, &m.ProductID, &m.WarehouseID, &m.ActorID, &m.Kind, &m.QuantityDelta,
		&m.PreviousQuantity, &m.NewQuantity, &m.UnitCost, &reason, &reference, &notes,
		&m.OccurredAt, &m.CreatedAt,
	); err != nil {
		return nil, err
	}
	if reason != nil {
		m.Reason = *reason
	}
	if reference != nil {
		m.ReferenceNumber = *reference
	}
	if notes != nil {
		m.Notes = *notes
	}
	return &m, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

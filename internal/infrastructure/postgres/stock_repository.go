package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

// Get obtiene el stock actual de un producto en una bodega. Nil si el par
// no tiene seguimiento.
func (r *StockRepo) Get(ctx context.Context, productID, warehouseID string) (*entity.Stock, error) {
	query := `
		SELECT product_id, warehouse_id, quantity, reserved_quantity, active, last_stock_count_at, updated_at
		FROM stock WHERE product_id = $1 AND warehouse_id = $2`
	var s entity.Stock
	err := r.q.QueryRow(ctx, query, productID, warehouseID).Scan(
		&s.ProductID, &s.WarehouseID, &s.Quantity, &s.ReservedQuantity, &s.Active, &s.LastStockCountAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}
	return &s, nil
}

// GetForUpdate obtiene el stock y bloquea la fila (SELECT FOR UPDATE).
// Si la fila no existe la inserta en cero primero, para que la primera
// entrada de un par también serialice contra escritores concurrentes.
func (r *StockRepo) GetForUpdate(ctx context.Context, productID, warehouseID string) (*entity.Stock, error) {
	insert := `
		INSERT INTO stock (product_id, warehouse_id, quantity, reserved_quantity, active, updated_at)
		VALUES ($1, $2, 0, 0, true, now())
		ON CONFLICT (product_id, warehouse_id) DO NOTHING`
	if _, err := r.q.Exec(ctx, insert, productID, warehouseID); err != nil {
		return nil, fmt.Errorf("ensure stock row: %w", err)
	}
	query := `
		SELECT product_id, warehouse_id, quantity, reserved_quantity, active, last_stock_count_at, updated_at
		FROM stock WHERE product_id = $1 AND warehouse_id = $2
		FOR UPDATE`
	var s entity.Stock
	err := r.q.QueryRow(ctx, query, productID, warehouseID).Scan(
		&s.ProductID, &s.WarehouseID, &s.Quantity, &s.ReservedQuantity, &s.Active, &s.LastStockCountAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get stock for update: %w", err)
	}
	return &s, nil
}

// Update persiste cantidad, reserva y baja lógica de una fila ya bloqueada.
func (r *StockRepo) Update(ctx context.Context, stock *entity.Stock) error {
	query := `
		UPDATE stock
		SET quantity = $3, reserved_quantity = $4, active = $5, last_stock_count_at = $6, updated_at = $7
		WHERE product_id = $1 AND warehouse_id = $2`
	tag, err := r.q.Exec(ctx, query,
		stock.ProductID, stock.WarehouseID,
		stock.Quantity, stock.ReservedQuantity, stock.Active, stock.LastStockCountAt, stock.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update stock: fila inexistente %s/%s", stock.ProductID, stock.WarehouseID)
	}
	return nil
}

// ListLowStock devuelve las filas cuyo stock está en o bajo el umbral del
// producto. warehouseID vacío devuelve todas las bodegas.
// Ordena por déficit descendente (mayor quiebre primero).
func (r *StockRepo) ListLowStock(ctx context.Context, warehouseID string) ([]repository.LowStockItem, error) {
	query := `
		SELECT p.id, p.sku, p.name, s.warehouse_id, s.quantity, s.reserved_quantity, p.low_stock_threshold
		FROM stock s
		JOIN products p ON p.id = s.product_id
		WHERE s.active
		  AND p.low_stock_threshold > 0
		  AND s.quantity <= p.low_stock_threshold`
	args := []any{}
	if warehouseID != "" {
		query += " AND s.warehouse_id = $1"
		args = append(args, warehouseID)
	}
	query += " ORDER BY (p.low_stock_threshold - s.quantity) DESC"

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	defer rows.Close()

	var items []repository.LowStockItem
	for rows.Next() {
		var it repository.LowStockItem
		if err := rows.Scan(&it.ProductID, &it.SKU, &it.ProductName, &it.WarehouseID, &it.Quantity, &it.Reserved, &it.Threshold); err != nil {
			return nil, fmt.Errorf("scan low stock item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

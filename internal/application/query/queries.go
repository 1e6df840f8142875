// Package query es la superficie de lectura del kardex, consumida por
// reportes y dashboards. Nunca escribe; la única vía de escritura es el
// motor (application/ledger).
package query

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/kardex-api/internal/application/dto"
	"github.com/jhoicas/kardex-api/internal/domain"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
)

// StockQueries consultas de solo lectura sobre stock y movimientos.
type StockQueries struct {
	stockRepo    repository.StockRepository
	movementRepo repository.MovementRepository
}

// NewStockQueries construye la superficie de consulta.
func NewStockQueries(stockRepo repository.StockRepository, movementRepo repository.MovementRepository) *StockQueries {
	return &StockQueries{stockRepo: stockRepo, movementRepo: movementRepo}
}

// CurrentStock devuelve la foto actual del par, o nil si no tiene seguimiento.
// Sin mutaciones de por medio, dos llamadas devuelven fotos idénticas.
func (q *StockQueries) CurrentStock(ctx context.Context, productID, warehouseID string) (*dto.StockSnapshot, error) {
	if productID == "" || warehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	stock, err := q.stockRepo.Get(ctx, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	if stock == nil {
		return nil, nil
	}
	return &dto.StockSnapshot{
		ProductID:   stock.ProductID,
		WarehouseID: stock.WarehouseID,
		Quantity:    stock.Quantity,
		Reserved:    stock.ReservedQuantity,
		Available:   stock.Available(),
		UpdatedAt:   stock.UpdatedAt,
	}, nil
}

// LowStockItems devuelve los pares cuyo stock está en o bajo el umbral
// configurado en el producto. warehouseID vacío agrega todas las bodegas.
func (q *StockQueries) LowStockItems(ctx context.Context, warehouseID string) ([]dto.LowStockItemDTO, error) {
	items, err := q.stockRepo.ListLowStock(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.LowStockItemDTO, 0, len(items))
	for _, it := range items {
		out = append(out, dto.LowStockItemDTO{
			ProductID:   it.ProductID,
			SKU:         it.SKU,
			ProductName: it.ProductName,
			WarehouseID: it.WarehouseID,
			Quantity:    it.Quantity,
			Reserved:    it.Reserved,
			Available:   it.Quantity - it.Reserved,
			Threshold:   it.Threshold,
		})
	}
	return out, nil
}

// MovementHistory devuelve asientos ordenados por occurred_at descendente
// (desempate por id). Re-consultar con el mismo filtro es idempotente: no
// hay cursor que invalidar.
func (q *StockQueries) MovementHistory(ctx context.Context, filter repository.MovementFilter) ([]dto.MovementDTO, error) {
	if filter.ProductID == "" {
		return nil, domain.ErrInvalidInput
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	movements, err := q.movementRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]dto.MovementDTO, 0, len(movements))
	for _, m := range movements {
		out = append(out, toMovementDTO(m))
	}
	return out, nil
}

// MovementSummary pliega los asientos del producto en el rango y devuelve
// totales de entrada/salida, neto y valor. Derivado, nunca se almacena.
// Un extremo en cero deja ese lado del rango sin acotar.
func (q *StockQueries) MovementSummary(ctx context.Context, productID string, from, to time.Time) (*dto.MovementSummaryDTO, error) {
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, domain.ErrInvalidInput
	}
	const pageSize = 500
	summary := &dto.MovementSummaryDTO{
		ProductID: productID,
		From:      from,
		To:        to,
		InValue:   decimal.Zero,
		OutValue:  decimal.Zero,
	}
	for offset := 0; ; offset += pageSize {
		filter := repository.MovementFilter{
			ProductID: productID,
			Limit:     pageSize,
			Offset:    offset,
		}
		if !from.IsZero() {
			filter.From = &from
		}
		if !to.IsZero() {
			filter.To = &to
		}
		movements, err := q.movementRepo.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		for _, m := range movements {
			summary.MovementCount++
			summary.NetMovement += m.QuantityDelta
			if m.QuantityDelta > 0 {
				summary.InQuantity += m.QuantityDelta
				summary.InValue = summary.InValue.Add(m.TotalValue())
			} else {
				summary.OutQuantity += -m.QuantityDelta
				summary.OutValue = summary.OutValue.Add(m.TotalValue())
			}
		}
		if len(movements) < pageSize {
			break
		}
	}
	return summary, nil
}

func toMovementDTO(m *entity.Movement) dto.MovementDTO {
	return dto.MovementDTO{
		ID:               m.ID,
		ProductID:        m.ProductID,
		WarehouseID:      m.WarehouseID,
		ActorID:          m.ActorID,
		Kind:             m.Kind,
		QuantityDelta:    m.QuantityDelta,
		PreviousQuantity: m.PreviousQuantity,
		NewQuantity:      m.NewQuantity,
		UnitCost:         m.UnitCost,
		TotalValue:       m.TotalValue(),
		Reason:           m.Reason,
		ReferenceNumber:  m.ReferenceNumber,
		Notes:            m.Notes,
		OccurredAt:       m.OccurredAt,
		CreatedAt:        m.CreatedAt,
	}
}

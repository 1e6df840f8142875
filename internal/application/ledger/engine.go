// Package ledger implementa el motor del kardex: el único componente
// autorizado a mutar filas de stock. Cada mutación de cantidad crea
// exactamente un asiento (Movement) en la misma transacción.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/kardex-api/internal/application/dto"
	"github.com/jhoicas/kardex-api/internal/domain"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/ledger"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
)

// Config parámetros de reintento del motor ante conflictos de concurrencia.
type Config struct {
	MaxRetries   int           // reintentos tras el primer intento
	RetryBackoff time.Duration // espera entre reintentos
}

// DefaultConfig valores razonables para producción.
func DefaultConfig() Config {
	return Config{MaxRetries: 3, RetryBackoff: 50 * time.Millisecond}
}

// Engine orquesta las mutaciones del kardex: Validar → Bloquear fila →
// Mutar → Asentar movimiento → Commit/Rollback. La serialización por
// (producto, bodega) la da el SELECT FOR UPDATE dentro del TxRunner;
// los errores retriables se reintentan hasta Config.MaxRetries.
type Engine struct {
	txRunner      TxRunner
	productRepo   repository.ProductRepository
	warehouseRepo repository.WarehouseRepository
	userRepo      repository.UserRepository
	cfg           Config
}

// NewEngine construye el motor de kardex.
func NewEngine(
	txRunner TxRunner,
	productRepo repository.ProductRepository,
	warehouseRepo repository.WarehouseRepository,
	userRepo repository.UserRepository,
	cfg Config,
) *Engine {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultConfig().MaxRetries
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultConfig().RetryBackoff
	}
	return &Engine{
		txRunner:      txRunner,
		productRepo:   productRepo,
		warehouseRepo: warehouseRepo,
		userRepo:      userRepo,
		cfg:           cfg,
	}
}

// StockInInput entrada de mercancía.
type StockInInput struct {
	ProductID       string
	WarehouseID     string
	ActorID         string
	Quantity        int64
	UnitCost        *decimal.Decimal
	Reason          string
	ReferenceNumber string
	Notes           string
	OccurredAt      *time.Time // nil = ahora; permite asientos retroactivos
}

// StockOutInput salida de mercancía.
type StockOutInput struct {
	ProductID       string
	WarehouseID     string
	ActorID         string
	Quantity        int64
	Reason          string
	ReferenceNumber string
	Notes           string
	OccurredAt      *time.Time
}

// AdjustmentInput ajuste con delta de cualquier signo; Reason obligatorio.
// StockCount marca que el ajuste proviene de un recuento físico; solo en
// ese caso se actualiza la fecha de último inventario (una merma o un daño
// no son un recuento).
type AdjustmentInput struct {
	ProductID       string
	WarehouseID     string
	ActorID         string
	Delta           int64
	Reason          string
	ReferenceNumber string
	Notes           string
	StockCount      bool
	OccurredAt      *time.Time
}

// ReservationInput reserva o liberación de unidades disponibles.
type ReservationInput struct {
	ProductID       string
	WarehouseID     string
	ActorID         string
	Amount          int64
	Reason          string
	ReferenceNumber string
}

// RecordStockIn registra una entrada. Si el par (producto, bodega) no tenía
// seguimiento, crea la fila en cero dentro de la misma transacción
// (creación implícita: no es un error).
func (e *Engine) RecordStockIn(ctx context.Context, input StockInInput) (*dto.StockSnapshot, error) {
	if input.Quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}
	if input.UnitCost != nil && input.UnitCost.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	if _, err := e.checkReferences(ctx, input.ProductID, input.WarehouseID, input.ActorID); err != nil {
		return nil, err
	}

	var snapshot *dto.StockSnapshot
	err := e.runWithRetry(ctx, func(ctx context.Context, repos TxRepos) error {
		now := time.Now()
		stock, err := repos.Stock.GetForUpdate(ctx, input.ProductID, input.WarehouseID)
		if err != nil {
			return err
		}
		mov, err := ledger.NewStockIn(ledger.MovementInput{
			ProductID:       input.ProductID,
			WarehouseID:     input.WarehouseID,
			ActorID:         input.ActorID,
			PreviousQty:     stock.Quantity,
			UnitCost:        input.UnitCost,
			Reason:          input.Reason,
			ReferenceNumber: input.ReferenceNumber,
			Notes:           input.Notes,
			OccurredAt:      timeOrZero(input.OccurredAt),
		}, input.Quantity, now)
		if err != nil {
			return err
		}
		prevQty := stock.Quantity
		if err := stock.ApplyDelta(mov.QuantityDelta); err != nil {
			return err
		}
		// Una entrada sobre una fila dada de baja la reactiva.
		stock.Active = true
		stock.UpdatedAt = now
		if err := repos.Stock.Update(ctx, stock); err != nil {
			return err
		}
		if err := repos.Movements.Create(ctx, mov); err != nil {
			return err
		}
		// Recalcula el costo promedio ponderado. Tanto la cantidad como el
		// costo vigente se leen dentro de la transacción: una copia del
		// producto tomada antes del bloqueo ignoraría entradas concurrentes.
		if input.UnitCost != nil {
			product, err := repos.Products.GetByID(ctx, input.ProductID)
			if err != nil {
				return err
			}
			if product == nil {
				return domain.ErrUnknownReference
			}
			newCost := ledger.AverageCost(prevQty, product.Cost, input.Quantity, *input.UnitCost)
			if err := repos.Products.UpdateCost(ctx, input.ProductID, newCost); err != nil {
				return err
			}
		}
		snapshot = toSnapshot(stock)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// RecordStockOut registra una salida. Verifica stock suficiente dos veces:
// un chequeo temprano para dar un error claro y el chequeo autoritativo del
// constructor contra la foto tomada con la fila bloqueada.
func (e *Engine) RecordStockOut(ctx context.Context, input StockOutInput) (*dto.StockSnapshot, error) {
	if input.Quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}
	if _, err := e.checkReferences(ctx, input.ProductID, input.WarehouseID, input.ActorID); err != nil {
		return nil, err
	}

	var snapshot *dto.StockSnapshot
	err := e.runWithRetry(ctx, func(ctx context.Context, repos TxRepos) error {
		now := time.Now()
		stock, err := repos.Stock.GetForUpdate(ctx, input.ProductID, input.WarehouseID)
		if err != nil {
			return err
		}
		if !stock.Active {
			return domain.ErrInvalidInput
		}
		if input.Quantity > stock.Quantity {
			return domain.NewStockError(domain.ErrInsufficientStock, input.Quantity, stock.Quantity)
		}
		// La salida se valora al costo promedio vigente, leído en la misma
		// transacción para no ignorar una entrada concurrente ya confirmada.
		product, err := repos.Products.GetByID(ctx, input.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrUnknownReference
		}
		unitCost := product.Cost
		mov, err := ledger.NewStockOut(ledger.MovementInput{
			ProductID:       input.ProductID,
			WarehouseID:     input.WarehouseID,
			ActorID:         input.ActorID,
			PreviousQty:     stock.Quantity,
			UnitCost:        &unitCost,
			Reason:          input.Reason,
			ReferenceNumber: input.ReferenceNumber,
			Notes:           input.Notes,
			OccurredAt:      timeOrZero(input.OccurredAt),
		}, input.Quantity, now)
		if err != nil {
			return err
		}
		if err := stock.ApplyDelta(mov.QuantityDelta); err != nil {
			return err
		}
		stock.UpdatedAt = now
		if err := repos.Stock.Update(ctx, stock); err != nil {
			return err
		}
		if err := repos.Movements.Create(ctx, mov); err != nil {
			return err
		}
		snapshot = toSnapshot(stock)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// RecordAdjustment registra un ajuste (daño, recuento, hallazgo). Acepta
// delta positivo o negativo; el motivo es obligatorio para auditoría y un
// ajuste de recuento actualiza LastStockCountAt.
func (e *Engine) RecordAdjustment(ctx context.Context, input AdjustmentInput) (*dto.StockSnapshot, error) {
	if input.Delta == 0 || input.Reason == "" {
		return nil, domain.ErrInvalidInput
	}
	if _, err := e.checkReferences(ctx, input.ProductID, input.WarehouseID, input.ActorID); err != nil {
		return nil, err
	}

	var snapshot *dto.StockSnapshot
	err := e.runWithRetry(ctx, func(ctx context.Context, repos TxRepos) error {
		now := time.Now()
		stock, err := repos.Stock.GetForUpdate(ctx, input.ProductID, input.WarehouseID)
		if err != nil {
			return err
		}
		if !stock.Active {
			return domain.ErrInvalidInput
		}
		mov, err := ledger.NewAdjustment(ledger.MovementInput{
			ProductID:       input.ProductID,
			WarehouseID:     input.WarehouseID,
			ActorID:         input.ActorID,
			PreviousQty:     stock.Quantity,
			Reason:          input.Reason,
			ReferenceNumber: input.ReferenceNumber,
			Notes:           input.Notes,
			OccurredAt:      timeOrZero(input.OccurredAt),
		}, input.Delta, now)
		if err != nil {
			return err
		}
		if err := stock.ApplyDelta(mov.QuantityDelta); err != nil {
			return err
		}
		if input.StockCount {
			stock.LastStockCountAt = &now
		}
		stock.UpdatedAt = now
		if err := repos.Stock.Update(ctx, stock); err != nil {
			return err
		}
		if err := repos.Movements.Create(ctx, mov); err != nil {
			return err
		}
		snapshot = toSnapshot(stock)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Reserve aparta unidades del disponible. No cambia la cantidad física y
// por eso no genera Movement; queda en el rastro de reservas. Comparte la
// serialización por fila con las demás mutaciones porque escribe la misma fila.
func (e *Engine) Reserve(ctx context.Context, input ReservationInput) (*dto.StockSnapshot, error) {
	return e.mutateReservation(ctx, input, entity.ReservationActionReserve)
}

// Release devuelve unidades reservadas al disponible.
func (e *Engine) Release(ctx context.Context, input ReservationInput) (*dto.StockSnapshot, error) {
	return e.mutateReservation(ctx, input, entity.ReservationActionRelease)
}

func (e *Engine) mutateReservation(ctx context.Context, input ReservationInput, action string) (*dto.StockSnapshot, error) {
	if input.Amount <= 0 || input.Reason == "" {
		return nil, domain.ErrInvalidInput
	}
	if _, err := e.checkReferences(ctx, input.ProductID, input.WarehouseID, input.ActorID); err != nil {
		return nil, err
	}

	var snapshot *dto.StockSnapshot
	err := e.runWithRetry(ctx, func(ctx context.Context, repos TxRepos) error {
		now := time.Now()
		stock, err := repos.Stock.GetForUpdate(ctx, input.ProductID, input.WarehouseID)
		if err != nil {
			return err
		}
		if !stock.Active {
			return domain.ErrInvalidInput
		}
		if action == entity.ReservationActionReserve {
			err = stock.Reserve(input.Amount)
		} else {
			err = stock.Release(input.Amount)
		}
		if err != nil {
			return err
		}
		stock.UpdatedAt = now
		if err := repos.Stock.Update(ctx, stock); err != nil {
			return err
		}
		logEntry := &entity.ReservationLog{
			ID:          uuid.New().String(),
			ProductID:   input.ProductID,
			WarehouseID: input.WarehouseID,
			ActorID:     input.ActorID,
			Action:      action,
			Amount:      input.Amount,
			Reason:      input.Reason,
			Reference:   input.ReferenceNumber,
			CreatedAt:   now,
		}
		if err := repos.Reservations.Create(ctx, logEntry); err != nil {
			return err
		}
		snapshot = toSnapshot(stock)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Deactivate da de baja lógica la fila de stock. Solo cuando la cantidad y
// la reserva están en cero; la fila nunca se borra mientras existan asientos.
func (e *Engine) Deactivate(ctx context.Context, productID, warehouseID, actorID string) error {
	if _, err := e.checkReferences(ctx, productID, warehouseID, actorID); err != nil {
		return err
	}
	return e.runWithRetry(ctx, func(ctx context.Context, repos TxRepos) error {
		stock, err := repos.Stock.GetForUpdate(ctx, productID, warehouseID)
		if err != nil {
			return err
		}
		if stock.Quantity != 0 || stock.ReservedQuantity != 0 {
			return domain.ErrInvalidInput
		}
		stock.Active = false
		stock.UpdatedAt = time.Now()
		return repos.Stock.Update(ctx, stock)
	})
}

// runWithRetry ejecuta la transacción y reintenta ante
// domain.ErrConcurrencyConflict hasta agotar Config.MaxRetries.
// La cancelación del caller aborta entre intentos sin efecto parcial.
func (e *Engine) runWithRetry(ctx context.Context, fn func(ctx context.Context, repos TxRepos) error) error {
	var err error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.cfg.RetryBackoff):
			}
		}
		err = e.txRunner.Run(ctx, fn)
		if err == nil || !errors.Is(err, domain.ErrConcurrencyConflict) {
			return err
		}
	}
	return err
}

// checkReferences valida que producto, bodega y actor existan.
func (e *Engine) checkReferences(ctx context.Context, productID, warehouseID, actorID string) (*entity.Product, error) {
	if productID == "" || warehouseID == "" || actorID == "" {
		return nil, domain.ErrInvalidInput
	}
	product, err := e.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrUnknownReference
	}
	warehouse, err := e.warehouseRepo.GetByID(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	if warehouse == nil {
		return nil, domain.ErrUnknownReference
	}
	actor, err := e.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, domain.ErrUnknownReference
	}
	return product, nil
}

func toSnapshot(s *entity.Stock) *dto.StockSnapshot {
	return &dto.StockSnapshot{
		ProductID:   s.ProductID,
		WarehouseID: s.WarehouseID,
		Quantity:    s.Quantity,
		Reserved:    s.ReservedQuantity,
		Available:   s.Available(),
		UpdatedAt:   s.UpdatedAt,
	}
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

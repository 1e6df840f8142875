package ledger

import (
	"context"
	"time"

	"github.com/jhoicas/kardex-api/internal/application/dto"
	"github.com/jhoicas/kardex-api/internal/domain"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/ledger"
)

// TransferInput traslado de unidades entre bodegas.
type TransferInput struct {
	ProductID       string
	FromWarehouseID string
	ToWarehouseID   string
	ActorID         string
	Quantity        int64
	Reason          string
	ReferenceNumber string
	Notes           string
}

// TransferResult fotos de origen y destino después del traslado.
type TransferResult struct {
	Origin      *dto.StockSnapshot `json:"origin"`
	Destination *dto.StockSnapshot `json:"destination"`
}

// Transfer mueve unidades de una bodega a otra: una salida en origen y una
// entrada en destino dentro de la misma transacción, con un asiento por
// bodega ligados por el mismo número de referencia.
//
// Las filas se bloquean en orden lexicográfico de warehouse_id para que dos
// traslados en sentidos opuestos no se bloqueen mutuamente.
func (e *Engine) Transfer(ctx context.Context, input TransferInput) (*TransferResult, error) {
	if input.Quantity <= 0 || input.FromWarehouseID == input.ToWarehouseID {
		return nil, domain.ErrInvalidInput
	}
	if _, err := e.checkReferences(ctx, input.ProductID, input.FromWarehouseID, input.ActorID); err != nil {
		return nil, err
	}
	if wh, err := e.warehouseRepo.GetByID(ctx, input.ToWarehouseID); err != nil {
		return nil, err
	} else if wh == nil {
		return nil, domain.ErrUnknownReference
	}

	var result TransferResult
	err := e.runWithRetry(ctx, func(ctx context.Context, repos TxRepos) error {
		now := time.Now()
		// Ambos asientos se valoran al costo promedio vigente del producto,
		// leído dentro de la transacción.
		product, err := repos.Products.GetByID(ctx, input.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrUnknownReference
		}
		unitCost := product.Cost

		first, second := input.FromWarehouseID, input.ToWarehouseID
		if second < first {
			first, second = second, first
		}
		locked := map[string]*entity.Stock{}
		for _, wid := range []string{first, second} {
			stock, err := repos.Stock.GetForUpdate(ctx, input.ProductID, wid)
			if err != nil {
				return err
			}
			locked[wid] = stock
		}
		origin := locked[input.FromWarehouseID]
		dest := locked[input.ToWarehouseID]

		if !origin.Active {
			return domain.ErrInvalidInput
		}
		if input.Quantity > origin.Quantity {
			return domain.NewStockError(domain.ErrInsufficientStock, input.Quantity, origin.Quantity)
		}

		outMov, err := ledger.NewStockOut(ledger.MovementInput{
			ProductID:       input.ProductID,
			WarehouseID:     input.FromWarehouseID,
			ActorID:         input.ActorID,
			PreviousQty:     origin.Quantity,
			UnitCost:        &unitCost,
			Reason:          input.Reason,
			ReferenceNumber: input.ReferenceNumber,
			Notes:           input.Notes,
		}, input.Quantity, now)
		if err != nil {
			return err
		}
		inMov, err := ledger.NewStockIn(ledger.MovementInput{
			ProductID:       input.ProductID,
			WarehouseID:     input.ToWarehouseID,
			ActorID:         input.ActorID,
			PreviousQty:     dest.Quantity,
			UnitCost:        &unitCost,
			Reason:          input.Reason,
			ReferenceNumber: input.ReferenceNumber,
			Notes:           input.Notes,
		}, input.Quantity, now)
		if err != nil {
			return err
		}

		if err := origin.ApplyDelta(outMov.QuantityDelta); err != nil {
			return err
		}
		if err := dest.ApplyDelta(inMov.QuantityDelta); err != nil {
			return err
		}
		dest.Active = true
		origin.UpdatedAt = now
		dest.UpdatedAt = now

		if err := repos.Stock.Update(ctx, origin); err != nil {
			return err
		}
		if err := repos.Stock.Update(ctx, dest); err != nil {
			return err
		}
		if err := repos.Movements.Create(ctx, outMov); err != nil {
			return err
		}
		if err := repos.Movements.Create(ctx, inMov); err != nil {
			return err
		}
		result.Origin = toSnapshot(origin)
		result.Destination = toSnapshot(dest)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

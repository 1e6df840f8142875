package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/kardex-api/internal/application/dto"
	"github.com/jhoicas/kardex-api/internal/application/ledger"
	"github.com/jhoicas/kardex-api/internal/domain"
)

// LedgerHandler maneja las mutaciones del kardex (protegido).
type LedgerHandler struct {
	engine *ledger.Engine
}

// NewLedgerHandler construye el handler.
func NewLedgerHandler(engine *ledger.Engine) *LedgerHandler {
	return &LedgerHandler{engine: engine}
}

// errorKind mapea los sentinels de dominio al par (status HTTP, kind estable)
// del contrato de respuesta. El kind es lo que la capa de presentación usa
// para armar el mensaje; nunca inspecciona estado interno.
func errorKind(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, domain.ErrUnknownReference):
		return fiber.StatusNotFound, "UNKNOWN_REFERENCE"
	case errors.Is(err, domain.ErrInsufficientStock):
		return fiber.StatusConflict, "INSUFFICIENT_STOCK"
	case errors.Is(err, domain.ErrInsufficientAvailable):
		return fiber.StatusConflict, "INSUFFICIENT_AVAILABLE"
	case errors.Is(err, domain.ErrNegativeStock):
		return fiber.StatusConflict, "NEGATIVE_STOCK"
	case errors.Is(err, domain.ErrReservedExceedsStock):
		return fiber.StatusConflict, "RESERVED_EXCEEDS_STOCK"
	case errors.Is(err, domain.ErrOverRelease):
		return fiber.StatusConflict, "OVER_RELEASE"
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return fiber.StatusConflict, "CONCURRENCY_CONFLICT"
	case errors.Is(err, domain.ErrStorageFailure):
		return fiber.StatusServiceUnavailable, "STORAGE_FAILURE"
	}
	return fiber.StatusInternalServerError, "INTERNAL"
}

func movementError(c *fiber.Ctx, err error) error {
	status, kind := errorKind(err)
	return c.Status(status).JSON(dto.MovementResult{
		Success:      false,
		ErrorKind:    kind,
		ErrorMessage: err.Error(),
	})
}

func movementOK(c *fiber.Ctx, status int, snapshot *dto.StockSnapshot) error {
	return c.Status(status).JSON(dto.MovementResult{Success: true, Snapshot: snapshot})
}

// StockIn godoc
// @Summary      Registrar entrada de mercancía
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockInRequest  true  "product_id, warehouse_id, quantity, unit_cost opcional"
// @Success      201   {object}  dto.MovementResult
// @Failure      400   {object}  dto.MovementResult
// @Failure      404   {object}  dto.MovementResult
// @Router       /api/inventory/stock-in [post]
func (h *LedgerHandler) StockIn(c *fiber.Ctx) error {
	actorID := GetUserID(c)
	if actorID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.StockInRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	snapshot, err := h.engine.RecordStockIn(c.Context(), ledger.StockInInput{
		ProductID:       in.ProductID,
		WarehouseID:     in.WarehouseID,
		ActorID:         actorID,
		Quantity:        in.Quantity,
		UnitCost:        in.UnitCost,
		Reason:          in.Reason,
		ReferenceNumber: in.ReferenceNumber,
		Notes:           in.Notes,
		OccurredAt:      in.OccurredAt,
	})
	if err != nil {
		return movementError(c, err)
	}
	return movementOK(c, fiber.StatusCreated, snapshot)
}

// StockOut godoc
// @Summary      Registrar salida de mercancía
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockOutRequest  true  "product_id, warehouse_id, quantity"
// @Success      201   {object}  dto.MovementResult
// @Failure      409   {object}  dto.MovementResult
// @Router       /api/inventory/stock-out [post]
func (h *LedgerHandler) StockOut(c *fiber.Ctx) error {
	actorID := GetUserID(c)
	if actorID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.StockOutRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	snapshot, err := h.engine.RecordStockOut(c.Context(), ledger.StockOutInput{
		ProductID:       in.ProductID,
		WarehouseID:     in.WarehouseID,
		ActorID:         actorID,
		Quantity:        in.Quantity,
		Reason:          in.Reason,
		ReferenceNumber: in.ReferenceNumber,
		Notes:           in.Notes,
		OccurredAt:      in.OccurredAt,
	})
	if err != nil {
		return movementError(c, err)
	}
	return movementOK(c, fiber.StatusCreated, snapshot)
}

// Adjustment godoc
// @Summary      Registrar ajuste de inventario
// @Description  Delta positivo (hallazgo) o negativo (daño, recuento); reason es obligatorio.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustmentRequest  true  "product_id, warehouse_id, delta, reason"
// @Success      201   {object}  dto.MovementResult
// @Failure      409   {object}  dto.MovementResult
// @Router       /api/inventory/adjustments [post]
func (h *LedgerHandler) Adjustment(c *fiber.Ctx) error {
	actorID := GetUserID(c)
	if actorID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.AdjustmentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	snapshot, err := h.engine.RecordAdjustment(c.Context(), ledger.AdjustmentInput{
		ProductID:       in.ProductID,
		WarehouseID:     in.WarehouseID,
		ActorID:         actorID,
		Delta:           in.Delta,
		Reason:          in.Reason,
		ReferenceNumber: in.ReferenceNumber,
		Notes:           in.Notes,
		StockCount:      in.StockCount,
		OccurredAt:      in.OccurredAt,
	})
	if err != nil {
		return movementError(c, err)
	}
	return movementOK(c, fiber.StatusCreated, snapshot)
}

// Reserve godoc
// @Summary      Reservar unidades disponibles
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReservationRequest  true  "product_id, warehouse_id, amount, reason"
// @Success      200   {object}  dto.MovementResult
// @Failure      409   {object}  dto.MovementResult
// @Router       /api/inventory/reservations [post]
func (h *LedgerHandler) Reserve(c *fiber.Ctx) error {
	return h.reservation(c, true)
}

// Release godoc
// @Summary      Liberar unidades reservadas
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReservationRequest  true  "product_id, warehouse_id, amount, reason"
// @Success      200   {object}  dto.MovementResult
// @Failure      409   {object}  dto.MovementResult
// @Router       /api/inventory/reservations/release [post]
func (h *LedgerHandler) Release(c *fiber.Ctx) error {
	return h.reservation(c, false)
}

func (h *LedgerHandler) reservation(c *fiber.Ctx, reserve bool) error {
	actorID := GetUserID(c)
	if actorID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.ReservationRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	input := ledger.ReservationInput{
		ProductID:       in.ProductID,
		WarehouseID:     in.WarehouseID,
		ActorID:         actorID,
		Amount:          in.Amount,
		Reason:          in.Reason,
		ReferenceNumber: in.ReferenceNumber,
	}
	var (
		snapshot *dto.StockSnapshot
		err      error
	)
	if reserve {
		snapshot, err = h.engine.Reserve(c.Context(), input)
	} else {
		snapshot, err = h.engine.Release(c.Context(), input)
	}
	if err != nil {
		return movementError(c, err)
	}
	return movementOK(c, fiber.StatusOK, snapshot)
}

// Transfer godoc
// @Summary      Trasladar unidades entre bodegas
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "product_id, from_warehouse_id, to_warehouse_id, quantity"
// @Success      201   {object}  ledger.TransferResult
// @Failure      409   {object}  dto.MovementResult
// @Router       /api/inventory/transfers [post]
func (h *LedgerHandler) Transfer(c *fiber.Ctx) error {
	actorID := GetUserID(c)
	if actorID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	result, err := h.engine.Transfer(c.Context(), ledger.TransferInput{
		ProductID:       in.ProductID,
		FromWarehouseID: in.FromWarehouseID,
		ToWarehouseID:   in.ToWarehouseID,
		ActorID:         actorID,
		Quantity:        in.Quantity,
		Reason:          in.Reason,
		ReferenceNumber: in.ReferenceNumber,
	})
	if err != nil {
		return movementError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// Deactivate godoc
// @Summary      Dar de baja lógica la fila de stock de un par (producto, bodega)
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id    path  string  true  "ID del producto"
// @Param        warehouse_id  path  string  true  "ID de la bodega"
// @Success      204  "baja aplicada"
// @Failure      409  {object}  dto.MovementResult
// @Router       /api/inventory/stock/{product_id}/{warehouse_id} [delete]
func (h *LedgerHandler) Deactivate(c *fiber.Ctx) error {
	actorID := GetUserID(c)
	if actorID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	err := h.engine.Deactivate(c.Context(), c.Params("product_id"), c.Params("warehouse_id"), actorID)
	if err != nil {
		return movementError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

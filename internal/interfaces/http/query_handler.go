package http

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/kardex-api/internal/application/dto"
	"github.com/jhoicas/kardex-api/internal/application/query"
	"github.com/jhoicas/kardex-api/internal/domain"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
)

// QueryHandler expone las lecturas del kardex. Todas son de solo lectura
// sobre el pool, sin transacción ni bloqueo.
type QueryHandler struct {
	queries *query.StockQueries
}

func NewQueryHandler(queries *query.StockQueries) *QueryHandler {
	return &QueryHandler{queries: queries}
}

// CurrentStock godoc
// @Summary      Consultar stock actual de un par (producto, bodega)
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id    path  string  true  "ID del producto"
// @Param        warehouse_id  path  string  true  "ID de la bodega"
// @Success      200  {object}  dto.StockSnapshot
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/stock/{product_id}/{warehouse_id} [get]
func (h *QueryHandler) CurrentStock(c *fiber.Ctx) error {
	snapshot, err := h.queries.CurrentStock(c.Context(), c.Params("product_id"), c.Params("warehouse_id"))
	if err != nil {
		return queryError(c, err)
	}
	if snapshot == nil {
		// Par sin seguimiento: se distingue de "stock en cero".
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Code:    "NOT_TRACKED",
			Message: "el par producto/bodega no tiene seguimiento de stock",
		})
	}
	return c.JSON(snapshot)
}

// LowStock godoc
// @Summary      Listar productos en o bajo su umbral de quiebre
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  false  "limitar a una bodega"
// @Success      200  {array}  dto.LowStockItemDTO
// @Router       /api/inventory/low-stock [get]
func (h *QueryHandler) LowStock(c *fiber.Ctx) error {
	items, err := h.queries.LowStockItems(c.Context(), c.Query("warehouse_id"))
	if err != nil {
		return queryError(c, err)
	}
	return c.JSON(items)
}

// Movements godoc
// @Summary      Historial de movimientos (más reciente primero)
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id    query  string  false  "filtrar por producto"
// @Param        warehouse_id  query  string  false  "filtrar por bodega"
// @Param        kind          query  string  false  "IN | OUT | ADJUSTMENT"
// @Param        from          query  string  false  "RFC 3339"
// @Param        to            query  string  false  "RFC 3339"
// @Param        limit         query  int     false  "máximo de asientos (default 50)"
// @Param        offset        query  int     false  "desplazamiento"
// @Success      200  {array}   dto.MovementDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [get]
func (h *QueryHandler) Movements(c *fiber.Ctx) error {
	filter := repository.MovementFilter{
		ProductID:   c.Query("product_id"),
		WarehouseID: c.Query("warehouse_id"),
		Kind:        c.Query("kind"),
	}
	from, ok := parseTimeQuery(c, "from")
	if !ok {
		return badTimeParam(c, "from")
	}
	to, ok := parseTimeQuery(c, "to")
	if !ok {
		return badTimeParam(c, "to")
	}
	if !from.IsZero() {
		filter.From = &from
	}
	if !to.IsZero() {
		filter.To = &to
	}
	filter.Limit, _ = strconv.Atoi(c.Query("limit"))
	filter.Offset, _ = strconv.Atoi(c.Query("offset"))

	movements, err := h.queries.MovementHistory(c.Context(), filter)
	if err != nil {
		return queryError(c, err)
	}
	return c.JSON(movements)
}

// MovementSummary godoc
// @Summary      Resumen de movimientos de un producto en un rango
// @Description  Entradas, salidas, neto y valores; siempre derivado de los asientos.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id  query  string  true   "ID del producto"
// @Param        from        query  string  false  "RFC 3339"
// @Param        to          query  string  false  "RFC 3339"
// @Success      200  {object}  dto.MovementSummaryDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements/summary [get]
func (h *QueryHandler) MovementSummary(c *fiber.Ctx) error {
	productID := c.Query("product_id")
	if productID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "product_id es obligatorio",
		})
	}
	from, ok := parseTimeQuery(c, "from")
	if !ok {
		return badTimeParam(c, "from")
	}
	to, ok := parseTimeQuery(c, "to")
	if !ok {
		return badTimeParam(c, "to")
	}
	summary, err := h.queries.MovementSummary(c.Context(), productID, from, to)
	if err != nil {
		return queryError(c, err)
	}
	return c.JSON(summary)
}

func queryError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	code := "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = fiber.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, domain.ErrStorageFailure):
		status, code = fiber.StatusServiceUnavailable, "STORAGE_FAILURE"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
}

func parseTimeQuery(c *fiber.Ctx, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func badTimeParam(c *fiber.Ctx, name string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Code:    "INVALID_REQUEST",
		Message: "parámetro " + name + " debe ser RFC 3339",
	})
}

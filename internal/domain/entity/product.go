package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto o SKU del catálogo. El kardex solo lo
// consulta: existencia para validar movimientos y LowStockThreshold para
// clasificar quiebres de stock. El stock por bodega vive en Stock.
type Product struct {
	ID                string
	SKU               string // código único
	Name              string
	Description       string
	UnitPrice         decimal.Decimal
	Cost              decimal.Decimal // costo promedio ponderado, recalculado en cada entrada
	LowStockThreshold int64 // 0 = sin alerta de quiebre
	UnitMeasure       string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

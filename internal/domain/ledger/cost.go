package ledger

import (
	"github.com/shopspring/decimal"
)

// AverageCost calcula el costo promedio ponderado tras una entrada:
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
func AverageCost(currentQty int64, currentCost decimal.Decimal, inQty int64, inCost decimal.Decimal) decimal.Decimal {
	cur := decimal.NewFromInt(currentQty)
	in := decimal.NewFromInt(inQty)
	sum := cur.Add(in)
	if sum.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	num := cur.Mul(currentCost).Add(in.Mul(inCost))
	return num.Div(sum)
}

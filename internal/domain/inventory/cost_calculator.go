package inventory

import "github.com/shopspring/decimal"

// costScale decimales del costo promedio.
const costScale = 2

// CostCalculator implementa el costo promedio móvil (servicio de dominio, sin efectos).
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
// Con StockActual == 0 el nuevo costo es el de la entrada. Resultado redondeado a 2 decimales.
func CostCalculator(stockActual int64, costoActual decimal.Decimal, cantEntrada int64, costoEntrada decimal.Decimal) decimal.Decimal {
	if stockActual == 0 {
		return costoEntrada.Round(costScale)
	}
	qty := decimal.NewFromInt(stockActual)
	in := decimal.NewFromInt(cantEntrada)
	sum := qty.Add(in)
	if sum.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	num := qty.Mul(costoActual).Add(in.Mul(costoEntrada))
	return num.DivRound(sum, costScale)
}

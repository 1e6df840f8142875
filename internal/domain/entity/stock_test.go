package entity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/kardex-api/internal/domain"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

func newStock(t *testing.T, qty, reserved int64) *entity.Stock {
	t.Helper()
	s := entity.NewStock("prod-1", "bodega-1", time.Now())
	s.Quantity = qty
	s.ReservedQuantity = reserved
	return s
}

// ──────────────────────────────────────────────────────────────────────────────
// Available
// ──────────────────────────────────────────────────────────────────────────────

func TestStock_NewStock_IniciaEnCeroYActivo(t *testing.T) {
	s := entity.NewStock("prod-1", "bodega-1", time.Now())

	assert.Equal(t, int64(0), s.Quantity)
	assert.Equal(t, int64(0), s.ReservedQuantity)
	assert.Equal(t, int64(0), s.Available())
	assert.True(t, s.Active, "la fila implícita nace activa")
}

func TestStock_Available_EsFisicaMenosReservada(t *testing.T) {
	s := newStock(t, 10, 3)

	assert.Equal(t, int64(7), s.Available())
	assert.True(t, s.HasSufficientAvailable(7))
	assert.False(t, s.HasSufficientAvailable(8))
}

// ──────────────────────────────────────────────────────────────────────────────
// Reserve / Release
// ──────────────────────────────────────────────────────────────────────────────

func TestStock_Reserve_NoAlteraCantidadFisica(t *testing.T) {
	s := newStock(t, 10, 0)

	require.NoError(t, s.Reserve(4))

	assert.Equal(t, int64(10), s.Quantity, "reservar no cambia la cantidad física")
	assert.Equal(t, int64(4), s.ReservedQuantity)
	assert.Equal(t, int64(6), s.Available())
}

func TestStock_Reserve_MasQueDisponible_Falla(t *testing.T) {
	s := newStock(t, 10, 8)

	err := s.Reserve(3)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientAvailable)
	assert.Equal(t, int64(8), s.ReservedQuantity, "un fallo no debe mutar el estado")

	var stockErr *domain.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(3), stockErr.Requested)
	assert.Equal(t, int64(2), stockErr.Available)
}

func TestStock_Reserve_CantidadNoPositiva_Falla(t *testing.T) {
	s := newStock(t, 10, 0)

	assert.ErrorIs(t, s.Reserve(0), domain.ErrInvalidInput)
	assert.ErrorIs(t, s.Reserve(-5), domain.ErrInvalidInput)
}

func TestStock_Release_DevuelveAlDisponible(t *testing.T) {
	s := newStock(t, 10, 6)

	require.NoError(t, s.Release(4))

	assert.Equal(t, int64(10), s.Quantity)
	assert.Equal(t, int64(2), s.ReservedQuantity)
	assert.Equal(t, int64(8), s.Available())
}

func TestStock_Release_MasQueReservado_Falla(t *testing.T) {
	s := newStock(t, 10, 2)

	err := s.Release(3)

	assert.ErrorIs(t, err, domain.ErrOverRelease)
	assert.Equal(t, int64(2), s.ReservedQuantity)
}

// ──────────────────────────────────────────────────────────────────────────────
// ApplyDelta
// ──────────────────────────────────────────────────────────────────────────────

func TestStock_ApplyDelta_EntradaYSalida(t *testing.T) {
	s := newStock(t, 5, 0)

	require.NoError(t, s.ApplyDelta(7))
	assert.Equal(t, int64(12), s.Quantity)

	require.NoError(t, s.ApplyDelta(-12))
	assert.Equal(t, int64(0), s.Quantity, "vaciar el stock exacto es válido")
}

func TestStock_ApplyDelta_NegativoProhibido(t *testing.T) {
	s := newStock(t, 5, 0)

	err := s.ApplyDelta(-6)

	assert.ErrorIs(t, err, domain.ErrNegativeStock)
	assert.Equal(t, int64(5), s.Quantity, "un fallo no debe mutar el estado")
}

func TestStock_ApplyDelta_NoPuedeQuedarBajoLoReservado(t *testing.T) {
	s := newStock(t, 10, 4)

	err := s.ApplyDelta(-7) // quedaría 3 < 4 reservado

	assert.ErrorIs(t, err, domain.ErrReservedExceedsStock)
	assert.Equal(t, int64(10), s.Quantity)
}

package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/kardex-api/internal/domain"
)

// ═══════════════════════════════════════════════════════════════════
// Traducción de errores de transacción a sentinels del dominio
// ═══════════════════════════════════════════════════════════════════

func TestTranslateTxError_RetriablesSonConflicto(t *testing.T) {
	for _, code := range []string{"55P03", "40001", "40P01"} {
		err := translateTxError(&pgconn.PgError{Code: code})
		assert.ErrorIs(t, err, domain.ErrConcurrencyConflict, "código %s", code)
	}
}

func TestTranslateTxError_PgErrorEsFalloDeAlmacenamiento(t *testing.T) {
	err := translateTxError(&pgconn.PgError{Code: "23505"})
	assert.ErrorIs(t, err, domain.ErrStorageFailure)

	err = translateTxError(context.DeadlineExceeded)
	assert.ErrorIs(t, err, domain.ErrStorageFailure)
}

func TestTranslateTxError_NegocioPasaIntacto(t *testing.T) {
	stockErr := domain.NewStockError(domain.ErrInsufficientStock, 10, 3)
	err := translateTxError(stockErr)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.NotErrorIs(t, err, domain.ErrStorageFailure)
}

func TestTranslateCommitError_SiempreMapeaASentinel(t *testing.T) {
	// Un fallo de serialización en el commit sigue siendo retriable.
	err := translateCommitError(&pgconn.PgError{Code: "40001"})
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	// Un error plano del driver (conexión cerrada, red caída) no trae
	// PgError, pero en el commit ya no puede ser de negocio: debe
	// quedar como fallo de almacenamiento, nunca filtrarse crudo.
	plain := errors.New("conn closed")
	err = translateCommitError(plain)
	assert.ErrorIs(t, err, domain.ErrStorageFailure)
	assert.Contains(t, err.Error(), "conn closed")
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/kardex-api/internal/application/ledger"
	"github.com/jhoicas/kardex-api/internal/domain"
)

// Ensure TxRunner implements ledger.TxRunner.
var _ ledger.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL con los
// repositorios del kardex atados a la tx. Aplica lock_timeout por transacción
// para que ningún bloqueo de fila espere indefinidamente; los errores
// retriables se traducen a domain.ErrConcurrencyConflict y los fallos de
// commit/infraestructura a domain.ErrStorageFailure, que es lo que el motor
// espera para decidir reintento o aborto.
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxRunner construye el runner con el pool. lockTimeout cero usa 3s.
func NewTxRunner(pool *pgxpool.Pool, lockTimeout time.Duration) *TxRunner {
	if lockTimeout <= 0 {
		lockTimeout = 3 * time.Second
	}
	return &TxRunner{pool: pool, lockTimeout: lockTimeout}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(ctx context.Context, repos ledger.TxRepos) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", domain.ErrStorageFailure)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// SET LOCAL aplica solo a esta transacción.
	timeoutMs := r.lockTimeout.Milliseconds()
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeoutMs)); err != nil {
		return fmt.Errorf("set lock_timeout: %w", domain.ErrStorageFailure)
	}

	repos := ledger.TxRepos{
		Stock:        NewStockRepository(tx),
		Movements:    NewMovementRepository(tx),
		Reservations: NewReservationLogRepository(tx),
		Products:     NewProductRepository(tx),
	}

	if err := fn(ctx, repos); err != nil {
		return translateTxError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return translateCommitError(err)
	}
	return nil
}

// translateTxError mapea errores de PostgreSQL a los sentinels que el motor
// entiende. Los errores de negocio (StockError y compañía) pasan intactos.
func translateTxError(err error) error {
	if isRetryable(err) {
		return fmt.Errorf("%w: %v", domain.ErrConcurrencyConflict, err)
	}
	if isPgError(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
	}
	return err
}

// translateCommitError: en el commit ya no hay errores de negocio posibles,
// así que todo fallo no retriable es de almacenamiento, aunque llegue como
// un error plano (conexión cerrada, por ejemplo).
func translateCommitError(err error) error {
	if isRetryable(err) {
		return fmt.Errorf("%w: %v", domain.ErrConcurrencyConflict, err)
	}
	return fmt.Errorf("commit transaction: %w: %v", domain.ErrStorageFailure, err)
}

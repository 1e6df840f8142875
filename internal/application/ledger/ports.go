package ledger

import (
	"context"

	"github.com/jhoicas/kardex-api/internal/domain/repository"
)

// TxRepos repositorios atados a una misma transacción de BD.
type TxRepos struct {
	Stock        repository.StockRepository
	Movements    repository.MovementRepository
	Reservations repository.ReservationLogRepository
	Products     repository.ProductRepository
}

// TxRunner ejecuta fn dentro de una transacción de BD, pasando repositorios
// atados a esa tx. Garantiza la atomicidad del motor de kardex: fila de
// stock y asiento se confirman o se revierten juntos.
//
// El runner debe traducir errores retriables del almacenamiento (lock
// timeout, serialization failure, deadlock) a domain.ErrConcurrencyConflict
// para que el motor pueda reintentar, y fallos de commit/infraestructura a
// domain.ErrStorageFailure.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, repos TxRepos) error) error
}

package entity

import "time"

// Acciones del historial de reservas.
const (
	ReservationActionReserve = "RESERVE"
	ReservationActionRelease = "RELEASE"
)

// ReservationLog es el rastro de auditoría de reservas y liberaciones.
// Las reservas no cambian la cantidad física, por eso no generan Movement;
// quedan registradas aquí para trazabilidad de los apartados.
type ReservationLog struct {
	ID          string
	ProductID   string
	WarehouseID string
	ActorID     string
	Action      string // RESERVE | RELEASE
	Amount      int64  // siempre positivo
	Reason      string
	Reference   string
	CreatedAt   time.Time
}

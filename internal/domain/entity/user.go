package entity

import "time"

// Roles de usuario.
const (
	RoleAdmin     = "admin"
	RoleBodeguero = "bodeguero"
	RoleAuditor   = "auditor" // solo lectura del kardex
)

// User representa un usuario del sistema (actor de los movimientos).
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         string // admin | bodeguero | auditor
	Status       string // active | disabled
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

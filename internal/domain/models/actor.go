// internal/domain/models/actor.go
package models

import "time"

// Role is the capability class the identity provider assigns to an actor.
type Role string

const (
	RoleStudent           Role = "student"
	RoleFaculty           Role = "faculty"
	RoleAdmin             Role = "admin"
	RoleExternalEvaluator Role = "external_evaluator"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleFaculty, RoleAdmin, RoleExternalEvaluator:
		return true
	}
	return false
}

// Actor is a person known to the engine. ID comes from the identity
// provider; Role is pinned the first time the actor touches the engine.
type Actor struct {
	ID        string    `bson:"_id" json:"id"`
	Role      Role      `bson:"role" json:"role"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

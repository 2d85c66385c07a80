package types

import "github.com/google/uuid"

// Actor identifies the authenticated user performing a mutation. Every ledger
// row and order carries the actor; a mutation without one is rejected.
type Actor struct {
	ID   uuid.UUID
	Name string
}

// IsZero reports whether the actor carries no identity.
func (a Actor) IsZero() bool {
	return a.ID == uuid.Nil || a.Name == ""
}

package domain

import "time"

// Tenant is a company. An inactive tenant gates every user under it: login,
// refresh and invite consumption all fail while IsActive is false.
type Tenant struct {
	ID       string
	Name     string
	IsActive bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Package tenant manages the tenants the service is configured to serve
// and the API keys that authenticate their actors.
package tenant

import (
	"github.com/Ayejay3194/business-spine/internal/domain"
)

// APIKey is one hashed credential bound to an actor.
type APIKey struct {
	KeyHash     string
	Description string
	Actor       domain.Actor
}

// Tenant is one isolated customer of the service.
type Tenant struct {
	ID      string
	Name    string
	APIKeys []APIKey
}

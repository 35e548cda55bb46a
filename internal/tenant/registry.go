package tenant

import (
	"fmt"

	"github.com/Ayejay3194/business-spine/internal/config"
	"github.com/Ayejay3194/business-spine/internal/domain"
)

// Registry manages tenant instances
type Registry struct {
	tenants map[string]*Tenant
}

// NewRegistry creates a new tenant registry
func NewRegistry() *Registry {
	return &Registry{
		tenants: make(map[string]*Tenant),
	}
}

// LoadTenants loads tenants from configuration. Each API key must name a
// valid actor role; anything else is a configuration error caught at
// startup rather than at request time.
func (r *Registry) LoadTenants(configs []config.TenantConfig) ([]*Tenant, error) {
	var tenants []*Tenant

	for _, cfg := range configs {
		apiKeys := make([]APIKey, len(cfg.APIKeys))
		for i, keyCfg := range cfg.APIKeys {
			role := domain.Role(keyCfg.Role)
			if !domain.ValidRole(role) {
				return nil, fmt.Errorf("tenant %s: api key %q has unknown role %q", cfg.ID, keyCfg.Description, keyCfg.Role)
			}
			apiKeys[i] = APIKey{
				KeyHash:     keyCfg.KeyHash,
				Description: keyCfg.Description,
				Actor: domain.Actor{
					UserID: keyCfg.UserID,
					Role:   role,
				},
			}
		}

		t := &Tenant{
			ID:      cfg.ID,
			Name:    cfg.Name,
			APIKeys: apiKeys,
		}

		tenants = append(tenants, t)
		r.tenants[cfg.ID] = t
	}

	return tenants, nil
}

// GetTenant retrieves a tenant by ID
func (r *Registry) GetTenant(id string) (*Tenant, bool) {
	t, ok := r.tenants[id]
	return t, ok
}

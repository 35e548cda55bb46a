package tenant

import (
	"testing"

	"github.com/Ayejay3194/business-spine/internal/config"
	"github.com/Ayejay3194/business-spine/internal/domain"
)

func TestLoadTenants(t *testing.T) {
	registry := NewRegistry()

	tenants, err := registry.LoadTenants([]config.TenantConfig{
		{
			ID:   "t1",
			Name: "Acme",
			APIKeys: []config.APIKeyConfig{
				{KeyHash: "hash-1", Description: "owner key", UserID: "owner-1", Role: "owner"},
				{KeyHash: "hash-2", Description: "staff key", UserID: "staff-1", Role: "staff"},
			},
		},
	})
	if err != nil {
		t.Fatalf("LoadTenants() error = %v", err)
	}
	if len(tenants) != 1 {
		t.Fatalf("LoadTenants() returned %d tenants, want 1", len(tenants))
	}

	got, ok := registry.GetTenant("t1")
	if !ok {
		t.Fatal("GetTenant(t1) not found")
	}
	if len(got.APIKeys) != 2 {
		t.Fatalf("APIKeys = %d, want 2", len(got.APIKeys))
	}
	if got.APIKeys[0].Actor.Role != domain.RoleOwner {
		t.Errorf("APIKeys[0].Actor.Role = %v, want owner", got.APIKeys[0].Actor.Role)
	}
}

func TestLoadTenantsRejectsUnknownRole(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.LoadTenants([]config.TenantConfig{
		{
			ID: "t1",
			APIKeys: []config.APIKeyConfig{
				{KeyHash: "hash-1", UserID: "u1", Role: "superuser"},
			},
		},
	})
	if err == nil {
		t.Error("LoadTenants() accepted an unknown role")
	}
}

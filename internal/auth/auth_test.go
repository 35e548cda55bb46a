package auth

import (
	"net/http"
	"testing"

	"github.com/Ayejay3194/business-spine/internal/domain"
	"github.com/Ayejay3194/business-spine/internal/tenant"
)

func testTenants() []*tenant.Tenant {
	return []*tenant.Tenant{
		{
			ID:   "t1",
			Name: "Acme",
			APIKeys: []tenant.APIKey{
				{
					KeyHash: HashAPIKey("owner-key"),
					Actor:   domain.Actor{UserID: "owner-1", Role: domain.RoleOwner},
				},
				{
					KeyHash: HashAPIKey("staff-key"),
					Actor:   domain.Actor{UserID: "staff-1", Role: domain.RoleStaff},
				},
			},
		},
	}
}

func TestValidateAPIKey(t *testing.T) {
	auth := NewAuthenticator(testTenants())

	identity, err := auth.ValidateAPIKey("staff-key")
	if err != nil {
		t.Fatalf("ValidateAPIKey() error = %v", err)
	}
	if identity.Tenant.ID != "t1" {
		t.Errorf("Tenant.ID = %q, want t1", identity.Tenant.ID)
	}
	if identity.Actor.UserID != "staff-1" || identity.Actor.Role != domain.RoleStaff {
		t.Errorf("Actor = %+v, want staff-1/staff", identity.Actor)
	}

	if _, err := auth.ValidateAPIKey("wrong-key"); err == nil {
		t.Error("ValidateAPIKey() accepted an unknown key")
	}
}

func TestValidateAPIKeyAcrossTenants(t *testing.T) {
	tenants := append(testTenants(), &tenant.Tenant{
		ID:   "t2",
		Name: "Globex",
		APIKeys: []tenant.APIKey{
			{
				KeyHash: HashAPIKey("globex-key"),
				Actor:   domain.Actor{UserID: "owner-2", Role: domain.RoleOwner},
			},
		},
	})
	auth := NewAuthenticator(tenants)

	tests := []struct {
		key        string
		wantTenant string
		wantUser   string
	}{
		{"owner-key", "t1", "owner-1"},
		{"globex-key", "t2", "owner-2"},
	}
	for _, tt := range tests {
		identity, err := auth.ValidateAPIKey(tt.key)
		if err != nil {
			t.Fatalf("ValidateAPIKey(%q) error = %v", tt.key, err)
		}
		if identity.Tenant.ID != tt.wantTenant || identity.Actor.UserID != tt.wantUser {
			t.Errorf("ValidateAPIKey(%q) = %s/%s, want %s/%s",
				tt.key, identity.Tenant.ID, identity.Actor.UserID, tt.wantTenant, tt.wantUser)
		}
	}
}

func TestExtractAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"bearer", "Bearer sk-123", "sk-123", false},
		{"lowercase scheme", "bearer sk-123", "sk-123", false},
		{"missing", "", "", true},
		{"no scheme", "sk-123", "", true},
		{"wrong scheme", "Basic sk-123", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := http.NewRequest(http.MethodPost, "/v1/commands", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			got, err := ExtractAPIKey(r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractAPIKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtractAPIKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

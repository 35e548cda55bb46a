// Package auth validates API keys and resolves the tenant and actor they
// authenticate.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/Ayejay3194/business-spine/internal/domain"
	"github.com/Ayejay3194/business-spine/internal/tenant"
)

// Identity is the authenticated caller: the tenant a key belongs to and
// the actor it acts as.
type Identity struct {
	Tenant *tenant.Tenant
	Actor  domain.Actor
}

// Authenticator validates API keys and extracts caller identity
type Authenticator struct {
	identities map[string]Identity // keyhash -> identity
}

// NewAuthenticator creates a new authenticator with tenant mappings
func NewAuthenticator(tenants []*tenant.Tenant) *Authenticator {
	auth := &Authenticator{
		identities: make(map[string]Identity),
	}

	for _, t := range tenants {
		for _, key := range t.APIKeys {
			auth.identities[key.KeyHash] = Identity{Tenant: t, Actor: key.Actor}
		}
	}

	return auth
}

// ValidateAPIKey validates an API key and returns the caller identity.
// Lookup is by SHA-256 digest of the presented key; raw key material is
// never stored or compared.
func (a *Authenticator) ValidateAPIKey(apiKey string) (Identity, error) {
	identity, ok := a.identities[HashAPIKey(apiKey)]
	if !ok {
		return Identity{}, fmt.Errorf("invalid API key")
	}
	return identity, nil
}

// ExtractAPIKey extracts the API key from the Authorization header
func ExtractAPIKey(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing Authorization header")
	}

	// Support "Bearer <key>" format
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid Authorization header format")
	}

	if strings.ToLower(parts[0]) != "bearer" {
		return "", fmt.Errorf("unsupported authorization scheme")
	}

	return parts[1], nil
}

// HashAPIKey creates a SHA-256 hash of an API key for storage
func HashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(hash[:])
}

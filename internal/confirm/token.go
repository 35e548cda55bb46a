// Package confirm issues and validates step-up confirmation tokens.
//
// A token is an HMAC over (action, content hash of the input, actor,
// expiry), so binding and expiry are enforced structurally: a token issued
// for one action cannot authorize another, and a token issued for one input
// cannot authorize a modified input even for the same action. Single use is
// enforced through a keyed store so multiple orchestrator instances agree
// on consumption.
package confirm

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Ayejay3194/business-spine/internal/domain"
)

// Store tracks outstanding tokens with a TTL. Implementations must be safe
// for concurrent use and shared across orchestrator instances in
// multi-instance deployments.
type Store interface {
	// Put records a freshly minted token until expiresAt.
	Put(ctx context.Context, token string, expiresAt time.Time) error

	// Take consumes a token. It returns false when the token is unknown,
	// already consumed, or expired as of now.
	Take(ctx context.Context, token string, now time.Time) (bool, error)
}

// Issuer mints and validates confirmation tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	store  Store
}

// NewIssuer creates an issuer. The secret must be shared by every instance
// that can mint or validate tokens.
func NewIssuer(secret []byte, ttl time.Duration, store Store) *Issuer {
	return &Issuer{secret: secret, ttl: ttl, store: store}
}

// TTL returns the configured token lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Mint issues a token bound to (action, input, actor) that expires TTL
// after rctx.Now.
func (i *Issuer) Mint(ctx context.Context, rctx domain.RequestContext, action string, input map[string]any) (string, error) {
	expiry := rctx.Now.Add(i.ttl)

	inputHash, err := ContentHash(input)
	if err != nil {
		return "", fmt.Errorf("hashing confirmation input: %w", err)
	}

	token := i.sign(action, inputHash, rctx.Actor.UserID, expiry.Unix())
	if err := i.store.Put(ctx, token, expiry); err != nil {
		return "", fmt.Errorf("storing confirmation token: %w", err)
	}
	return token, nil
}

// Validate checks a resubmitted token against the action and input of the
// resumed flow, and consumes it on success. Outcomes:
//   - malformed token: VALIDATION
//   - expired token: UNAUTHORIZED (treated like a missing token; re-issue)
//   - token bound to a different action, input, or actor: CONFLICT
//   - unknown or already-consumed token: UNAUTHORIZED
func (i *Issuer) Validate(ctx context.Context, rctx domain.RequestContext, token, action string, input map[string]any) error {
	expiry, ok := parseExpiry(token)
	if !ok {
		return domain.ErrValidation("malformed confirmation token")
	}
	if !rctx.Now.Before(time.Unix(expiry, 0)) {
		return domain.ErrUnauthorized("confirmation token expired")
	}

	inputHash, err := ContentHash(input)
	if err != nil {
		return fmt.Errorf("hashing confirmation input: %w", err)
	}

	expected := i.sign(action, inputHash, rctx.Actor.UserID, expiry)
	if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		return domain.ErrConflict("confirmation token does not match this action and input")
	}

	taken, err := i.store.Take(ctx, token, rctx.Now)
	if err != nil {
		return fmt.Errorf("consuming confirmation token: %w", err)
	}
	if !taken {
		return domain.ErrUnauthorized("confirmation token already used or unknown")
	}
	return nil
}

func (i *Issuer) sign(action, inputHash, actorID string, expiryUnix int64) string {
	mac := hmac.New(sha256.New, i.secret)
	fmt.Fprintf(mac, "%s\x00%s\x00%s\x00%d", action, inputHash, actorID, expiryUnix)
	return strconv.FormatInt(expiryUnix, 10) + "." + hex.EncodeToString(mac.Sum(nil))
}

func parseExpiry(token string) (int64, bool) {
	idx := strings.IndexByte(token, '.')
	if idx <= 0 {
		return 0, false
	}
	expiry, err := strconv.ParseInt(token[:idx], 10, 64)
	if err != nil {
		return 0, false
	}
	return expiry, true
}

// ContentHash computes the SHA-256 of the canonical JSON serialization of
// input. encoding/json sorts map keys, so identical inputs always hash
// identically.
func ContentHash(input map[string]any) (string, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

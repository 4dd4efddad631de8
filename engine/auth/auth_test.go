package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/rangzgamez/idle-mmo-2-sub002/engine/config"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/storage/backend/memstore"
	storagetypes "github.com/rangzgamez/idle-mmo-2-sub002/engine/storage/types"
)

const testSecret = "unit-test-secret"

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()

	db := memstore.OpenMemStore()
	db.PutAccount(&storagetypes.Account{ID: "acc1", Username: "alice"})

	r, err := NewResolver(&config.AuthConfig{HMACSecret: testSecret, Issuer: "idlemmo"}, db)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestResolveValidCredential(t *testing.T) {
	r := newTestResolver(t)
	cred := signToken(t, jwt.MapClaims{
		"sub": "acc1",
		"iss": "idlemmo",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	identity, err := r.Resolve(cred)
	if err != nil {
		t.Fatal(err)
	}
	if identity.AccountID != "acc1" || identity.Username != "alice" {
		t.Errorf("resolved identity = %s", identity)
	}
}

func TestResolveMissingCredential(t *testing.T) {
	r := newTestResolver(t)
	if _, err := r.Resolve(""); ReasonOf(err) != MissingCredential {
		t.Errorf("reason = %q, want %q", ReasonOf(err), MissingCredential)
	}
}

func TestResolveMalformedCredential(t *testing.T) {
	r := newTestResolver(t)
	if _, err := r.Resolve("definitely-not-a-jwt"); ReasonOf(err) != MalformedCredential {
		t.Errorf("reason = %q, want %q", ReasonOf(err), MalformedCredential)
	}
}

func TestResolveExpiredCredential(t *testing.T) {
	r := newTestResolver(t)
	cred := signToken(t, jwt.MapClaims{
		"sub": "acc1",
		"iss": "idlemmo",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	if _, err := r.Resolve(cred); ReasonOf(err) != ExpiredCredential {
		t.Errorf("reason = %q, want %q", ReasonOf(err), ExpiredCredential)
	}
}

func TestResolveBadSignature(t *testing.T) {
	r := newTestResolver(t)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "acc1",
		"iss": "idlemmo",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	cred, err := token.SignedString([]byte("some-other-secret"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Resolve(cred); ReasonOf(err) != InvalidCredential {
		t.Errorf("reason = %q, want %q", ReasonOf(err), InvalidCredential)
	}
}

func TestResolveWrongIssuer(t *testing.T) {
	r := newTestResolver(t)
	cred := signToken(t, jwt.MapClaims{
		"sub": "acc1",
		"iss": "someone-else",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	if _, err := r.Resolve(cred); ReasonOf(err) != InvalidCredential {
		t.Errorf("reason = %q, want %q", ReasonOf(err), InvalidCredential)
	}
}

func TestResolveUnknownAccount(t *testing.T) {
	r := newTestResolver(t)
	cred := signToken(t, jwt.MapClaims{
		"sub": "ghost",
		"iss": "idlemmo",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	if _, err := r.Resolve(cred); ReasonOf(err) != UnknownAccount {
		t.Errorf("reason = %q, want %q", ReasonOf(err), UnknownAccount)
	}
}

func TestNewResolverRequiresVerification(t *testing.T) {
	if _, err := NewResolver(&config.AuthConfig{}, memstore.OpenMemStore()); err == nil {
		t.Errorf("resolver without secret or JWKS did not fail")
	}
}

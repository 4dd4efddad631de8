package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"

	"github.com/rangzgamez/idle-mmo-2-sub002/engine/config"
	"github.com/rangzgamez/idle-mmo-2-sub002/engine/storage"
)

// Refusal reasons for credential resolution
const (
	MissingCredential   = "missingCredential"
	MalformedCredential = "malformedCredential"
	InvalidCredential   = "invalidCredential"
	ExpiredCredential   = "expiredCredential"
	UnknownAccount      = "unknownAccount"
)

// Error is a typed credential refusal
type Error struct {
	Reason string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("auth: %s: %s", e.Reason, e.cause)
	}
	return "auth: " + e.Reason
}

func (e *Error) Unwrap() error {
	return e.cause
}

func newError(reason string, cause error) *Error {
	return &Error{Reason: reason, cause: cause}
}

// ReasonOf returns the refusal reason of an auth error, or "" for other errors
func ReasonOf(err error) string {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Reason
	}
	return ""
}

// Identity is the resolved caller identity, a read-only snapshot of the
// account record for the lifetime of a connection
type Identity struct {
	AccountID string
	Username  string
}

func (id *Identity) String() string {
	return fmt.Sprintf("Identity<%s:%s>", id.AccountID, id.Username)
}

// AccountLookup is the slice of the store the resolver needs
type AccountLookup interface {
	GetAccount(id string) (*storage.Account, error)
}

// Resolver validates bearer credentials and resolves them to identities
type Resolver struct {
	hmacSecret []byte
	jwks       *keyfunc.JWKS
	issuer     string
	audience   string
	accounts   AccountLookup
}

// NewResolver creates a Resolver from the auth config. Either an HMAC secret
// or a JWKS url must be configured.
func NewResolver(cfg *config.AuthConfig, accounts AccountLookup) (*Resolver, error) {
	r := &Resolver{
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		accounts: accounts,
	}

	if cfg.JWKSUrl != "" {
		jwks, err := keyfunc.Get(cfg.JWKSUrl, keyfunc.Options{
			RefreshInterval:  time.Hour,
			RefreshRateLimit: time.Minute * 5,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "fetch JWKS from %s failed", cfg.JWKSUrl)
		}
		r.jwks = jwks
	} else if cfg.HMACSecret != "" {
		r.hmacSecret = []byte(cfg.HMACSecret)
	} else {
		return nil, errors.New("auth config has neither hmac_secret nor jwks_url")
	}

	return r, nil
}

// Resolve validates the credential's signature and expiry, then confirms the
// embedded account still exists. It performs no writes.
func (r *Resolver) Resolve(credential string) (*Identity, error) {
	if credential == "" {
		return nil, newError(MissingCredential, nil)
	}
	if strings.Count(credential, ".") != 2 {
		return nil, newError(MalformedCredential, nil)
	}

	token, err := r.parse(credential)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, newError(MalformedCredential, err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, newError(ExpiredCredential, err)
		default:
			return nil, newError(InvalidCredential, err)
		}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, newError(InvalidCredential, errors.New("unexpected claims type"))
	}

	now := time.Now().Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return nil, newError(ExpiredCredential, nil)
	}
	if r.issuer != "" && !claims.VerifyIssuer(r.issuer, true) {
		return nil, newError(InvalidCredential, errors.New("wrong issuer"))
	}
	if r.audience != "" && !claims.VerifyAudience(r.audience, true) {
		return nil, newError(InvalidCredential, errors.New("wrong audience"))
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, newError(InvalidCredential, errors.New("missing sub claim"))
	}

	acct, err := r.accounts.GetAccount(sub)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, newError(UnknownAccount, nil)
		}
		return nil, errors.Wrapf(err, "account lookup for %s failed", sub)
	}

	return &Identity{AccountID: acct.ID, Username: acct.Username}, nil
}

func (r *Resolver) parse(credential string) (*jwt.Token, error) {
	if r.jwks != nil {
		parser := jwt.NewParser(jwt.WithValidMethods([]string{"RS256", "ES256"}))
		return parser.Parse(credential, r.jwks.Keyfunc)
	}

	return jwt.Parse(credential, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return r.hmacSecret, nil
	})
}

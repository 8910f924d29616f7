// Package identity resolves the caller identity the engine's entry points
// require for permission checks. The host application authenticates users
// and hands the engine a signed actor token; the engine only verifies it.
package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mentora/backend/internal/models"
)

// ErrForbidden is returned when the actor may not perform the operation.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidToken is returned when an actor token fails verification.
var ErrInvalidToken = errors.New("invalid actor token")

// Actor identifies who is invoking an engine operation.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// Is reports whether the actor is the given user or an admin.
func (a Actor) Is(userID uuid.UUID) bool {
	return a.IsAdmin() || a.UserID == userID
}

// RequireAdmin enforces admin-only operations (payout review, dispute
// resolution).
func RequireAdmin(a Actor) error {
	if !a.IsAdmin() {
		return fmt.Errorf("%w: admin role required", ErrForbidden)
	}
	return nil
}

// RequireSelf enforces that the actor acts on their own entity, admins
// excepted.
func RequireSelf(a Actor, userID uuid.UUID) error {
	if !a.Is(userID) {
		return fmt.Errorf("%w: not the owning user", ErrForbidden)
	}
	return nil
}

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Verifier validates HS256 actor tokens issued by the host application.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret}
}

// Verify parses and validates a token, returning the actor it names.
func (v *Verifier) Verify(token string) (Actor, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return Actor{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return Actor{UserID: userID, Role: c.Role}, nil
}

// Issue signs an actor token. Exposed for tests and local tooling; the host
// application normally issues tokens itself.
func (v *Verifier) Issue(a Actor, ttl time.Duration) (string, error) {
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role: a.Role,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(v.secret)
}

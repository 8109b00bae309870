package auth

import (
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"

	"github.com/tacedge/gateway/internal/apperr"
)

func newJTI() string { return uuid.New().String() }

// customClaims are the gateway-recognized claims beyond the registered set.
type customClaims struct {
	NodeID         string   `json:"node_id,omitempty"`
	Role           string   `json:"role,omitempty"`
	Permissions    []string `json:"permissions,omitempty"`
	Classification string   `json:"classification_level,omitempty"`
}

// Validator verifies HS256 bearer tokens minted by an external issuer (spec
// §6: the gateway validates, it does not own session state).
type Validator struct {
	secret []byte
}

// NewValidator creates a token Validator over secret.
func NewValidator(secret string) *Validator {
	return &Validator{secret: []byte(secret)}
}

// ValidateToken verifies signature, expiry, and the required claim set, and
// resolves the caller's effective permissions and classification ceiling.
func (v *Validator) ValidateToken(raw string) (*Claims, error) {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidToken, "malformed bearer token", err)
	}

	var registered jwt.Claims
	var custom customClaims
	if err := tok.Claims(v.secret, &registered, &custom); err != nil {
		return nil, apperr.Wrap(apperr.InvalidToken, "bad token signature", err)
	}

	// sub and exp are required; tokens missing either are rejected outright.
	if registered.Subject == "" {
		return nil, apperr.New(apperr.InvalidToken, "token missing required claim: sub")
	}
	if registered.Expiry == nil {
		return nil, apperr.New(apperr.InvalidToken, "token missing required claim: exp")
	}
	if registered.IssuedAt == nil {
		return nil, apperr.New(apperr.InvalidToken, "token missing required claim: iat")
	}
	if registered.NotBefore == nil {
		return nil, apperr.New(apperr.InvalidToken, "token missing required claim: nbf")
	}
	if registered.ID == "" {
		return nil, apperr.New(apperr.InvalidToken, "token missing required claim: jti")
	}

	// Audience verification is off; only time-bound validity is checked.
	if err := registered.ValidateWithLeeway(jwt.Expected{Time: time.Now()}, 5*time.Second); err != nil {
		return nil, apperr.Wrap(apperr.InvalidToken, "token expired or not yet valid", err)
	}

	role := Role(custom.Role)

	var permissions []Permission
	if custom.Permissions != nil {
		permissions = make([]Permission, len(custom.Permissions))
		for i, p := range custom.Permissions {
			permissions[i] = Permission(p)
		}
	}

	classification := Unclassified
	if custom.Classification != "" {
		c, ok := ParseClassification(custom.Classification)
		if !ok {
			return nil, apperr.New(apperr.InvalidToken, fmt.Sprintf("unrecognized classification_level: %s", custom.Classification))
		}
		classification = c
	}

	return &Claims{
		Subject:        registered.Subject,
		NodeID:         custom.NodeID,
		Role:           role,
		Permissions:    EffectivePermissions(role, permissions),
		Classification: classification,
		JTI:            registered.ID,
		RawToken:       raw,
	}, nil
}

// IssueToken signs a token with the given claims and time-to-live. It backs
// the genjwt fixture CLI and the test suite; it is not used by the gateway's
// request path, which only validates externally-minted tokens.
func (v *Validator) IssueToken(subject string, role Role, nodeID string, classification Classification, ttl time.Duration) (string, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: v.secret},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("creating signer: %w", err)
	}

	now := time.Now()
	registered := jwt.Claims{
		Subject:   subject,
		ID:        newJTI(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Expiry:    jwt.NewNumericDate(now.Add(ttl)),
	}
	custom := customClaims{
		NodeID:         nodeID,
		Role:           string(role),
		Classification: classification.String(),
	}

	raw, err := jwt.Signed(signer).Claims(registered).Claims(custom).Serialize()
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return raw, nil
}

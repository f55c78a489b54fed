// Package auth verifies session tokens at the recording boundary, issues them
// after a wallet sign-in, and checks sign-in message signatures.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/glimpsegive/glimpse-ledger/internal/errs"
	"github.com/glimpsegive/glimpse-ledger/internal/model"
)

// Expected session token shape.
const (
	Audience   = "authenticated"
	Role       = "authenticated"
	IssuerName = "glimpse"
)

// Leeway tolerates clock skew between issuer and verifier.
const Leeway = 30 * time.Second

// Claims is the session token payload.
type Claims struct {
	Role          string `json:"role"`
	WalletAddress string `json:"wallet_address"`
	jwt.RegisteredClaims
}

// Gate authenticates recording requests.
type Gate struct {
	key []byte
	now func() time.Time
}

// NewGate returns a Gate verifying HS256 tokens signed with key.
func NewGate(key []byte) *Gate {
	return &Gate{key: key, now: time.Now}
}

// Authorize verifies the bearer header and requires the token's wallet to
// equal claimedWallet exactly.
func (g *Gate) Authorize(header, claimedWallet string) (model.Session, error) {
	s, err := g.Session(header)
	if err != nil {
		return model.Session{}, err
	}
	if s.WalletAddress != claimedWallet {
		return model.Session{}, errs.ErrWalletMismatch
	}
	return s, nil
}

// Session verifies the bearer header and returns the identity it carries.
func (g *Gate) Session(header string) (model.Session, error) {
	raw, err := bearer(header)
	if err != nil {
		return model.Session{}, err
	}

	var claims Claims
	_, err = jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) { return g.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(Leeway),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		return model.Session{}, fmt.Errorf("%w: %v", errs.ErrInvalidToken, err)
	}
	if claims.Role != Role || claims.WalletAddress == "" || claims.Subject == "" {
		return model.Session{}, fmt.Errorf("%w: unexpected claims", errs.ErrInvalidToken)
	}

	return model.Session{
		ProfileID:     claims.Subject,
		WalletAddress: claims.WalletAddress,
		ExpiresAt:     claims.ExpiresAt.Time,
	}, nil
}

func bearer(header string) (string, error) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errs.ErrMissingToken
	}
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return "", errs.ErrMissingToken
	}
	return tok, nil
}

// Issuer mints session tokens after a verified sign-in.
type Issuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewIssuer returns an Issuer signing HS256 tokens valid for ttl.
func NewIssuer(key []byte, ttl time.Duration) *Issuer {
	return &Issuer{key: key, ttl: ttl, now: time.Now}
}

// Issue creates a signed token for p.
func (i *Issuer) Issue(p model.Profile) (model.Tokens, error) {
	if p.WalletAddress == "" {
		return model.Tokens{}, errors.New("issue token: empty wallet address")
	}
	now := i.now()
	exp := now.Add(i.ttl)
	claims := Claims{
		Role:          Role,
		WalletAddress: p.WalletAddress,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    IssuerName,
			Subject:   p.ID.String(),
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.key)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: signed, ExpiresAt: exp}, nil
}

package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed     = errors.New("jwtx: malformed token")
	ErrInvalidSig    = errors.New("jwtx: invalid signature")
	ErrExpired       = errors.New("jwtx: token expired")
	ErrNotYetValid   = errors.New("jwtx: token not yet valid")
	ErrIssuer        = errors.New("jwtx: issuer mismatch")
	ErrClassMismatch = errors.New("jwtx: token class mismatch")
	ErrEmptySecret   = errors.New("jwtx: signing secret must not be empty")
)

// Signer signs and verifies HS256 tokens for exactly one token class.
// Construct two of these with distinct secrets so access-key compromise
// cannot forge refresh tokens.
type Signer struct {
	secret []byte
	class  Class
	issuer string
	leeway time.Duration
}

// NewSigner builds a Signer for one token class.
func NewSigner(secret []byte, class Class, issuer string) (*Signer, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	return &Signer{
		secret: secret,
		class:  class,
		issuer: issuer,
		leeway: 30 * time.Second, // time sync is never perfect
	}, nil
}

// Sign produces a compact HS256 JWT. Pure CPU, no I/O.
func (s *Signer) Sign(c Claims) (string, error) {
	c.TokenClass = s.class
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(s.secret)
}

// Verify parses and validates a compact token, returning its claims.
// Signature, expiry, not-before, issuer, and token class are all enforced;
// failures map onto the jwtx sentinel errors. Pure CPU, no I/O.
func (s *Signer) Verify(raw string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(s.leeway),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return Claims{}, ErrNotYetValid
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSig
		default:
			return Claims{}, ErrMalformed
		}
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return Claims{}, ErrIssuer
	}
	if claims.TokenClass != s.class {
		return Claims{}, ErrClassMismatch
	}

	return claims, nil
}

package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrUnknownKID  = errors.New("jwtx: unknown kid")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")

	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrAudience     = errors.New("jwtx: audience mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrWrongKind    = errors.New("jwtx: wrong token type")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// TokenVerifier validates compact JWTs against a KeySet and returns typed
// claims. All failures map onto the package sentinels above so callers can
// classify without knowing the jwt library's internals.
type TokenVerifier struct {
	keys    *KeySet
	issuer  string
	aud     []string
	methods []string
}

// NewTokenVerifier builds a verifier for a single signing algorithm.
// Empty issuer or audience disables that check.
func NewTokenVerifier(keys *KeySet, algorithm, issuer string, aud []string) *TokenVerifier {
	return &TokenVerifier{
		keys:    keys,
		issuer:  issuer,
		aud:     aud,
		methods: []string{algorithm},
	}
}

// VerifyAccess parses and validates an access token.
func (v *TokenVerifier) VerifyAccess(tokenStr string) (AccessClaims, error) {
	var claims AccessClaims
	if err := v.parse(tokenStr, &claims); err != nil {
		return AccessClaims{}, err
	}
	if claims.TokenType != TokenTypeAccess {
		return AccessClaims{}, ErrWrongKind
	}
	if err := v.validateCommon(claims.RegisteredClaims); err != nil {
		return AccessClaims{}, err
	}
	return claims, nil
}

// VerifyRefresh parses and validates a refresh token.
func (v *TokenVerifier) VerifyRefresh(tokenStr string) (RefreshClaims, error) {
	var claims RefreshClaims
	if err := v.parse(tokenStr, &claims); err != nil {
		return RefreshClaims{}, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return RefreshClaims{}, ErrWrongKind
	}
	if err := v.validateCommon(claims.RegisteredClaims); err != nil {
		return RefreshClaims{}, err
	}
	return claims, nil
}

func (v *TokenVerifier) validateCommon(rc jwt.RegisteredClaims) error {
	if rc.ID == "" {
		return ErrInvalidClaim
	}
	if err := validateIssuer(rc, v.issuer); err != nil {
		return err
	}
	return validateAudience(rc, v.aud)
}

func (v *TokenVerifier) parse(tokenStr string, claims jwt.Claims) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods(v.methods),
		jwt.WithExpirationRequired(),
	)

	token, err := parser.ParseWithClaims(tokenStr, claims, v.keyFunc)
	if err != nil {
		return classifyParseError(err)
	}
	if !token.Valid {
		return ErrInvalidClaim
	}
	return nil
}

func (v *TokenVerifier) keyFunc(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, ErrUnknownKID
	}

	pub, err := v.keys.Get(kid)
	if err != nil {
		return nil, ErrUnknownKID
	}
	return pub, nil
}

// classifyParseError folds the jwt library's error chain into our sentinels.
// Expiry wins over everything else so callers can report it distinctly.
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	case errors.Is(err, ErrUnknownKID):
		return ErrUnknownKID
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrAlgMismatch
	default:
		return ErrMalformed
	}
}

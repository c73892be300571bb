package jwtx

import "github.com/golang-jwt/jwt/v5"

// Signer is anything that can sign claim sets into compact JWTs.
type Signer interface {
	Alg() string
	KID() string
	Sign(claims jwt.Claims) (string, error)
	PublicJWK() JWK
	Validate() error
}

// NewSignerEdDSA creates an EdDSA signer from PEM bytes.
// Ed25519 keys must be in PKCS8 format.
func NewSignerEdDSA(kid string, pemKey []byte) (Signer, error) {
	return newEdDSASigner(kid, pemKey)
}

// NewSignerRS256 creates an RS256 signer from PEM bytes.
func NewSignerRS256(kid string, pemKey []byte) (Signer, error) {
	return newRS256Signer(kid, pemKey)
}

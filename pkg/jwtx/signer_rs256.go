package jwtx

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// RS256Signer implements Signer using RSA SHA-256.
type RS256Signer struct {
	kid string
	key *rsa.PrivateKey
	pub *rsa.PublicKey
	alg string
}

// newRS256Signer loads an RSA private key from PEM bytes. Accepts both
// PKCS1 and PKCS8 encodings.
func newRS256Signer(kid string, pemKey []byte) (*RS256Signer, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: invalid PEM for RSA key")
	}

	var key *rsa.PrivateKey

	switch block.Type {
	case "RSA PRIVATE KEY":
		k, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwtx: parse PKCS1: %w", err)
		}
		key = k
	case "PRIVATE KEY":
		priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwtx: parse PKCS8: %w", err)
		}
		rk, ok := priv.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("jwtx: not RSA private key")
		}
		key = rk
	default:
		return nil, fmt.Errorf("jwtx: unsupported PEM type %q", block.Type)
	}

	return &RS256Signer{
		kid: kid,
		key: key,
		pub: &key.PublicKey,
		alg: jwt.SigningMethodRS256.Alg(),
	}, nil
}

func (s *RS256Signer) Alg() string { return s.alg }
func (s *RS256Signer) KID() string { return s.kid }

// Sign produces a compact JWT with the kid header set.
func (s *RS256Signer) Sign(claims jwt.Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

// PublicJWK returns the public half for JWKS publishing.
func (s *RS256Signer) PublicJWK() JWK {
	return NewRSAJWK(s.kid, "sig", s.alg, s.pub)
}

// Validate sanity checks the key material.
func (s *RS256Signer) Validate() error {
	if s.key == nil || s.pub == nil {
		return errors.New("jwtx: nil RSA key")
	}
	return nil
}

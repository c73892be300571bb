package jwtx

import (
	"crypto/ed25519"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"math/big"
	"sync"
)

var ErrNoKey = errors.New("jwtx: key not found")

// KeySet holds public verification keys in memory, indexed by kid. It is
// safe for concurrent use by the verifier and the JWKS endpoint.
type KeySet struct {
	mu  sync.RWMutex
	jks JWKS
	pub map[string]any // kid -> *rsa.PublicKey | ed25519.PublicKey
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{pub: make(map[string]any)}
}

// AddSigner registers a Signer's public JWK into the KeySet.
func (k *KeySet) AddSigner(s Signer) error {
	return k.AddJWK(s.PublicJWK())
}

// AddJWK adds a JWK and parses it into a usable crypto key.
func (k *KeySet) AddJWK(j JWK) error {
	key, err := parseJWKToKey(j)
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.pub[j.Kid] = key
	k.jks.Keys = append(k.jks.Keys, j)
	return nil
}

// Get returns the public key for the given kid.
func (k *KeySet) Get(kid string) (any, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if pk, ok := k.pub[kid]; ok {
		return pk, nil
	}
	return nil, ErrNoKey
}

// PublicJWKS returns a snapshot of the key set for HTTP serving.
func (k *KeySet) PublicJWKS() JWKS {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.jks
}

// IsReady reports whether at least one key is loaded.
func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.pub) > 0
}

func parseJWKToKey(j JWK) (any, error) {
	switch j.Kty {
	case "RSA":
		nb, err := base64.RawURLEncoding.DecodeString(j.N)
		if err != nil {
			return nil, err
		}
		eb, err := base64.RawURLEncoding.DecodeString(j.E)
		if err != nil {
			return nil, err
		}
		return &rsa.PublicKey{
			N: new(big.Int).SetBytes(nb),
			E: int(new(big.Int).SetBytes(eb).Int64()),
		}, nil

	case "OKP":
		if j.Crv != "Ed25519" {
			return nil, errors.New("jwtx: unsupported OKP curve " + j.Crv)
		}
		xb, err := base64.RawURLEncoding.DecodeString(j.X)
		if err != nil {
			return nil, err
		}
		if len(xb) != ed25519.PublicKeySize {
			return nil, errors.New("jwtx: invalid Ed25519 public key size")
		}
		return ed25519.PublicKey(xb), nil

	default:
		return nil, errors.New("jwtx: unsupported kty " + j.Kty)
	}
}

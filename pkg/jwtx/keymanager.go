package jwtx

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/plateful/auth/pkg/cryptox"
)

// Supported JWT signing algorithms.
const (
	AlgorithmEdDSA = "EdDSA"
	AlgorithmRS256 = "RS256"
)

// KeyManager owns the signing keys and the verifier for one service
// instance. Keys are selected randomly per signing operation so no single
// key dominates the issued-token population.
type KeyManager struct {
	Verifier *TokenVerifier
	KeySet   *KeySet

	algorithm string

	mu      sync.RWMutex
	signers []Signer
}

// KeyManagerOptions configures key generation and claim validation.
type KeyManagerOptions struct {
	// Algorithm is "EdDSA" (default choice) or "RS256".
	Algorithm string

	// Issuer is validated against the iss claim on every verify.
	Issuer string

	// Audience values validated against aud. Empty disables the check.
	Audience []string

	// RSABits sets the RSA key size for RS256. Defaults to 4096.
	RSABits int

	// NumKeys is how many signing keys to generate (1..10, default 3).
	NumKeys int
}

// NewEphemeralKeyManager generates in-memory signing keys that are never
// persisted. A restart invalidates every outstanding token, which is the
// intended recovery story for key compromise.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, fmt.Errorf("jwtx: Issuer is required")
	}
	if opts.Algorithm == "" {
		opts.Algorithm = AlgorithmEdDSA
	}

	numKeys := opts.NumKeys
	if numKeys <= 0 {
		numKeys = 3
	}
	if numKeys > 10 {
		numKeys = 10
	}

	keyset := NewKeySet()
	signers := make([]Signer, 0, numKeys)

	for i := 0; i < numKeys; i++ {
		kid, err := generateKeyID()
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate key ID: %w", err)
		}

		signer, err := generateSigner(opts.Algorithm, kid, opts.RSABits)
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate signer %d: %w", i+1, err)
		}

		if err := keyset.AddSigner(signer); err != nil {
			return nil, fmt.Errorf("jwtx: failed to add signer %d to keyset: %w", i+1, err)
		}
		signers = append(signers, signer)
	}

	return &KeyManager{
		Verifier:  NewTokenVerifier(keyset, opts.Algorithm, opts.Issuer, opts.Audience),
		KeySet:    keyset,
		algorithm: opts.Algorithm,
		signers:   signers,
	}, nil
}

func generateSigner(algorithm, kid string, rsaBits int) (Signer, error) {
	switch algorithm {
	case AlgorithmEdDSA:
		pemBytes, err := cryptox.GenerateEd25519Key()
		if err != nil {
			return nil, fmt.Errorf("failed to generate EdDSA key: %w", err)
		}
		return NewSignerEdDSA(kid, pemBytes)

	case AlgorithmRS256:
		bits := rsaBits
		if bits == 0 {
			bits = 4096
		}
		pemBytes, err := cryptox.GenerateRSAKey(bits)
		if err != nil {
			return nil, fmt.Errorf("failed to generate RS256 key: %w", err)
		}
		return NewSignerRS256(kid, pemBytes)

	default:
		return nil, fmt.Errorf("unsupported algorithm %q (supported: EdDSA, RS256)", algorithm)
	}
}

// Algorithm returns the signing algorithm in use.
func (km *KeyManager) Algorithm() string {
	return km.algorithm
}

// IsReady reports whether the manager has verification keys loaded.
func (km *KeyManager) IsReady() bool {
	return km.KeySet.IsReady()
}

// GetSigner picks a signer at random from the active set.
func (km *KeyManager) GetSigner() Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()

	switch len(km.signers) {
	case 0:
		return nil
	case 1:
		return km.signers[0]
	default:
		return km.signers[rand.Intn(len(km.signers))]
	}
}

// NumSigners returns the number of active signing keys.
func (km *KeyManager) NumSigners() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.signers)
}

// AddSigner registers an extra signing key at runtime. The key joins both
// the active signer pool and the KeySet for verification.
func (km *KeyManager) AddSigner(signer Signer) error {
	if signer == nil {
		return fmt.Errorf("signer cannot be nil")
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	if err := km.KeySet.AddSigner(signer); err != nil {
		return fmt.Errorf("failed to add signer to keyset: %w", err)
	}
	km.signers = append(km.signers, signer)
	return nil
}

// generateKeyID creates a random key identifier: "plateful-{128-bit token}".
func generateKeyID() (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return "", fmt.Errorf("failed to generate random key ID: %w", err)
	}
	return fmt.Sprintf("plateful-%s", token), nil
}

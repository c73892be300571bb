package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"os"
	"path/filepath"
)

var (
	// pepper is loaded lazily from pepperFile, or generated on first use.
	pepper     string
	pepperFile string
)

// SetPepperPath configures where the pepper file lives. Must be called
// before any hashing happens.
func SetPepperPath(file string) {
	pepperFile = file
}

// GetPepper returns the process pepper, loading or generating it on first
// call. A missing pepper is unrecoverable, so failure exits the process.
func GetPepper() string {
	if pepper != "" {
		return pepper
	}

	var err error
	pepper, err = loadOrGeneratePepper()
	if err != nil {
		slog.Error("failed to load or generate pepper", slog.Any("err", err))
		os.Exit(1)
	}

	return pepper
}

func loadOrGeneratePepper() (string, error) {
	pepperFile = filepath.Clean(pepperFile)
	if err := os.MkdirAll(filepath.Dir(pepperFile), 0750); err != nil {
		return "", err
	}

	if _, err := os.Stat(pepperFile); os.IsNotExist(err) {
		buf := make([]byte, keyLength)
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		generated := base64.RawURLEncoding.EncodeToString(buf)

		if err := os.WriteFile(pepperFile, []byte(generated), 0600); err != nil {
			return "", err
		}
		return generated, nil
	}

	raw, err := os.ReadFile(pepperFile)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

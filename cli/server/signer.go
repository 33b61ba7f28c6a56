package server

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nspcc-dev/network-map-service/pkg/signer"
)

const signerKeyFile = "signer.key"

// loadOrCreateSigner loads the persisted signing key from dbDir, or
// generates and persists a fresh one on first boot. Spec §4.D: "the
// signing key must be generated (or loaded) before the processor starts."
func loadOrCreateSigner(dbDir string) (*signer.Authority, error) {
	path := filepath.Join(dbDir, signerKeyFile)
	keyBytes, err := os.ReadFile(path)
	if err == nil {
		return signer.Load(keyBytes)
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read signing key: %w", err)
	}

	auth, err := signer.New()
	if err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	if err := os.WriteFile(path, auth.Bytes(), 0o600); err != nil {
		return nil, fmt.Errorf("persist signing key: %w", err)
	}
	return auth, nil
}

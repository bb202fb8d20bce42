package main

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sagecrypto "github.com/sage-x-project/mpenc/crypto"
)

// loadOrCreateSeed reads a raw 32-byte Ed25519 seed from
// <dir>/<id>.seed, generating and persisting a fresh one if the file does
// not exist yet. The static-key directory is read-only and externally
// supplied in a real deployment (SPEC_FULL.md §6); generating-on-first-use
// only exists to make this CLI usable without a separate key-provisioning
// step.
func loadOrCreateSeed(dir, id string) (*sagecrypto.SigningKeyPair, error) {
	path := filepath.Join(dir, id+".seed")
	data, err := os.ReadFile(path)
	if err == nil {
		return sagecrypto.SigningKeyPairFromSeed(data)
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("keydir: read seed: %w", err)
	}

	kp, err := sagecrypto.GenerateSigningKeyPair()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("keydir: create dir: %w", err)
	}
	if err := os.WriteFile(path, kp.Seed(), 0o600); err != nil {
		return nil, fmt.Errorf("keydir: write seed: %w", err)
	}
	pubPath := filepath.Join(dir, id+".pub")
	if err := os.WriteFile(pubPath, []byte(kp.Public), 0o644); err != nil {
		return nil, fmt.Errorf("keydir: write public key: %w", err)
	}
	return kp, nil
}

// loadStaticDir reads every "<peer>.pub" file in dir into a static public
// key directory, the externally supplied source SPEC_FULL.md §6 names.
func loadStaticDir(dir string) (map[string]ed25519.PublicKey, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]ed25519.PublicKey{}, nil
		}
		return nil, fmt.Errorf("keydir: read dir: %w", err)
	}

	out := make(map[string]ed25519.PublicKey)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".pub") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".pub")
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("keydir: read %s: %w", e.Name(), err)
		}
		if len(data) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("keydir: %s: bad public key size %d", e.Name(), len(data))
		}
		out[id] = ed25519.PublicKey(data)
	}
	return out, nil
}

// Package crypto signs and verifies issued compliance reports with Ed25519.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"
)

const (
	privateKeyType = "ED25519 PRIVATE KEY"
	publicKeyType  = "ED25519 PUBLIC KEY"
)

// GenerateKeys writes a new ed25519 keypair as PEM. The private key is 0600.
func GenerateKeys(privateKeyPath, publicKeyPath string) error {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate keypair: %w", err)
	}
	if err := writePEM(privateKeyPath, privateKeyType, privateKey, 0600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	if err := writePEM(publicKeyPath, publicKeyType, publicKey, 0644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}
	return nil
}

func writePEM(path, blockType string, key []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if err := pem.Encode(f, &pem.Block{Type: blockType, Bytes: key}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readPEM(path, blockType string, size int) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block in %s", path)
	}
	if block.Type != blockType {
		return nil, fmt.Errorf("invalid key type: expected %s, got %s", blockType, block.Type)
	}
	if len(block.Bytes) != size {
		return nil, fmt.Errorf("invalid key size in %s", path)
	}
	return block.Bytes, nil
}

// LoadPrivateKey reads a PEM private key written by GenerateKeys
func LoadPrivateKey(path string) (ed25519.PrivateKey, error) {
	b, err := readPEM(path, privateKeyType, ed25519.PrivateKeySize)
	if err != nil {
		return nil, err
	}
	return ed25519.PrivateKey(b), nil
}

// LoadPublicKey reads a PEM public key written by GenerateKeys
func LoadPublicKey(path string) (ed25519.PublicKey, error) {
	b, err := readPEM(path, publicKeyType, ed25519.PublicKeySize)
	if err != nil {
		return nil, err
	}
	return ed25519.PublicKey(b), nil
}

// KeyID is a short fingerprint of a public key
func KeyID(pub ed25519.PublicKey) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:8])
}

// Sign data
func Sign(data []byte, key ed25519.PrivateKey) []byte {
	return ed25519.Sign(key, data)
}

// Verify
func Verify(data, signature []byte, key ed25519.PublicKey) bool {
	return ed25519.Verify(key, data, signature)
}

// Package crypto implements the host-callable cryptographic primitives:
// sha256, keccak256, and ed25519 signature verification, plus the code
// hashing used to key the compiled-module cache.
package crypto

import (
	"crypto/ed25519"
	"crypto/sha256"

	"golang.org/x/crypto/sha3"
)

// SHA256 hashes data with SHA-256, returning a 32-byte digest.
func SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// Keccak256 hashes data with Keccak-256 (not the NIST-standardized
// SHA3-256 variant), the scheme used across most account-based chains.
// golang.org/x/crypto/sha3 exposes the legacy Keccak permutation via
// NewLegacyKeccak256.
func Keccak256(data []byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Ed25519Verify checks a 64-byte signature over msg against a 32-byte
// public key. Addresses and signatures in this core are exactly these
// sizes (spec §6), so no other curve is a better stdlib fit.
func Ed25519Verify(pubKey [32]byte, msg []byte, signature [64]byte) bool {
	return ed25519.Verify(pubKey[:], msg, signature[:])
}

// CodeHash is the content-addressing key for the compiled-module cache:
// sha256 of the raw Wasm bytes.
func CodeHash(code []byte) [32]byte {
	return SHA256(code)
}

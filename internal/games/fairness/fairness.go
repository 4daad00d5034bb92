// Package fairness implements the commit/reveal seed scheme every game engine draws from.
package fairness

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// Algorithm is reported alongside every round result.
const Algorithm = "HMAC_SHA256"

const (
	hexDigits52 = 13
	two52       = float64(1 << 52)
)

func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func HMACHex(key, message string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// ServerSeedHash is the public commitment published before a round is played.
func ServerSeedHash(serverSeed string) string { return SHA256Hex(serverSeed) }

// NewServerSeed returns 32 random bytes, hex encoded.
func NewServerSeed() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("server seed: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Message builds the HMAC input for a tagged draw.
func Message(clientSeed string, nonce int64, tag string) string {
	return clientSeed + ":" + strconv.FormatInt(nonce, 10) + ":" + tag
}

// Uint52 returns the top 52 bits of HMAC-SHA256(serverSeed, message).
func Uint52(serverSeed, message string) uint64 {
	h := HMACHex(serverSeed, message)
	// 13 hex digits always fit in 52 bits
	v, _ := strconv.ParseUint(h[:hexDigits52], 16, 64)
	return v
}

// Uniform01 derives a deterministic value in [0, 1) for one tagged draw.
func Uniform01(serverSeed, clientSeed string, nonce int64, tag string) float64 {
	return float64(Uint52(serverSeed, Message(clientSeed, nonce, tag))) / two52
}

// Verify reports whether serverSeed matches a previously published hash.
func Verify(serverSeed, hash string) bool {
	return hmac.Equal([]byte(ServerSeedHash(serverSeed)), []byte(hash))
}

package solana

import (
	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// publicKeyLength is the byte length of an ed25519 public key.
const publicKeyLength = 32

// IsValidAddress reports whether s is a well-formed Solana address:
// base58 text decoding to exactly 32 bytes.
func IsValidAddress(s string) bool {
	decoded, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(decoded) == publicKeyLength
}

// IsOnCurve reports whether address decodes to a point on the ed25519
// curve. Wallet keys are on-curve; program-derived addresses are not.
func IsOnCurve(address string) bool {
	decoded, err := base58.Decode(address)
	if err != nil || len(decoded) != publicKeyLength {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(decoded)
	return err == nil
}

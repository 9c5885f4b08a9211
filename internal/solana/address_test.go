package solana

import "testing"

func TestIsValidAddress(t *testing.T) {
	valid := []string{
		"So11111111111111111111111111111111111111112",
		"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		TokenProgramID,
	}
	for _, addr := range valid {
		if !IsValidAddress(addr) {
			t.Errorf("expected %s to be valid", addr)
		}
	}

	invalid := []string{
		"",
		"not an address",
		"abc",
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", // Ethereum, not base58
		"IIIIl0OO", // base58 forbidden characters
	}
	for _, addr := range invalid {
		if IsValidAddress(addr) {
			t.Errorf("expected %s to be invalid", addr)
		}
	}
}

func TestIsOnCurve(t *testing.T) {
	// The system program ID is a valid curve point.
	if !IsOnCurve("11111111111111111111111111111111") {
		t.Error("expected system program ID to be on curve")
	}

	if IsOnCurve("not an address") {
		t.Error("expected malformed input to be off curve")
	}
}

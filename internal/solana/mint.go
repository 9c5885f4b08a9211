package solana

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
)

// TokenProgramID is the SPL token program that owns mint accounts.
const TokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

// mintAccountSize is the serialized size of an SPL mint account.
const mintAccountSize = 82

// MintInfo holds the decoded SPL mint account state.
type MintInfo struct {
	MintAuthority   *string // base58, nil when revoked
	FreezeAuthority *string // base58, nil when absent
	Supply          uint64  // raw units, before decimal scaling
	Decimals        int
	Initialized     bool
}

// ParseMintAccount decodes base64 SPL mint account data.
// Mint layout: authorityOption(4) | authority(32) | supply(8) |
// decimals(1) | initialized(1) | freezeOption(4) | freezeAuthority(32).
func ParseMintAccount(data string) (*MintInfo, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode mint account data: %w", err)
	}
	if len(raw) < mintAccountSize {
		return nil, fmt.Errorf("mint account data too short: %d", len(raw))
	}

	info := &MintInfo{
		Supply:      binary.LittleEndian.Uint64(raw[36:44]),
		Decimals:    int(raw[44]),
		Initialized: raw[45] != 0,
	}

	if binary.LittleEndian.Uint32(raw[0:4]) == 1 {
		authority := base58.Encode(raw[4:36])
		info.MintAuthority = &authority
	}

	if binary.LittleEndian.Uint32(raw[46:50]) == 1 {
		authority := base58.Encode(raw[50:82])
		info.FreezeAuthority = &authority
	}

	return info, nil
}

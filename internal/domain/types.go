package domain

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Chain represents the Starknet network a row belongs to
type Chain string

const (
	ChainStarknetMainnet Chain = "STARKNET_MAINNET"
	ChainStarknetSepolia Chain = "STARKNET_SEPOLIA"
)

// IsValidChain checks if a chain is valid
func IsValidChain(chain Chain) bool {
	return chain == ChainStarknetMainnet ||
		chain == ChainStarknetSepolia
}

// ChainFromNetwork maps a configured network name (mainnet, sepolia) to a Chain
func ChainFromNetwork(network string) (Chain, error) {
	switch strings.ToLower(strings.TrimSpace(network)) {
	case "mainnet", "":
		return ChainStarknetMainnet, nil
	case "sepolia":
		return ChainStarknetSepolia, nil
	default:
		return "", fmt.Errorf("unsupported starknet network: %s", network)
	}
}

// ChainID returns the Starknet chain id short string for the chain
func (c Chain) ChainID() string {
	switch c {
	case ChainStarknetSepolia:
		return "0x534e5f5345504f4c4941" // SN_SEPOLIA
	default:
		return "0x534e5f4d41494e" // SN_MAIN
	}
}

// Subject returns the lowercase token used in message subjects
func (c Chain) Subject() string {
	switch c {
	case ChainStarknetSepolia:
		return "sepolia"
	default:
		return "mainnet"
	}
}

// ItemType is the marketplace item type encoded as a Cairo short string
type ItemType string

const (
	ItemTypeNative  ItemType = "NATIVE"
	ItemTypeERC20   ItemType = "ERC20"
	ItemTypeERC721  ItemType = "ERC721"
	ItemTypeERC1155 ItemType = "ERC1155"
)

// IsNFT reports whether the item type refers to a non-fungible token
func (t ItemType) IsNFT() bool {
	return t == ItemTypeERC721 || t == ItemTypeERC1155
}

// NormalizeAddress returns a 0x-prefixed, 64 hex digit, lowercase address.
// Values that cannot be parsed are returned lowercased.
func NormalizeAddress(address string) string {
	n, ok := parseFelt(address)
	if !ok {
		return strings.ToLower(address)
	}
	return fmt.Sprintf("0x%064x", n)
}

// NormalizeFelt returns the minimal 0x-prefixed lowercase hex form of a felt.
// Values that cannot be parsed are returned lowercased.
func NormalizeFelt(value string) string {
	n, ok := parseFelt(value)
	if !ok {
		return strings.ToLower(value)
	}
	return "0x" + n.Text(16)
}

// FeltToDecimal converts a hex or decimal felt to its decimal string
func FeltToDecimal(value string) (string, error) {
	n, ok := parseFelt(value)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidFelt, value)
	}
	return n.String(), nil
}

// IsZeroAddress reports whether the address is the Starknet zero address
func IsZeroAddress(address string) bool {
	return NormalizeAddress(address) == STARKNET_ZERO_ADDRESS
}

func parseFelt(value string) (*big.Int, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil, false
	}
	n := new(big.Int)
	var ok bool
	if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
		if len(v) == 2 {
			return big.NewInt(0), true
		}
		_, ok = n.SetString(v[2:], 16)
	} else {
		_, ok = n.SetString(v, 10)
	}
	if !ok || n.Sign() < 0 {
		return nil, false
	}
	return n, true
}

// FormatBlockNumber formats a block number the way webhook payloads carry it
func FormatBlockNumber(n uint64) string {
	return strconv.FormatUint(n, 10)
}

package starknet

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"

	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
)

const (
	byteArrayWordSize = 31
	shortStringMax    = 31
)

var (
	twoPow128 = new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	mask128   = new(uint256.Int).Sub(twoPow128, uint256.NewInt(1))
)

// ParseFelt parses a hex or decimal felt
func ParseFelt(value string) (*big.Int, error) {
	v := strings.TrimSpace(value)
	n := new(big.Int)
	var ok bool
	switch {
	case v == "":
		ok = false
	case strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X"):
		if len(v) == 2 {
			return n, nil
		}
		_, ok = n.SetString(v[2:], 16)
	default:
		_, ok = n.SetString(v, 10)
	}
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidFelt, value)
	}
	return n, nil
}

// FeltToUint64 parses a felt that must fit in 64 bits
func FeltToUint64(value string) (uint64, error) {
	n, err := ParseFelt(value)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("%w: %q overflows u64", domain.ErrInvalidFelt, value)
	}
	return n.Uint64(), nil
}

// JoinU256 combines the low and high felts of a Cairo u256 into a decimal string
func JoinU256(low, high string) (string, error) {
	lo, err := feltToU256(low)
	if err != nil {
		return "", err
	}
	hi, err := feltToU256(high)
	if err != nil {
		return "", err
	}
	if lo.Gt(mask128) || hi.Gt(mask128) {
		return "", fmt.Errorf("%w: u256 limb exceeds 128 bits", domain.ErrInvalidFelt)
	}
	v := new(uint256.Int).Lsh(hi, 128)
	v.Or(v, lo)
	return v.Dec(), nil
}

// SplitU256 splits a decimal or hex integer into its (low, high) felts
func SplitU256(value string) (string, string, error) {
	v, err := feltToU256(value)
	if err != nil {
		return "", "", err
	}
	lo := new(uint256.Int).And(v, mask128)
	hi := new(uint256.Int).Rsh(v, 128)
	return lo.Hex(), hi.Hex(), nil
}

func feltToU256(value string) (*uint256.Int, error) {
	n, err := ParseFelt(value)
	if err != nil {
		return nil, err
	}
	v, overflow := uint256.FromBig(n)
	if overflow {
		return nil, fmt.Errorf("%w: %q overflows u256", domain.ErrInvalidFelt, value)
	}
	return v, nil
}

// DecodeShortString decodes a Cairo short string (up to 31 ASCII bytes packed big-endian)
func DecodeShortString(value string) (string, error) {
	n, err := ParseFelt(value)
	if err != nil {
		return "", err
	}
	b := n.Bytes()
	if len(b) > shortStringMax {
		return "", fmt.Errorf("%w: short string longer than %d bytes", domain.ErrInvalidFelt, shortStringMax)
	}
	return string(b), nil
}

// EncodeShortString encodes s as a Cairo short string felt
func EncodeShortString(s string) (string, error) {
	if len(s) > shortStringMax {
		return "", fmt.Errorf("short string longer than %d bytes", shortStringMax)
	}
	return "0x" + new(big.Int).SetBytes([]byte(s)).Text(16), nil
}

// DecodeString decodes a string returned by a contract call. It accepts a
// serialized ByteArray, a length-prefixed Array<felt252> of short strings, or
// a bare list of short strings.
func DecodeString(felts []string) (string, error) {
	if len(felts) == 0 {
		return "", nil
	}

	if s, ok := decodeByteArray(felts); ok {
		return s, nil
	}

	parts := felts
	if n, err := FeltToUint64(felts[0]); err == nil && n == uint64(len(felts)-1) {
		parts = felts[1:]
	}

	var sb strings.Builder
	for _, f := range parts {
		s, err := DecodeShortString(f)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

// decodeByteArray decodes [data_len, data..., pending_word, pending_word_len]
func decodeByteArray(felts []string) (string, bool) {
	if len(felts) < 3 {
		return "", false
	}
	n, err := FeltToUint64(felts[0])
	if err != nil || n != uint64(len(felts)-3) {
		return "", false
	}
	pendingLen, err := FeltToUint64(felts[len(felts)-1])
	if err != nil || pendingLen >= byteArrayWordSize {
		return "", false
	}

	var sb strings.Builder
	for _, f := range felts[1 : 1+n] {
		w, err := ParseFelt(f)
		if err != nil {
			return "", false
		}
		b := w.Bytes()
		if len(b) > byteArrayWordSize {
			return "", false
		}
		sb.Write(leftPad(b, byteArrayWordSize))
	}

	pending, err := ParseFelt(felts[len(felts)-2])
	if err != nil {
		return "", false
	}
	b := pending.Bytes()
	if uint64(len(b)) > pendingLen {
		return "", false
	}
	sb.Write(leftPad(b, int(pendingLen)))
	return sb.String(), true
}

func leftPad(b []byte, size int) []byte {
	if len(b) >= size {
		return b
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}

package bignum

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// TypeMarker is the value of the "type" field identifying a big-number
	// node.
	TypeMarker = "BigNumber"
	// Decimals is the fixed-point scale of chain amounts (1 DEL = 10^18 units).
	Decimals = 18
	// Precision is the number of fractional digits kept after conversion.
	Precision = 6
)

// ErrMalformedHex is returned when a big-number node carries a hex field that
// is not a hexadecimal integer.
var ErrMalformedHex = errors.New("malformed big-number hex")

// Normalize returns a copy of v in which every big-number node, an object of
// the form {"type":"BigNumber","hex":"0x..."}, is replaced by its
// decimal.Decimal value. Maps and slices are walked at any depth; other
// values are returned unchanged. Normalizing an already normalized value is
// a no-op.
func Normalize(v any) (any, error) {
	switch node := v.(type) {
	case map[string]any:
		if isBigNumber(node) {
			hex, ok := node["hex"].(string)
			if !ok {
				return nil, fmt.Errorf("%w: hex field is %T", ErrMalformedHex, node["hex"])
			}
			return FromHex(hex)
		}

		out := make(map[string]any, len(node))
		for k, item := range node {
			n, err := Normalize(item)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(node))
		for i, item := range node {
			n, err := Normalize(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	default:
		return v, nil
	}
}

func isBigNumber(node map[string]any) bool {
	if t, ok := node["type"].(string); !ok || t != TypeMarker {
		return false
	}
	_, ok := node["hex"]
	return ok
}

// FromHex converts a hexadecimal integer of base units into a decimal amount
// scaled by 10^-Decimals and rounded half to even to Precision places. An
// optional sign and 0x prefix are accepted.
func FromHex(hex string) (decimal.Decimal, error) {
	s := strings.TrimSpace(hex)

	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	// big.Int accepts underscores in some bases; hex amounts never have them.
	if s == "" || strings.ContainsAny(s, "_+-") {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrMalformedHex, hex)
	}

	i, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrMalformedHex, hex)
	}
	if neg {
		i.Neg(i)
	}

	return decimal.NewFromBigInt(i, -Decimals).RoundBank(Precision), nil
}

package bignum_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decimal-ipc/dscipc/pkg/bignum"
)

func bn(hex string) map[string]any {
	return map[string]any{"type": bignum.TypeMarker, "hex": hex}
}

func TestFromHex(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		hex  string
		want string
	}{
		{hex: "0xde0b6b3a7640000", want: "1"},
		{hex: "0XDE0B6B3A7640000", want: "1"},
		{hex: "de0b6b3a7640000", want: "1"},
		{hex: "0x0", want: "0"},
		{hex: "0x14d1120d7b160000", want: "1.5"},
		{hex: "0x112210f47de98115", want: "1.234568"},
		{hex: "-0xde0b6b3a7640000", want: "-1"},
		// Half-even rounding at the sixth fractional digit.
		{hex: "0x746a528800", want: "0"},
		{hex: "0x15d3ef79800", want: "0.000002"},
		{hex: "0x246139ca800", want: "0.000002"},
	}

	for _, tc := range tcs {
		t.Run(tc.hex, func(t *testing.T) {
			got, err := bignum.FromHex(tc.hex)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tc.want).Equal(got), "got %s, want %s", got, tc.want)
		})
	}
}

func TestFromHex_Malformed(t *testing.T) {
	t.Parallel()

	for _, hex := range []string{"", "0x", "-", "0xzz", "not-hex", "0x1_0", "0x-1", "1.5"} {
		_, err := bignum.FromHex(hex)
		assert.ErrorIs(t, err, bignum.ErrMalformedHex, "hex %q", hex)
	}
}

func TestNormalize_Nested(t *testing.T) {
	t.Parallel()

	in := map[string]any{
		"balance": bn("0xde0b6b3a7640000"),
		"meta": map[string]any{
			"validators": []any{
				map[string]any{
					"stake": map[string]any{"amount": bn("0x14d1120d7b160000")},
					"name":  "node-1",
				},
			},
		},
		"height": json.Number("123"),
		"ok":     true,
		"none":   nil,
	}

	out, err := bignum.Normalize(in)
	require.NoError(t, err)

	m := out.(map[string]any)
	assert.True(t, decimal.NewFromInt(1).Equal(m["balance"].(decimal.Decimal)))
	assert.Equal(t, json.Number("123"), m["height"])
	assert.Equal(t, true, m["ok"])
	assert.Nil(t, m["none"])

	validator := m["meta"].(map[string]any)["validators"].([]any)[0].(map[string]any)
	assert.Equal(t, "node-1", validator["name"])
	amount := validator["stake"].(map[string]any)["amount"].(decimal.Decimal)
	assert.True(t, decimal.RequireFromString("1.5").Equal(amount))

	// Input is left untouched.
	assert.Equal(t, bn("0xde0b6b3a7640000"), in["balance"])
}

func TestNormalize_Idempotent(t *testing.T) {
	t.Parallel()

	in := []any{bn("0x112210f47de98115"), "text", map[string]any{"x": bn("0x0")}}

	once, err := bignum.Normalize(in)
	require.NoError(t, err)
	twice, err := bignum.Normalize(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestNormalize_PassThrough(t *testing.T) {
	t.Parallel()

	for _, v := range []any{nil, "0xde0b6b3a7640000", json.Number("1.5"), 42.0, false} {
		out, err := bignum.Normalize(v)
		require.NoError(t, err)
		assert.Equal(t, v, out)
	}

	// A node tagged as a big number without a hex field is an ordinary object.
	out, err := bignum.Normalize(map[string]any{"type": bignum.TypeMarker, "value": "1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"type": bignum.TypeMarker, "value": "1"}, out)
}

func TestNormalize_MalformedNode(t *testing.T) {
	t.Parallel()

	_, err := bignum.Normalize(map[string]any{"list": []any{bn("0xnope")}})
	require.ErrorIs(t, err, bignum.ErrMalformedHex)
	assert.True(t, strings.HasPrefix(err.Error(), "list: [0]: "), err.Error())

	_, err = bignum.Normalize(map[string]any{"type": bignum.TypeMarker, "hex": 10})
	assert.ErrorIs(t, err, bignum.ErrMalformedHex)
}

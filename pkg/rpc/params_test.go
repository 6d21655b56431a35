package rpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParams(t *testing.T, raw string) Params {
	t.Helper()
	p, err := ParseParams(json.RawMessage(raw))
	require.NoError(t, err)
	return p
}

func TestParseParams(t *testing.T) {
	for _, raw := range []string{"", "null", "  {}  "} {
		p, err := ParseParams(json.RawMessage(raw))
		require.NoError(t, err, "raw=%q", raw)
		assert.Equal(t, 0, p.Len())
	}

	for _, raw := range []string{"[]", "1", `"x"`, "true"} {
		_, err := ParseParams(json.RawMessage(raw))
		var pe *ParamError
		require.ErrorAs(t, err, &pe, "raw=%q", raw)
		assert.Equal(t, "params", pe.Field)
	}
}

func TestParamsString(t *testing.T) {
	p := mustParams(t, `{"address":"10.0.0.1","n":1,"nil":null}`)

	s, err := p.String("address")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", s)

	for _, field := range []string{"n", "nil", "missing"} {
		_, err := p.String(field)
		var pe *ParamError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, field, pe.Field)
		assert.Equal(t, KindString, pe.Kind)
		assert.Equal(t, "Invalid params: "+field+" is not a string", pe.Error())
	}
}

func TestParamsStrings(t *testing.T) {
	p := mustParams(t, `{"ok":["a","b"],"empty":[],"mixed":["1.2.3.4",42],"scalar":"a"}`)

	got, err := p.Strings("ok", "item")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	got, err = p.Strings("empty", "item")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = p.Strings("mixed", "address")
	assert.Nil(t, got)
	var pe *ParamError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "address within array", pe.Field)
	assert.Equal(t, "Invalid params: address within array is not a string", pe.Error())

	_, err = p.Strings("scalar", "item")
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Invalid params: scalar must be an array", pe.Error())
}

func TestParamsIntIn(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		message string
	}{
		{raw: `0`, want: 0},
		{raw: `1`, want: 1},
		{raw: `1.0`, want: 1},
		{raw: `2`, message: "Invalid params: mode must be 0 or 1"},
		{raw: `-1`, message: "Invalid params: mode must be 0 or 1"},
		{raw: `0.5`, message: "Invalid params: mode must be 0 or 1"},
		{raw: `"1"`, message: "Invalid params: mode must be numeric"},
		{raw: `true`, message: "Invalid params: mode must be numeric"},
		{raw: `null`, message: "Invalid params: mode must be numeric"},
		{raw: `[1]`, message: "Invalid params: mode must be numeric"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			p := mustParams(t, `{"mode":`+tt.raw+`}`)
			got, err := p.IntIn("mode", 0, 1)
			if tt.message != "" {
				require.Error(t, err)
				assert.Equal(t, tt.message, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParamsObject(t *testing.T) {
	p := mustParams(t, `{"inner":{"k":"v"},"flat":"x"}`)
	inner, err := p.Object("inner")
	require.NoError(t, err)
	v, err := inner.String("k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	_, err = p.Object("flat")
	assert.EqualError(t, err, "Invalid params: flat must be an object")
}

func TestJoinAlternatives(t *testing.T) {
	assert.Equal(t, "3", joinAlternatives([]int{3}))
	assert.Equal(t, "0 or 1", joinAlternatives([]int{0, 1}))
	assert.Equal(t, "0, 1 or 2", joinAlternatives([]int{0, 1, 2}))
}

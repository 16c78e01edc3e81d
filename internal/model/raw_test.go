package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawOption_UnmarshalShapes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want RawOption
	}{
		{"null", `null`, RawOption{}},
		{"string", `"Distributor"`, RawOption{Kind: OptionString, Str: "Distributor"}},
		{"empty string", `""`, RawOption{Kind: OptionString, Str: ""}},
		{"numeric id", `1981470`, RawOption{Kind: OptionID, ID: 1981470}},
		{"float id", `2063862.0`, RawOption{Kind: OptionID, ID: 2063862}},
		{"object", `{"id":2066840,"name":"Retail"}`, RawOption{Kind: OptionNamed, ID: 2066840, Name: "Retail"}},
		{"id-only object", `{"id":2066840}`, RawOption{Kind: OptionNamed, ID: 2066840}},
		{"boolean falls back to empty", `true`, RawOption{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got RawOption
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRawOption_UnmarshalList(t *testing.T) {
	var got RawOption
	require.NoError(t, json.Unmarshal([]byte(`["Wholesale", 1981470]`), &got))
	assert.Equal(t, OptionList, got.Kind)
	require.Len(t, got.List, 2)
	assert.Equal(t, "Wholesale", got.List[0].Str)
	assert.Equal(t, int64(1981470), got.List[1].ID)
}

func TestRawOption_IsZero(t *testing.T) {
	assert.True(t, RawOption{}.IsZero())
	assert.True(t, StringOption("").IsZero())
	assert.True(t, IDOption(0).IsZero())

	assert.False(t, StringOption("Retail").IsZero())
	assert.False(t, IDOption(1981470).IsZero())
	// An empty list and a named object still count as present.
	assert.False(t, RawOption{Kind: OptionList}.IsZero())
	assert.False(t, RawOption{Kind: OptionNamed}.IsZero())
}

func TestRawOption_MarshalRoundTrip(t *testing.T) {
	for _, in := range []string{
		`"Distributor"`,
		`1981470`,
		`{"id":2066840,"name":"Retail"}`,
		`["a","b"]`,
		`null`,
	} {
		var o RawOption
		require.NoError(t, json.Unmarshal([]byte(in), &o))
		out, err := json.Marshal(o)
		require.NoError(t, err)
		assert.JSONEq(t, in, string(out))
	}
}

func TestRawFlag_IsSet(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"bool true", `true`, true},
		{"bool false", `false`, false},
		{"checked", `"checked"`, true},
		{"Checked", `"Checked"`, true},
		{"true string", `"true"`, true},
		{"CHECKED uppercase rejected", `"CHECKED"`, false},
		{"yes rejected", `"yes"`, false},
		{"1 rejected", `"1"`, false},
		{"null", `null`, false},
		{"number falls back to unset", `1`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f RawFlag
			require.NoError(t, json.Unmarshal([]byte(tt.in), &f))
			assert.Equal(t, tt.want, f.IsSet())
		})
	}
}

func TestRawFlag_MarshalRoundTrip(t *testing.T) {
	for _, in := range []string{`true`, `false`, `"checked"`, `null`} {
		var f RawFlag
		require.NoError(t, json.Unmarshal([]byte(in), &f))
		out, err := json.Marshal(f)
		require.NoError(t, err)
		assert.JSONEq(t, in, string(out))
	}
}

func TestLineItem_DedupKeyPrecedence(t *testing.T) {
	tests := []struct {
		name string
		item LineItem
		want string
	}{
		{"so item id wins", LineItem{SOItemID: "so-item", LineItemID: "line", ID: "legacy"}, "so-item"},
		{"line item id next", LineItem{LineItemID: "line", ID: "legacy"}, "line"},
		{"legacy id last", LineItem{ID: "legacy"}, "legacy"},
		{"no id at all", LineItem{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.DedupKey())
		})
	}
}

func TestSalesOrder_RefPrecedence(t *testing.T) {
	tests := []struct {
		name  string
		order SalesOrder
		want  string
	}{
		{"so number wins", SalesOrder{SONumber: "1001", Num: "n", ID: "id"}, "1001"},
		{"legacy num next", SalesOrder{Num: "n", ID: "id"}, "n"},
		{"document id last", SalesOrder{ID: "id"}, "id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.order.Ref())
		})
	}
}

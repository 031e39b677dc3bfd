package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	dumper "github.com/zed-0xff/moddump"
)

func TestParseHex(t *testing.T) {
	testcases := []struct {
		in       string
		expected uint64
	}{
		{"1000", 0x1000},
		{"0x7FF6_A000_0000", 0x7ff6a0000000},
		{"0XdeadBEEF", 0xdeadbeef},
	}
	for _, tc := range testcases {
		x, err := parseHex(tc.in, "address")
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.expected, x, tc.in)
	}

	for _, in := range []string{"", "0x", "xyz", "-1"} {
		_, err := parseHex(in, "address")
		require.Error(t, err, in)
	}
}

func TestModuleRegions(t *testing.T) {
	all := []dumper.Region{
		{Start: 0x0000, End: 0x1000, Path: "/lib/a.so"},
		{Start: 0x1000, End: 0x2000, Path: "/lib/x.so"},
		{Start: 0x2000, End: 0x3000},
		{Start: 0x3000, End: 0x4000, Path: "/lib/x.so"},
		{Start: 0x4000, End: 0x5000, Path: "/lib/b.so"},
	}
	m, err := dumper.ModuleFromRegions(all, "x.so")
	require.NoError(t, err)

	got := moduleRegions(all, m)
	require.Equal(t, all[1:4], got)
	require.Contains(t, got[0].String(), "/lib/x.so")
}

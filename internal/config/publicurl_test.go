// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePublicURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"https://VR.Example.com/", "https://vr.example.com"},
		{"http://bücher.example:8080/tour/", "http://xn--bcher-kva.example:8080/tour"},
		{"https://user:pw@example.com", "https://user:pw@example.com"},
		{"http://[2001:DB8::1]:3000", "http://[2001:db8::1]:3000"},
		{"http://[2001:db8::1]", "http://[2001:db8::1]"},
		{"  https://192.168.1.20  ", "https://192.168.1.20"},
	}
	for _, tc := range cases {
		got, err := NormalizePublicURL(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestNormalizePublicURL_Rejects(t *testing.T) {
	for _, in := range []string{
		"ftp://example.com",
		"https://",
		"https://exa mple.com",
		"http://[fe80::1%25eth0]",
	} {
		_, err := NormalizePublicURL(in)
		assert.Error(t, err, in)
	}
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fsutil

import (
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var dangerSubstrings = []string{
	"..",
	"%00",
	"\x00",
	"%c0%ae",
	"%e0%80%ae",
}

// IsTraversal reports whether p, after up to three rounds of URL decoding and
// NFC normalization, contains a parent reference, NUL byte or overlong dot.
func IsTraversal(p string) bool {
	decoded := p
	for i := 0; i < 3; i++ {
		prev := decoded
		if d, err := url.PathUnescape(decoded); err == nil {
			decoded = d
		} else if d, err := url.QueryUnescape(decoded); err == nil {
			decoded = d
		}
		if decoded == prev {
			break
		}
	}

	lower := strings.ToLower(decoded)
	for _, pat := range dangerSubstrings {
		if strings.Contains(lower, pat) {
			return true
		}
	}
	return strings.Contains(norm.NFC.String(decoded), "..")
}

// NormalizeName returns name in Unicode NFC form so that visually identical
// uploads map to the same file.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

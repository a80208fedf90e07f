// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package textutils provides small text normalization helpers.
package textutils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LowerASCIIFolding normalizes a string by removing accents, lowercasing, and trimming spaces.
func LowerASCIIFolding(s string) string {
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		strings.TrimSpace(strings.ToLower(s)),
	)

	return s
}

// Slug folds s and joins its words with underscores, the way taxonomy leaves
// are spelled ("Beauty Salon" -> "beauty_salon").
func Slug(s string) string {
	fields := strings.FieldsFunc(LowerASCIIFolding(s), func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_'
	})

	return strings.Join(fields, "_")
}

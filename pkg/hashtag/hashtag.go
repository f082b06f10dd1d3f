// Copyright (c) 2026 Aperture. All rights reserved.
// Author: davi.tran.dev@gmail.com

// Package hashtag extracts and normalizes hashtags from post captions.
//
// # Usage
//
// Hashtags travel with every post payload as an ordered sequence of strings
// (e.g., "#GoldenHour" becomes "goldenhour"). This package handles Unicode
// normalization, mark stripping, and case folding so that visually equal
// tags compare equal.
package hashtag

import (
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize converts a raw tag into its canonical form.
//
// # Transformation Pipeline
//
// 1. Strips a single leading '#'.
// 2. Normalizes to NFD (decomposes accented chars: é → e + combining acute).
// 3. Removes combining marks (accents).
// 4. Lowercases the result.
//
// An empty string means the input held no usable tag characters.
func Normalize(tag string) string {
	tag = strings.TrimPrefix(tag, "#")

	// 1. Normalize and remove accents
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn))
	result, _, _ := transform.String(t, tag)

	// 2. Lowercase
	result = strings.ToLower(result)

	// 3. Keep letters and digits only
	result = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, result)

	return result
}

// Extract returns the ordered unique normalized hashtags found in a caption.
// Order follows first appearance; duplicates after normalization collapse.
func Extract(caption string) []string {
	seen := map[string]bool{}
	tags := []string{}

	for _, field := range strings.Fields(caption) {
		if !strings.HasPrefix(field, "#") {
			continue
		}
		tag := Normalize(field)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

// isMn reports whether r is a Unicode non-spacing mark (e.g., accents).
func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}

// Copyright (c) 2026 Aperture. All rights reserved.
// Author: davi.tran.dev@gmail.com

package hashtag_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/davitran/aperture/pkg/hashtag"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "sunset", want: "sunset"},
		{name: "leading hash", in: "#sunset", want: "sunset"},
		{name: "mixed case", in: "#GoldenHour", want: "goldenhour"},
		{name: "accents stripped", in: "#Café", want: "cafe"},
		{name: "digits kept", in: "#35mm", want: "35mm"},
		{name: "punctuation dropped", in: "#street-photo!", want: "streetphoto"},
		{name: "only punctuation", in: "#!!!", want: ""},
		{name: "empty", in: "", want: ""},
		{name: "bare hash", in: "#", want: ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, hashtag.Normalize(test.in))
		})
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		caption string
		want    []string
	}{
		{
			name:    "ordered unique",
			caption: "rooftops at dusk #City #rooftop #city",
			want:    []string{"city", "rooftop"},
		},
		{
			name:    "no tags",
			caption: "just a caption",
			want:    []string{},
		},
		{
			name:    "normalized duplicates collapse",
			caption: "#Café #cafe",
			want:    []string{"cafe"},
		},
		{
			name:    "empty tags skipped",
			caption: "loud # noise #!!! #ok",
			want:    []string{"ok"},
		},
		{
			name:    "empty caption",
			caption: "",
			want:    []string{},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, hashtag.Extract(test.caption))
		})
	}
}

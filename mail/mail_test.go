// SPDX-License-Identifier: GPL-3.0-or-later
package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "user@example.com", "user@example.com"},
		{"named", `"Jane Doe" <Jane.Doe@Example.COM>`, "jane.doe@example.com"},
		{"alias", "user+news@example.com", "user@example.com"},
		{"list", "broken, Real One <real@example.com>", "real@example.com"},
		{"empty", "", ""},
		{"garbage", "not an address", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormalizeAddress(tc.input))
		})
	}
}

func TestAddressDomain(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "user@example.com", "example.com"},
		{"uppercase", "user@EXAMPLE.com", "example.com"},
		{"nodomain", "postmaster", ""},
		{"trailingat", "user@", ""},
		{"empty", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, AddressDomain(tc.input))
		})
	}
}

func TestDecodeHeader(t *testing.T) {
	assert.Equal(t, "Hello", DecodeHeader("Hello"))
	assert.Equal(t, "Prüfung", DecodeHeader("=?utf-8?q?Pr=C3=BCfung?="))
	assert.Equal(t, "=?utf-8?q?broken", DecodeHeader("=?utf-8?q?broken"))
}

func TestShortSubject(t *testing.T) {
	assert.Equal(t, "short", ShortSubject("short"))
	long := "a very long subject that exceeds thirty characters easily"
	assert.Equal(t, long[:30]+"...", ShortSubject(long))
}

// SPDX-License-Identifier: GPL-3.0-or-later
package mail

import (
	"mime"
	stdmail "net/mail"
	"strings"

	"github.com/emersion/go-message/charset"
)

// DecodeHeader decodes MIME encoded-words (including non-UTF8 charsets) in a
// header value. Undecodable input is returned as-is, never an error.
func DecodeHeader(value string) string {
	dec := &mime.WordDecoder{
		CharsetReader: charset.Reader,
	}
	decoded, err := dec.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// NormalizeAddress extracts and normalizes an address from a From-style
// header value: RFC 5322 parsing, lower-casing, +alias stripping in the
// local part. Returns the empty string when no address can be parsed.
func NormalizeAddress(fromHeader string) string {
	if fromHeader == "" {
		return ""
	}

	addr, err := stdmail.ParseAddress(fromHeader)
	if err != nil || addr == nil {
		// Header may be a list, try the first parseable entry.
		for _, p := range strings.Split(fromHeader, ",") {
			a, e := stdmail.ParseAddress(strings.TrimSpace(p))
			if e == nil && a != nil {
				addr = a
				break
			}
		}
		if addr == nil {
			return ""
		}
	}

	email := strings.ToLower(strings.TrimSpace(addr.Address))
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return email
	}
	local := email[:at]
	domain := email[at+1:]

	if plus := strings.IndexByte(local, '+'); plus > -1 {
		local = local[:plus]
	}

	return local + "@" + domain
}

// AddressDomain returns the lower-cased domain part of an address. Addresses
// without an @-domain yield the empty string; the caller buckets those under
// the sentinel domain.
func AddressDomain(address string) string {
	at := strings.LastIndexByte(address, '@')
	if at < 0 || at == len(address)-1 {
		return ""
	}
	return strings.ToLower(address[at+1:])
}

func ShortSubject(subject string) string {
	if len(subject) > 30 {
		subject = subject[:30] + "..."
	}
	return subject
}

// Package validation extracts and validates the fields of a dynamic DNS
// update request. Extraction is syntax only: nothing here checks that a name
// resolves or that an address is reachable.
package validation

import (
	"net/netip"
	"regexp"
)

const (
	// MaxHostnameLength is the DNS label length ceiling.
	MaxHostnameLength = 63
	// MaxAddressLength fits the longest textual IPv6 form.
	MaxAddressLength = 45
)

var (
	hostnamePattern = regexp.MustCompile(`host=(\w+)`)
	addressPattern  = regexp.MustCompile(`ip=([0-9a-fA-F.:]+)`)
	labelPattern    = regexp.MustCompile(`^\w+$`)
)

// ExtractHostname returns the value of the first host= field in raw, or ""
// when there is none or it is longer than a DNS label. The value ends at the
// first non-word character, so "host=foo.bar" yields "foo".
func ExtractHostname(raw string) string {
	m := hostnamePattern.FindStringSubmatch(raw)
	if m == nil || len(m[1]) > MaxHostnameLength {
		return ""
	}
	return m[1]
}

// ExtractAddress returns the first ip= field in raw in canonical form, or ""
// when there is none or it does not parse as an IPv4 or IPv6 literal.
func ExtractAddress(raw string) string {
	m := addressPattern.FindStringSubmatch(raw)
	if m == nil || len(m[1]) > MaxAddressLength {
		return ""
	}
	return NormalizeAddress(m[1])
}

// NormalizeAddress parses a bare IP literal and returns its canonical text
// form. IPv4-mapped IPv6 addresses are returned as IPv4. Zoned addresses are
// rejected. Returns "" for anything else.
func NormalizeAddress(s string) string {
	addr, err := netip.ParseAddr(s)
	if err != nil || addr.Zone() != "" {
		return ""
	}
	return addr.Unmap().String()
}

// ValidateHostname checks that name is a single non-empty label of word
// characters no longer than MaxHostnameLength.
func ValidateHostname(name string) error {
	if name == "" {
		return NewValidationError(FieldHostname, name, "hostname must not be empty")
	}
	if len(name) > MaxHostnameLength {
		return NewValidationError(FieldHostname, name, "hostname must be at most 63 characters")
	}
	if !labelPattern.MatchString(name) {
		return NewValidationError(FieldHostname, name, "hostname can only contain letters, numbers, or underscores")
	}
	return nil
}

// ValidateAddress checks that addr is a canonical IPv4 or IPv6 literal.
func ValidateAddress(addr string) error {
	if addr == "" {
		return NewValidationError(FieldAddress, addr, "address must not be empty")
	}
	normalized := NormalizeAddress(addr)
	if normalized == "" {
		return NewValidationError(FieldAddress, addr, "address must be a valid IPv4 or IPv6 address")
	}
	if normalized != addr {
		return NewValidationError(FieldAddress, addr, "address must be in canonical form ("+normalized+")")
	}
	return nil
}

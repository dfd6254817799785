// Package provider pushes address changes to the authoritative DNS system.
package provider

import (
	"context"
	"fmt"
	"net/netip"
	"strings"

	"github.com/bcnelson/dyndns/internal/config"
	"github.com/sirupsen/logrus"
)

// Record types managed by the gateways. A name carries one of them, never both.
const (
	RecordTypeA    = "A"
	RecordTypeAAAA = "AAAA"
)

// Gateway makes a hostname -> address mapping authoritative.
// Pushing the same mapping twice must be harmless. Implementations bound
// their own calls and own any retries.
type Gateway interface {
	PushAddressChange(ctx context.Context, hostname, address string) error
}

// New creates the gateway selected by cfg.Type.
func New(ctx context.Context, cfg config.ProviderConfig, logger *logrus.Entry) (Gateway, error) {
	switch cfg.Type {
	case config.ProviderFile:
		return NewFileShim(cfg.File, cfg.Zone, logger), nil
	case config.ProviderCloudflare:
		return NewCloudflare(cfg, logger)
	case config.ProviderRoute53:
		return NewRoute53(ctx, cfg, logger)
	case config.ProviderDynDNS2:
		return NewDynDNS2(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported provider type %q", cfg.Type)
	}
}

// FQDN qualifies a hostname label with the zone. An empty zone leaves the
// label as is.
func FQDN(hostname, zone string) string {
	zone = strings.Trim(zone, ".")
	if zone == "" {
		return hostname
	}
	return hostname + "." + zone
}

// RecordType returns A for IPv4 and AAAA for IPv6 addresses.
func RecordType(address string) (string, error) {
	addr, err := netip.ParseAddr(address)
	if err != nil {
		return "", fmt.Errorf("invalid address %q: %w", address, err)
	}
	if addr.Unmap().Is4() {
		return RecordTypeA, nil
	}
	return RecordTypeAAAA, nil
}

// otherType returns the record type of the other address family.
func otherType(recordType string) string {
	if recordType == RecordTypeA {
		return RecordTypeAAAA
	}
	return RecordTypeA
}

package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/bcnelson/dyndns/internal/config"
	"github.com/cloudflare/cloudflare-go"
	"github.com/sirupsen/logrus"
)

// cloudflareAPI is the subset of *cloudflare.API used by the gateway.
type cloudflareAPI interface {
	ZoneIDByName(zoneName string) (string, error)
	ListDNSRecords(ctx context.Context, rc *cloudflare.ResourceContainer, params cloudflare.ListDNSRecordsParams) ([]cloudflare.DNSRecord, *cloudflare.ResultInfo, error)
	CreateDNSRecord(ctx context.Context, rc *cloudflare.ResourceContainer, params cloudflare.CreateDNSRecordParams) (cloudflare.DNSRecord, error)
	UpdateDNSRecord(ctx context.Context, rc *cloudflare.ResourceContainer, params cloudflare.UpdateDNSRecordParams) (cloudflare.DNSRecord, error)
	DeleteDNSRecord(ctx context.Context, rc *cloudflare.ResourceContainer, recordID string) error
}

// Cloudflare pushes address changes to a Cloudflare zone.
type Cloudflare struct {
	api    cloudflareAPI
	zone   string
	cfg    config.ProviderConfig
	logger *logrus.Entry

	mu     sync.Mutex
	zoneID string
}

var _ Gateway = (*Cloudflare)(nil)

// NewCloudflare creates a Cloudflare gateway. An API token is preferred over
// a global API key.
func NewCloudflare(cfg config.ProviderConfig, logger *logrus.Entry) (*Cloudflare, error) {
	var (
		api *cloudflare.API
		err error
	)
	if cfg.Cloudflare.APIToken != "" {
		api, err = cloudflare.NewWithAPIToken(cfg.Cloudflare.APIToken)
	} else {
		api, err = cloudflare.New(cfg.Cloudflare.APIKey, cfg.Cloudflare.Email)
	}
	if err != nil {
		return nil, fmt.Errorf("creating cloudflare client: %w", err)
	}
	return newCloudflare(api, cfg, logger), nil
}

func newCloudflare(api cloudflareAPI, cfg config.ProviderConfig, logger *logrus.Entry) *Cloudflare {
	return &Cloudflare{
		api:    api,
		zone:   cfg.Zone,
		cfg:    cfg,
		logger: logger.WithField("provider", "cloudflare"),
	}
}

// zoneIdentifier returns the cached zone ID, looking it up on first use.
// The lookup runs without the lock, so concurrent first calls may each
// look it up.
func (cf *Cloudflare) zoneIdentifier() (*cloudflare.ResourceContainer, error) {
	cf.mu.Lock()
	id := cf.zoneID
	cf.mu.Unlock()
	if id != "" {
		return cloudflare.ZoneIdentifier(id), nil
	}

	id, err := cf.api.ZoneIDByName(cf.zone)
	if err != nil {
		return nil, fmt.Errorf("looking up zone %s: %w", cf.zone, err)
	}

	cf.mu.Lock()
	cf.zoneID = id
	cf.mu.Unlock()
	return cloudflare.ZoneIdentifier(id), nil
}

// recordChanges splits the existing records of a name into the one to
// update (if any) and the ones to delete.
func recordChanges(records []cloudflare.DNSRecord, recordType string) (keep *cloudflare.DNSRecord, remove []cloudflare.DNSRecord) {
	for i := range records {
		r := records[i]
		switch {
		case r.Type == recordType && keep == nil:
			keep = &r
		case r.Type == RecordTypeA || r.Type == RecordTypeAAAA:
			remove = append(remove, r)
		}
	}
	return keep, remove
}

// PushAddressChange updates or creates the address record for hostname.
func (cf *Cloudflare) PushAddressChange(ctx context.Context, hostname, address string) error {
	recordType, err := RecordType(address)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cf.cfg.Timeout)
	defer cancel()

	rc, err := cf.zoneIdentifier()
	if err != nil {
		return err
	}

	fqdn := FQDN(hostname, cf.zone)
	records, _, err := cf.api.ListDNSRecords(ctx, rc, cloudflare.ListDNSRecordsParams{Name: fqdn})
	if err != nil {
		return fmt.Errorf("[%s] listing records: %w", fqdn, err)
	}

	keep, remove := recordChanges(records, recordType)
	proxied := cf.cfg.Cloudflare.Proxied

	if keep != nil {
		_, err = cf.api.UpdateDNSRecord(ctx, rc, cloudflare.UpdateDNSRecordParams{
			ID:      keep.ID,
			Type:    recordType,
			Name:    fqdn,
			Content: address,
			TTL:     cf.cfg.TTL,
			Proxied: &proxied,
		})
		if err != nil {
			return fmt.Errorf("[%s] update record failure: %w", fqdn, err)
		}
	} else {
		_, err = cf.api.CreateDNSRecord(ctx, rc, cloudflare.CreateDNSRecordParams{
			Type:    recordType,
			Name:    fqdn,
			Content: address,
			TTL:     cf.cfg.TTL,
			Proxied: &proxied,
		})
		if err != nil {
			return fmt.Errorf("[%s] create record failure: %w", fqdn, err)
		}
	}

	for _, r := range remove {
		if err := cf.api.DeleteDNSRecord(ctx, rc, r.ID); err != nil {
			return fmt.Errorf("[%s] delete %s record failure: %w", fqdn, r.Type, err)
		}
	}

	cf.logger.WithFields(logrus.Fields{"fqdn": fqdn, "type": recordType, "address": address}).Info("record pushed")
	return nil
}

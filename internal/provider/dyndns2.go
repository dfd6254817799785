package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bcnelson/dyndns/internal/config"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// DynDNS2 pushes address changes to a server speaking the dyndns2 update
// protocol (GET /nic/update?hostname=...&myip=...).
type DynDNS2 struct {
	client *resty.Client
	zone   string
	logger *logrus.Entry
}

var _ Gateway = (*DynDNS2)(nil)

// NewDynDNS2 creates a dyndns2 gateway. Transport errors and 5xx responses
// are retried up to the configured count.
func NewDynDNS2(cfg config.ProviderConfig, logger *logrus.Entry) *DynDNS2 {
	cli := resty.New()
	cli.SetBaseURL(strings.TrimRight(cfg.DynDNS2.Server, "/")).
		SetBasicAuth(cfg.DynDNS2.Username, cfg.DynDNS2.Password).
		SetHeader("User-Agent", "bcnelson-dyndns/1.0").
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.DynDNS2.Retries).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || (r != nil && r.StatusCode() >= 500)
		})

	return &DynDNS2{
		client: cli,
		zone:   cfg.Zone,
		logger: logger.WithField("provider", "dyndns2"),
	}
}

// PushAddressChange sends the update and interprets the dyndns2 return code.
func (d *DynDNS2) PushAddressChange(ctx context.Context, hostname, address string) error {
	if _, err := RecordType(address); err != nil {
		return err
	}

	fqdn := FQDN(hostname, d.zone)
	resp, err := d.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"hostname": fqdn,
			"myip":     address,
		}).
		Get("/nic/update")
	if err != nil {
		return fmt.Errorf("[%s] update request failed: %w", fqdn, err)
	}

	respStr := strings.TrimSpace(resp.String())
	if resp.IsError() {
		return fmt.Errorf("[%s] update record failure, status %s: %s", fqdn, resp.Status(), respStr)
	}

	code, _, _ := strings.Cut(respStr, " ")
	switch code {
	case "good", "nochg":
		d.logger.WithFields(logrus.Fields{"fqdn": fqdn, "address": address, "result": code}).Info("record pushed")
		return nil
	default:
		return fmt.Errorf("[%s] update record failure: %s", fqdn, respStr)
	}
}

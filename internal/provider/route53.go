package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/bcnelson/dyndns/internal/config"
	"github.com/sirupsen/logrus"
)

// route53API is the subset of *route53.Client used by the gateway.
type route53API interface {
	ListHostedZonesByName(ctx context.Context, params *route53.ListHostedZonesByNameInput, optFns ...func(*route53.Options)) (*route53.ListHostedZonesByNameOutput, error)
	ListResourceRecordSets(ctx context.Context, params *route53.ListResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error)
	ChangeResourceRecordSets(ctx context.Context, params *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
}

// Route53 pushes address changes to an AWS Route 53 hosted zone.
type Route53 struct {
	client       route53API
	zone         string
	hostedZone   string
	hostedZoneID *string
	cfg          config.ProviderConfig
	logger       *logrus.Entry
}

var _ Gateway = (*Route53)(nil)

// NewRoute53 loads AWS credentials from the default chain and resolves the
// hosted zone ID.
func NewRoute53(ctx context.Context, cfg config.ProviderConfig, logger *logrus.Entry) (*Route53, error) {
	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(cfg.Route53.Region))
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}

	r := newRoute53(route53.NewFromConfig(awsCfg), cfg, logger)
	if err := r.init(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func newRoute53(client route53API, cfg config.ProviderConfig, logger *logrus.Entry) *Route53 {
	return &Route53{
		client:     client,
		zone:       cfg.Zone,
		hostedZone: strings.TrimSuffix(cfg.HostedZone(), "."),
		cfg:        cfg,
		logger:     logger.WithField("provider", "route53"),
	}
}

func (r *Route53) init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	output, err := r.client.ListHostedZonesByName(ctx, &route53.ListHostedZonesByNameInput{
		DNSName: aws.String(r.hostedZone),
	})
	if err != nil {
		return fmt.Errorf("error listing hosted zones: %w", err)
	}

	// Results start at DNSName and continue alphabetically
	for _, zone := range output.HostedZones {
		if strings.TrimSuffix(aws.ToString(zone.Name), ".") != r.hostedZone {
			continue
		}
		if r.hostedZoneID != nil {
			return fmt.Errorf("found multiple hosted zones named %q, set ROUTE53_HOSTED_ZONE to disambiguate", r.hostedZone)
		}
		r.hostedZoneID = zone.Id
	}
	if r.hostedZoneID == nil {
		return fmt.Errorf("could not find a hosted zone with DNS name %q", r.hostedZone)
	}

	r.logger.WithFields(logrus.Fields{"hosted_zone": r.hostedZone, "id": aws.ToString(r.hostedZoneID)}).Debug("found hosted zone")
	return nil
}

// existingSet returns the record set of the given type for fqdn, if any.
func (r *Route53) existingSet(ctx context.Context, fqdn, recordType string) (*types.ResourceRecordSet, error) {
	output, err := r.client.ListResourceRecordSets(ctx, &route53.ListResourceRecordSetsInput{
		HostedZoneId:    r.hostedZoneID,
		StartRecordName: aws.String(fqdn),
		StartRecordType: types.RRType(recordType),
	})
	if err != nil {
		return nil, fmt.Errorf("error listing record sets in %s: %w", r.hostedZone, err)
	}
	for i := range output.ResourceRecordSets {
		rrs := output.ResourceRecordSets[i]
		if strings.TrimSuffix(aws.ToString(rrs.Name), ".") == fqdn && string(rrs.Type) == recordType {
			return &rrs, nil
		}
	}
	return nil, nil
}

// PushAddressChange upserts the address record and removes the record of the
// other address family in the same change batch.
func (r *Route53) PushAddressChange(ctx context.Context, hostname, address string) error {
	recordType, err := RecordType(address)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	fqdn := FQDN(hostname, r.zone)
	ttl := int64(r.cfg.TTL)

	changes := []types.Change{
		{
			Action: types.ChangeActionUpsert,
			ResourceRecordSet: &types.ResourceRecordSet{
				Name: aws.String(fqdn),
				Type: types.RRType(recordType),
				TTL:  &ttl,
				ResourceRecords: []types.ResourceRecord{
					{Value: aws.String(address)},
				},
			},
		},
	}

	stale, err := r.existingSet(ctx, fqdn, otherType(recordType))
	if err != nil {
		return err
	}
	if stale != nil {
		changes = append(changes, types.Change{
			Action:            types.ChangeActionDelete,
			ResourceRecordSet: stale,
		})
	}

	_, err = r.client.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: r.hostedZoneID,
		ChangeBatch: &types.ChangeBatch{
			Comment: aws.String("dyndns update for " + fqdn),
			Changes: changes,
		},
	})
	if err != nil {
		return fmt.Errorf("error while upserting record %q: %w", fqdn, err)
	}

	r.logger.WithFields(logrus.Fields{"fqdn": fqdn, "type": recordType, "address": address}).Info("record pushed")
	return nil
}

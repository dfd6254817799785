// Package service holds the reconciliation logic between reported
// addresses, the host store and the DNS provider.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bcnelson/dyndns/internal/domain"
	"github.com/bcnelson/dyndns/internal/notify"
	"github.com/bcnelson/dyndns/internal/provider"
	"github.com/bcnelson/dyndns/internal/storage"
	"github.com/bcnelson/dyndns/internal/validation"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Reconciler brings the stored record and the provider in line with the
// address a client reports.
//
// It holds no locks. Concurrent creations of the same name are resolved by
// the store's uniqueness constraint, and concurrent address changes may both
// push, which is harmless since the push is idempotent.
type Reconciler struct {
	store    storage.Storage
	gateway  provider.Gateway
	notifier notify.Notifier
	logger   *logrus.Entry

	alerts sync.WaitGroup
}

// notifyTimeout bounds a single operator alert including retries.
const notifyTimeout = 30 * time.Second

// NewReconciler creates a new Reconciler.
func NewReconciler(store storage.Storage, gateway provider.Gateway, notifier notify.Notifier, logger *logrus.Entry) *Reconciler {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Reconciler{
		store:    store,
		gateway:  gateway,
		notifier: notifier,
		logger:   logger,
	}
}

// Reconcile records that hostname was seen at address.
//
// An unknown name is created locally without contacting the provider. A
// changed address is pushed to the provider first and stored only if the
// push succeeds. An unchanged address only refreshes the last touched time.
// The returned record is always read back from the store.
func (r *Reconciler) Reconcile(ctx context.Context, hostname, address string) (*domain.ReconcileResult, error) {
	if err := r.checkInput(hostname, address); err != nil {
		return nil, err
	}

	log := r.logger.WithFields(logrus.Fields{
		"attempt":  uuid.New().String(),
		"hostname": hostname,
		"address":  address,
	})

	result, err := r.reconcile(ctx, log, hostname, address)
	if err != nil {
		reconcileCounter.WithLabelValues(outcomeError).Inc()
		return nil, err
	}
	reconcileCounter.WithLabelValues(string(result.Outcome)).Inc()
	log.WithField("outcome", result.Outcome).Info("reconciled")
	return result, nil
}

// checkInput reports every invalid field at once.
func (r *Reconciler) checkInput(hostname, address string) error {
	var errs validation.ValidationErrors
	for _, err := range []error{
		validation.ValidateHostname(hostname),
		validation.ValidateAddress(address),
	} {
		var v *validation.ValidationError
		if errors.As(err, &v) {
			errs.Add(v.Field, v.Value, v.Message)
		}
	}
	return errs.Err()
}

func (r *Reconciler) reconcile(ctx context.Context, log *logrus.Entry, hostname, address string) (*domain.ReconcileResult, error) {
	record, found, err := r.store.GetHost(ctx, hostname)
	if err != nil {
		return nil, &domain.StorageError{Op: "get", Hostname: hostname, Err: err}
	}

	if !found {
		err := r.store.InsertHost(ctx, hostname, address)
		switch {
		case err == nil:
			return r.result(ctx, hostname, domain.OutcomeCreated)
		case errors.Is(err, domain.ErrAlreadyExists):
			log.Debug("lost creation race, reading winner")
			record, found, err = r.store.GetHost(ctx, hostname)
			if err != nil {
				return nil, &domain.StorageError{Op: "get", Hostname: hostname, Err: err}
			}
			if !found {
				return nil, &domain.StorageError{Op: "get", Hostname: hostname, Err: domain.ErrNotFound}
			}
		default:
			return nil, &domain.StorageError{Op: "insert", Hostname: hostname, Err: err}
		}
	}

	if record.Address != address {
		return r.changeAddress(ctx, log, record, address)
	}

	if err := r.store.TouchHost(ctx, hostname); err != nil {
		touchFailureCounter.Inc()
		log.WithError(err).Warn("failed to refresh last touched time")
	}
	return r.result(ctx, hostname, domain.OutcomeTouched)
}

func (r *Reconciler) changeAddress(ctx context.Context, log *logrus.Entry, record *domain.HostRecord, address string) (*domain.ReconcileResult, error) {
	hostname := record.Name
	log = log.WithField("previous", record.Address)

	if err := r.gateway.PushAddressChange(ctx, hostname, address); err != nil {
		pushCounter.WithLabelValues("failure").Inc()
		log.WithError(err).Warn("provider push failed")
		return nil, &domain.GatewayError{Hostname: hostname, Address: address, Err: err}
	}
	pushCounter.WithLabelValues("success").Inc()

	if err := r.store.UpdateHostAddress(ctx, hostname, address); err != nil {
		inconsistencyCounter.Inc()
		ierr := &domain.InconsistencyError{Hostname: hostname, Address: address, Err: err}
		log.WithError(err).Error("address live at provider but not stored")

		msg := fmt.Sprintf("%s was pushed as %s (previously %s) but the local record could not be updated: %v",
			hostname, address, record.Address, err)
		r.alert(ctx, log, "reconciliation inconsistency", msg)
		return nil, ierr
	}

	return r.result(ctx, hostname, domain.OutcomeUpdated)
}

// alert notifies the operator in the background. The alert outlives the
// request context and is bounded by notifyTimeout instead.
func (r *Reconciler) alert(ctx context.Context, log *logrus.Entry, title, content string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)

	r.alerts.Add(1)
	go func() {
		defer r.alerts.Done()
		defer cancel()
		if err := r.notifier.Notify(ctx, title, content); err != nil {
			log.WithError(err).Warn("failed to notify operator")
		}
	}()
}

// Wait blocks until pending operator alerts have been sent.
func (r *Reconciler) Wait() {
	r.alerts.Wait()
}

// result re-reads hostname so the caller sees the stored state.
func (r *Reconciler) result(ctx context.Context, hostname string, outcome domain.Outcome) (*domain.ReconcileResult, error) {
	record, found, err := r.store.GetHost(ctx, hostname)
	if err != nil {
		return nil, &domain.StorageError{Op: "get", Hostname: hostname, Err: err}
	}
	if !found {
		return nil, &domain.StorageError{Op: "get", Hostname: hostname, Err: domain.ErrNotFound}
	}
	return &domain.ReconcileResult{Outcome: outcome, Host: record}, nil
}

package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bcnelson/dyndns/internal/domain"
	"github.com/bcnelson/dyndns/internal/storage/memory"
	sqlstore "github.com/bcnelson/dyndns/internal/storage/sql"
	"github.com/bcnelson/dyndns/internal/validation"
	"github.com/sirupsen/logrus"
)

type push struct {
	hostname string
	address  string
}

// fakeGateway records pushes and fails with err when set.
type fakeGateway struct {
	mu     sync.Mutex
	pushes []push
	err    error
}

func (g *fakeGateway) PushAddressChange(ctx context.Context, hostname, address string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pushes = append(g.pushes, push{hostname, address})
	return g.err
}

func (g *fakeGateway) calls() []push {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]push(nil), g.pushes...)
}

// fakeNotifier records alerts and the state of the context they ran on.
// When release is set, Notify waits for it to be closed.
type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
	ctxErrs  []error
	release  chan struct{}
}

func (n *fakeNotifier) Notify(ctx context.Context, title, content string) error {
	if n.release != nil {
		<-n.release
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, title+": "+content)
	n.ctxErrs = append(n.ctxErrs, ctx.Err())
	return nil
}

func (n *fakeNotifier) sent() ([]string, []error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...), append([]error(nil), n.ctxErrs...)
}

// failingStore wraps a memory store and fails selected operations.
type failingStore struct {
	*memory.Store
	getErr    error
	updateErr error
	touchErr  error
}

func (s *failingStore) GetHost(ctx context.Context, name string) (*domain.HostRecord, bool, error) {
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	return s.Store.GetHost(ctx, name)
}

func (s *failingStore) UpdateHostAddress(ctx context.Context, name, address string) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	return s.Store.UpdateHostAddress(ctx, name, address)
}

func (s *failingStore) TouchHost(ctx context.Context, name string) error {
	if s.touchErr != nil {
		return s.touchErr
	}
	return s.Store.TouchHost(ctx, name)
}

// racingStore reports the first lookup as missing after another client has
// already created the record with winnerAddress.
type racingStore struct {
	*memory.Store
	winnerAddress string
	raced         bool
}

func (s *racingStore) GetHost(ctx context.Context, name string) (*domain.HostRecord, bool, error) {
	if !s.raced {
		s.raced = true
		if err := s.Store.InsertHost(ctx, name, s.winnerAddress); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return s.Store.GetHost(ctx, name)
}

// stepClock returns a clock that advances one second on every call.
func stepClock(start time.Time) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestStore() *memory.Store {
	return memory.NewWithClock(stepClock(time.Unix(1000, 0)))
}

func mustReconcile(t *testing.T, r *Reconciler, hostname, address string) *domain.ReconcileResult {
	t.Helper()
	result, err := r.Reconcile(context.Background(), hostname, address)
	if err != nil {
		t.Fatalf("Reconcile(%s, %s) failed: %v", hostname, address, err)
	}
	return result
}

func TestReconcileCreatesWithoutPush(t *testing.T) {
	gw := &fakeGateway{}
	r := NewReconciler(newTestStore(), gw, nil, testLogger())

	result := mustReconcile(t, r, "home", "192.0.2.1")

	if result.Outcome != domain.OutcomeCreated {
		t.Errorf("Expected outcome created, got %s", result.Outcome)
	}
	if result.Host.Name != "home" || result.Host.Address != "192.0.2.1" {
		t.Errorf("Unexpected record: %+v", result.Host)
	}
	if !result.Host.LastUpdated.Equal(result.Host.LastTouched) {
		t.Errorf("Expected equal timestamps on creation, got %v and %v", result.Host.LastUpdated, result.Host.LastTouched)
	}
	if calls := gw.calls(); len(calls) != 0 {
		t.Errorf("Expected no gateway calls on creation, got %d", len(calls))
	}
}

func TestReconcileChangedAddress(t *testing.T) {
	tests := []struct {
		name string
		a1   string
		a2   string
	}{
		{"ipv4 to ipv4", "192.0.2.1", "192.0.2.2"},
		{"ipv4 to ipv6", "192.0.2.1", "2001:db8::1"},
		{"ipv6 to ipv4", "fc00::1", "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{}
			r := NewReconciler(newTestStore(), gw, nil, testLogger())

			first := mustReconcile(t, r, "home", tt.a1)
			second := mustReconcile(t, r, "home", tt.a2)

			if second.Outcome != domain.OutcomeUpdated {
				t.Errorf("Expected outcome updated, got %s", second.Outcome)
			}
			calls := gw.calls()
			if len(calls) != 1 || calls[0] != (push{"home", tt.a2}) {
				t.Errorf("Expected one push of %s, got %v", tt.a2, calls)
			}
			if second.Host.Address != tt.a2 {
				t.Errorf("Expected address %s, got %s", tt.a2, second.Host.Address)
			}
			if !second.Host.LastUpdated.After(first.Host.LastUpdated) {
				t.Errorf("Expected last updated to advance, got %v then %v", first.Host.LastUpdated, second.Host.LastUpdated)
			}
		})
	}
}

func TestReconcileUnchangedAddressTouches(t *testing.T) {
	gw := &fakeGateway{}
	r := NewReconciler(newTestStore(), gw, nil, testLogger())

	first := mustReconcile(t, r, "home", "192.0.2.1")
	second := mustReconcile(t, r, "home", "192.0.2.1")

	if second.Outcome != domain.OutcomeTouched {
		t.Errorf("Expected outcome touched, got %s", second.Outcome)
	}
	if calls := gw.calls(); len(calls) != 0 {
		t.Errorf("Expected no gateway calls, got %d", len(calls))
	}
	if second.Host.Address != first.Host.Address {
		t.Errorf("Expected address unchanged, got %s", second.Host.Address)
	}
	if !second.Host.LastUpdated.Equal(first.Host.LastUpdated) {
		t.Errorf("Expected last updated unchanged, got %v then %v", first.Host.LastUpdated, second.Host.LastUpdated)
	}
	if !second.Host.LastTouched.After(first.Host.LastTouched) {
		t.Errorf("Expected last touched to advance, got %v then %v", first.Host.LastTouched, second.Host.LastTouched)
	}
}

func TestReconcileGatewayFailureLeavesStore(t *testing.T) {
	store := newTestStore()
	gw := &fakeGateway{}
	r := NewReconciler(store, gw, nil, testLogger())
	ctx := context.Background()

	mustReconcile(t, r, "home", "192.0.2.1")
	before, _, _ := store.GetHost(ctx, "home")

	gw.err = errors.New("provider unavailable")
	result, err := r.Reconcile(ctx, "home", "192.0.2.2")
	if result != nil {
		t.Errorf("Expected no result, got %+v", result)
	}

	var gwErr *domain.GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("Expected GatewayError, got %v", err)
	}
	if !errors.Is(err, gw.err) {
		t.Errorf("Expected GatewayError to wrap the push error")
	}

	after, _, _ := store.GetHost(ctx, "home")
	if *after != *before {
		t.Errorf("Expected stored record unchanged, got %+v, was %+v", after, before)
	}
}

func TestReconcileInconsistency(t *testing.T) {
	store := &failingStore{Store: newTestStore()}
	gw := &fakeGateway{}
	notifier := &fakeNotifier{}
	r := NewReconciler(store, gw, notifier, testLogger())

	mustReconcile(t, r, "home", "192.0.2.1")

	store.updateErr = errors.New("disk full")
	_, err := r.Reconcile(context.Background(), "home", "192.0.2.2")

	var incErr *domain.InconsistencyError
	if !errors.As(err, &incErr) {
		t.Fatalf("Expected InconsistencyError, got %v", err)
	}
	if incErr.Hostname != "home" || incErr.Address != "192.0.2.2" {
		t.Errorf("Unexpected inconsistency details: %+v", incErr)
	}
	if len(gw.calls()) != 1 {
		t.Errorf("Expected the push to have happened once, got %d", len(gw.calls()))
	}

	r.Wait()
	if messages, _ := notifier.sent(); len(messages) != 1 {
		t.Errorf("Expected one operator notification, got %d", len(messages))
	}
}

func TestReconcileInconsistencyAlertRunsInBackground(t *testing.T) {
	store := &failingStore{Store: newTestStore()}
	notifier := &fakeNotifier{release: make(chan struct{})}
	r := NewReconciler(store, &fakeGateway{}, notifier, testLogger())

	mustReconcile(t, r, "home", "192.0.2.1")
	store.updateErr = errors.New("disk full")

	// The caller goes away as soon as the response is produced.
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := r.Reconcile(ctx, "home", "192.0.2.2")
		done <- err
	}()

	select {
	case err := <-done:
		var incErr *domain.InconsistencyError
		if !errors.As(err, &incErr) {
			t.Errorf("Expected InconsistencyError, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Reconcile waited for the operator alert")
	}
	cancel()

	close(notifier.release)
	r.Wait()

	messages, ctxErrs := notifier.sent()
	if len(messages) != 1 {
		t.Fatalf("Expected one operator notification, got %d", len(messages))
	}
	if ctxErrs[0] != nil {
		t.Errorf("Expected the alert context to survive the request, got %v", ctxErrs[0])
	}
}

func TestReconcileTouchFailureStillSucceeds(t *testing.T) {
	store := &failingStore{Store: newTestStore()}
	r := NewReconciler(store, &fakeGateway{}, nil, testLogger())

	first := mustReconcile(t, r, "home", "192.0.2.1")
	store.touchErr = errors.New("locked")
	second := mustReconcile(t, r, "home", "192.0.2.1")

	if second.Outcome != domain.OutcomeTouched {
		t.Errorf("Expected outcome touched, got %s", second.Outcome)
	}
	if *second.Host != *first.Host {
		t.Errorf("Expected the unrefreshed record, got %+v", second.Host)
	}
}

func TestReconcileStorageError(t *testing.T) {
	store := &failingStore{Store: newTestStore(), getErr: errors.New("connection refused")}
	gw := &fakeGateway{}
	r := NewReconciler(store, gw, nil, testLogger())

	_, err := r.Reconcile(context.Background(), "home", "192.0.2.1")

	var storeErr *domain.StorageError
	if !errors.As(err, &storeErr) {
		t.Fatalf("Expected StorageError, got %v", err)
	}
	if storeErr.Op != "get" {
		t.Errorf("Expected op get, got %s", storeErr.Op)
	}
	if len(gw.calls()) != 0 {
		t.Errorf("Expected no gateway calls, got %d", len(gw.calls()))
	}
}

func TestReconcileLostCreationRace(t *testing.T) {
	tests := []struct {
		name    string
		winner  string
		address string
		outcome domain.Outcome
		pushes  int
	}{
		{"same address", "192.0.2.1", "192.0.2.1", domain.OutcomeTouched, 0},
		{"different address", "192.0.2.1", "192.0.2.2", domain.OutcomeUpdated, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &racingStore{Store: newTestStore(), winnerAddress: tt.winner}
			gw := &fakeGateway{}
			r := NewReconciler(store, gw, nil, testLogger())

			result := mustReconcile(t, r, "home", tt.address)

			if result.Outcome != tt.outcome {
				t.Errorf("Expected outcome %s, got %s", tt.outcome, result.Outcome)
			}
			if result.Host.Address != tt.address {
				t.Errorf("Expected address %s, got %s", tt.address, result.Host.Address)
			}
			if len(gw.calls()) != tt.pushes {
				t.Errorf("Expected %d pushes, got %d", tt.pushes, len(gw.calls()))
			}
		})
	}
}

func TestReconcileConcurrentCreation(t *testing.T) {
	// The SQL store's primary key decides which creation wins.
	store, err := sqlstore.New("sqlite3", filepath.Join(t.TempDir(), "hosts.db")+"?_busy_timeout=5000", 0)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	gw := &fakeGateway{}
	r := NewReconciler(store, gw, nil, testLogger())

	const workers = 50
	var wg sync.WaitGroup
	outcomes := make(chan domain.Outcome, workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := r.Reconcile(context.Background(), "home", "192.0.2.1")
			if err != nil {
				errs <- err
				return
			}
			outcomes <- result.Outcome
		}()
	}
	wg.Wait()
	close(errs)
	close(outcomes)

	for err := range errs {
		t.Errorf("Reconcile failed: %v", err)
	}
	created := 0
	for outcome := range outcomes {
		if outcome == domain.OutcomeCreated {
			created++
		}
	}
	if created != 1 {
		t.Errorf("Expected exactly one created outcome, got %d", created)
	}

	hosts, _ := store.ListHosts(context.Background())
	if len(hosts) != 1 || hosts[0].Address != "192.0.2.1" {
		t.Errorf("Expected a single home record, got %+v", hosts)
	}
	if len(gw.calls()) != 0 {
		t.Errorf("Expected no gateway calls, got %d", len(gw.calls()))
	}
}

func TestReconcileRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		hostname string
		address  string
		field    string
	}{
		{"empty hostname", "", "192.0.2.1", validation.FieldHostname},
		{"dotted hostname", "home.example", "192.0.2.1", validation.FieldHostname},
		{"empty address", "home", "", validation.FieldAddress},
		{"bad address", "home", "999.168.100.1", validation.FieldAddress},
		{"non-canonical address", "home", "FC00::1", validation.FieldAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore()
			gw := &fakeGateway{}
			r := NewReconciler(store, gw, nil, testLogger())

			_, err := r.Reconcile(context.Background(), tt.hostname, tt.address)

			var vErr *validation.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if vErr.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, vErr.Field)
			}
			hosts, _ := store.ListHosts(context.Background())
			if len(hosts) != 0 || len(gw.calls()) != 0 {
				t.Errorf("Expected no side effects, got %d hosts and %d pushes", len(hosts), len(gw.calls()))
			}
		})
	}
}

func TestReconcileReportsAllInvalidFields(t *testing.T) {
	r := NewReconciler(newTestStore(), &fakeGateway{}, nil, testLogger())

	_, err := r.Reconcile(context.Background(), "", "not-an-ip")

	var errs validation.ValidationErrors
	if !errors.As(err, &errs) {
		t.Fatalf("Expected ValidationErrors, got %v", err)
	}
	if len(errs) != 2 || errs[0].Field != validation.FieldHostname || errs[1].Field != validation.FieldAddress {
		t.Errorf("Expected hostname and address errors, got %v", errs)
	}
}

package application

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/adapter"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/coupon"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/customer"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/payment"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/reservation"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/resource"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/apperror"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/clock"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/saga"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- resources ---

type fakeResources struct {
	list []*resource.Resource
	err  error
}

func (f *fakeResources) ListActive(ctx context.Context) ([]*resource.Resource, error) {
	return f.list, f.err
}

func (f *fakeResources) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*resource.Resource, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*resource.Resource, 0, len(ids))
	for _, id := range ids {
		var found *resource.Resource
		for _, r := range f.list {
			if r.ID() == id {
				found = r
			}
		}
		if found == nil {
			return nil, apperror.NewNotFoundError("Station", id.String())
		}
		out = append(out, found)
	}
	return out, nil
}

// --- reservations ---

type fakeReservations struct {
	mu           sync.Mutex
	rows         []*reservation.Reservation
	customers    map[uuid.UUID]customer.Profile
	orders       map[string]uuid.UUID
	readErr      error
	rangeQueries int
}

func newFakeReservations() *fakeReservations {
	return &fakeReservations{
		customers: make(map[uuid.UUID]customer.Profile),
		orders:    make(map[string]uuid.UUID),
	}
}

func (f *fakeReservations) FindActiveInRange(ctx context.Context, ids []uuid.UUID, from, to time.Time) ([]*reservation.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rangeQueries++
	if f.readErr != nil {
		return nil, f.readErr
	}
	var out []*reservation.Reservation
	for _, r := range f.rows {
		if !r.Active() || !r.StartsAt().Before(to) || !r.EndsAt().After(from) {
			continue
		}
		for _, id := range ids {
			if r.ResourceID() == id {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (f *fakeReservations) FindByID(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.ID() == id {
			return r, nil
		}
	}
	return nil, apperror.NewNotFoundError("Reservation", id.String())
}

func (f *fakeReservations) FindByGroupID(ctx context.Context, groupID uuid.UUID) ([]*reservation.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.groupRows(groupID)
}

func (f *fakeReservations) groupRows(groupID uuid.UUID) ([]*reservation.Reservation, error) {
	var out []*reservation.Reservation
	for _, r := range f.rows {
		if r.GroupID() == groupID {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, apperror.NewNotFoundError("Booking", groupID.String())
	}
	return out, nil
}

func (f *fakeReservations) FindGroup(ctx context.Context, groupID uuid.UUID) (*reservation.GroupResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows, err := f.groupRows(groupID)
	if err != nil {
		return nil, err
	}
	return &reservation.GroupResult{GroupID: groupID, Customer: f.customers[groupID], Reservations: rows}, nil
}

func (f *fakeReservations) FindGroupByOrderID(ctx context.Context, orderID string) (*reservation.GroupResult, error) {
	f.mu.Lock()
	groupID, ok := f.orders[orderID]
	f.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return f.FindGroup(ctx, groupID)
}

func (f *fakeReservations) CreateGroup(ctx context.Context, w reservation.GroupWrite) (*reservation.GroupResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if m := w.Materialization; m != nil {
		if groupID, ok := f.orders[m.OrderID]; ok {
			rows, _ := f.groupRows(groupID)
			return &reservation.GroupResult{GroupID: groupID, Customer: f.customers[groupID], Reservations: rows, Existing: true}, nil
		}
	}
	for _, n := range w.Reservations {
		for _, r := range f.rows {
			if r.Active() && r.ResourceID() == n.ResourceID() && r.StartsAt().Before(n.EndsAt()) && r.EndsAt().After(n.StartsAt()) {
				return nil, apperror.NewAvailabilityConflict("one or more stations were just booked for this slot")
			}
		}
	}

	profile := customer.Profile{ID: uuid.New(), Name: w.Customer.Name, Phone: w.Customer.Phone, Email: w.Customer.Email}
	groupID := w.Reservations[0].GroupID()
	for _, r := range w.Reservations {
		r.AttachCustomer(profile.ID)
	}
	f.rows = append(f.rows, w.Reservations...)
	f.customers[groupID] = profile
	if m := w.Materialization; m != nil {
		f.orders[m.OrderID] = groupID
	}
	return &reservation.GroupResult{GroupID: groupID, Customer: profile, Reservations: w.Reservations}, nil
}

func (f *fakeReservations) Update(ctx context.Context, r *reservation.Reservation) error {
	return nil
}

func (f *fakeReservations) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// --- slot cache ---

type fakeCache struct {
	mu          sync.Mutex
	grids       map[string][]reservation.TimeSlot
	gens        map[uuid.UUID]int64
	invalidated []uuid.UUID
}

func newFakeCache() *fakeCache {
	return &fakeCache{grids: make(map[string][]reservation.TimeSlot), gens: make(map[uuid.UUID]int64)}
}

func cacheKey(id uuid.UUID, date string, minutes int) string {
	return fmt.Sprintf("%s:%s:%d", id, date, minutes)
}

func (c *fakeCache) Get(ctx context.Context, id uuid.UUID, date string, minutes int) ([]reservation.TimeSlot, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	slots, ok := c.grids[cacheKey(id, date, minutes)]
	if !ok {
		return nil, c.gens[id], false
	}
	return append([]reservation.TimeSlot(nil), slots...), c.gens[id], true
}

func (c *fakeCache) Set(ctx context.Context, id uuid.UUID, date string, minutes int, gen int64, slots []reservation.TimeSlot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gens[id] {
		return
	}
	c.grids[cacheKey(id, date, minutes)] = append([]reservation.TimeSlot(nil), slots...)
}

func (c *fakeCache) Invalidate(ctx context.Context, ids ...uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, ids...)
	for _, id := range ids {
		c.gens[id]++
	}
	c.grids = make(map[string][]reservation.TimeSlot)
}

// --- publisher ---

type fakePublisher struct {
	mu     sync.Mutex
	events []reservation.ChangedEvent
	err    error
}

func (p *fakePublisher) PublishReservationChange(ctx context.Context, evt reservation.ChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

// --- payment attempts ---

type fakeAttempts struct {
	mu      sync.Mutex
	byTxn   map[string]*payment.Attempt
	updates int
}

func newFakeAttempts() *fakeAttempts {
	return &fakeAttempts{byTxn: make(map[string]*payment.Attempt)}
}

func (f *fakeAttempts) FindByMerchantTxnID(ctx context.Context, id string) (*payment.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.byTxn[id]; ok {
		return a, nil
	}
	return nil, apperror.NewNotFoundError("PaymentAttempt", id)
}

func (f *fakeAttempts) FindByOrderID(ctx context.Context, id string) (*payment.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byTxn {
		if a.OrderID() == id {
			return a, nil
		}
	}
	return nil, apperror.NewNotFoundError("PaymentAttempt", id)
}

func (f *fakeAttempts) ListAwaitingProvider(ctx context.Context, after, before time.Time, limit int) ([]*payment.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*payment.Attempt
	for _, a := range f.byTxn {
		if a.State().AwaitingProvider() && a.CreatedAt().After(after) && a.CreatedAt().Before(before) && len(out) < limit {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAttempts) Save(ctx context.Context, a *payment.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byTxn[a.MerchantTxnID()] = a
	return nil
}

func (f *fakeAttempts) Update(ctx context.Context, a *payment.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	f.byTxn[a.MerchantTxnID()] = a
	return nil
}

// --- drafts ---

type fakeDrafts struct {
	mu     sync.Mutex
	drafts map[string]payment.Draft
}

func newFakeDrafts() *fakeDrafts {
	return &fakeDrafts{drafts: make(map[string]payment.Draft)}
}

func (f *fakeDrafts) Stage(ctx context.Context, d *payment.Draft, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drafts[d.MerchantTxnID] = *d
	return nil
}

func (f *fakeDrafts) Load(ctx context.Context, id string) (*payment.Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.drafts[id]
	if !ok {
		return nil, apperror.NewNotFoundError("BookingDraft", id)
	}
	return &d, nil
}

func (f *fakeDrafts) Discard(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.drafts, id)
	return nil
}

func (f *fakeDrafts) has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.drafts[id]
	return ok
}

// --- harness ---

var venue = time.FixedZone("IST", 5*3600+1800)

// testDate is a Monday.
const testDate = "2026-11-02"

type harness struct {
	clock        *clock.MockClock
	resources    *fakeResources
	reservations *fakeReservations
	cache        *fakeCache
	publisher    *fakePublisher
	attempts     *fakeAttempts
	drafts       *fakeDrafts
	gateway      *adapter.MockGateway

	availability *AvailabilityService
	pricing      *PricingService
	coupons      *CouponService
	booking      *BookingService
	reconciler   *PaymentReconciler
	admin        *ReservationAdminService

	pc1, pc2, console1 *resource.Resource
}

func mustResource(t *testing.T, name string, cat resource.Category, rate int64) *resource.Resource {
	t.Helper()
	r, err := resource.NewResource(name, cat, rate)
	require.NoError(t, err)
	return r
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zap.NewNop()
	h := &harness{
		clock:        clock.NewMockClock(time.Date(2026, 11, 2, 9, 0, 0, 0, venue)),
		reservations: newFakeReservations(),
		cache:        newFakeCache(),
		publisher:    &fakePublisher{},
		attempts:     newFakeAttempts(),
		drafts:       newFakeDrafts(),
		gateway:      adapter.NewMockGateway(logger),
		pc1:          mustResource(t, "PC-01", resource.CategoryPC, 10000),
		pc2:          mustResource(t, "PC-02", resource.CategoryPC, 10000),
		console1:     mustResource(t, "PS5 Lounge A", resource.CategoryConsole, 15000),
	}
	h.resources = &fakeResources{list: []*resource.Resource{h.pc1, h.pc2, h.console1}}

	registry := coupon.DefaultRegistry()
	selector := NewSelector(h.resources, reservation.NewSchedule(venue, 10, 23), 60)
	notifier := NewChangeNotifier(h.cache, h.publisher, logger)

	h.availability = NewAvailabilityService(selector, h.resources, h.reservations, h.cache, h.clock, logger)
	h.pricing = NewPricingService(selector, registry, logger)
	h.coupons = NewCouponService(selector, h.pricing, registry, logger)
	h.booking = NewBookingService(selector, h.pricing, h.resources, h.reservations, notifier, h.clock, logger)
	h.admin = NewReservationAdminService(h.reservations, notifier, h.clock, logger)

	checkout := saga.NewCheckoutSagaService(h.drafts, h.attempts, h.gateway, 30*time.Minute, logger)
	h.reconciler = NewPaymentReconciler(
		ReconcilerConfig{Currency: "INR", RedirectURL: "http://localhost:3000/booking/payment-return", DraftTTL: 30 * time.Minute},
		selector, h.pricing, h.availability, h.booking, h.reservations,
		h.attempts, h.drafts, h.gateway, checkout, h.clock, logger,
	)
	return h
}

// book writes a venue reservation directly, bypassing the services.
func (h *harness) book(t *testing.T, r *resource.Resource, start string) {
	t.Helper()
	day, err := time.ParseInLocation(reservation.DateLayout, testDate, venue)
	require.NoError(t, err)
	slot, err := reservation.NewSchedule(venue, 10, 23).SlotAt(day, start, time.Hour)
	require.NoError(t, err)
	row, err := reservation.NewReservation(reservation.NewParams{
		ResourceID:    r.ID(),
		GroupID:       uuid.New(),
		Date:          day,
		Slot:          slot,
		Pricing:       reservation.Pricing{OriginalMinor: r.HourlyRateMinor(), FinalMinor: r.HourlyRateMinor()},
		PaymentMethod: reservation.PaymentAtVenue,
	})
	require.NoError(t, err)
	_, err = h.reservations.CreateGroup(context.Background(), reservation.GroupWrite{
		Customer:     customer.Info{Name: "Walk In", Phone: "9000000000"},
		Reservations: []*reservation.Reservation{row},
	})
	require.NoError(t, err)
}

func selection(start string, rs ...*resource.Resource) SelectionRequest {
	ids := make([]uuid.UUID, len(rs))
	for i, r := range rs {
		ids[i] = r.ID()
	}
	return SelectionRequest{ResourceIDs: ids, Date: testDate, StartTime: start}
}

var asha = customer.Info{Name: "Asha Rao", Phone: "+91 98765 43210", Email: "asha@example.com"}

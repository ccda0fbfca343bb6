//go:build unit

// Package memstore is an in-memory unit of work for usecase tests. It mirrors
// the Postgres constraints the usecases rely on: the per-practitioner
// exclusion constraint, version-guarded updates, the active-refund unique
// index and the webhook ledger.
package memstore

import (
	"bytes"
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"booking-engine/internal/domain/booking"
	"booking-engine/internal/domain/catalog"
	"booking-engine/internal/domain/interval"
	"booking-engine/internal/domain/payment"
	"booking-engine/internal/infra"
	"booking-engine/internal/usecase/shared"

	"github.com/google/uuid"
)

type Job struct {
	Kind    string
	Topic   string
	Payload []byte
	RunAt   time.Time
}

type state struct {
	bookings map[uuid.UUID]booking.Booking
	intents  map[uuid.UUID]payment.Intent
	refunds  map[uuid.UUID]payment.Refund
	events   map[string]payment.WebhookEvent
	jobs     []Job
}

func (s state) clone() state {
	c := state{
		bookings: make(map[uuid.UUID]booking.Booking, len(s.bookings)),
		intents:  make(map[uuid.UUID]payment.Intent, len(s.intents)),
		refunds:  make(map[uuid.UUID]payment.Refund, len(s.refunds)),
		events:   make(map[string]payment.WebhookEvent, len(s.events)),
		jobs:     slices.Clone(s.jobs),
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.intents {
		c.intents[k] = v
	}
	for k, v := range s.refunds {
		c.refunds[k] = v
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	return c
}

type scheduleKey struct {
	practitionerID uuid.UUID
	day            time.Weekday
}

// Store implements shared.UnitOfWork. Transactions run one at a time, which
// is the strongest isolation Postgres SERIALIZABLE can give.
type Store struct {
	mu    sync.Mutex
	state state

	catalogMu     sync.RWMutex
	services      map[uuid.UUID]catalog.Service
	practitioners map[uuid.UUID]catalog.Practitioner
	hours         map[scheduleKey]catalog.BusinessHours
	schedules     map[scheduleKey]catalog.PractitionerSchedule

	failMu   sync.Mutex
	failures map[string][]error

	commits int
}

func New() *Store {
	return &Store{
		state: state{
			bookings: map[uuid.UUID]booking.Booking{},
			intents:  map[uuid.UUID]payment.Intent{},
			refunds:  map[uuid.UUID]payment.Refund{},
			events:   map[string]payment.WebhookEvent{},
		},
		services:      map[uuid.UUID]catalog.Service{},
		practitioners: map[uuid.UUID]catalog.Practitioner{},
		hours:         map[scheduleKey]catalog.BusinessHours{},
		schedules:     map[scheduleKey]catalog.PractitionerSchedule{},
		failures:      map[string][]error{},
	}
}

var _ shared.UnitOfWork = (*Store)(nil)

// FailNext makes the next calls of op return errs in order. Ops are named
// after the repository method, e.g. "Bookings.Create" or "Within".
func (s *Store) FailNext(op string, errs ...error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.failures[op] = append(s.failures[op], errs...)
}

func (s *Store) injected(op string) error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	queue := s.failures[op]
	if len(queue) == 0 {
		return nil
	}
	s.failures[op] = queue[1:]
	return queue[0]
}

func (s *Store) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.injected("Within"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(ctx, &memTx{s: s}); err != nil {
		s.state = snapshot
		return err
	}
	s.commits++
	return nil
}

func (s *Store) CommandReads() shared.CommandReads {
	return &reads{s: s, lock: true}
}

// Catalog returns the catalog reader backed by the same store.
func (s *Store) Catalog() shared.CatalogReader {
	return catalogReader{s: s}
}

func (s *Store) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

// Seeding and inspection helpers.

func (s *Store) AddService(svc catalog.Service) {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	s.services[svc.ID] = svc
}

func (s *Store) AddPractitioner(p catalog.Practitioner) {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	s.practitioners[p.ID] = p
}

func (s *Store) SetBusinessHours(h catalog.BusinessHours) {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	s.hours[scheduleKey{h.PractitionerID, h.DayOfWeek}] = h
}

func (s *Store) SetSchedule(ps catalog.PractitionerSchedule) {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	s.schedules[scheduleKey{ps.PractitionerID, ps.DayOfWeek}] = ps
}

// PutBooking stores b as-is, bypassing the exclusion check.
func (s *Store) PutBooking(b *booking.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.bookings[b.ID()] = *b
}

func (s *Store) PutIntent(in payment.Intent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.intents[in.BookingID] = in
}

func (s *Store) Booking(id uuid.UUID) (*booking.Booking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.state.bookings[id]
	if !ok {
		return nil, false
	}
	return &b, true
}

func (s *Store) Bookings() []*booking.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*booking.Booking, 0, len(s.state.bookings))
	for _, b := range s.state.bookings {
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().Before(out[j].CreatedAt()) })
	return out
}

func (s *Store) Intent(bookingID uuid.UUID) (payment.Intent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.state.intents[bookingID]
	return in, ok
}

func (s *Store) Refunds(bookingID uuid.UUID) []payment.Refund {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []payment.Refund
	for _, r := range s.state.refunds {
		if r.BookingID == bookingID {
			out = append(out, r)
		}
	}
	return out
}

func (s *Store) WebhookEvents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.events)
}

func (s *Store) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.jobs)
}

func (s *Store) JobKinds() []string {
	jobs := s.Jobs()
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.Kind
	}
	return out
}

func notFound(msg string) error {
	return infra.NewRepoErr(infra.KindNotFound, msg, nil)
}

type memTx struct {
	s *Store
}

func (t *memTx) Bookings() shared.BookingRepository           { return bookingRepo{s: t.s} }
func (t *memTx) Payments() shared.PaymentRepository           { return paymentRepo{s: t.s} }
func (t *memTx) WebhookEvents() shared.WebhookEventRepository { return webhookRepo{s: t.s} }
func (t *memTx) Notifications() shared.NotificationRepository { return notificationRepo{s: t.s} }
func (t *memTx) Reads() shared.CommandReads                   { return &reads{s: t.s} }

// reads locks the store unless it runs inside a transaction that already
// holds it.
type reads struct {
	s    *Store
	lock bool
}

func (r *reads) guard() func() {
	if !r.lock {
		return func() {}
	}
	r.s.mu.Lock()
	return r.s.mu.Unlock
}

func (r *reads) BookingByID(_ context.Context, id uuid.UUID) (*booking.Booking, error) {
	if err := r.s.injected("Reads.BookingByID"); err != nil {
		return nil, err
	}
	defer r.guard()()
	b, ok := r.s.state.bookings[id]
	if !ok {
		return nil, notFound("booking not found")
	}
	return &b, nil
}

func (r *reads) OverlappingBookings(_ context.Context, practitionerID uuid.UUID, window interval.TimeInterval) ([]*booking.Booking, error) {
	if err := r.s.injected("Reads.OverlappingBookings"); err != nil {
		return nil, err
	}
	defer r.guard()()
	return r.s.overlapping(practitionerID, window, uuid.Nil), nil
}

func (r *reads) IntentByBookingID(_ context.Context, bookingID uuid.UUID) (*payment.Intent, error) {
	defer r.guard()()
	in, ok := r.s.state.intents[bookingID]
	if !ok {
		return nil, notFound("payment intent not found")
	}
	return &in, nil
}

func (r *reads) BookingsByCustomer(_ context.Context, customerID uuid.UUID, after *shared.PagePosition, limit int) ([]*booking.Booking, error) {
	if err := r.s.injected("Reads.BookingsByCustomer"); err != nil {
		return nil, err
	}
	defer r.guard()()
	var out []*booking.Booking
	for _, b := range r.s.state.bookings {
		if b.CustomerID() != customerID {
			continue
		}
		if after != nil && !pageBefore(b.CreatedAt(), b.ID(), *after) {
			continue
		}
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool {
		return pageBefore(out[j].CreatedAt(), out[j].ID(), shared.PagePosition{CreatedAt: out[i].CreatedAt(), ID: out[i].ID()})
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// pageBefore reports whether (at, id) sorts after pos in descending order,
// matching the row comparison (created_at, id) < (pos.CreatedAt, pos.ID).
func pageBefore(at time.Time, id uuid.UUID, pos shared.PagePosition) bool {
	if !at.Equal(pos.CreatedAt) {
		return at.Before(pos.CreatedAt)
	}
	return bytes.Compare(id[:], pos.ID[:]) < 0
}

func (s *Store) overlapping(practitionerID uuid.UUID, window interval.TimeInterval, except uuid.UUID) []*booking.Booking {
	var out []*booking.Booking
	for id, b := range s.state.bookings {
		if id == except || b.PractitionerID() != practitionerID || !b.Status().Occupies() {
			continue
		}
		if interval.Overlaps(b.Occupied(), window) {
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot().Start().Before(out[j].Slot().Start()) })
	return out
}

type bookingRepo struct {
	s *Store
}

func (r bookingRepo) LockPractitioner(context.Context, uuid.UUID) error {
	return r.s.injected("Bookings.LockPractitioner")
}

func (r bookingRepo) FindByID(_ context.Context, id uuid.UUID) (*booking.Booking, error) {
	if err := r.s.injected("Bookings.FindByID"); err != nil {
		return nil, err
	}
	b, ok := r.s.state.bookings[id]
	if !ok {
		return nil, notFound("booking not found")
	}
	return &b, nil
}

func (r bookingRepo) FindByPaymentIntentID(_ context.Context, intentID string) (*booking.Booking, error) {
	for _, b := range r.s.state.bookings {
		if b.PaymentIntentID() != nil && *b.PaymentIntentID() == intentID {
			return &b, nil
		}
	}
	return nil, notFound("booking not found")
}

func (r bookingRepo) ListOverlapping(_ context.Context, practitionerID uuid.UUID, window interval.TimeInterval) ([]*booking.Booking, error) {
	return r.s.overlapping(practitionerID, window, uuid.Nil), nil
}

func (r bookingRepo) Create(_ context.Context, b *booking.Booking) error {
	if err := r.s.injected("Bookings.Create"); err != nil {
		return err
	}
	if b.Status().Occupies() && len(r.s.overlapping(b.PractitionerID(), b.Occupied(), b.ID())) > 0 {
		return infra.NewRepoErr(infra.KindConflict, "booking overlaps an occupying booking", nil)
	}
	if _, exists := r.s.state.bookings[b.ID()]; exists {
		return infra.NewRepoErr(infra.KindDuplicateKey, "booking already exists", nil)
	}
	r.s.state.bookings[b.ID()] = *b
	return nil
}

func (r bookingRepo) Update(_ context.Context, b *booking.Booking) error {
	if err := r.s.injected("Bookings.Update"); err != nil {
		return err
	}
	stored, ok := r.s.state.bookings[b.ID()]
	if !ok || stored.Version() != b.Version() {
		return infra.NewRepoErr(infra.KindStaleVersion, "booking version changed", nil)
	}
	if b.Status().Occupies() && !stored.Status().Occupies() &&
		len(r.s.overlapping(b.PractitionerID(), b.Occupied(), b.ID())) > 0 {
		return infra.NewRepoErr(infra.KindConflict, "booking overlaps an occupying booking", nil)
	}
	b.MarkPersisted()
	r.s.state.bookings[b.ID()] = *b
	return nil
}

func (r bookingRepo) ListElapsedHolds(_ context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	return r.s.listIDs(booking.StatusHeld, now, limit), nil
}

func (r bookingRepo) ListPendingPastHold(_ context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	return r.s.listIDs(booking.StatusPendingPayment, now, limit), nil
}

func (s *Store) listIDs(status booking.Status, now time.Time, limit int) []uuid.UUID {
	var matched []booking.Booking
	for _, b := range s.state.bookings {
		if b.Status() == status && !b.ExpiresAt().After(now) {
			matched = append(matched, b)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ExpiresAt().Before(matched[j].ExpiresAt()) })
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	ids := make([]uuid.UUID, len(matched))
	for i, b := range matched {
		ids[i] = b.ID()
	}
	return ids
}

type paymentRepo struct {
	s *Store
}

func (r paymentRepo) FindIntentByBookingID(_ context.Context, bookingID uuid.UUID) (*payment.Intent, error) {
	in, ok := r.s.state.intents[bookingID]
	if !ok {
		return nil, notFound("payment intent not found")
	}
	return &in, nil
}

func (r paymentRepo) SaveIntent(_ context.Context, in *payment.Intent) error {
	if err := r.s.injected("Payments.SaveIntent"); err != nil {
		return err
	}
	r.s.state.intents[in.BookingID] = *in
	return nil
}

func (r paymentRepo) UpdateIntentStatus(_ context.Context, intentID string, status payment.IntentStatus, now time.Time) error {
	for k, in := range r.s.state.intents {
		if in.ID == intentID {
			in.Status = status
			in.UpdatedAt = now
			r.s.state.intents[k] = in
		}
	}
	return nil
}

func (r paymentRepo) ClaimRefund(_ context.Context, ref *payment.Refund) error {
	for _, existing := range r.s.state.refunds {
		if existing.BookingID == ref.BookingID && existing.Status != payment.RefundFailed {
			return infra.NewRepoErr(infra.KindDuplicateKey, "active refund exists", nil)
		}
	}
	r.s.state.refunds[ref.ID] = *ref
	return nil
}

func (r paymentRepo) UpdateRefund(_ context.Context, ref *payment.Refund) error {
	if _, ok := r.s.state.refunds[ref.ID]; !ok {
		return notFound("refund not found")
	}
	r.s.state.refunds[ref.ID] = *ref
	return nil
}

func (r paymentRepo) FindActiveRefund(_ context.Context, bookingID uuid.UUID) (*payment.Refund, error) {
	for _, ref := range r.s.state.refunds {
		if ref.BookingID == bookingID && ref.Status != payment.RefundFailed {
			return &ref, nil
		}
	}
	return nil, notFound("refund not found")
}

func (r paymentRepo) ListPendingRefunds(_ context.Context, createdBefore time.Time, limit int) ([]*payment.Refund, error) {
	var out []*payment.Refund
	for _, ref := range r.s.state.refunds {
		if ref.Status == payment.RefundPending && !ref.CreatedAt.After(createdBefore) {
			out = append(out, &ref)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type webhookRepo struct {
	s *Store
}

func (r webhookRepo) Record(_ context.Context, evt payment.WebhookEvent) (bool, error) {
	if _, seen := r.s.state.events[evt.ID]; seen {
		return false, nil
	}
	r.s.state.events[evt.ID] = evt
	return true, nil
}

type notificationRepo struct {
	s *Store
}

func (r notificationRepo) CreateJob(_ context.Context, kind, topic string, payload []byte, runAt time.Time) error {
	r.s.state.jobs = append(r.s.state.jobs, Job{Kind: kind, Topic: topic, Payload: payload, RunAt: runAt})
	return nil
}

type catalogReader struct {
	s *Store
}

func (c catalogReader) ServiceByID(_ context.Context, id uuid.UUID) (*catalog.Service, error) {
	if err := c.s.injected("Catalog.ServiceByID"); err != nil {
		return nil, err
	}
	c.s.catalogMu.RLock()
	defer c.s.catalogMu.RUnlock()
	svc, ok := c.s.services[id]
	if !ok {
		return nil, notFound("service not found")
	}
	return &svc, nil
}

func (c catalogReader) PractitionerByID(_ context.Context, id uuid.UUID) (*catalog.Practitioner, error) {
	c.s.catalogMu.RLock()
	defer c.s.catalogMu.RUnlock()
	p, ok := c.s.practitioners[id]
	if !ok {
		return nil, notFound("practitioner not found")
	}
	return &p, nil
}

func (c catalogReader) DaySchedule(_ context.Context, practitionerID uuid.UUID, day time.Weekday) (*catalog.BusinessHours, *catalog.PractitionerSchedule, error) {
	c.s.catalogMu.RLock()
	defer c.s.catalogMu.RUnlock()
	var (
		hours    *catalog.BusinessHours
		schedule *catalog.PractitionerSchedule
	)
	if h, ok := c.s.hours[scheduleKey{practitionerID, day}]; ok {
		hours = &h
	}
	if ps, ok := c.s.schedules[scheduleKey{practitionerID, day}]; ok {
		ps.Breaks = slices.Clone(ps.Breaks)
		schedule = &ps
	}
	return hours, schedule, nil
}

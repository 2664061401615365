// Package testutil provides in-memory repository implementations for service and handler tests.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/repairdesk/internal/domain"
	"github.com/spec-kit/repairdesk/internal/repository"
	"github.com/spec-kit/repairdesk/internal/sequence"
)

// Store holds every table behind one mutex so multi-table writes stay atomic, like the
// Postgres transactions they stand in for.
type Store struct {
	mu sync.Mutex

	requests  map[string]*domain.ServiceRequest
	order     map[string]int
	events    []domain.ServiceRequestEvent
	jobs      map[string]*domain.JobTicket
	pickups   map[string]*domain.PickupSchedule
	users     map[string]*domain.User
	staff     map[string]*domain.StaffMember
	seq         int
	jobErrors   []error
	eventErrors []error
	beforeWrite func()
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		requests: make(map[string]*domain.ServiceRequest),
		order:    make(map[string]int),
		jobs:     make(map[string]*domain.JobTicket),
		pickups:  make(map[string]*domain.PickupSchedule),
		users:    make(map[string]*domain.User),
		staff:    make(map[string]*domain.StaffMember),
	}
}

// FailJobInserts makes the next job inserts fail with errs, in order.
func (s *Store) FailJobInserts(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobErrors = append(s.jobErrors, errs...)
}

// FailEventInserts makes the next timeline appends fail with errs, in order. A failed
// append rolls back the write it belongs to.
func (s *Store) FailEventInserts(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventErrors = append(s.eventErrors, errs...)
}

// BeforeRequestWrite registers fn to run, outside the store lock, before every stage
// change and patch. Tests use it to interleave concurrent writers.
func (s *Store) BeforeRequestWrite(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beforeWrite = fn
}

// ServiceRequests returns the service request repository view.
func (s *Store) ServiceRequests() repository.ServiceRequestRepository { return &requestRepo{s} }

// Events returns the timeline repository view.
func (s *Store) Events() repository.ServiceRequestEventRepository { return &eventRepo{s} }

// Jobs returns the job ticket repository view.
func (s *Store) Jobs() repository.JobTicketRepository { return &jobRepo{s} }

// Pickups returns the pickup schedule repository view.
func (s *Store) Pickups() repository.PickupScheduleRepository { return &pickupRepo{s} }

// Users returns the customer account repository view.
func (s *Store) Users() repository.UserRepository { return &userRepo{s} }

// Staff returns the staff repository view.
func (s *Store) Staff() repository.StaffRepository { return &staffRepo{s} }

// JobCount reports how many job tickets exist.
func (s *Store) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// PickupCount reports how many pickup schedules exist.
func (s *Store) PickupCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pickups)
}

// EventCount reports how many timeline rows exist for a request.
func (s *Store) EventCount(requestID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.events {
		if ev.ServiceRequestID == requestID {
			n++
		}
	}
	return n
}

func (s *Store) hook() {
	s.mu.Lock()
	fn := s.beforeWrite
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// eventFailure pops the next injected timeline error when event would be written.
func (s *Store) eventFailure(event *domain.ServiceRequestEvent) error {
	if event == nil || len(s.eventErrors) == 0 {
		return nil
	}
	err := s.eventErrors[0]
	s.eventErrors = s.eventErrors[1:]
	return err
}

func (s *Store) appendEvent(requestID string, event *domain.ServiceRequestEvent) {
	if event == nil {
		return
	}
	event.ID = uuid.NewString()
	event.ServiceRequestID = requestID
	event.OccurredAt = time.Now().UTC()
	s.events = append(s.events, *event)
}

func (s *Store) next() int {
	s.seq++
	return s.seq
}

func copyRequest(req *domain.ServiceRequest) *domain.ServiceRequest {
	out := *req
	out.MediaURLs = append([]string(nil), req.MediaURLs...)
	return &out
}

type requestRepo struct{ s *Store }

func (r *requestRepo) Create(_ context.Context, req *domain.ServiceRequest, event *domain.ServiceRequestEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.requests {
		if existing.TicketNumber == req.TicketNumber {
			return repository.ErrDuplicate
		}
	}
	if err := r.s.eventFailure(event); err != nil {
		return err
	}
	req.ID = uuid.NewString()
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now
	r.s.requests[req.ID] = copyRequest(req)
	r.s.order[req.ID] = r.s.next()
	r.s.appendEvent(req.ID, event)
	return nil
}

func (r *requestRepo) Patch(_ context.Context, id string, patch repository.ServiceRequestPatch, event *domain.ServiceRequestEvent) error {
	if patch.Empty() {
		return nil
	}
	r.s.hook()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.requests[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if want := patch.Expected; want != nil &&
		(stored.Stage != want.Stage || stored.TrackingStatus != want.TrackingStatus || stored.Status != want.Status) {
		return repository.ErrStaleState
	}
	if err := r.s.eventFailure(event); err != nil {
		return err
	}
	if patch.CustomerName != nil {
		stored.CustomerName = *patch.CustomerName
	}
	if patch.Phone != nil {
		stored.Phone = *patch.Phone
	}
	if patch.Address != nil {
		address := *patch.Address
		stored.Address = &address
	}
	if patch.Description != nil {
		description := *patch.Description
		stored.Description = &description
	}
	if patch.TrackingStatus != nil {
		stored.TrackingStatus = *patch.TrackingStatus
	}
	if patch.Status != nil {
		stored.Status = *patch.Status
	}
	if patch.PaymentStatus != nil {
		stored.PaymentStatus = *patch.PaymentStatus
	}
	if patch.ScheduledPickupDate != nil {
		date := *patch.ScheduledPickupDate
		stored.ScheduledPickupDate = &date
	}
	stored.UpdatedAt = time.Now().UTC()
	r.s.appendEvent(id, event)
	return nil
}

func (r *requestRepo) UpdateExpectedDates(_ context.Context, id string, pickup, ret, ready *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.requests[id]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.ExpectedPickupDate = pickup
	stored.ExpectedReturnDate = ret
	stored.ExpectedReadyDate = ready
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *requestRepo) GetByID(_ context.Context, id string) (*domain.ServiceRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return copyRequest(stored), nil
}

func (r *requestRepo) GetByTicketNumber(_ context.Context, ticketNumber string) (*domain.ServiceRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, stored := range r.s.requests {
		if stored.TicketNumber == ticketNumber {
			return copyRequest(stored), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *requestRepo) List(_ context.Context, filter repository.ServiceRequestFilter) ([]domain.ServiceRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.ServiceRequest
	for _, stored := range r.s.requests {
		if !matchesFilter(stored, filter) {
			continue
		}
		out = append(out, *copyRequest(stored))
	}
	sort.Slice(out, func(i, j int) bool { return r.s.order[out[i].ID] > r.s.order[out[j].ID] })

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matchesFilter(req *domain.ServiceRequest, filter repository.ServiceRequestFilter) bool {
	if filter.CustomerID != nil && (req.CustomerID == nil || *req.CustomerID != *filter.CustomerID) {
		return false
	}
	if len(filter.Statuses) > 0 {
		found := false
		for _, status := range filter.Statuses {
			if req.Status == status {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	if filter.Stage != nil && req.Stage != *filter.Stage {
		return false
	}
	if filter.IsQuote != nil && req.IsQuote != *filter.IsQuote {
		return false
	}
	if filter.QuoteStatus != nil && req.CurrentQuoteStatus() != *filter.QuoteStatus {
		return false
	}
	if filter.SearchTerm != nil && *filter.SearchTerm != "" {
		term := strings.ToLower(*filter.SearchTerm)
		if !strings.Contains(strings.ToLower(req.TicketNumber), term) &&
			!strings.Contains(strings.ToLower(req.CustomerName), term) &&
			!strings.Contains(req.Phone, term) {
			return false
		}
	}
	return true
}

func (r *requestRepo) UpdateStage(_ context.Context, id string, from, to domain.Stage, tracking domain.TrackingStatus, event *domain.ServiceRequestEvent) error {
	r.s.hook()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.requests[id]
	if !ok || stored.Stage != from {
		return repository.ErrStaleState
	}
	if err := r.s.eventFailure(event); err != nil {
		return err
	}
	stored.Stage = to
	stored.TrackingStatus = tracking
	stored.UpdatedAt = time.Now().UTC()
	r.s.appendEvent(id, event)
	return nil
}

func (r *requestRepo) ApplyQuoteChange(_ context.Context, req *domain.ServiceRequest, expected domain.QuoteStatus, schedule *domain.PickupSchedule, event *domain.ServiceRequestEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.requests[req.ID]
	if !ok || stored.CurrentQuoteStatus() != expected || stored.Stage != req.Stage {
		return repository.ErrStaleState
	}
	if err := r.s.eventFailure(event); err != nil {
		return err
	}
	stored.QuoteStatus = req.QuoteStatus
	stored.QuoteAmount = req.QuoteAmount
	stored.QuoteNotes = req.QuoteNotes
	stored.QuotedAt = req.QuotedAt
	stored.QuoteExpiresAt = req.QuoteExpiresAt
	stored.AcceptedAt = req.AcceptedAt
	stored.PickupTier = req.PickupTier
	stored.PickupCost = req.PickupCost
	stored.TotalAmount = req.TotalAmount
	stored.Address = req.Address
	stored.ScheduledPickupDate = req.ScheduledPickupDate
	stored.Status = req.Status
	stored.TrackingStatus = req.TrackingStatus
	stored.UpdatedAt = time.Now().UTC()

	if schedule != nil {
		schedule.ID = uuid.NewString()
		schedule.ServiceRequestID = req.ID
		schedule.CreatedAt = time.Now().UTC()
		copied := *schedule
		r.s.pickups[schedule.ID] = &copied
	}
	r.s.appendEvent(req.ID, event)
	return nil
}

func (r *requestRepo) LinkCustomerByPhone(_ context.Context, customerID, phone string) (int64, error) {
	normalized := domain.NormalizePhone(phone)
	if normalized == "" {
		return 0, nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var linked int64
	for _, stored := range r.s.requests {
		if stored.CustomerID == nil && domain.NormalizePhone(stored.Phone) == normalized {
			id := customerID
			stored.CustomerID = &id
			linked++
		}
	}
	return linked, nil
}

func (r *requestRepo) MaxIdentifier(_ context.Context, prefix string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	max := ""
	for _, stored := range r.s.requests {
		if strings.HasPrefix(stored.TicketNumber, prefix) && sequence.Later(stored.TicketNumber, max) {
			max = stored.TicketNumber
		}
	}
	return max, nil
}

func (r *requestRepo) ExpireQuotes(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, stored := range r.s.requests {
		if stored.CurrentQuoteStatus() == domain.QuoteStatusQuoted && stored.QuoteExpiresAt != nil && stored.QuoteExpiresAt.Before(now) {
			expired := domain.QuoteStatusExpired
			stored.QuoteStatus = &expired
			n++
		}
	}
	return n, nil
}

func (r *requestRepo) PurgeExpiredMedia(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, stored := range r.s.requests {
		if stored.ExpiresAt != nil && stored.ExpiresAt.Before(now) {
			stored.MediaURLs = []string{}
			stored.ExpiresAt = nil
			n++
		}
	}
	return n, nil
}

type eventRepo struct{ s *Store }

func (r *eventRepo) ListByRequest(_ context.Context, serviceRequestID string) ([]domain.ServiceRequestEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.ServiceRequestEvent{}
	for _, ev := range r.s.events {
		if ev.ServiceRequestID == serviceRequestID {
			out = append(out, ev)
		}
	}
	return out, nil
}

type jobRepo struct{ s *Store }

func (r *jobRepo) CreateForRequest(_ context.Context, job *domain.JobTicket, event *domain.ServiceRequestEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if len(r.s.jobErrors) > 0 {
		err := r.s.jobErrors[0]
		r.s.jobErrors = r.s.jobErrors[1:]
		return err
	}
	if job.ServiceRequestID == nil {
		return repository.ErrAlreadyMaterialized
	}
	req, ok := r.s.requests[*job.ServiceRequestID]
	if !ok || req.HasJob() {
		return repository.ErrAlreadyMaterialized
	}
	if _, taken := r.s.jobs[job.ID]; taken {
		return repository.ErrDuplicate
	}
	if err := r.s.eventFailure(event); err != nil {
		return err
	}
	job.CreatedAt = time.Now().UTC()
	copied := *job
	r.s.jobs[job.ID] = &copied

	id := job.ID
	req.ConvertedJobID = &id
	req.Status = domain.RequestStatusConverted
	r.s.appendEvent(req.ID, event)
	return nil
}

func (r *jobRepo) GetByID(_ context.Context, id string) (*domain.JobTicket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	job, ok := r.s.jobs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *job
	return &copied, nil
}

func (r *jobRepo) AssignTechnician(_ context.Context, id, technician string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	job, ok := r.s.jobs[id]
	if !ok {
		return pgx.ErrNoRows
	}
	job.Technician = technician
	return nil
}

func (r *jobRepo) MaxIdentifier(_ context.Context, prefix string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	max := ""
	for id := range r.s.jobs {
		if strings.HasPrefix(id, prefix) && sequence.Later(id, max) {
			max = id
		}
	}
	return max, nil
}

type pickupRepo struct{ s *Store }

func (r *pickupRepo) GetByID(_ context.Context, id string) (*domain.PickupSchedule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	schedule, ok := r.s.pickups[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *schedule
	return &copied, nil
}

func (r *pickupRepo) List(_ context.Context, status *domain.PickupStatus, _, _ int) ([]domain.PickupSchedule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.PickupSchedule
	for _, schedule := range r.s.pickups {
		if status != nil && schedule.Status != *status {
			continue
		}
		out = append(out, *schedule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *pickupRepo) Update(_ context.Context, schedule *domain.PickupSchedule, expected domain.PickupStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.pickups[schedule.ID]
	if !ok || stored.Status != expected {
		return repository.ErrStaleState
	}
	copied := *schedule
	r.s.pickups[schedule.ID] = &copied
	return nil
}

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	r.s.users[user.ID] = &copied
	return nil
}

func (r *userRepo) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *user
	r.s.users[user.ID] = &copied
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.ID == id })
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Email == email })
}

func (r *userRepo) GetByPhone(_ context.Context, phone string) (*domain.User, error) {
	normalized := domain.NormalizePhone(phone)
	if normalized == "" {
		return nil, pgx.ErrNoRows
	}
	return r.find(func(u *domain.User) bool { return domain.NormalizePhone(u.Phone) == normalized })
}

func (r *userRepo) find(match func(*domain.User) bool) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, user := range r.s.users {
		if match(user) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type staffRepo struct{ s *Store }

func (r *staffRepo) Create(_ context.Context, staff *domain.StaffMember) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.staff {
		if existing.Email == staff.Email {
			return repository.ErrDuplicate
		}
	}
	staff.ID = uuid.NewString()
	staff.CreatedAt = time.Now().UTC()
	staff.UpdatedAt = staff.CreatedAt
	copied := *staff
	r.s.staff[staff.ID] = &copied
	return nil
}

func (r *staffRepo) Update(_ context.Context, staff *domain.StaffMember) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.staff[staff.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *staff
	r.s.staff[staff.ID] = &copied
	return nil
}

func (r *staffRepo) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	return r.find(func(m *domain.StaffMember) bool { return m.ID == id })
}

func (r *staffRepo) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	return r.find(func(m *domain.StaffMember) bool { return m.Email == email })
}

func (r *staffRepo) List(_ context.Context, filter repository.StaffFilter) ([]domain.StaffMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.StaffMember
	for _, member := range r.s.staff {
		if filter.Role != nil && member.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && member.Active != *filter.Active {
			continue
		}
		out = append(out, *member)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *staffRepo) find(match func(*domain.StaffMember) bool) (*domain.StaffMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, member := range r.s.staff {
		if match(member) {
			copied := *member
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

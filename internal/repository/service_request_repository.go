package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repairdesk/internal/domain"
)

// ServiceRequestFilter captures staff search parameters.
type ServiceRequestFilter struct {
	CustomerID  *string
	Statuses    []domain.RequestStatus
	Stage       *domain.Stage
	IsQuote     *bool
	QuoteStatus *domain.QuoteStatus
	SearchTerm  *string
	Limit       int
	Offset      int
}

// ServiceRequestState is the lifecycle snapshot an operator update was computed from.
type ServiceRequestState struct {
	Stage          domain.Stage
	TrackingStatus domain.TrackingStatus
	Status         domain.RequestStatus
}

// ServiceRequestPatch names the operator-editable columns to write. Nil fields keep their
// stored value. A non-nil Expected makes the write conditional on that snapshot.
type ServiceRequestPatch struct {
	CustomerName        *string
	Phone               *string
	Address             *string
	Description         *string
	TrackingStatus      *domain.TrackingStatus
	Status              *domain.RequestStatus
	PaymentStatus       *domain.PaymentStatus
	ScheduledPickupDate *time.Time
	Expected            *ServiceRequestState
}

// Empty reports whether the patch writes no column.
func (p ServiceRequestPatch) Empty() bool {
	return p.CustomerName == nil && p.Phone == nil && p.Address == nil && p.Description == nil &&
		p.TrackingStatus == nil && p.Status == nil && p.PaymentStatus == nil && p.ScheduledPickupDate == nil
}

// ServiceRequestRepository encapsulates service request persistence. Writers that take an
// event append it to the timeline in the same transaction; a nil event appends nothing.
type ServiceRequestRepository interface {
	Create(ctx context.Context, req *domain.ServiceRequest, event *domain.ServiceRequestEvent) error
	// Patch writes the non-nil patch fields. With patch.Expected set it returns ErrStaleState
	// when the stored stage, tracking status or status moved.
	Patch(ctx context.Context, id string, patch ServiceRequestPatch, event *domain.ServiceRequestEvent) error
	UpdateExpectedDates(ctx context.Context, id string, pickup, ret, ready *time.Time) error
	GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error)
	GetByTicketNumber(ctx context.Context, ticketNumber string) (*domain.ServiceRequest, error)
	List(ctx context.Context, filter ServiceRequestFilter) ([]domain.ServiceRequest, error)
	// UpdateStage moves the request from one stage to another only if it is still at from.
	UpdateStage(ctx context.Context, id string, from, to domain.Stage, tracking domain.TrackingStatus, event *domain.ServiceRequestEvent) error
	// ApplyQuoteChange persists quote fields only if the quote is still at expected and the request
	// still holds req.Stage. A non-nil schedule is inserted in the same transaction.
	ApplyQuoteChange(ctx context.Context, req *domain.ServiceRequest, expected domain.QuoteStatus, schedule *domain.PickupSchedule, event *domain.ServiceRequestEvent) error
	LinkCustomerByPhone(ctx context.Context, customerID, phone string) (int64, error)
	// MaxIdentifier returns the ticket number with the highest numeric suffix under prefix.
	MaxIdentifier(ctx context.Context, prefix string) (string, error)
	ExpireQuotes(ctx context.Context, now time.Time) (int64, error)
	PurgeExpiredMedia(ctx context.Context, now time.Time) (int64, error)
}

type serviceRequestRepository struct {
	pool *pgxpool.Pool
}

// NewServiceRequestRepository instantiates repository.
func NewServiceRequestRepository(pool *pgxpool.Pool) ServiceRequestRepository {
	return &serviceRequestRepository{pool: pool}
}

const serviceRequestColumns = `id, ticket_number, customer_id, brand, screen_size, model_number, primary_issue,
       symptoms, description, media_urls, expires_at, customer_name, phone, address,
       request_intent, service_mode, stage, tracking_status, status, payment_status,
       is_quote, quote_status, quote_amount, quote_notes, quoted_at, quote_expires_at, accepted_at,
       pickup_tier, pickup_cost, total_amount, scheduled_pickup_date, expected_pickup_date,
       expected_return_date, expected_ready_date, converted_job_id, created_at, updated_at`

func (r *serviceRequestRepository) Create(ctx context.Context, req *domain.ServiceRequest, event *domain.ServiceRequestEvent) error {
	const query = `
        INSERT INTO service_requests (ticket_number, customer_id, brand, screen_size, model_number, primary_issue,
            symptoms, description, media_urls, expires_at, customer_name, phone, phone_normalized, address,
            request_intent, service_mode, stage, tracking_status, status, payment_status,
            is_quote, quote_status, quote_amount, quote_notes, pickup_tier, scheduled_pickup_date)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26)
        RETURNING id, created_at, updated_at`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, query,
		req.TicketNumber,
		req.CustomerID,
		req.Brand,
		req.ScreenSize,
		req.ModelNumber,
		req.PrimaryIssue,
		req.Symptoms,
		req.Description,
		mediaOrEmpty(req.MediaURLs),
		req.ExpiresAt,
		req.CustomerName,
		req.Phone,
		domain.NormalizePhone(req.Phone),
		req.Address,
		req.RequestIntent,
		req.ServiceMode,
		req.Stage,
		req.TrackingStatus,
		req.Status,
		req.PaymentStatus,
		req.IsQuote,
		req.QuoteStatus,
		req.QuoteAmount,
		req.QuoteNotes,
		req.PickupTier,
		req.ScheduledPickupDate,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return mapWriteError(err)
	}
	if err := insertServiceRequestEvent(ctx, tx, req.ID, event); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Patch never touches stage, quote state or the job link; those have their own
// conditional writers.
func (r *serviceRequestRepository) Patch(ctx context.Context, id string, patch ServiceRequestPatch, event *domain.ServiceRequestEvent) error {
	sets := []string{}
	args := []any{}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if patch.CustomerName != nil {
		set("customer_name", *patch.CustomerName)
	}
	if patch.Phone != nil {
		set("phone", *patch.Phone)
		set("phone_normalized", domain.NormalizePhone(*patch.Phone))
	}
	if patch.Address != nil {
		set("address", *patch.Address)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.TrackingStatus != nil {
		set("tracking_status", *patch.TrackingStatus)
	}
	if patch.Status != nil {
		set("status", *patch.Status)
	}
	if patch.PaymentStatus != nil {
		set("payment_status", *patch.PaymentStatus)
	}
	if patch.ScheduledPickupDate != nil {
		set("scheduled_pickup_date", *patch.ScheduledPickupDate)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	where := fmt.Sprintf("id=$%d", len(args))
	if patch.Expected != nil {
		args = append(args, patch.Expected.Stage, patch.Expected.TrackingStatus, patch.Expected.Status)
		n := len(args)
		where += fmt.Sprintf(" AND stage=$%d AND tracking_status=$%d AND status=$%d", n-2, n-1, n)
	}
	query := fmt.Sprintf(`UPDATE service_requests SET %s, updated_at=NOW() WHERE %s`, strings.Join(sets, ", "), where)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cmd, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		if patch.Expected != nil {
			return ErrStaleState
		}
		return pgx.ErrNoRows
	}
	if err := insertServiceRequestEvent(ctx, tx, id, event); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *serviceRequestRepository) UpdateExpectedDates(ctx context.Context, id string, pickup, ret, ready *time.Time) error {
	const query = `
        UPDATE service_requests SET expected_pickup_date=$1, expected_return_date=$2, expected_ready_date=$3,
            updated_at=NOW()
        WHERE id=$4`

	cmd, err := r.pool.Exec(ctx, query, pickup, ret, ready, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *serviceRequestRepository) GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	query := `SELECT ` + serviceRequestColumns + ` FROM service_requests WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *serviceRequestRepository) GetByTicketNumber(ctx context.Context, ticketNumber string) (*domain.ServiceRequest, error) {
	query := `SELECT ` + serviceRequestColumns + ` FROM service_requests WHERE ticket_number=$1`
	return r.fetchSingle(ctx, query, ticketNumber)
}

func (r *serviceRequestRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.ServiceRequest, error) {
	req, err := scanServiceRequest(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *serviceRequestRepository) List(ctx context.Context, filter ServiceRequestFilter) ([]domain.ServiceRequest, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Stage != nil {
		args = append(args, *filter.Stage)
		clauses = append(clauses, fmt.Sprintf("stage=$%d", len(args)))
	}
	if filter.IsQuote != nil {
		args = append(args, *filter.IsQuote)
		clauses = append(clauses, fmt.Sprintf("is_quote=$%d", len(args)))
	}
	if filter.QuoteStatus != nil {
		args = append(args, *filter.QuoteStatus)
		clauses = append(clauses, fmt.Sprintf("quote_status=$%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(ticket_number) LIKE %s OR LOWER(customer_name) LIKE %s OR phone LIKE %s)",
			placeholder, placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM service_requests WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		serviceRequestColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ServiceRequest
	for rows.Next() {
		req, err := scanServiceRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}

func (r *serviceRequestRepository) UpdateStage(ctx context.Context, id string, from, to domain.Stage, tracking domain.TrackingStatus, event *domain.ServiceRequestEvent) error {
	const query = `
        UPDATE service_requests SET stage=$1, tracking_status=$2, updated_at=NOW()
        WHERE id=$3 AND stage=$4`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cmd, err := tx.Exec(ctx, query, to, tracking, id, from)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStaleState
	}
	if err := insertServiceRequestEvent(ctx, tx, id, event); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *serviceRequestRepository) ApplyQuoteChange(ctx context.Context, req *domain.ServiceRequest, expected domain.QuoteStatus, schedule *domain.PickupSchedule, event *domain.ServiceRequestEvent) error {
	const query = `
        UPDATE service_requests SET quote_status=$1, quote_amount=$2, quote_notes=$3, quoted_at=$4, quote_expires_at=$5,
            accepted_at=$6, pickup_tier=$7, pickup_cost=$8, total_amount=$9, address=$10, scheduled_pickup_date=$11,
            status=$12, tracking_status=$13, updated_at=NOW()
        WHERE id=$14 AND quote_status=$15 AND stage=$16`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cmd, err := tx.Exec(ctx, query,
		req.QuoteStatus,
		req.QuoteAmount,
		req.QuoteNotes,
		req.QuotedAt,
		req.QuoteExpiresAt,
		req.AcceptedAt,
		req.PickupTier,
		req.PickupCost,
		req.TotalAmount,
		req.Address,
		req.ScheduledPickupDate,
		req.Status,
		req.TrackingStatus,
		req.ID,
		expected,
		req.Stage,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStaleState
	}

	if schedule != nil {
		schedule.ServiceRequestID = req.ID
		if err := insertPickupSchedule(ctx, tx, schedule); err != nil {
			return err
		}
	}
	if err := insertServiceRequestEvent(ctx, tx, req.ID, event); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *serviceRequestRepository) LinkCustomerByPhone(ctx context.Context, customerID, phone string) (int64, error) {
	normalized := domain.NormalizePhone(phone)
	if normalized == "" {
		return 0, nil
	}
	const query = `
        UPDATE service_requests SET customer_id=$1, updated_at=NOW()
        WHERE customer_id IS NULL AND phone_normalized=$2`

	cmd, err := r.pool.Exec(ctx, query, customerID, normalized)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *serviceRequestRepository) MaxIdentifier(ctx context.Context, prefix string) (string, error) {
	const query = `
        SELECT ticket_number FROM service_requests WHERE ticket_number LIKE $1
        ORDER BY length(ticket_number) DESC, ticket_number DESC LIMIT 1`
	var max string
	if err := r.pool.QueryRow(ctx, query, prefix+"%").Scan(&max); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return max, nil
}

func (r *serviceRequestRepository) ExpireQuotes(ctx context.Context, now time.Time) (int64, error) {
	const query = `
        UPDATE service_requests SET quote_status=$1, updated_at=NOW()
        WHERE quote_status=$2 AND quote_expires_at IS NOT NULL AND quote_expires_at < $3`

	cmd, err := r.pool.Exec(ctx, query, domain.QuoteStatusExpired, domain.QuoteStatusQuoted, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *serviceRequestRepository) PurgeExpiredMedia(ctx context.Context, now time.Time) (int64, error) {
	const query = `
        UPDATE service_requests SET media_urls='{}', expires_at=NULL, updated_at=NOW()
        WHERE expires_at IS NOT NULL AND expires_at < $1`

	cmd, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanServiceRequest(row pgx.Row) (*domain.ServiceRequest, error) {
	var req domain.ServiceRequest
	if err := row.Scan(
		&req.ID,
		&req.TicketNumber,
		&req.CustomerID,
		&req.Brand,
		&req.ScreenSize,
		&req.ModelNumber,
		&req.PrimaryIssue,
		&req.Symptoms,
		&req.Description,
		&req.MediaURLs,
		&req.ExpiresAt,
		&req.CustomerName,
		&req.Phone,
		&req.Address,
		&req.RequestIntent,
		&req.ServiceMode,
		&req.Stage,
		&req.TrackingStatus,
		&req.Status,
		&req.PaymentStatus,
		&req.IsQuote,
		&req.QuoteStatus,
		&req.QuoteAmount,
		&req.QuoteNotes,
		&req.QuotedAt,
		&req.QuoteExpiresAt,
		&req.AcceptedAt,
		&req.PickupTier,
		&req.PickupCost,
		&req.TotalAmount,
		&req.ScheduledPickupDate,
		&req.ExpectedPickupDate,
		&req.ExpectedReturnDate,
		&req.ExpectedReadyDate,
		&req.ConvertedJobID,
		&req.CreatedAt,
		&req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &req, nil
}

func mediaOrEmpty(urls []string) []string {
	if urls == nil {
		return []string{}
	}
	return urls
}

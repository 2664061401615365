package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repairdesk/internal/domain"
)

// JobTicketRepository persists workshop work orders.
type JobTicketRepository interface {
	// CreateForRequest claims the request's job slot, inserts job and appends event to the
	// request timeline in one transaction. It returns ErrAlreadyMaterialized when the request
	// already owns a job and ErrDuplicate when job.ID is taken.
	CreateForRequest(ctx context.Context, job *domain.JobTicket, event *domain.ServiceRequestEvent) error
	GetByID(ctx context.Context, id string) (*domain.JobTicket, error)
	AssignTechnician(ctx context.Context, id, technician string) error
	MaxIdentifier(ctx context.Context, prefix string) (string, error)
}

type jobTicketRepository struct {
	pool *pgxpool.Pool
}

// NewJobTicketRepository instantiates repository.
func NewJobTicketRepository(pool *pgxpool.Pool) JobTicketRepository {
	return &jobTicketRepository{pool: pool}
}

func (r *jobTicketRepository) CreateForRequest(ctx context.Context, job *domain.JobTicket, event *domain.ServiceRequestEvent) error {
	const claim = `
        UPDATE service_requests SET converted_job_id=$1, status=$2, updated_at=NOW()
        WHERE id=$3 AND converted_job_id IS NULL`
	const insert = `
        INSERT INTO job_tickets (id, service_request_id, customer, customer_phone, customer_address, device,
            serial_number, issue, status, priority, technician, screen_size, notes, estimated_cost)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING created_at`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cmd, err := tx.Exec(ctx, claim, job.ID, domain.RequestStatusConverted, job.ServiceRequestID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAlreadyMaterialized
	}

	if err := tx.QueryRow(ctx, insert,
		job.ID,
		job.ServiceRequestID,
		job.Customer,
		job.CustomerPhone,
		job.CustomerAddress,
		job.Device,
		job.SerialNumber,
		job.Issue,
		job.Status,
		job.Priority,
		job.Technician,
		job.ScreenSize,
		job.Notes,
		job.EstimatedCost,
	).Scan(&job.CreatedAt); err != nil {
		return mapWriteError(err)
	}
	if err := insertServiceRequestEvent(ctx, tx, *job.ServiceRequestID, event); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *jobTicketRepository) GetByID(ctx context.Context, id string) (*domain.JobTicket, error) {
	const query = `
        SELECT id, service_request_id, customer, customer_phone, customer_address, device, serial_number, issue,
               status, priority, technician, screen_size, notes, estimated_cost, created_at, completed_at
        FROM job_tickets WHERE id=$1`

	var job domain.JobTicket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID,
		&job.ServiceRequestID,
		&job.Customer,
		&job.CustomerPhone,
		&job.CustomerAddress,
		&job.Device,
		&job.SerialNumber,
		&job.Issue,
		&job.Status,
		&job.Priority,
		&job.Technician,
		&job.ScreenSize,
		&job.Notes,
		&job.EstimatedCost,
		&job.CreatedAt,
		&job.CompletedAt,
	); err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobTicketRepository) AssignTechnician(ctx context.Context, id, technician string) error {
	const query = `UPDATE job_tickets SET technician=$1 WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, technician, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *jobTicketRepository) MaxIdentifier(ctx context.Context, prefix string) (string, error) {
	const query = `
        SELECT id FROM job_tickets WHERE id LIKE $1
        ORDER BY length(id) DESC, id DESC LIMIT 1`
	var max string
	if err := r.pool.QueryRow(ctx, query, prefix+"%").Scan(&max); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return max, nil
}

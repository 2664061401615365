package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repairdesk/internal/domain"
)

// PickupScheduleRepository persists home pickup schedules.
type PickupScheduleRepository interface {
	GetByID(ctx context.Context, id string) (*domain.PickupSchedule, error)
	List(ctx context.Context, status *domain.PickupStatus, limit, offset int) ([]domain.PickupSchedule, error)
	// Update writes schedule only while the stored status is still expected and returns
	// ErrStaleState otherwise.
	Update(ctx context.Context, schedule *domain.PickupSchedule, expected domain.PickupStatus) error
}

type pickupScheduleRepository struct {
	pool *pgxpool.Pool
}

// NewPickupScheduleRepository instantiates repository.
func NewPickupScheduleRepository(pool *pgxpool.Pool) PickupScheduleRepository {
	return &pickupScheduleRepository{pool: pool}
}

const pickupScheduleColumns = `id, service_request_id, tier, tier_cost, status, scheduled_date, pickup_address,
       assigned_staff, pickup_notes, picked_up_at, delivered_at, created_at`

// insertPickupSchedule runs inside the quote acceptance transaction.
func insertPickupSchedule(ctx context.Context, tx pgx.Tx, schedule *domain.PickupSchedule) error {
	const query = `
        INSERT INTO pickup_schedules (service_request_id, tier, tier_cost, status, scheduled_date, pickup_address,
            assigned_staff, pickup_notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	return tx.QueryRow(ctx, query,
		schedule.ServiceRequestID,
		schedule.Tier,
		schedule.TierCost,
		schedule.Status,
		schedule.ScheduledDate,
		schedule.PickupAddress,
		schedule.AssignedStaff,
		schedule.PickupNotes,
	).Scan(&schedule.ID, &schedule.CreatedAt)
}

func (r *pickupScheduleRepository) GetByID(ctx context.Context, id string) (*domain.PickupSchedule, error) {
	query := `SELECT ` + pickupScheduleColumns + ` FROM pickup_schedules WHERE id=$1`
	return scanPickupSchedule(r.pool.QueryRow(ctx, query, id))
}

func (r *pickupScheduleRepository) List(ctx context.Context, status *domain.PickupStatus, limit, offset int) ([]domain.PickupSchedule, error) {
	query := `SELECT ` + pickupScheduleColumns + ` FROM pickup_schedules`
	args := []any{}
	if status != nil {
		args = append(args, *status)
		query += " WHERE status=$1"
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PickupSchedule
	for rows.Next() {
		schedule, err := scanPickupSchedule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *schedule)
	}
	return result, rows.Err()
}

func (r *pickupScheduleRepository) Update(ctx context.Context, schedule *domain.PickupSchedule, expected domain.PickupStatus) error {
	const query = `
        UPDATE pickup_schedules SET status=$1, scheduled_date=$2, assigned_staff=$3, pickup_notes=$4,
            picked_up_at=$5, delivered_at=$6
        WHERE id=$7 AND status=$8`

	cmd, err := r.pool.Exec(ctx, query,
		schedule.Status,
		schedule.ScheduledDate,
		schedule.AssignedStaff,
		schedule.PickupNotes,
		schedule.PickedUpAt,
		schedule.DeliveredAt,
		schedule.ID,
		expected,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStaleState
	}
	return nil
}

func scanPickupSchedule(row pgx.Row) (*domain.PickupSchedule, error) {
	var schedule domain.PickupSchedule
	if err := row.Scan(
		&schedule.ID,
		&schedule.ServiceRequestID,
		&schedule.Tier,
		&schedule.TierCost,
		&schedule.Status,
		&schedule.ScheduledDate,
		&schedule.PickupAddress,
		&schedule.AssignedStaff,
		&schedule.PickupNotes,
		&schedule.PickedUpAt,
		&schedule.DeliveredAt,
		&schedule.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &schedule, nil
}

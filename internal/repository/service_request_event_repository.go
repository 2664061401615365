package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repairdesk/internal/domain"
)

// ServiceRequestEventRepository reads timeline entries. Entries are appended by the
// request writers inside their own transactions and are never updated or deleted.
type ServiceRequestEventRepository interface {
	ListByRequest(ctx context.Context, serviceRequestID string) ([]domain.ServiceRequestEvent, error)
}

type serviceRequestEventRepository struct {
	pool *pgxpool.Pool
}

// NewServiceRequestEventRepository returns repository instance.
func NewServiceRequestEventRepository(pool *pgxpool.Pool) ServiceRequestEventRepository {
	return &serviceRequestEventRepository{pool: pool}
}

// insertServiceRequestEvent appends a timeline entry within the writer's transaction.
// A nil event is a no-op.
func insertServiceRequestEvent(ctx context.Context, tx pgx.Tx, requestID string, event *domain.ServiceRequestEvent) error {
	if event == nil {
		return nil
	}
	const query = `
        INSERT INTO service_request_events (service_request_id, status, message, actor)
        VALUES ($1,$2,$3,$4)
        RETURNING id, occurred_at`
	event.ServiceRequestID = requestID
	return tx.QueryRow(ctx, query,
		event.ServiceRequestID,
		event.Status,
		event.Message,
		event.Actor,
	).Scan(&event.ID, &event.OccurredAt)
}

func (r *serviceRequestEventRepository) ListByRequest(ctx context.Context, serviceRequestID string) ([]domain.ServiceRequestEvent, error) {
	const query = `
        SELECT id, service_request_id, status, message, actor, occurred_at
        FROM service_request_events
        WHERE service_request_id=$1
        ORDER BY seq ASC`

	rows, err := r.pool.Query(ctx, query, serviceRequestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ServiceRequestEvent
	for rows.Next() {
		var event domain.ServiceRequestEvent
		if err := rows.Scan(
			&event.ID,
			&event.ServiceRequestID,
			&event.Status,
			&event.Message,
			&event.Actor,
			&event.OccurredAt,
		); err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}

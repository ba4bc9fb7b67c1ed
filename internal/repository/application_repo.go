package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-app-console/internal/model"
	"go-app-console/pkg/apierror"
)

// ApplicationRepository persists application records and their
// authorized-user membership set. Every user-scoped query filters by
// membership, so a record that exists but is not owned by the caller is
// indistinguishable from one that does not exist.
type ApplicationRepository struct {
	pool *pgxpool.Pool
}

func NewApplicationRepository(pool *pgxpool.Pool) *ApplicationRepository {
	return &ApplicationRepository{pool: pool}
}

const applicationSelect = `
	SELECT a.id, a.name, a.description, a.status, a.secret_key, a.created_at, a.updated_at,
	       COALESCE(array_agg(au.user_id) FILTER (WHERE au.user_id IS NOT NULL), '{}')
	FROM applications a
	LEFT JOIN application_users au ON au.application_id = a.id`

func scanApplication(row pgx.Row) (model.Application, error) {
	var a model.Application
	err := row.Scan(&a.ID, &a.Name, &a.Description, &a.Status, &a.SecretKey,
		&a.CreatedAt, &a.UpdatedAt, &a.UserIDs)
	return a, err
}

// FindByID loads an application without membership scoping. It exists for
// the application-key guard, which identifies the application from a token
// payload rather than from a signed-in user.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (model.Application, error) {
	a, err := scanApplication(r.pool.QueryRow(ctx,
		applicationSelect+` WHERE a.id = $1 GROUP BY a.id`, id))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Application{}, apierror.NotFound("application not found", "")
	}
	if err != nil {
		return model.Application{}, fmt.Errorf("find application by id: %w", err)
	}
	return a, nil
}

func (r *ApplicationRepository) FindForUser(ctx context.Context, id string, userID string) (model.Application, error) {
	a, err := scanApplication(r.pool.QueryRow(ctx,
		applicationSelect+`
		WHERE a.id = $1
		  AND EXISTS (SELECT 1 FROM application_users m
		              WHERE m.application_id = a.id AND m.user_id = $2)
		GROUP BY a.id`, id, userID))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Application{}, apierror.NotFound("application not found", "")
	}
	if err != nil {
		return model.Application{}, fmt.Errorf("find application for user: %w", err)
	}
	return a, nil
}

func (r *ApplicationRepository) ListForUser(ctx context.Context, userID string, query model.ListQuery) ([]model.Application, int, error) {
	query = query.Normalized()

	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM application_users WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}

	direction := "ASC"
	if query.Order == "desc" {
		direction = "DESC"
	}

	rows, err := r.pool.Query(ctx,
		applicationSelect+`
		WHERE EXISTS (SELECT 1 FROM application_users m
		              WHERE m.application_id = a.id AND m.user_id = $1)
		GROUP BY a.id
		ORDER BY a.id `+direction+`
		LIMIT $2 OFFSET $3`, userID, query.Limit, query.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	apps := make([]model.Application, 0)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, a)
	}
	return apps, total, rows.Err()
}

// Create inserts the application and seeds its membership set with the
// creating user in one transaction.
func (r *ApplicationRepository) Create(ctx context.Context, a model.Application, creatorID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create application: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO applications (id, name, description, status, secret_key, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.Name, a.Description, a.Status, a.SecretKey, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO application_users (application_id, user_id) VALUES ($1, $2)`,
		a.ID, creatorID)
	if err != nil {
		return fmt.Errorf("seed application membership: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *ApplicationRepository) UpdateForUser(ctx context.Context, id string, userID string, input model.UpdateApplicationRequest) (model.Application, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE applications a
		 SET name        = COALESCE($3, a.name),
		     description = COALESCE($4, a.description),
		     status      = COALESCE($5, a.status),
		     updated_at  = $6
		 WHERE a.id = $1
		   AND EXISTS (SELECT 1 FROM application_users m
		               WHERE m.application_id = a.id AND m.user_id = $2)`,
		id, userID, input.Name, input.Description, input.Status, time.Now().UTC())
	if err != nil {
		return model.Application{}, fmt.Errorf("update application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.Application{}, apierror.NotFound("application not found", "")
	}

	return r.FindForUser(ctx, id, userID)
}

func (r *ApplicationRepository) DeleteForUser(ctx context.Context, id string, userID string) (model.Application, error) {
	deleted, err := r.FindForUser(ctx, id, userID)
	if err != nil {
		return model.Application{}, err
	}

	tag, err := r.pool.Exec(ctx,
		`DELETE FROM applications a
		 WHERE a.id = $1
		   AND EXISTS (SELECT 1 FROM application_users m
		               WHERE m.application_id = a.id AND m.user_id = $2)`,
		id, userID)
	if err != nil {
		return model.Application{}, fmt.Errorf("delete application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.Application{}, apierror.NotFound("application not found", "")
	}
	return deleted, nil
}

// AddMember appends a user to the application's membership set. Duplicate
// invites are a no-op.
func (r *ApplicationRepository) AddMember(ctx context.Context, applicationID string, userID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO application_users (application_id, user_id)
		 VALUES ($1, $2)
		 ON CONFLICT (application_id, user_id) DO NOTHING`,
		applicationID, userID)
	if err != nil {
		return fmt.Errorf("add application member: %w", err)
	}
	return nil
}

func (r *ApplicationRepository) UpdateSecret(ctx context.Context, id string, secretKey string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE applications SET secret_key = $2, updated_at = $3 WHERE id = $1`,
		id, secretKey, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update application secret: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apierror.NotFound("application not found", "")
	}
	return nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/makkenzo/keyauth-service/internal/domain/credential"
	"github.com/makkenzo/keyauth-service/internal/ierr"
	"github.com/makkenzo/keyauth-service/internal/util"
	"go.uber.org/zap"
)

const publicColumns = `id, key, name, enabled, created_at, last_used_at`

type CredentialRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewCredentialRepository(db *pgxpool.Pool, logger *zap.Logger) *CredentialRepository {
	return &CredentialRepository{
		db:     db,
		logger: logger.Named("CredentialRepository"),
	}
}

var _ credential.Repository = (*CredentialRepository)(nil)

func (r *CredentialRepository) Create(ctx context.Context, cred *credential.Credential) (*credential.Credential, error) {
	query := `
		INSERT INTO credentials (key, secret, name, enabled, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	created := *cred
	err := r.db.QueryRow(ctx, query,
		cred.Key,
		cred.Secret,
		cred.Name,
		cred.Enabled,
		cred.CreatedAt,
	).Scan(&created.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.Warn("Failed to create credential due to unique constraint violation",
				zap.String("constraint", pgErr.ConstraintName),
				zap.String("key", util.MaskKey(cred.Key)),
			)
			return nil, fmt.Errorf("%w: credential key already exists", ierr.ErrConflict)
		}
		r.logger.Error("Failed to create credential in database", zap.Error(err))
		return nil, fmt.Errorf("db error creating credential: %w", err)
	}

	r.logger.Info("Credential created", zap.String("id", created.ID.String()), zap.String("key", util.MaskKey(cred.Key)))
	return &created, nil
}

func (r *CredentialRepository) FindByKey(ctx context.Context, key string) (*credential.Credential, error) {
	query := `
		SELECT id, key, secret, name, enabled, created_at, last_used_at
		FROM credentials
		WHERE key = $1 AND enabled = TRUE
	`
	var cred credential.Credential
	var lastUsed sql.NullTime
	err := r.db.QueryRow(ctx, query, key).Scan(
		&cred.ID,
		&cred.Key,
		&cred.Secret,
		&cred.Name,
		&cred.Enabled,
		&cred.CreatedAt,
		&lastUsed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Credential not found or disabled", zap.String("key", util.MaskKey(key)))
			return nil, credential.ErrCredentialNotFound
		}
		r.logger.Error("Failed to find credential by key", zap.String("key", util.MaskKey(key)), zap.Error(err))
		return nil, fmt.Errorf("db error finding credential: %w", err)
	}
	if lastUsed.Valid {
		cred.LastUsedAt = &lastUsed.Time
	}
	return &cred, nil
}

func (r *CredentialRepository) List(ctx context.Context) ([]*credential.Credential, error) {
	query := `SELECT ` + publicColumns + ` FROM credentials ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list credentials", zap.Error(err))
		return nil, fmt.Errorf("db error listing credentials: %w", err)
	}
	defer rows.Close()

	creds := make([]*credential.Credential, 0)
	for rows.Next() {
		cred, err := scanPublic(rows)
		if err != nil {
			r.logger.Error("Failed to scan credential row", zap.Error(err))
			return nil, fmt.Errorf("db error scanning credential: %w", err)
		}
		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error iterating credentials: %w", err)
	}
	return creds, nil
}

func (r *CredentialRepository) Disable(ctx context.Context, key string) (*credential.Credential, error) {
	query := `UPDATE credentials SET enabled = FALSE WHERE key = $1 RETURNING ` + publicColumns
	cred, err := scanPublic(r.db.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, credential.ErrCredentialNotFound
		}
		r.logger.Error("Failed to disable credential", zap.String("key", util.MaskKey(key)), zap.Error(err))
		return nil, fmt.Errorf("db error disabling credential: %w", err)
	}
	r.logger.Info("Credential disabled", zap.String("key", util.MaskKey(key)))
	return cred, nil
}

func (r *CredentialRepository) Delete(ctx context.Context, key string) (bool, error) {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM credentials WHERE key = $1`, key)
	if err != nil {
		r.logger.Error("Failed to delete credential", zap.String("key", util.MaskKey(key)), zap.Error(err))
		return false, fmt.Errorf("db error deleting credential: %w", err)
	}
	return cmdTag.RowsAffected() > 0, nil
}

func (r *CredentialRepository) UpdateLastUsed(ctx context.Context, key string, lastUsed time.Time) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE credentials SET last_used_at = $1 WHERE key = $2`, lastUsed, key)
	if err != nil {
		r.logger.Error("Failed to update credential last_used_at", zap.String("key", util.MaskKey(key)), zap.Error(err))
		return fmt.Errorf("db error updating last used time: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.Warn("Credential not found when updating last_used_at", zap.String("key", util.MaskKey(key)))
	}
	return nil
}

func scanPublic(row pgx.Row) (*credential.Credential, error) {
	var cred credential.Credential
	var lastUsed sql.NullTime
	if err := row.Scan(&cred.ID, &cred.Key, &cred.Name, &cred.Enabled, &cred.CreatedAt, &lastUsed); err != nil {
		return nil, err
	}
	if lastUsed.Valid {
		cred.LastUsedAt = &lastUsed.Time
	}
	return &cred, nil
}

package accounts

import (
	"context"
	"database/sql"
	"errors"

	"github.com/clintfred/ironoxide/internal/common"
	"github.com/clintfred/ironoxide/internal/dbx"
	"github.com/clintfred/ironoxide/internal/identity/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {

	query :=
		`INSERT INTO accounts (id, segment_id, master_public_key, wrapped_master_key, salt, needs_rotation, verified, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		account.ID, account.SegmentID, account.MasterPublicKey, account.WrappedMasterKey,
		account.Salt, account.NeedsRotation, account.Verified, account.Version).Scan(&account.CreatedAt)

	if err != nil {
		return nil, dbx.MapError(err)
	}

	return account, nil
}

func (r *PostgresRepository) Get(ctx context.Context, segmentID, accountID string) (*models.Account, error) {
	query :=
		`SELECT id, segment_id, master_public_key, wrapped_master_key, salt, needs_rotation, verified, version, created_at
		 FROM accounts
		 WHERE segment_id = $1 AND id = $2
		 `

	account := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, segmentID, accountID).Scan(
		&account.ID, &account.SegmentID, &account.MasterPublicKey, &account.WrappedMasterKey,
		&account.Salt, &account.NeedsRotation, &account.Verified, &account.Version, &account.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, dbx.MapError(err)
	}

	return account, nil
}

func (r *PostgresRepository) MarkVerified(ctx context.Context, segmentID, accountID string) error {
	query :=
		`UPDATE accounts SET verified = true
		 WHERE segment_id = $1 AND id = $2
		 `

	res, err := r.db.ExecContext(ctx, query, segmentID, accountID)
	if err != nil {
		return dbx.MapError(err)
	}
	return requireRow(res, common.ErrNotFound)
}

func (r *PostgresRepository) BumpVersion(ctx context.Context, segmentID, accountID string, expected int64) error {
	query :=
		`UPDATE accounts SET version = version + 1
		 WHERE segment_id = $1 AND id = $2 AND version = $3
		 `

	res, err := r.db.ExecContext(ctx, query, segmentID, accountID, expected)
	if err != nil {
		return dbx.MapError(err)
	}
	return requireRow(res, common.ErrStorageConflict)
}

func (r *PostgresRepository) CommitRotation(ctx context.Context, account *models.Account, expected int64) error {
	query :=
		`UPDATE accounts
		 SET master_public_key = $1, wrapped_master_key = $2, salt = $3,
		     needs_rotation = false, version = $4
		 WHERE segment_id = $5 AND id = $6 AND version = $7
		 `

	res, err := r.db.ExecContext(ctx, query,
		account.MasterPublicKey, account.WrappedMasterKey, account.Salt,
		account.Version, account.SegmentID, account.ID, expected)
	if err != nil {
		return dbx.MapError(err)
	}
	return requireRow(res, common.ErrStorageConflict)
}

// requireRow converts an update that matched no rows into missErr.
func requireRow(res sql.Result, missErr error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return dbx.MapError(err)
	}
	if n == 0 {
		return missErr
	}
	return nil
}

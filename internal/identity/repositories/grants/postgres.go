package grants

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

func (r *PostgresRepository) Create(ctx context.Context, grant *models.AccessGrant) (*models.AccessGrant, error) {

	query :=
		`INSERT INTO access_grants (document_id, account_id, segment_id, wrapped_content_key, account_version)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		grant.DocumentID, grant.AccountID, grant.SegmentID,
		grant.WrappedContentKey, grant.AccountVersion).Scan(&grant.CreatedAt)

	if err != nil {
		return nil, dbx.MapError(err)
	}

	return grant, nil
}

func (r *PostgresRepository) Get(ctx context.Context, segmentID, accountID, documentID string) (*models.AccessGrant, error) {
	query :=
		`SELECT document_id, account_id, segment_id, wrapped_content_key, account_version, created_at
		 FROM access_grants
		 WHERE segment_id = $1 AND account_id = $2 AND document_id = $3
		 `

	g := &models.AccessGrant{}
	err := r.db.QueryRowContext(ctx, query, segmentID, accountID, documentID).Scan(
		&g.DocumentID, &g.AccountID, &g.SegmentID, &g.WrappedContentKey,
		&g.AccountVersion, &g.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, dbx.MapError(err)
	}

	return g, nil
}

func (r *PostgresRepository) ListByAccount(ctx context.Context, segmentID, accountID string) ([]*models.AccessGrant, error) {
	query :=
		`SELECT document_id, account_id, segment_id, wrapped_content_key, account_version, created_at
		 FROM access_grants
		 WHERE segment_id = $1 AND account_id = $2
		 ORDER BY created_at, document_id
		 `

	rows, err := r.db.QueryContext(ctx, query, segmentID, accountID)
	if err != nil {
		return nil, dbx.MapError(err)
	}
	defer rows.Close()

	var result []*models.AccessGrant
	for rows.Next() {
		g := &models.AccessGrant{}
		if err := rows.Scan(&g.DocumentID, &g.AccountID, &g.SegmentID,
			&g.WrappedContentKey, &g.AccountVersion, &g.CreatedAt); err != nil {
			return nil, dbx.MapError(err)
		}
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.MapError(err)
	}

	return result, nil
}

func (r *PostgresRepository) UpdateWrap(ctx context.Context, segmentID, accountID, documentID string, wrappedContentKey []byte, accountVersion int64) error {
	query :=
		`UPDATE access_grants SET wrapped_content_key = $1, account_version = $2
		 WHERE segment_id = $3 AND account_id = $4 AND document_id = $5
		 `

	res, err := r.db.ExecContext(ctx, query, wrappedContentKey, accountVersion, segmentID, accountID, documentID)
	if err != nil {
		return dbx.MapError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return dbx.MapError(err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

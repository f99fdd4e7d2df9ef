package devices

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

func (r *PostgresRepository) Create(ctx context.Context, device *models.Device) (*models.Device, error) {

	query :=
		`INSERT INTO devices (id, account_id, segment_id, name, device_public_key, signing_public_key, wrapped_access_key, account_version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		device.ID, device.AccountID, device.SegmentID, device.Name,
		device.DevicePublicKey, device.SigningPublicKey, device.WrappedAccessKey,
		device.AccountVersion).Scan(&device.CreatedAt)

	if err != nil {
		return nil, dbx.MapError(err)
	}

	return device, nil
}

func (r *PostgresRepository) ListByAccount(ctx context.Context, segmentID, accountID string) ([]*models.Device, error) {
	query :=
		`SELECT id, account_id, segment_id, name, device_public_key, signing_public_key, wrapped_access_key, account_version, created_at
		 FROM devices
		 WHERE segment_id = $1 AND account_id = $2
		 ORDER BY created_at, id
		 `

	rows, err := r.db.QueryContext(ctx, query, segmentID, accountID)
	if err != nil {
		return nil, dbx.MapError(err)
	}
	defer rows.Close()

	var result []*models.Device
	for rows.Next() {
		d := &models.Device{}
		if err := rows.Scan(&d.ID, &d.AccountID, &d.SegmentID, &d.Name,
			&d.DevicePublicKey, &d.SigningPublicKey, &d.WrappedAccessKey,
			&d.AccountVersion, &d.CreatedAt); err != nil {
			return nil, dbx.MapError(err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.MapError(err)
	}

	return result, nil
}

func (r *PostgresRepository) GetByPublicKey(ctx context.Context, segmentID, accountID string, devicePublicKey []byte) (*models.Device, error) {
	query :=
		`SELECT id, account_id, segment_id, name, device_public_key, signing_public_key, wrapped_access_key, account_version, created_at
		 FROM devices
		 WHERE segment_id = $1 AND account_id = $2 AND device_public_key = $3
		 `

	d := &models.Device{}
	err := r.db.QueryRowContext(ctx, query, segmentID, accountID, devicePublicKey).Scan(
		&d.ID, &d.AccountID, &d.SegmentID, &d.Name,
		&d.DevicePublicKey, &d.SigningPublicKey, &d.WrappedAccessKey,
		&d.AccountVersion, &d.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, dbx.MapError(err)
	}

	return d, nil
}

func (r *PostgresRepository) UpdateAccess(ctx context.Context, deviceID string, wrappedAccessKey []byte, accountVersion int64) error {
	query :=
		`UPDATE devices SET wrapped_access_key = $1, account_version = $2
		 WHERE id = $3
		 `

	res, err := r.db.ExecContext(ctx, query, wrappedAccessKey, accountVersion, deviceID)
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

package dbx

import (
	"context"
	"errors"
	"fmt"

	"github.com/clintfred/ironoxide/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the Postgres error code for unique_violation.
const pgUniqueViolation = "23505"

// MapError translates driver-level failures into the shared sentinel
// taxonomy: unique violations become common.ErrAlreadyExists and
// deadline/cancellation failures become the retryable common.ErrTimeout.
// Anything else is wrapped unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %v", common.ErrAlreadyExists, err)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", common.ErrTimeout, err)
	}

	return fmt.Errorf("db error: %w", err)
}

// Package repomanager wires repository constructors to a storage backend and
// owns the transaction boundary the services run read-modify-write sequences
// inside.
package repomanager

import (
	"context"

	"github.com/clintfred/ironoxide/internal/dbx"
	"github.com/clintfred/ironoxide/internal/identity/repositories/accounts"
	"github.com/clintfred/ironoxide/internal/identity/repositories/devices"
	"github.com/clintfred/ironoxide/internal/identity/repositories/grants"
)

// RepositoryManager hands out repositories bound to a handle. Pass Handle()
// for standalone operations, or the tx handed to a WithinTransaction closure
// for transactional ones. The in-memory implementation ignores the handle.
type RepositoryManager interface {
	Accounts(db dbx.DBTX) accounts.Repository
	Devices(db dbx.DBTX) devices.Repository
	Grants(db dbx.DBTX) grants.Repository

	// Handle returns the default non-transactional handle.
	Handle() dbx.DBTX

	// WithinTransaction runs fn atomically: all writes commit together or
	// none do.
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error

	// RunMigrations brings the schema up to date.
	RunMigrations(ctx context.Context) error
}

// Package cli implements the ironoxide command tree: account creation and
// verification, device provisioning, and master key rotation, driven against
// the configured store through an in-process backend.
package cli

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-jwt/jwt/v5"

	"github.com/clintfred/ironoxide/internal/identity/auth"
	"github.com/clintfred/ironoxide/internal/identity/config"
	"github.com/clintfred/ironoxide/internal/identity/repositories/repomanager"
	"github.com/clintfred/ironoxide/internal/identity/services"
	"github.com/clintfred/ironoxide/internal/logging"
)

// App wires configuration, storage and services together for the commands.
type App struct {
	cfg     *config.Config
	store   repomanager.RepositoryManager
	backend *services.Backend

	identity  *services.IdentityService
	documents *services.DocumentService
	key       *ecdsa.PrivateKey

	closeStore func() error
}

// readKeyFile is a test seam for loading the assertion key PEM.
var readKeyFile = os.ReadFile

func newApp(cfg *config.Config) (*App, error) {
	pemBytes, err := readKeyFile(cfg.AssertionKeyFile)
	if err != nil {
		return nil, fmt.Errorf("error reading assertion key: %w", err)
	}
	key, err := jwt.ParseECPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("error parsing assertion key: %w", err)
	}

	var store repomanager.RepositoryManager
	closeStore := func() error { return nil }
	if cfg.DatabaseDSN == "" {
		store = repomanager.NewInMemoryRepositoryManager()
	} else {
		pg, err := repomanager.NewPostgresRepositoryManager(cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		if err := pg.RunMigrations(context.Background()); err != nil {
			_ = pg.Close()
			return nil, err
		}
		store = pg
		closeStore = pg.Close
	}

	verifier := auth.NewVerifier(auth.VerifierConfig{
		ProjectID:   cfg.ProjectID,
		SegmentID:   cfg.SegmentID,
		TrustedKeys: map[int]*ecdsa.PublicKey{cfg.AssertionKeyID: &key.PublicKey},
	})

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	identity := services.NewIdentityService(store, verifier, logger)
	rotation := services.NewRotationService(store, logger)
	backend := services.NewBackend(store, identity, rotation, logger)
	documents := services.NewDocumentService(services.BlobStoreConfig{
		RootUser:     cfg.S3RootUser,
		RootPassword: cfg.S3RootPassword,
		Bucket:       cfg.S3Bucket,
		Region:       cfg.S3Region,
		BaseEndpoint: cfg.S3BaseEndpoint,
	})

	return &App{
		cfg:        cfg,
		store:      store,
		backend:    backend,
		identity:   identity,
		documents:  documents,
		key:        key,
		closeStore: closeStore,
	}, nil
}

func (a *App) Close() error {
	return a.closeStore()
}

// token mints an assertion for subject using the configured tenant scope.
func (a *App) token(subject string) (string, error) {
	p := auth.AssertionParams{
		ProjectID: a.cfg.ProjectID,
		SegmentID: a.cfg.SegmentID,
		KeyID:     a.cfg.AssertionKeyID,
	}
	return auth.GenerateToken(a.key, p, subject, a.cfg.AssertionValidityDuration)
}

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oshokin/home-alarm/internal/classifier"
	"github.com/oshokin/home-alarm/internal/config"
	"github.com/oshokin/home-alarm/internal/logger"
	repo "github.com/oshokin/home-alarm/internal/repository/state"
	"github.com/oshokin/home-alarm/internal/service/security"
)

// errUnknownDriver is returned by the factories for drivers Validate would reject.
var errUnknownDriver = errors.New("unknown driver")

// nopCloser is the closer for backends without resources to release.
type nopCloser struct{}

// Close implements io.Closer.
func (nopCloser) Close() error { return nil }

// openRepository opens the storage backend selected in settings. The returned
// closer is never nil.
func openRepository(ctx context.Context, storage config.Storage) (repo.Repository, io.Closer, error) {
	switch storage.Driver {
	case config.StorageMemory:
		logger.Info(ctx, "Using in-memory storage, state is lost on restart")

		return repo.NewMemoryRepository(), nopCloser{}, nil
	case config.StorageFile:
		repository, err := repo.OpenFileRepository(storage.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open state file: %w", err)
		}

		return repository, nopCloser{}, nil
	case config.StorageBadger:
		repository, err := repo.OpenBadgerRepository(storage.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open state database: %w", err)
		}

		return repository, repository, nil
	default:
		return nil, nil, fmt.Errorf("%w: storage %q", errUnknownDriver, storage.Driver)
	}
}

// newClassifier builds the cat detector selected in settings.
func newClassifier(settings config.Classifier) (security.Classifier, error) {
	switch settings.Driver {
	case config.ClassifierRandom:
		seed := uint64(time.Now().UnixNano()) //nolint:gosec // Time is positive.

		return classifier.NewRandom(seed, seed>>1), nil
	case config.ClassifierStatic:
		return classifier.Static{Verdict: settings.Verdict}, nil
	default:
		return nil, fmt.Errorf("%w: classifier %q", errUnknownDriver, settings.Driver)
	}
}

// newEngine wires the repository and classifier into an engine configured from settings.
func newEngine(settings *config.Config, repository repo.Repository, detector security.Classifier) (*security.Engine, error) {
	policies, err := security.PoliciesFromConfig(settings.Policy)
	if err != nil {
		return nil, err
	}

	return security.NewEngine(
		repository,
		detector,
		security.WithPolicies(policies),
		security.WithConfidenceThreshold(settings.Classifier.ConfidenceThreshold),
	), nil
}

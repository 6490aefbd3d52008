package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/jaennil/guide_helper/backend/offline/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/offline/pkg/logger"
	"github.com/jaennil/guide_helper/backend/offline/pkg/metrics"
)

type LifecycleUseCase struct {
	storage    cache.Storage
	version    string
	controller Controller
	logger     logger.Logger
}

func NewLifecycleUseCase(storage cache.Storage, version string, controller Controller, l logger.Logger) *LifecycleUseCase {
	return &LifecycleUseCase{
		storage:    storage,
		version:    version,
		controller: controller,
		logger:     l,
	}
}

// Activate deletes every cache version except the current one, then claims
// the controller. The claim happens even when a deletion fails.
func (uc *LifecycleUseCase) Activate(ctx context.Context) ([]string, error) {
	uc.logger.Info("activating offline cache", "version", uc.version)

	var (
		deleted []string
		errs    []error
	)

	versions, err := uc.storage.Versions(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("list cache versions: %w", err))
	}

	for _, v := range versions {
		if v == uc.version {
			continue
		}

		ok, err := uc.storage.DeleteVersion(ctx, v)
		if err != nil {
			errs = append(errs, fmt.Errorf("delete cache version %q: %w", v, err))
			continue
		}
		if ok {
			uc.logger.Info("deleted old cache", "version", v)
			metrics.CacheVersionsDeleted.Inc()
			deleted = append(deleted, v)
		}
	}

	if uc.controller != nil {
		if err := uc.controller.Claim(ctx); err != nil {
			errs = append(errs, fmt.Errorf("claim clients: %w", err))
		}
	}

	return deleted, errors.Join(errs...)
}

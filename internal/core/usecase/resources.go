package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brainquest/learning-platform/internal/core/domain"
	"github.com/brainquest/learning-platform/internal/core/ports"
)

// ResourceQueryUseCase is the read side: soft-deleted resources are
// filtered out by the repository on every path.
type ResourceQueryUseCase struct {
	repo ports.ResourceRepository
}

func NewResourceQueryUseCase(repo ports.ResourceRepository) *ResourceQueryUseCase {
	return &ResourceQueryUseCase{repo: repo}
}

func (uc *ResourceQueryUseCase) GetByID(ctx context.Context, id string) (*domain.Resource, error) {
	res, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.IsDeleted {
		return nil, domain.WrapError(domain.ErrResourceNotFound, "get resource", fmt.Errorf("resource %s is deleted", id))
	}
	return res, nil
}

func (uc *ResourceQueryUseCase) List(ctx context.Context, filter domain.ResourceFilter) ([]domain.Resource, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}

	items, err := uc.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list resources: %w", err)
	}
	total, err := uc.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count resources: %w", err)
	}
	return items, total, nil
}

// DeleteResourceUseCase soft-deletes by default: the row disappears from
// read paths but stored bytes stay until a permanent delete is requested.
type DeleteResourceUseCase struct {
	repo    ports.ResourceRepository
	storage ports.ObjectStorage
}

func NewDeleteResourceUseCase(repo ports.ResourceRepository, storage ports.ObjectStorage) *DeleteResourceUseCase {
	return &DeleteResourceUseCase{repo: repo, storage: storage}
}

func (uc *DeleteResourceUseCase) Delete(ctx context.Context, id string, permanent bool) error {
	res, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !permanent {
		if res.IsDeleted {
			return domain.WrapError(domain.ErrResourceNotFound, "delete resource", fmt.Errorf("resource %s is already deleted", id))
		}
		return uc.repo.SoftDelete(ctx, id)
	}

	if err := uc.repo.DeletePermanently(ctx, id); err != nil {
		return err
	}
	if !res.IsRemote() {
		if err := uc.storage.Remove(ctx, res.StorageKey); err != nil {
			// Row is already gone; the orphaned file is only worth a warning.
			slog.Warn("storage_cleanup_failed", "resource_id", id, "storage_key", res.StorageKey, "error", err)
		}
	}
	return nil
}

package storage

import (
	"context"

	"gorm.io/gorm"

	"pilotforce-server-go/internal/platform/errors"
)

// ResourceRepository persists uploaded file records.
type ResourceRepository struct {
	db *gorm.DB
}

func NewResourceRepository(db *gorm.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

func (r *ResourceRepository) Create(ctx context.Context, resource *Resource) error {
	if err := r.db.WithContext(ctx).Create(resource).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "resource.create", "failed to create resource", err)
	}
	return nil
}

func (r *ResourceRepository) Update(ctx context.Context, resource *Resource) error {
	if err := r.db.WithContext(ctx).Save(resource).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "resource.update", "failed to update resource", err)
	}
	return nil
}

func (r *ResourceRepository) FindByResourceID(ctx context.Context, resourceID string) (*Resource, error) {
	var model Resource
	if err := r.db.WithContext(ctx).Where("resource_id = ?", resourceID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(errors.KindStorage, "resource.find_by_resource_id", "failed to find resource", err)
	}
	return &model, nil
}

func (r *ResourceRepository) FindByObjectKey(ctx context.Context, objectKey string) (*Resource, error) {
	var model Resource
	if err := r.db.WithContext(ctx).Where("object_key = ?", objectKey).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(errors.KindStorage, "resource.find_by_object_key", "failed to find resource", err)
	}
	return &model, nil
}

// ListByBooking returns active resources attached to one booking.
func (r *ResourceRepository) ListByBooking(ctx context.Context, bookingID string) ([]Resource, error) {
	var models []Resource
	if err := r.db.WithContext(ctx).
		Where("booking_id = ? AND status = ?", bookingID, "active").
		Order("created_at desc").
		Find(&models).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "resource.list_by_booking", "failed to list resources", err)
	}
	return models, nil
}

func (r *ResourceRepository) Delete(ctx context.Context, resourceID string) error {
	if err := r.db.WithContext(ctx).Where("resource_id = ?", resourceID).Delete(&Resource{}).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "resource.delete", "failed to delete resource", err)
	}
	return nil
}

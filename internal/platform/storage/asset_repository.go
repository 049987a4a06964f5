package storage

import (
	"context"

	"gorm.io/gorm"

	"pilotforce-server-go/internal/platform/errors"
)

// AssetRepository persists surveyable sites.
type AssetRepository struct {
	db *gorm.DB
}

func NewAssetRepository(db *gorm.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

func (r *AssetRepository) Create(ctx context.Context, asset *Asset) error {
	if err := r.db.WithContext(ctx).Create(asset).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "asset.create", "failed to create asset", err)
	}
	return nil
}

func (r *AssetRepository) Update(ctx context.Context, asset *Asset) error {
	if err := r.db.WithContext(ctx).Save(asset).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "asset.update", "failed to update asset", err)
	}
	return nil
}

func (r *AssetRepository) FindByAssetID(ctx context.Context, assetID string) (*Asset, error) {
	var model Asset
	if err := r.db.WithContext(ctx).Where("asset_id = ?", assetID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(errors.KindStorage, "asset.find_by_asset_id", "failed to find asset", err)
	}
	return &model, nil
}

// ListByCompany returns a company's active assets.
func (r *AssetRepository) ListByCompany(ctx context.Context, companyID string) ([]Asset, error) {
	var models []Asset
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND status = ?", companyID, "active").
		Order("name asc").
		Find(&models).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "asset.list_by_company", "failed to list assets", err)
	}
	return models, nil
}

func (r *AssetRepository) ListAll(ctx context.Context) ([]Asset, error) {
	var models []Asset
	if err := r.db.WithContext(ctx).Order("name asc").Find(&models).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "asset.list_all", "failed to list assets", err)
	}
	return models, nil
}

func (r *AssetRepository) Delete(ctx context.Context, assetID string) error {
	if err := r.db.WithContext(ctx).Where("asset_id = ?", assetID).Delete(&Asset{}).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "asset.delete", "failed to delete asset", err)
	}
	return nil
}

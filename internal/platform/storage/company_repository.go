package storage

import (
	"context"

	"gorm.io/gorm"

	"pilotforce-server-go/internal/platform/errors"
)

// CompanyRepository persists client companies.
type CompanyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

func (r *CompanyRepository) Create(ctx context.Context, company *Company) error {
	if err := r.db.WithContext(ctx).Create(company).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "company.create", "failed to create company", err)
	}
	return nil
}

func (r *CompanyRepository) Update(ctx context.Context, company *Company) error {
	if err := r.db.WithContext(ctx).Save(company).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "company.update", "failed to update company", err)
	}
	return nil
}

func (r *CompanyRepository) FindByCompanyID(ctx context.Context, companyID string) (*Company, error) {
	var model Company
	if err := r.db.WithContext(ctx).Where("company_id = ?", companyID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(errors.KindStorage, "company.find_by_company_id", "failed to find company", err)
	}
	return &model, nil
}

// FindByEmailDomain matches signups to an existing company by mail domain.
func (r *CompanyRepository) FindByEmailDomain(ctx context.Context, domain string) (*Company, error) {
	var model Company
	if err := r.db.WithContext(ctx).Where("email_domain = ?", domain).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(errors.KindStorage, "company.find_by_email_domain", "failed to find company", err)
	}
	return &model, nil
}

func (r *CompanyRepository) List(ctx context.Context) ([]Company, error) {
	var models []Company
	if err := r.db.WithContext(ctx).Order("name asc").Find(&models).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "company.list", "failed to list companies", err)
	}
	return models, nil
}

func (r *CompanyRepository) Delete(ctx context.Context, companyID string) error {
	if err := r.db.WithContext(ctx).Where("company_id = ?", companyID).Delete(&Company{}).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "company.delete", "failed to delete company", err)
	}
	return nil
}

package storage

import (
	"context"

	"gorm.io/gorm"

	"pilotforce-server-go/internal/platform/errors"
)

// BookingRepository persists flight bookings.
type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, booking *Booking) error {
	if err := r.db.WithContext(ctx).Create(booking).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "booking.create", "failed to create booking", err)
	}
	return nil
}

func (r *BookingRepository) Update(ctx context.Context, booking *Booking) error {
	if err := r.db.WithContext(ctx).Save(booking).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "booking.update", "failed to update booking", err)
	}
	return nil
}

func (r *BookingRepository) FindByBookingID(ctx context.Context, bookingID string) (*Booking, error) {
	var model Booking
	if err := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(errors.KindStorage, "booking.find_by_booking_id", "failed to find booking", err)
	}
	return &model, nil
}

// ListByCompany returns bookings for one company, newest first.
func (r *BookingRepository) ListByCompany(ctx context.Context, companyID string) ([]Booking, error) {
	var models []Booking
	if err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at desc").
		Find(&models).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "booking.list_by_company", "failed to list bookings", err)
	}
	return models, nil
}

// ListAll returns every booking across companies, for admin views.
func (r *BookingRepository) ListAll(ctx context.Context) ([]Booking, error) {
	var models []Booking
	if err := r.db.WithContext(ctx).Order("created_at desc").Find(&models).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "booking.list_all", "failed to list bookings", err)
	}
	return models, nil
}

func (r *BookingRepository) Delete(ctx context.Context, bookingID string) error {
	if err := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).Delete(&Booking{}).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "booking.delete", "failed to delete booking", err)
	}
	return nil
}

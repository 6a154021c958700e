package repository

import (
	"context"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/models"
	"gorm.io/gorm"
)

// BookingRepository reads the booking registry replica. There is no write path.
type BookingRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Booking, error)
	FindByIDs(ctx context.Context, ids []uint) (map[uint]models.Booking, error)
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]models.Booking, error) {
	out := make(map[uint]models.Booking, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var bookings []models.Booking
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&bookings).Error; err != nil {
		return nil, err
	}
	for _, b := range bookings {
		out[b.ID] = b
	}
	return out, nil
}

package repository

import (
	"context"
	"time"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/models"
	"gorm.io/gorm"
)

type MeetingRepository interface {
	Create(ctx context.Context, tx *gorm.DB, meeting *models.Meeting) error
	FindByID(ctx context.Context, id uint) (*models.Meeting, error)
	FindActiveByBooking(ctx context.Context, tx *gorm.DB, bookingID uint) (*models.Meeting, error)
	FindLatestByBooking(ctx context.Context, bookingID uint) (*models.Meeting, error)
	FindActiveBySession(ctx context.Context, sessionNumber string) (*models.Meeting, error)
	MarkEnded(ctx context.Context, tx *gorm.DB, id uint, endedAt time.Time, duration int, recordingURL string) (bool, error)
	ListEnded(ctx context.Context) ([]models.Meeting, error)
	ListEndedWithRecording(ctx context.Context) ([]models.Meeting, error)
	Count(ctx context.Context) (int64, error)
	GetDB() *gorm.DB
}

type meetingRepository struct {
	db *gorm.DB
}

func NewMeetingRepository(db *gorm.DB) MeetingRepository {
	return &meetingRepository{db: db}
}

func (r *meetingRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *meetingRepository) Create(ctx context.Context, tx *gorm.DB, meeting *models.Meeting) error {
	return tx.WithContext(ctx).Create(meeting).Error
}

func (r *meetingRepository) FindByID(ctx context.Context, id uint) (*models.Meeting, error) {
	var meeting models.Meeting
	if err := r.db.WithContext(ctx).First(&meeting, id).Error; err != nil {
		return nil, err
	}
	return &meeting, nil
}

func (r *meetingRepository) FindActiveByBooking(ctx context.Context, tx *gorm.DB, bookingID uint) (*models.Meeting, error) {
	var meeting models.Meeting
	err := tx.WithContext(ctx).
		Where("booking_id = ? AND status = ?", bookingID, models.MeetingActive).
		First(&meeting).Error
	if err != nil {
		return nil, err
	}
	return &meeting, nil
}

// FindLatestByBooking returns the most recently created meeting for a booking,
// active or not.
func (r *meetingRepository) FindLatestByBooking(ctx context.Context, bookingID uint) (*models.Meeting, error) {
	var meeting models.Meeting
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("id DESC").
		First(&meeting).Error
	if err != nil {
		return nil, err
	}
	return &meeting, nil
}

func (r *meetingRepository) FindActiveBySession(ctx context.Context, sessionNumber string) (*models.Meeting, error) {
	var meeting models.Meeting
	err := r.db.WithContext(ctx).
		Where("external_session_id = ? AND status = ?", sessionNumber, models.MeetingActive).
		First(&meeting).Error
	if err != nil {
		return nil, err
	}
	return &meeting, nil
}

// MarkEnded flips an active meeting to ended. It reports false when the
// meeting was not active anymore.
func (r *meetingRepository) MarkEnded(ctx context.Context, tx *gorm.DB, id uint, endedAt time.Time, duration int, recordingURL string) (bool, error) {
	updates := map[string]any{
		"status":           models.MeetingEnded,
		"ended_at":         endedAt,
		"duration_minutes": duration,
		"updated_at":       endedAt,
	}
	if recordingURL != "" {
		updates["recording_url"] = recordingURL
	}
	res := tx.WithContext(ctx).
		Model(&models.Meeting{}).
		Where("id = ? AND status = ?", id, models.MeetingActive).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *meetingRepository) ListEnded(ctx context.Context) ([]models.Meeting, error) {
	var meetings []models.Meeting
	err := r.db.WithContext(ctx).
		Where("status = ?", models.MeetingEnded).
		Order("ended_at ASC, id ASC").
		Find(&meetings).Error
	return meetings, err
}

func (r *meetingRepository) ListEndedWithRecording(ctx context.Context) ([]models.Meeting, error) {
	var meetings []models.Meeting
	err := r.db.WithContext(ctx).
		Preload("Booking").
		Where("status = ? AND recording_url <> ''", models.MeetingEnded).
		Order("ended_at DESC, id DESC").
		Find(&meetings).Error
	return meetings, err
}

func (r *meetingRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Meeting{}).Count(&count).Error
	return count, err
}

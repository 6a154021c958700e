package repository

import (
	"context"
	"time"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/models"
	"gorm.io/gorm"
)

type WaitingRepository interface {
	Create(ctx context.Context, entry *models.WaitingEntry) error
	FindByID(ctx context.Context, id uint) (*models.WaitingEntry, error)
	FindPending(ctx context.Context, meetingID uint, email string) (*models.WaitingEntry, error)
	FindLatest(ctx context.Context, meetingID uint, email string) (*models.WaitingEntry, error)
	ListByMeeting(ctx context.Context, meetingID uint, status *models.WaitingStatus) ([]models.WaitingEntry, error)
	Decide(ctx context.Context, id uint, from, to models.WaitingStatus, decidedAt time.Time) (bool, error)
	CountPendingInActiveMeetings(ctx context.Context) (int64, error)
}

type waitingRepository struct {
	db *gorm.DB
}

func NewWaitingRepository(db *gorm.DB) WaitingRepository {
	return &waitingRepository{db: db}
}

func (r *waitingRepository) Create(ctx context.Context, entry *models.WaitingEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *waitingRepository) FindByID(ctx context.Context, id uint) (*models.WaitingEntry, error) {
	var entry models.WaitingEntry
	if err := r.db.WithContext(ctx).First(&entry, id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *waitingRepository) FindPending(ctx context.Context, meetingID uint, email string) (*models.WaitingEntry, error) {
	var entry models.WaitingEntry
	err := r.db.WithContext(ctx).
		Where("meeting_id = ? AND visitor_email = ? AND status = ?", meetingID, email, models.WaitingPending).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *waitingRepository) FindLatest(ctx context.Context, meetingID uint, email string) (*models.WaitingEntry, error) {
	var entry models.WaitingEntry
	err := r.db.WithContext(ctx).
		Where("meeting_id = ? AND visitor_email = ?", meetingID, email).
		Order("id DESC").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *waitingRepository) ListByMeeting(ctx context.Context, meetingID uint, status *models.WaitingStatus) ([]models.WaitingEntry, error) {
	var entries []models.WaitingEntry
	q := r.db.WithContext(ctx).Where("meeting_id = ?", meetingID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	if err := q.Order("requested_at ASC, id ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Decide moves an entry from one status to another only if it is still in
// from. The boolean is false when another decision got there first.
func (r *waitingRepository) Decide(ctx context.Context, id uint, from, to models.WaitingStatus, decidedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.WaitingEntry{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"decided_at": decidedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *waitingRepository) CountPendingInActiveMeetings(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.WaitingEntry{}).
		Joins("JOIN meetings ON meetings.id = waiting_entries.meeting_id").
		Where("waiting_entries.status = ? AND meetings.status = ?", models.WaitingPending, models.MeetingActive).
		Count(&count).Error
	return count, err
}

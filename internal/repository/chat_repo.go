package repository

import (
	"context"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/models"
	"gorm.io/gorm"
)

type ChatRepository interface {
	CreateMessage(ctx context.Context, msg *models.ChatMessage) error
	ListMessages(ctx context.Context, meetingID uint, afterID uint) ([]models.ChatMessage, error)
	CreateFile(ctx context.Context, file *models.FileAttachment) error
	ListFiles(ctx context.Context, meetingID uint) ([]models.FileAttachment, error)
}

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) CreateMessage(ctx context.Context, msg *models.ChatMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// ListMessages returns the meeting history in posting order, optionally only
// the part after a message id the caller has already seen.
func (r *chatRepository) ListMessages(ctx context.Context, meetingID uint, afterID uint) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	q := r.db.WithContext(ctx).Where("meeting_id = ?", meetingID)
	if afterID > 0 {
		q = q.Where("id > ?", afterID)
	}
	if err := q.Order("created_at ASC, id ASC").Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *chatRepository) CreateFile(ctx context.Context, file *models.FileAttachment) error {
	return r.db.WithContext(ctx).Create(file).Error
}

func (r *chatRepository) ListFiles(ctx context.Context, meetingID uint) ([]models.FileAttachment, error) {
	var files []models.FileAttachment
	err := r.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		Order("created_at ASC, id ASC").
		Find(&files).Error
	return files, err
}

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/models"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/repository"
	"github.com/Eursukkul/booking-microservice/meeting-service/pkg/storage"
	"gorm.io/gorm"
)

const maxMessageLength = 4000

type ChatService interface {
	PostMessage(ctx context.Context, meetingID uint, role models.SenderRole, senderName, content string) (*models.ChatMessage, error)
	ListMessages(ctx context.Context, meetingID uint, afterID uint) ([]models.ChatMessage, error)
	PostFile(ctx context.Context, meetingID uint, uploadedBy, fileName, contentType string, r io.Reader) (*models.FileAttachment, error)
	AttachFile(ctx context.Context, meetingID uint, uploadedBy, fileURL string) (*models.FileAttachment, error)
	ListFiles(ctx context.Context, meetingID uint) ([]models.FileAttachment, error)
}

type chatService struct {
	chatRepo    repository.ChatRepository
	meetingRepo repository.MeetingRepository
	store       storage.Store
	now         func() time.Time
}

func NewChatService(chatRepo repository.ChatRepository, meetingRepo repository.MeetingRepository, store storage.Store) ChatService {
	return &chatService{
		chatRepo:    chatRepo,
		meetingRepo: meetingRepo,
		store:       store,
		now:         utcNow,
	}
}

func (s *chatService) PostMessage(ctx context.Context, meetingID uint, role models.SenderRole, senderName, content string) (*models.ChatMessage, error) {
	if !role.Valid() {
		return nil, invalid("sender_role", "must be operator, visitor or system")
	}
	senderName = strings.TrimSpace(senderName)
	if senderName == "" {
		return nil, invalid("sender_name", "is required")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalid("content", "is required")
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return nil, invalid("content", fmt.Sprintf("must be at most %d characters", maxMessageLength))
	}
	if err := s.requireActive(ctx, meetingID); err != nil {
		return nil, err
	}

	msg := &models.ChatMessage{
		MeetingID:  meetingID,
		SenderRole: role,
		SenderName: senderName,
		Content:    content,
		CreatedAt:  s.now(),
	}
	if err := s.chatRepo.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return msg, nil
}

func (s *chatService) ListMessages(ctx context.Context, meetingID uint, afterID uint) ([]models.ChatMessage, error) {
	if _, err := s.findMeeting(ctx, meetingID); err != nil {
		return nil, err
	}
	return s.chatRepo.ListMessages(ctx, meetingID, afterID)
}

func (s *chatService) PostFile(ctx context.Context, meetingID uint, uploadedBy, fileName, contentType string, r io.Reader) (*models.FileAttachment, error) {
	uploadedBy = strings.TrimSpace(uploadedBy)
	if uploadedBy == "" {
		return nil, invalid("uploaded_by", "is required")
	}
	if strings.TrimSpace(fileName) == "" {
		return nil, invalid("file", "is required")
	}
	if s.store == nil {
		return nil, fmt.Errorf("%w: no attachment store configured", ErrExternalService)
	}
	if err := s.requireActive(ctx, meetingID); err != nil {
		return nil, err
	}

	obj, err := s.store.Save(ctx, fileName, r)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, invalid("file", err.Error())
		}
		return nil, fmt.Errorf("%w: store attachment: %v", ErrExternalService, err)
	}

	file := &models.FileAttachment{
		MeetingID:   meetingID,
		UploadedBy:  uploadedBy,
		FileName:    obj.Name,
		ContentType: contentType,
		Size:        obj.Size,
		URL:         obj.URL,
		CreatedAt:   s.now(),
	}
	if err := s.chatRepo.CreateFile(ctx, file); err != nil {
		if delErr := s.store.Delete(context.WithoutCancel(ctx), obj.Key); delErr != nil {
			log.Printf("[ChatService] could not remove orphaned upload %s: %v", obj.Key, delErr)
		}
		return nil, fmt.Errorf("create file: %w", err)
	}
	return file, nil
}

func (s *chatService) AttachFile(ctx context.Context, meetingID uint, uploadedBy, fileURL string) (*models.FileAttachment, error) {
	uploadedBy = strings.TrimSpace(uploadedBy)
	if uploadedBy == "" {
		return nil, invalid("uploaded_by", "is required")
	}
	u, err := url.Parse(strings.TrimSpace(fileURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, invalid("url", "must be an absolute http(s) URL")
	}
	if err := s.requireActive(ctx, meetingID); err != nil {
		return nil, err
	}

	name := u.Path
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	file := &models.FileAttachment{
		MeetingID:  meetingID,
		UploadedBy: uploadedBy,
		FileName:   name,
		URL:        u.String(),
		CreatedAt:  s.now(),
	}
	if err := s.chatRepo.CreateFile(ctx, file); err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	return file, nil
}

func (s *chatService) ListFiles(ctx context.Context, meetingID uint) ([]models.FileAttachment, error) {
	if _, err := s.findMeeting(ctx, meetingID); err != nil {
		return nil, err
	}
	return s.chatRepo.ListFiles(ctx, meetingID)
}

// requireActive rejects writes once the meeting has ended; its history is frozen.
func (s *chatService) requireActive(ctx context.Context, meetingID uint) error {
	meeting, err := s.findMeeting(ctx, meetingID)
	if err != nil {
		return err
	}
	if meeting.Status == models.MeetingEnded {
		return ErrMeetingAlreadyEnded
	}
	if !meeting.IsActive() {
		return ErrMeetingNotActive
	}
	return nil
}

func (s *chatService) findMeeting(ctx context.Context, meetingID uint) (*models.Meeting, error) {
	meeting, err := s.meetingRepo.FindByID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMeetingNotFound
		}
		return nil, err
	}
	return meeting, nil
}

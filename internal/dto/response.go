package dto

import (
	"time"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/jointoken"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/models"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/sdksig"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/service"
)

type ErrorResponse struct {
	Message string `json:"message"`
}

type BookingResponse struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Service string `json:"service"`
	Date    string `json:"date"`
	Time    string `json:"time"`
}

type MeetingResponse struct {
	ID              uint                 `json:"id"`
	BookingID       uint                 `json:"booking_id"`
	Status          models.MeetingStatus `json:"status"`
	SessionNumber   string               `json:"session_number"`
	StartedAt       *time.Time           `json:"started_at,omitempty"`
	EndedAt         *time.Time           `json:"ended_at,omitempty"`
	DurationMinutes int                  `json:"duration_minutes"`
	RecordingURL    string               `json:"recording_url,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
}

type SignatureResponse struct {
	Signature     string    `json:"signature"`
	SDKKey        string    `json:"sdk_key"`
	SessionNumber string    `json:"session_number"`
	Role          int       `json:"role"`
	ExpiresAt     time.Time `json:"expires_at"`
	MeetingID     uint      `json:"meeting_id,omitempty"`
	Password      string    `json:"password,omitempty"`
}

type JoinTokenResponse struct {
	BookingID uint      `json:"booking_id"`
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issued_at"`
	Expiry    time.Time `json:"expiry"`
	JoinURL   string    `json:"join_url"`
}

// StartMeetingResponse is only ever returned to the operator who started the
// meeting, so it carries the session password.
type StartMeetingResponse struct {
	Meeting       MeetingResponse   `json:"meeting"`
	Booking       BookingResponse   `json:"booking"`
	SDKKey        string            `json:"sdk_key"`
	Password      string            `json:"password"`
	HostSignature SignatureResponse `json:"host_signature"`
	JoinToken     JoinTokenResponse `json:"join_token"`
}

type JoinInfoResponse struct {
	MeetingID     uint                 `json:"meeting_id"`
	BookingID     uint                 `json:"booking_id"`
	Status        models.MeetingStatus `json:"status"`
	SessionNumber string               `json:"session_number"`
	SDKKey        string               `json:"sdk_key"`
	VisitorName   string               `json:"visitor_name"`
	VisitorEmail  string               `json:"visitor_email"`
	Service       string               `json:"service"`
	Date          string               `json:"date"`
	Time          string               `json:"time"`
}

type WaitingEntryResponse struct {
	ID           uint                 `json:"id"`
	MeetingID    uint                 `json:"meeting_id"`
	VisitorName  string               `json:"visitor_name"`
	VisitorEmail string               `json:"visitor_email"`
	Status       models.WaitingStatus `json:"status"`
	RequestedAt  time.Time            `json:"requested_at"`
	DecidedAt    *time.Time           `json:"decided_at,omitempty"`
}

type PendingCountResponse struct {
	Pending int64 `json:"pending"`
}

type MessageResponse struct {
	ID         uint              `json:"id"`
	MeetingID  uint              `json:"meeting_id"`
	SenderRole models.SenderRole `json:"sender_role"`
	SenderName string            `json:"sender_name"`
	Content    string            `json:"content"`
	CreatedAt  time.Time         `json:"created_at"`
}

type FileResponse struct {
	ID          uint      `json:"id"`
	MeetingID   uint      `json:"meeting_id"`
	UploadedBy  string    `json:"uploaded_by"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type,omitempty"`
	Size        int64     `json:"size"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}

type DailyPointResponse struct {
	Date     string `json:"date"`
	Meetings int    `json:"meetings"`
	Minutes  int    `json:"minutes"`
}

type SummaryResponse struct {
	TotalMeetings          int64                `json:"total_meetings"`
	CompletedMeetings      int                  `json:"completed_meetings"`
	TotalDurationMinutes   int                  `json:"total_duration_minutes"`
	AverageDurationMinutes float64              `json:"average_duration_minutes"`
	Daily                  []DailyPointResponse `json:"daily"`
	GeneratedAt            time.Time            `json:"generated_at"`
}

type RecordingResponse struct {
	MeetingID       uint       `json:"meeting_id"`
	BookingID       uint       `json:"booking_id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Service         string     `json:"service"`
	Date            string     `json:"date"`
	Time            string     `json:"time"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
	RecordingURL    string     `json:"recording_url"`
}

// SyncConfigResponse lists the polling intervals clients must use.
type SyncConfigResponse struct {
	AdmissionIntervalMS int64 `json:"admission_interval_ms"`
	ChatIntervalMS      int64 `json:"chat_interval_ms"`
	QueueIntervalMS     int64 `json:"queue_interval_ms"`
	CounterIntervalMS   int64 `json:"counter_interval_ms"`
}

func ToBookingResponse(b *models.Booking) BookingResponse {
	return BookingResponse{
		ID:      b.ID,
		Name:    b.Name,
		Email:   b.Email,
		Service: b.Service,
		Date:    b.Date,
		Time:    b.Time,
	}
}

func ToMeetingResponse(m *models.Meeting) MeetingResponse {
	return MeetingResponse{
		ID:              m.ID,
		BookingID:       m.BookingID,
		Status:          m.Status,
		SessionNumber:   m.ExternalSessionID,
		StartedAt:       m.StartedAt,
		EndedAt:         m.EndedAt,
		DurationMinutes: m.DurationMinutes,
		RecordingURL:    m.RecordingURL,
		CreatedAt:       m.CreatedAt,
	}
}

func ToSignatureResponse(s sdksig.Signature) SignatureResponse {
	return SignatureResponse{
		Signature:     s.Signature,
		SDKKey:        s.SDKKey,
		SessionNumber: s.SessionNumber,
		Role:          int(s.Role),
		ExpiresAt:     s.ExpiresAt,
	}
}

func ToJoinTokenResponse(t jointoken.Token, joinURL string) JoinTokenResponse {
	return JoinTokenResponse{
		BookingID: t.BookingID,
		Token:     t.Token,
		IssuedAt:  t.IssuedAt,
		Expiry:    t.Expiry,
		JoinURL:   joinURL,
	}
}

func ToStartMeetingResponse(r *service.StartResult, joinURL string) StartMeetingResponse {
	return StartMeetingResponse{
		Meeting:       ToMeetingResponse(r.Meeting),
		Booking:       ToBookingResponse(r.Booking),
		SDKKey:        r.HostSignature.SDKKey,
		Password:      r.Meeting.ExternalSessionSecret,
		HostSignature: ToSignatureResponse(r.HostSignature),
		JoinToken:     ToJoinTokenResponse(r.JoinToken, joinURL),
	}
}

func ToJoinInfoResponse(i *service.JoinInfo) JoinInfoResponse {
	return JoinInfoResponse{
		MeetingID:     i.MeetingID,
		BookingID:     i.BookingID,
		Status:        i.Status,
		SessionNumber: i.SessionNumber,
		SDKKey:        i.SDKKey,
		VisitorName:   i.VisitorName,
		VisitorEmail:  i.VisitorEmail,
		Service:       i.Service,
		Date:          i.Date,
		Time:          i.Time,
	}
}

func ToWaitingEntryResponse(e *models.WaitingEntry) WaitingEntryResponse {
	return WaitingEntryResponse{
		ID:           e.ID,
		MeetingID:    e.MeetingID,
		VisitorName:  e.VisitorName,
		VisitorEmail: e.VisitorEmail,
		Status:       e.Status,
		RequestedAt:  e.RequestedAt,
		DecidedAt:    e.DecidedAt,
	}
}

func ToMessageResponse(m *models.ChatMessage) MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		MeetingID:  m.MeetingID,
		SenderRole: m.SenderRole,
		SenderName: m.SenderName,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
	}
}

func ToFileResponse(f *models.FileAttachment) FileResponse {
	return FileResponse{
		ID:          f.ID,
		MeetingID:   f.MeetingID,
		UploadedBy:  f.UploadedBy,
		FileName:    f.FileName,
		ContentType: f.ContentType,
		Size:        f.Size,
		URL:         f.URL,
		CreatedAt:   f.CreatedAt,
	}
}

func ToSummaryResponse(s *service.Summary) SummaryResponse {
	daily := make([]DailyPointResponse, len(s.Daily))
	for i, p := range s.Daily {
		daily[i] = DailyPointResponse{Date: p.Date, Meetings: p.Meetings, Minutes: p.Minutes}
	}
	return SummaryResponse{
		TotalMeetings:          s.TotalMeetings,
		CompletedMeetings:      s.CompletedMeetings,
		TotalDurationMinutes:   s.TotalDurationMinutes,
		AverageDurationMinutes: s.AverageDurationMinutes,
		Daily:                  daily,
		GeneratedAt:            s.GeneratedAt,
	}
}

func ToRecordingResponse(r service.Recording) RecordingResponse {
	return RecordingResponse{
		MeetingID:       r.MeetingID,
		BookingID:       r.BookingID,
		Name:            r.Name,
		Email:           r.Email,
		Service:         r.Service,
		Date:            r.Date,
		Time:            r.Time,
		StartedAt:       r.StartedAt,
		EndedAt:         r.EndedAt,
		DurationMinutes: r.DurationMinutes,
		RecordingURL:    r.RecordingURL,
	}
}

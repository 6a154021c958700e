package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/models"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/repository"
)

type DailyPoint struct {
	Date     string
	Meetings int
	Minutes  int
}

type Summary struct {
	TotalMeetings          int64
	CompletedMeetings      int
	TotalDurationMinutes   int
	AverageDurationMinutes float64
	Daily                  []DailyPoint
	GeneratedAt            time.Time
}

// Recording is one row of the meeting × booking recordings view.
type Recording struct {
	MeetingID       uint
	BookingID       uint
	Name            string
	Email           string
	Service         string
	Date            string
	Time            string
	StartedAt       *time.Time
	EndedAt         *time.Time
	DurationMinutes int
	RecordingURL    string
}

type AnalyticsService interface {
	Summary(ctx context.Context) (*Summary, error)
	Recordings(ctx context.Context) ([]Recording, error)
	Refresh(ctx context.Context) error
}

// analyticsService is a read-side projection over meetings. The summary is
// cached and rebuilt on Refresh or once it is older than ttl.
type analyticsService struct {
	meetingRepo repository.MeetingRepository
	ttl         time.Duration
	now         func() time.Time

	mu     sync.RWMutex
	cached *Summary
}

func NewAnalyticsService(meetingRepo repository.MeetingRepository, ttl time.Duration) AnalyticsService {
	return &analyticsService{
		meetingRepo: meetingRepo,
		ttl:         ttl,
		now:         utcNow,
	}
}

func (s *analyticsService) Summary(ctx context.Context) (*Summary, error) {
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached != nil && s.ttl > 0 && s.now().Sub(cached.GeneratedAt) < s.ttl {
		out := *cached
		return &out, nil
	}

	summary, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}
	s.store(summary)
	out := *summary
	return &out, nil
}

func (s *analyticsService) Refresh(ctx context.Context) error {
	summary, err := s.compute(ctx)
	if err != nil {
		return err
	}
	s.store(summary)
	return nil
}

func (s *analyticsService) store(summary *Summary) {
	s.mu.Lock()
	if s.cached == nil || !summary.GeneratedAt.Before(s.cached.GeneratedAt) {
		s.cached = summary
	}
	s.mu.Unlock()
}

func (s *analyticsService) compute(ctx context.Context) (*Summary, error) {
	total, err := s.meetingRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count meetings: %w", err)
	}
	ended, err := s.meetingRepo.ListEnded(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ended meetings: %w", err)
	}

	summary := &Summary{
		TotalMeetings:     total,
		CompletedMeetings: len(ended),
		Daily:             []DailyPoint{},
		GeneratedAt:       s.now(),
	}

	byDay := make(map[string]*DailyPoint)
	for _, m := range ended {
		summary.TotalDurationMinutes += m.DurationMinutes

		day := meetingDay(m)
		p, ok := byDay[day]
		if !ok {
			p = &DailyPoint{Date: day}
			byDay[day] = p
		}
		p.Meetings++
		p.Minutes += m.DurationMinutes
	}
	if len(ended) > 0 {
		avg := float64(summary.TotalDurationMinutes) / float64(len(ended))
		summary.AverageDurationMinutes = math.Round(avg*10) / 10
	}

	for _, p := range byDay {
		summary.Daily = append(summary.Daily, *p)
	}
	sort.Slice(summary.Daily, func(i, j int) bool {
		return summary.Daily[i].Date < summary.Daily[j].Date
	})
	return summary, nil
}

func (s *analyticsService) Recordings(ctx context.Context) ([]Recording, error) {
	meetings, err := s.meetingRepo.ListEndedWithRecording(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	out := make([]Recording, 0, len(meetings))
	for _, m := range meetings {
		rec := Recording{
			MeetingID:       m.ID,
			BookingID:       m.BookingID,
			StartedAt:       m.StartedAt,
			EndedAt:         m.EndedAt,
			DurationMinutes: m.DurationMinutes,
			RecordingURL:    m.RecordingURL,
		}
		if m.Booking != nil {
			rec.Name = m.Booking.Name
			rec.Email = m.Booking.Email
			rec.Service = m.Booking.Service
			rec.Date = m.Booking.Date
			rec.Time = m.Booking.Time
		}
		out = append(out, rec)
	}
	return out, nil
}

func meetingDay(m models.Meeting) string {
	t := m.CreatedAt
	if m.StartedAt != nil {
		t = *m.StartedAt
	}
	return t.UTC().Format(time.DateOnly)
}

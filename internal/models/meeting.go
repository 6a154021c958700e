package models

import "time"

type MeetingStatus string

const (
	MeetingScheduled MeetingStatus = "scheduled"
	MeetingActive    MeetingStatus = "active"
	MeetingEnded     MeetingStatus = "ended"
)

type Meeting struct {
	ID                    uint          `gorm:"primaryKey" json:"id"`
	BookingID             uint          `gorm:"not null;index" json:"booking_id"`
	Status                MeetingStatus `gorm:"type:varchar(20);not null;default:'scheduled'" json:"status"`
	ExternalSessionID     string        `gorm:"type:varchar(32);not null;index" json:"external_session_id"`
	ExternalSessionSecret string        `gorm:"type:varchar(64);not null" json:"-"`
	StartedAt             *time.Time    `json:"started_at,omitempty"`
	EndedAt               *time.Time    `json:"ended_at,omitempty"`
	DurationMinutes       int           `gorm:"not null;default:0" json:"duration_minutes"`
	RecordingURL          string        `json:"recording_url,omitempty"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`

	Booking *Booking `gorm:"foreignKey:BookingID" json:"booking,omitempty"`
}

func (m *Meeting) IsActive() bool {
	return m.Status == MeetingActive
}

// DurationMinutes rounds the elapsed time to whole minutes and never goes negative.
func DurationMinutes(startedAt, endedAt time.Time) int {
	elapsed := endedAt.Sub(startedAt)
	if elapsed <= 0 {
		return 0
	}
	return int(elapsed.Round(time.Minute) / time.Minute)
}

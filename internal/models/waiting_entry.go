package models

import (
	"errors"
	"time"
)

type WaitingStatus string

const (
	WaitingPending  WaitingStatus = "waiting"
	WaitingAdmitted WaitingStatus = "admitted"
	WaitingRejected WaitingStatus = "rejected"
)

type Decision string

const (
	DecisionAdmit  Decision = "admit"
	DecisionReject Decision = "reject"
)

var (
	ErrTerminalStatus  = errors.New("waiting entry is already decided")
	ErrUnknownDecision = errors.New("unknown decision")
)

// Terminal reports whether no further transition is allowed from s.
func (s WaitingStatus) Terminal() bool {
	switch s {
	case WaitingAdmitted, WaitingRejected:
		return true
	}
	return false
}

func (s WaitingStatus) Valid() bool {
	return s == WaitingPending || s.Terminal()
}

// Transition is the only place a waiting status changes.
func (s WaitingStatus) Transition(d Decision) (WaitingStatus, error) {
	if s.Terminal() {
		return s, ErrTerminalStatus
	}
	switch d {
	case DecisionAdmit:
		return WaitingAdmitted, nil
	case DecisionReject:
		return WaitingRejected, nil
	}
	return s, ErrUnknownDecision
}

type WaitingEntry struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	MeetingID    uint          `gorm:"not null;index" json:"meeting_id"`
	VisitorName  string        `gorm:"not null" json:"visitor_name"`
	VisitorEmail string        `gorm:"not null" json:"visitor_email"`
	Status       WaitingStatus `gorm:"type:varchar(20);not null;default:'waiting'" json:"status"`
	RequestedAt  time.Time     `gorm:"not null" json:"requested_at"`
	DecidedAt    *time.Time    `json:"decided_at,omitempty"`
}

package service

import (
	"context"
	"log"
	"time"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/jointoken"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/sdksig"
)

// EventPublisher emits lifecycle notifications. Implemented by rabbitmq.Publisher.
type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

type SessionSigner interface {
	Sign(sessionNumber string, role sdksig.Role) (sdksig.Signature, error)
	SDKKey() string
}

type JoinTokens interface {
	Issue(bookingID uint) (jointoken.Token, error)
	Validate(token string, bookingID uint) (jointoken.Claims, error)
}

// AnalyticsRefresher is notified after a meeting ends.
type AnalyticsRefresher interface {
	Refresh(ctx context.Context) error
}

const (
	RoutingMeetingStarted  = "meeting.started"
	RoutingMeetingEnded    = "meeting.ended"
	RoutingWaitingAdmitted = "waiting.admitted"
	RoutingWaitingRejected = "waiting.rejected"
)

func publish(p EventPublisher, component, routingKey string, payload any) {
	if p == nil {
		return
	}
	if err := p.Publish(routingKey, payload); err != nil {
		log.Printf("[%s] publish %s failed: %v", component, routingKey, err)
	}
}

func utcNow() time.Time {
	return time.Now().UTC()
}

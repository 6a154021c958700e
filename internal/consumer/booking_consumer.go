package consumer

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	RoutingBookingCreated = "booking.created"
	RoutingBookingUpdated = "booking.updated"
)

type BookingConsumer struct {
	db *gorm.DB
}

func NewBookingConsumer(db *gorm.DB) *BookingConsumer {
	return &BookingConsumer{db: db}
}

// Start listens for messages and upserts bookings into the local replica.
func (bc *BookingConsumer) Start(msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			bc.handleMessage(msg)
		}
		log.Println("[BookingConsumer] channel closed, stopping consumer")
	}()
}

func (bc *BookingConsumer) handleMessage(msg amqp.Delivery) {
	switch msg.RoutingKey {
	case RoutingBookingCreated, RoutingBookingUpdated:
	default:
		log.Printf("[BookingConsumer] ignoring %s", msg.RoutingKey)
		msg.Ack(false)
		return
	}

	var booking models.Booking
	if err := json.Unmarshal(msg.Body, &booking); err != nil {
		log.Printf("[BookingConsumer] failed to unmarshal: %v", err)
		msg.Nack(false, false)
		return
	}
	booking.Name = strings.TrimSpace(booking.Name)
	booking.Email = strings.ToLower(strings.TrimSpace(booking.Email))
	if booking.ID == 0 || booking.Name == "" || booking.Email == "" {
		log.Printf("[BookingConsumer] dropping incomplete booking %d", booking.ID)
		msg.Nack(false, false)
		return
	}

	// Upsert: insert or update on conflict (same ID from the registry)
	result := bc.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "service", "date", "time", "updated_at"}),
	}).Create(&booking)

	if result.Error != nil {
		log.Printf("[BookingConsumer] failed to upsert booking %d: %v", booking.ID, result.Error)
		msg.Nack(false, true) // requeue
		return
	}

	log.Printf("[BookingConsumer] synced booking %d", booking.ID)
	msg.Ack(false)
}

package consumer

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/models"
	"github.com/Eursukkul/booking-microservice/meeting-service/pkg/database"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type ackRecorder struct {
	mu       sync.Mutex
	acks     int
	nacks    int
	requeued bool
}

func (a *ackRecorder) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks++
	return nil
}

func (a *ackRecorder) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks++
	a.requeued = requeue
	return nil
}

func (a *ackRecorder) acked() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.acks
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", filepath.Join(t.TempDir(), "meetings.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func delivery(key, body string) (amqp.Delivery, *ackRecorder) {
	ack := &ackRecorder{}
	return amqp.Delivery{Acknowledger: ack, RoutingKey: key, Body: []byte(body)}, ack
}

func TestBookingConsumer_Upsert(t *testing.T) {
	db := openDB(t)
	bc := NewBookingConsumer(db)

	msg, ack := delivery(RoutingBookingCreated, `{"id":42,"name":" Ana ","email":"Ana@Example.com","service":"Tax advice","date":"2026-03-02","time":"09:00"}`)
	bc.handleMessage(msg)
	assert.Equal(t, 1, ack.acks)

	var b models.Booking
	require.NoError(t, db.First(&b, 42).Error)
	assert.Equal(t, "Ana", b.Name)
	assert.Equal(t, "ana@example.com", b.Email)
	assert.Equal(t, "09:00", b.Time)

	msg, ack = delivery(RoutingBookingUpdated, `{"id":42,"name":"Ana","email":"ana@example.com","service":"Tax advice","date":"2026-03-02","time":"10:30"}`)
	bc.handleMessage(msg)
	assert.Equal(t, 1, ack.acks)

	require.NoError(t, db.First(&b, 42).Error)
	assert.Equal(t, "10:30", b.Time)

	var count int64
	db.Model(&models.Booking{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestBookingConsumer_BadPayload(t *testing.T) {
	db := openDB(t)
	bc := NewBookingConsumer(db)

	for _, body := range []string{`not json`, `{"id":0,"name":"Ana","email":"a@example.com"}`, `{"id":5,"name":"","email":"a@example.com"}`} {
		msg, ack := delivery(RoutingBookingCreated, body)
		bc.handleMessage(msg)
		assert.Equal(t, 1, ack.nacks, body)
		assert.False(t, ack.requeued, body)
	}
}

func TestBookingConsumer_IgnoresOtherKeys(t *testing.T) {
	db := openDB(t)
	bc := NewBookingConsumer(db)

	msg, ack := delivery("booking.cancelled", `{"id":42}`)
	bc.handleMessage(msg)
	assert.Equal(t, 1, ack.acks)

	var count int64
	db.Model(&models.Booking{}).Count(&count)
	assert.Zero(t, count)
}

func TestBookingConsumer_StartDrainsChannel(t *testing.T) {
	db := openDB(t)
	bc := NewBookingConsumer(db)

	msgs := make(chan amqp.Delivery, 2)
	m1, a1 := delivery(RoutingBookingCreated, `{"id":1,"name":"A","email":"a@example.com"}`)
	m2, a2 := delivery(RoutingBookingCreated, `{"id":2,"name":"B","email":"b@example.com"}`)
	msgs <- m1
	msgs <- m2
	close(msgs)

	bc.Start(msgs)

	require.Eventually(t, func() bool {
		var count int64
		db.Model(&models.Booking{}).Count(&count)
		return count == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return a1.acked() == 1 && a2.acked() == 1 }, 2*time.Second, 10*time.Millisecond)
}

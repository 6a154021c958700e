package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/models"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/repository"
	"github.com/Eursukkul/booking-microservice/meeting-service/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostMessage_OrderedHistory(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(t, 42)
	res := f.startMeeting(t, 42)
	ctx := context.Background()

	first, err := f.chat.PostMessage(ctx, res.Meeting.ID, models.RoleOperator, "Advisor", "Hello")
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	second, err := f.chat.PostMessage(ctx, res.Meeting.ID, models.RoleVisitor, "Ana", "  Hi there  ")
	require.NoError(t, err)
	assert.Equal(t, "Hi there", second.Content)

	msgs, err := f.chat.ListMessages(ctx, res.Meeting.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, first.ID, msgs[0].ID)
	assert.Equal(t, second.ID, msgs[1].ID)

	newer, err := f.chat.ListMessages(ctx, res.Meeting.ID, first.ID)
	require.NoError(t, err)
	require.Len(t, newer, 1)
	assert.Equal(t, second.ID, newer[0].ID)
}

func TestPostMessage_Validation(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(t, 42)
	res := f.startMeeting(t, 42)

	tests := []struct {
		name    string
		role    models.SenderRole
		sender  string
		content string
		field   string
	}{
		{"bad role", models.SenderRole("guest"), "Ana", "hi", "sender_role"},
		{"no sender", models.RoleVisitor, "", "hi", "sender_name"},
		{"empty content", models.RoleVisitor, "Ana", "   ", "content"},
		{"too long", models.RoleVisitor, "Ana", strings.Repeat("ก", maxMessageLength+1), "content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.chat.PostMessage(context.Background(), res.Meeting.ID, tt.role, tt.sender, tt.content)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}

	_, err := f.chat.PostMessage(context.Background(), res.Meeting.ID, models.RoleVisitor, "Ana", strings.Repeat("ก", maxMessageLength))
	assert.NoError(t, err, "limit counts characters, not bytes")
}

func TestPostMessage_FrozenAfterEnd(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(t, 42)
	res := f.startMeeting(t, 42)
	ctx := context.Background()

	_, err := f.chat.PostMessage(ctx, res.Meeting.ID, models.RoleOperator, "Advisor", "Before end")
	require.NoError(t, err)
	_, err = f.meetings.End(ctx, res.Meeting.ID, "")
	require.NoError(t, err)

	_, err = f.chat.PostMessage(ctx, res.Meeting.ID, models.RoleOperator, "Advisor", "After end")
	assert.ErrorIs(t, err, ErrMeetingAlreadyEnded)

	msgs, err := f.chat.ListMessages(ctx, res.Meeting.ID, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1, "history stays readable")
}

func TestPostMessage_UnknownMeeting(t *testing.T) {
	f := newFixture(t)

	_, err := f.chat.PostMessage(context.Background(), 5, models.RoleOperator, "Advisor", "hi")
	assert.ErrorIs(t, err, ErrMeetingNotFound)
	_, err = f.chat.ListMessages(context.Background(), 5, 0)
	assert.ErrorIs(t, err, ErrMeetingNotFound)
}

func TestPostFile_StoresUpload(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(t, 42)
	res := f.startMeeting(t, 42)

	dir := t.TempDir()
	store, err := storage.NewLocalStore(dir, "http://localhost:8083/uploads", 64)
	require.NoError(t, err)
	f.chat.store = store

	file, err := f.chat.PostFile(context.Background(), res.Meeting.ID, "Advisor", "Plan.PDF", "application/pdf", strings.NewReader("%PDF-1.7"))
	require.NoError(t, err)

	assert.Equal(t, "Plan.PDF", file.FileName)
	assert.Equal(t, int64(8), file.Size)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(file.URL, "http://localhost:8083/uploads/"))
	assert.False(t, strings.HasSuffix(file.URL, ".pdf"), "stored key drops the client extension")

	key := strings.TrimPrefix(file.URL, "http://localhost:8083/uploads/")
	data, err := os.ReadFile(filepath.Join(dir, key))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))

	files, err := f.chat.ListFiles(context.Background(), res.Meeting.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, file.ID, files[0].ID)
}

type failingFileRepo struct {
	repository.ChatRepository
}

func (failingFileRepo) CreateFile(ctx context.Context, file *models.FileAttachment) error {
	return errors.New("disk full")
}

func TestPostFile_RemovesUploadWhenRecordFails(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(t, 42)
	res := f.startMeeting(t, 42)

	dir := t.TempDir()
	store, err := storage.NewLocalStore(dir, "http://localhost/uploads", 64)
	require.NoError(t, err)
	f.chat.store = store
	f.chat.chatRepo = failingFileRepo{ChatRepository: f.chatRepo}

	_, err = f.chat.PostFile(context.Background(), res.Meeting.ID, "Advisor", "a.txt", "text/plain", strings.NewReader("a"))
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPostFile_TooLarge(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(t, 42)
	res := f.startMeeting(t, 42)

	store, err := storage.NewLocalStore(t.TempDir(), "http://localhost/uploads", 4)
	require.NoError(t, err)
	f.chat.store = store

	_, err = f.chat.PostFile(context.Background(), res.Meeting.ID, "Advisor", "big.txt", "text/plain", strings.NewReader("0123456789"))
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "file", vErr.Field)
}

func TestPostFile_NoStore(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(t, 42)
	res := f.startMeeting(t, 42)

	_, err := f.chat.PostFile(context.Background(), res.Meeting.ID, "Advisor", "a.txt", "text/plain", strings.NewReader("a"))
	assert.ErrorIs(t, err, ErrExternalService)
}

func TestAttachFile(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(t, 42)
	res := f.startMeeting(t, 42)
	ctx := context.Background()

	file, err := f.chat.AttachFile(ctx, res.Meeting.ID, "Advisor", "https://files.example.com/docs/statement.pdf")
	require.NoError(t, err)
	assert.Equal(t, "statement.pdf", file.FileName)
	assert.Equal(t, "https://files.example.com/docs/statement.pdf", file.URL)

	for _, bad := range []string{"", "ftp://files.example.com/a", "/relative/path", "https://"} {
		_, err := f.chat.AttachFile(ctx, res.Meeting.ID, "Advisor", bad)
		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr, bad)
	}

	_, err = f.meetings.End(ctx, res.Meeting.ID, "")
	require.NoError(t, err)
	_, err = f.chat.AttachFile(ctx, res.Meeting.ID, "Advisor", "https://files.example.com/late.pdf")
	assert.ErrorIs(t, err, ErrMeetingAlreadyEnded)
}

package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Eursukkul/booking-microservice/meeting-service/config"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/jointoken"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/middleware"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/models"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/sdksig"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// --- Mock MeetingService ---

type mockMeetingService struct {
	startFn  func(ctx context.Context, bookingID uint) (*service.StartResult, error)
	endFn    func(ctx context.Context, meetingID uint, recordingURL string) (*models.Meeting, error)
	getFn    func(ctx context.Context, meetingID uint) (*models.Meeting, error)
	activeFn func(ctx context.Context, bookingID uint) (*models.Meeting, error)
}

func (m *mockMeetingService) Start(ctx context.Context, bookingID uint) (*service.StartResult, error) {
	return m.startFn(ctx, bookingID)
}
func (m *mockMeetingService) End(ctx context.Context, meetingID uint, recordingURL string) (*models.Meeting, error) {
	return m.endFn(ctx, meetingID, recordingURL)
}
func (m *mockMeetingService) Get(ctx context.Context, meetingID uint) (*models.Meeting, error) {
	return m.getFn(ctx, meetingID)
}
func (m *mockMeetingService) ActiveForBooking(ctx context.Context, bookingID uint) (*models.Meeting, error) {
	return m.activeFn(ctx, bookingID)
}

// --- Mock AccessService ---

type mockAccessService struct {
	issueFn     func(ctx context.Context, bookingID uint) (jointoken.Token, error)
	joinInfoFn  func(ctx context.Context, token string, bookingID uint) (*service.JoinInfo, error)
	authorizeFn func(ctx context.Context, token string, meetingID uint) (*models.Meeting, error)
}

func (m *mockAccessService) Issue(ctx context.Context, bookingID uint) (jointoken.Token, error) {
	return m.issueFn(ctx, bookingID)
}
func (m *mockAccessService) Validate(ctx context.Context, token string, bookingID uint) (*models.Meeting, error) {
	return nil, nil
}
func (m *mockAccessService) JoinInfo(ctx context.Context, token string, bookingID uint) (*service.JoinInfo, error) {
	return m.joinInfoFn(ctx, token, bookingID)
}
func (m *mockAccessService) AuthorizeMeeting(ctx context.Context, token string, meetingID uint) (*models.Meeting, error) {
	if m.authorizeFn == nil {
		return &models.Meeting{ID: meetingID, Status: models.MeetingActive}, nil
	}
	return m.authorizeFn(ctx, token, meetingID)
}

// --- Mock AdmissionService ---

type mockAdmissionService struct {
	enterFn   func(ctx context.Context, meetingID uint, name, email string) (*models.WaitingEntry, error)
	admitFn   func(ctx context.Context, entryID uint) (*models.WaitingEntry, error)
	rejectFn  func(ctx context.Context, entryID uint) (*models.WaitingEntry, error)
	statusFn  func(ctx context.Context, meetingID uint, email string) (*models.WaitingEntry, error)
	queueFn   func(ctx context.Context, meetingID uint, status *models.WaitingStatus) ([]models.WaitingEntry, error)
	pendingFn func(ctx context.Context) (int64, error)
}

func (m *mockAdmissionService) EnterWaiting(ctx context.Context, meetingID uint, name, email string) (*models.WaitingEntry, error) {
	return m.enterFn(ctx, meetingID, name, email)
}
func (m *mockAdmissionService) Admit(ctx context.Context, entryID uint) (*models.WaitingEntry, error) {
	return m.admitFn(ctx, entryID)
}
func (m *mockAdmissionService) Reject(ctx context.Context, entryID uint) (*models.WaitingEntry, error) {
	return m.rejectFn(ctx, entryID)
}
func (m *mockAdmissionService) StatusFor(ctx context.Context, meetingID uint, email string) (*models.WaitingEntry, error) {
	return m.statusFn(ctx, meetingID, email)
}
func (m *mockAdmissionService) Queue(ctx context.Context, meetingID uint, status *models.WaitingStatus) ([]models.WaitingEntry, error) {
	return m.queueFn(ctx, meetingID, status)
}
func (m *mockAdmissionService) PendingCount(ctx context.Context) (int64, error) {
	return m.pendingFn(ctx)
}

// --- Mock ChatService ---

type mockChatService struct {
	postFn      func(ctx context.Context, meetingID uint, role models.SenderRole, name, content string) (*models.ChatMessage, error)
	listFn      func(ctx context.Context, meetingID uint, afterID uint) ([]models.ChatMessage, error)
	postFileFn  func(ctx context.Context, meetingID uint, uploadedBy, fileName, contentType string, r io.Reader) (*models.FileAttachment, error)
	attachFn    func(ctx context.Context, meetingID uint, uploadedBy, fileURL string) (*models.FileAttachment, error)
	listFilesFn func(ctx context.Context, meetingID uint) ([]models.FileAttachment, error)
}

func (m *mockChatService) PostMessage(ctx context.Context, meetingID uint, role models.SenderRole, name, content string) (*models.ChatMessage, error) {
	return m.postFn(ctx, meetingID, role, name, content)
}
func (m *mockChatService) ListMessages(ctx context.Context, meetingID uint, afterID uint) ([]models.ChatMessage, error) {
	return m.listFn(ctx, meetingID, afterID)
}
func (m *mockChatService) PostFile(ctx context.Context, meetingID uint, uploadedBy, fileName, contentType string, r io.Reader) (*models.FileAttachment, error) {
	return m.postFileFn(ctx, meetingID, uploadedBy, fileName, contentType, r)
}
func (m *mockChatService) AttachFile(ctx context.Context, meetingID uint, uploadedBy, fileURL string) (*models.FileAttachment, error) {
	return m.attachFn(ctx, meetingID, uploadedBy, fileURL)
}
func (m *mockChatService) ListFiles(ctx context.Context, meetingID uint) ([]models.FileAttachment, error) {
	return m.listFilesFn(ctx, meetingID)
}

// --- Mock SignatureService ---

type mockSignatureService struct {
	signFn func(ctx context.Context, p service.Principal, sessionNumber string, role sdksig.Role) (*service.SignatureResult, error)
}

func (m *mockSignatureService) Sign(ctx context.Context, p service.Principal, sessionNumber string, role sdksig.Role) (*service.SignatureResult, error) {
	return m.signFn(ctx, p, sessionNumber, role)
}

// --- Mock AnalyticsService ---

type mockAnalyticsService struct {
	summaryFn    func(ctx context.Context) (*service.Summary, error)
	recordingsFn func(ctx context.Context) ([]service.Recording, error)
}

func (m *mockAnalyticsService) Summary(ctx context.Context) (*service.Summary, error) {
	return m.summaryFn(ctx)
}
func (m *mockAnalyticsService) Recordings(ctx context.Context) ([]service.Recording, error) {
	return m.recordingsFn(ctx)
}
func (m *mockAnalyticsService) Refresh(ctx context.Context) error { return nil }

// --- Mock BookingRepository ---

type mockBookingRepo struct {
	findFn func(ctx context.Context, id uint) (*models.Booking, error)
}

func (m *mockBookingRepo) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	if m.findFn == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return m.findFn(ctx, id)
}
func (m *mockBookingRepo) FindByIDs(ctx context.Context, ids []uint) (map[uint]models.Booking, error) {
	return map[uint]models.Booking{}, nil
}

// --- Router ---

const testOperatorKey = "op-key"

var testAuth = func() *middleware.Auth {
	hash, err := middleware.HashOperatorKey(testOperatorKey, middleware.Argon2idParams{
		Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	})
	if err != nil {
		panic(err)
	}
	return middleware.NewAuth(hash)
}()

type mocks struct {
	meetings   *mockMeetingService
	access     *mockAccessService
	admission  *mockAdmissionService
	chat       *mockChatService
	signatures *mockSignatureService
	analytics  *mockAnalyticsService
	bookings   *mockBookingRepo
}

func newMocks() *mocks {
	return &mocks{
		meetings:   &mockMeetingService{},
		access:     &mockAccessService{},
		admission:  &mockAdmissionService{},
		chat:       &mockChatService{},
		signatures: &mockSignatureService{},
		analytics:  &mockAnalyticsService{},
		bookings:   &mockBookingRepo{},
	}
}

// router wires every handler the way main does.
func (m *mocks) router() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	NewMeetingHandler(m.meetings, m.access, m.bookings, "https://consult.example.com").RegisterRoutes(e, testAuth)
	NewWaitingHandler(m.admission, m.access).RegisterRoutes(e, testAuth)
	NewChatHandler(m.chat, m.access).RegisterRoutes(e, testAuth)
	NewSignatureHandler(m.signatures).RegisterRoutes(e, testAuth)
	NewAnalyticsHandler(m.analytics).RegisterRoutes(e, testAuth)
	NewSyncHandler(config.PollingConfig{}).RegisterRoutes(e)
	return e
}

func do(t *testing.T, e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	require.NotNil(t, req)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func asOperator(req *http.Request) *http.Request {
	req.Header.Set(middleware.HeaderOperatorKey, testOperatorKey)
	return req
}

func asVisitor(req *http.Request, token string) *http.Request {
	req.Header.Set(middleware.HeaderJoinToken, token)
	return req
}

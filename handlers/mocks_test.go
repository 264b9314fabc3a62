package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dosada05/cricket-slots/middleware"
	"github.com/Dosada05/cricket-slots/models"
	"github.com/Dosada05/cricket-slots/services"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("handlers-test-secret")

type mockWaitlistService struct {
	PromoteNextFunc       func(ctx context.Context, tournamentID int, actor models.Actor) (models.PromotionResult, error)
	GetWaitlistStatusFunc func(ctx context.Context, tournamentID, userID int) (*models.WaitlistStatus, error)
}

func (m *mockWaitlistService) PromoteNext(ctx context.Context, tournamentID int, actor models.Actor) (models.PromotionResult, error) {
	return m.PromoteNextFunc(ctx, tournamentID, actor)
}

func (m *mockWaitlistService) DrainWaitlist(context.Context, *models.Tournament) (int, error) {
	return 0, nil
}

func (m *mockWaitlistService) GetWaitlistStatus(ctx context.Context, tournamentID, userID int) (*models.WaitlistStatus, error) {
	return m.GetWaitlistStatusFunc(ctx, tournamentID, userID)
}

type mockSlotService struct {
	ListSlotsFunc    func(ctx context.Context, tournamentID int) ([]*models.Slot, error)
	RegisterFunc     func(ctx context.Context, tournamentID int, actor models.Actor) (*models.Slot, error)
	WithdrawFunc     func(ctx context.Context, tournamentID int, actor models.Actor) (*services.SlotChange, error)
	UpdateStatusFunc func(ctx context.Context, slotID int, status models.SlotStatus, actor models.Actor) (*services.SlotChange, error)
	RemoveFunc       func(ctx context.Context, slotID int, actor models.Actor) (*services.SlotChange, error)
}

func (m *mockSlotService) ListSlots(ctx context.Context, tournamentID int) ([]*models.Slot, error) {
	return m.ListSlotsFunc(ctx, tournamentID)
}

func (m *mockSlotService) Register(ctx context.Context, tournamentID int, actor models.Actor) (*models.Slot, error) {
	return m.RegisterFunc(ctx, tournamentID, actor)
}

func (m *mockSlotService) Withdraw(ctx context.Context, tournamentID int, actor models.Actor) (*services.SlotChange, error) {
	return m.WithdrawFunc(ctx, tournamentID, actor)
}

func (m *mockSlotService) UpdateStatus(ctx context.Context, slotID int, status models.SlotStatus, actor models.Actor) (*services.SlotChange, error) {
	return m.UpdateStatusFunc(ctx, slotID, status, actor)
}

func (m *mockSlotService) Remove(ctx context.Context, slotID int, actor models.Actor) (*services.SlotChange, error) {
	return m.RemoveFunc(ctx, slotID, actor)
}

type mockNotificationService struct {
	ListForUserFunc func(ctx context.Context, userID, limit int) ([]*models.Notification, error)
	MarkReadFunc    func(ctx context.Context, notificationID, userID int) error
}

func (m *mockNotificationService) NotifyPromotion(context.Context, *models.Tournament, models.PromotionResult) error {
	return nil
}

func (m *mockNotificationService) NotifyRejection(context.Context, *models.Tournament, *models.Slot) error {
	return nil
}

func (m *mockNotificationService) ListForUser(ctx context.Context, userID, limit int) ([]*models.Notification, error) {
	return m.ListForUserFunc(ctx, userID, limit)
}

func (m *mockNotificationService) MarkRead(ctx context.Context, notificationID, userID int) error {
	return m.MarkReadFunc(ctx, notificationID, userID)
}

type mockScheduleService struct {
	AttachScheduleImageFunc func(ctx context.Context, tournamentID int, actor models.Actor, input services.ScheduleImageInput) (*models.Tournament, error)
}

func (m *mockScheduleService) AttachScheduleImage(ctx context.Context, tournamentID int, actor models.Actor, input services.ScheduleImageInput) (*models.Tournament, error) {
	return m.AttachScheduleImageFunc(ctx, tournamentID, actor, input)
}

func bearer(t *testing.T, userID int, role models.UserRole) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    string(role),
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString(testSecret)
	require.NoError(t, err)
	return "Bearer " + token
}

// testRouter mounts handlers the same way the production router does, minus
// the ops endpoints.
func testRouter(w *WaitlistHandler, s *SlotHandler, n *NotificationHandler, sch *ScheduleHandler) http.Handler {
	r := chi.NewRouter()
	auth := middleware.Authenticate(testSecret)

	r.Route("/tournaments/{tournamentID}", func(r chi.Router) {
		if s != nil {
			r.Get("/slots", s.List)
		}
		r.Group(func(r chi.Router) {
			r.Use(auth)
			if w != nil {
				r.Post("/promote-waitlist", w.PromoteNext)
				r.Get("/promote-waitlist", w.GetStatus)
			}
			if s != nil {
				r.Post("/slots", s.Register)
				r.Delete("/slots/me", s.Withdraw)
			}
			if sch != nil {
				r.Post("/schedule-images", sch.AttachImage)
			}
		})
	})
	if s != nil {
		r.With(auth).Patch("/slots/{slotID}/status", s.UpdateStatus)
		r.With(auth).Delete("/slots/{slotID}", s.Remove)
	}
	if n != nil {
		r.With(auth).Get("/notifications", n.List)
		r.With(auth).Patch("/notifications/{notificationID}/read", n.MarkRead)
	}
	return r
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

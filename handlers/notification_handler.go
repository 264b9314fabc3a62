package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Dosada05/cricket-slots/services"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

type NotificationHandler struct {
	notificationService services.NotificationService
}

func NewNotificationHandler(ns services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: ns}
}

// List обрабатывает GET /notifications
// @Summary Мои уведомления
// @Tags notifications
// @Produce json
// @Param limit query int false "Сколько вернуть (по умолчанию 50, максимум 200)"
// @Success 200 {object} map[string]interface{} "Уведомления, новые первыми"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Security BearerAuth
// @Router /notifications [get]
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	limit := defaultNotificationLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequestResponse(w, r, errors.New("invalid limit query parameter"))
			return
		}
		limit = min(n, maxNotificationLimit)
	}

	notifications, err := h.notificationService.ListForUser(r.Context(), actor.ID, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, jsonResponse{"notifications": notifications})
}

// MarkRead обрабатывает PATCH /notifications/{notificationID}/read
// @Summary Отметить уведомление прочитанным
// @Tags notifications
// @Param notificationID path int true "Notification ID"
// @Success 204 "Отмечено"
// @Failure 404 {object} map[string]string "Уведомление не найдено"
// @Security BearerAuth
// @Router /notifications/{notificationID}/read [patch]
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	notificationID, err := getIDFromURL(r, "notificationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(r.Context(), notificationID, actor.ID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

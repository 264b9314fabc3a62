package handlers

import (
	"net/http"

	"github.com/Dosada05/cricket-slots/models"
	"github.com/Dosada05/cricket-slots/services"
)

type SlotHandler struct {
	slotService services.SlotService
}

func NewSlotHandler(ss services.SlotService) *SlotHandler {
	return &SlotHandler{slotService: ss}
}

type updateSlotStatusInput struct {
	Status models.SlotStatus `json:"status"`
}

// List обрабатывает GET /tournaments/{tournamentID}/slots
// @Summary Слоты турнира
// @Tags slots
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 200 {object} map[string]interface{} "Список слотов с типом main/waitlist"
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Router /tournaments/{tournamentID}/slots [get]
func (h *SlotHandler) List(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	slots, err := h.slotService.ListSlots(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, jsonResponse{"slots": slots})
}

// Register обрабатывает POST /tournaments/{tournamentID}/slots
// @Summary Записаться на турнир
// @Tags slots
// @Description Занимает наименьший свободный основной слот или встаёт в конец листа ожидания.
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 201 {object} map[string]interface{} "Созданный слот"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 403 {object} map[string]string "Регистрация закрыта"
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Failure 409 {object} map[string]string "Уже зарегистрирован"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/slots [post]
func (h *SlotHandler) Register(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	slot, err := h.slotService.Register(r.Context(), tournamentID, actor)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, jsonResponse{"slot": slot})
}

// Withdraw обрабатывает DELETE /tournaments/{tournamentID}/slots/me
// @Summary Отменить свою регистрацию
// @Tags slots
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 200 {object} map[string]interface{} "Освобождённый слот и результат продвижения"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 404 {object} map[string]string "Нет регистрации"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/slots/me [delete]
func (h *SlotHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	change, err := h.slotService.Withdraw(r.Context(), tournamentID, actor)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, change)
}

// UpdateStatus обрабатывает PATCH /slots/{slotID}/status
// @Summary Одобрить или отклонить слот
// @Tags slots
// @Accept json
// @Produce json
// @Param slotID path int true "Slot ID"
// @Param body body updateSlotStatusInput true "Новый статус: approved или rejected"
// @Success 200 {object} map[string]interface{} "Изменение слота"
// @Failure 400 {object} map[string]string "Некорректный статус"
// @Failure 403 {object} map[string]string "Нет прав"
// @Failure 404 {object} map[string]string "Слот не найден"
// @Failure 409 {object} map[string]string "Недопустимый переход"
// @Security BearerAuth
// @Router /slots/{slotID}/status [patch]
func (h *SlotHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	slotID, err := getIDFromURL(r, "slotID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var input updateSlotStatusInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	change, err := h.slotService.UpdateStatus(r.Context(), slotID, input.Status, actor)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, change)
}

// Remove обрабатывает DELETE /slots/{slotID}
// @Summary Удалить слот
// @Tags slots
// @Produce json
// @Param slotID path int true "Slot ID"
// @Success 200 {object} map[string]interface{} "Освобождённый слот и результат продвижения"
// @Failure 403 {object} map[string]string "Нет прав"
// @Failure 404 {object} map[string]string "Слот не найден"
// @Security BearerAuth
// @Router /slots/{slotID} [delete]
func (h *SlotHandler) Remove(w http.ResponseWriter, r *http.Request) {
	slotID, err := getIDFromURL(r, "slotID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	change, err := h.slotService.Remove(r.Context(), slotID, actor)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, change)
}

package handlers

import (
	"net/http"

	"github.com/Dosada05/cricket-slots/models"
	"github.com/Dosada05/cricket-slots/services"
)

const (
	msgNoMainSlots   = "No available main slots"
	msgNoWaitlisters = "No waitlist players to promote"
)

type WaitlistHandler struct {
	waitlistService services.WaitlistService
}

func NewWaitlistHandler(ws services.WaitlistService) *WaitlistHandler {
	return &WaitlistHandler{waitlistService: ws}
}

type promotedPlayer struct {
	ID      int `json:"id"`
	NewSlot int `json:"new_slot"`
}

// PromoteNext обрабатывает POST /tournaments/{tournamentID}/promote-waitlist
// @Summary Продвинуть игрока из листа ожидания
// @Tags waitlist
// @Description Переводит самого раннего игрока из листа ожидания на наименьший свободный основной слот. Доступно хосту турнира и администраторам. "Нечего продвигать" возвращается как 200 с success=false.
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 200 {object} map[string]interface{} "Результат продвижения"
// @Failure 400 {object} map[string]string "Некорректный ID"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 403 {object} map[string]string "Нет прав"
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Failure 409 {object} map[string]string "Конфликт конкурентных изменений"
// @Failure 500 {object} map[string]string "Ошибка хранилища"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/promote-waitlist [post]
func (h *WaitlistHandler) PromoteNext(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	result, err := h.waitlistService.PromoteNext(r.Context(), tournamentID, actor)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	switch result.Outcome {
	case models.PromotionPromoted:
		respond(w, r, http.StatusOK, jsonResponse{
			"success":         true,
			"promoted_player": promotedPlayer{ID: result.PlayerID, NewSlot: result.NewSlot},
		})
	case models.PromotionNoSlotAvailable:
		respond(w, r, http.StatusOK, jsonResponse{"success": false, "message": msgNoMainSlots})
	default:
		respond(w, r, http.StatusOK, jsonResponse{"success": false, "message": msgNoWaitlisters})
	}
}

// GetStatus обрабатывает GET /tournaments/{tournamentID}/promote-waitlist
// @Summary Состояние листа ожидания
// @Tags waitlist
// @Description Очередь ожидания в порядке подачи заявок и позиция текущего пользователя (0, если его нет в очереди).
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 200 {object} map[string]interface{} "success и waitlist"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/promote-waitlist [get]
func (h *WaitlistHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	status, err := h.waitlistService.GetWaitlistStatus(r.Context(), tournamentID, actor.ID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, jsonResponse{"success": true, "waitlist": status})
}

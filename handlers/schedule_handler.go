package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Dosada05/cricket-slots/services"
)

type ScheduleHandler struct {
	scheduleService services.ScheduleService
}

func NewScheduleHandler(ss services.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: ss}
}

// AttachImage обрабатывает POST /tournaments/{tournamentID}/schedule-images
// @Summary Загрузить изображение расписания
// @Tags tournaments
// @Accept multipart/form-data
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param image formData file true "Изображение (jpeg, png или webp, до 5MB)"
// @Success 200 {object} map[string]interface{} "Турнир с обновлённым списком изображений"
// @Failure 400 {object} map[string]string "Некорректный файл"
// @Failure 403 {object} map[string]string "Нет прав"
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Failure 409 {object} map[string]string "Конфликт при добавлении"
// @Failure 503 {object} map[string]string "Хранилище не настроено"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/schedule-images [post]
func (h *ScheduleHandler) AttachImage(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, services.MaxScheduleImageSize+1<<20)
	if err := r.ParseMultipartForm(services.MaxScheduleImageSize); err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to parse multipart form: %w", err))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to get image file from form: %w", err))
		return
	}
	defer file.Close()

	// Тип определяем по содержимому, заголовок части формы клиент может подделать.
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		badRequestResponse(w, r, fmt.Errorf("failed to read image: %w", err))
		return
	}
	head = head[:n]
	contentType := http.DetectContentType(head)
	if !services.IsScheduleImageType(contentType) {
		mapServiceErrorToHTTP(w, r, fmt.Errorf("%w: detected %s", services.ErrInvalidImage, contentType))
		return
	}

	tournament, err := h.scheduleService.AttachScheduleImage(r.Context(), tournamentID, actor, services.ScheduleImageInput{
		ContentType: contentType,
		Size:        header.Size,
		Body:        io.MultiReader(bytes.NewReader(head), file),
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, jsonResponse{"tournament": tournament})
}

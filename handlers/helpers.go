package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/cricket-slots/middleware"
	"github.com/Dosada05/cricket-slots/models"
	"github.com/Dosada05/cricket-slots/services"
	"github.com/go-chi/chi/v5"
)

type jsonResponse map[string]interface{}

const (
	codeStoreFailure       = "STORE_FAILURE"
	codePromotionConflict  = "PROMOTION_CONFLICT"
	codeAllocationConflict = "SLOT_ALLOCATION_CONFLICT"
	codeScheduleConflict   = "SCHEDULE_IMAGE_CONFLICT"
)

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		default:
			return err
		}
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

// respond пишет JSON и логирует ошибку записи: заголовки уже отправлены,
// так что исправить ответ нельзя.
func respond(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if err := writeJSON(w, status, data, nil); err != nil {
		slog.ErrorContext(r.Context(), "failed to write JSON response",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	respond(w, r, status, jsonResponse{"error": message})
}

// diagnosticResponse отдаёт {error, details, code} для сбоев, которые
// оператор должен уметь разобрать по ответу.
func diagnosticResponse(w http.ResponseWriter, r *http.Request, status int, message, code string, err error) {
	respond(w, r, status, jsonResponse{
		"error":   message,
		"details": err.Error(),
		"code":    code,
	})
}

func storeFailureResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	diagnosticResponse(w, r, http.StatusInternalServerError,
		"the server encountered a problem and could not process your request", codeStoreFailure, err)
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func notFoundResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusNotFound, message)
}

func conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusConflict, message)
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnauthorized, message)
}

func forbiddenResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusForbidden, message)
}

// mapServiceErrorToHTTP преобразует ошибки сервисного слоя в HTTP-ответы
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	// Не найдено
	case errors.Is(err, services.ErrTournamentNotFound),
		errors.Is(err, services.ErrSlotNotFound),
		errors.Is(err, services.ErrNotRegistered),
		errors.Is(err, services.ErrNotificationNotFound):
		notFoundResponse(w, r, err.Error())

	// Доступ
	case errors.Is(err, services.ErrAuthenticationFailed):
		unauthorizedResponse(w, r, err.Error())
	case errors.Is(err, services.ErrForbiddenOperation),
		errors.Is(err, services.ErrRegistrationNotOpen):
		forbiddenResponse(w, r, err.Error())

	// Бизнес-правила
	case errors.Is(err, services.ErrValidationFailed),
		errors.Is(err, services.ErrInvalidSlotNumber),
		errors.Is(err, services.ErrInvalidCapacity),
		errors.Is(err, services.ErrInvalidSlotStatus),
		errors.Is(err, services.ErrInvalidImage):
		badRequestResponse(w, r, err)
	case errors.Is(err, services.ErrAlreadyRegistered),
		errors.Is(err, services.ErrInvalidStatusTransition):
		conflictResponse(w, r, err.Error())

	// Исчерпаны повторы при конкурентных изменениях
	case errors.Is(err, services.ErrPromotionConflict):
		diagnosticResponse(w, r, http.StatusConflict, services.ErrPromotionConflict.Error(), codePromotionConflict, err)
	case errors.Is(err, services.ErrSlotAllocationConflict):
		diagnosticResponse(w, r, http.StatusConflict, services.ErrSlotAllocationConflict.Error(), codeAllocationConflict, err)
	case errors.Is(err, services.ErrScheduleImageConflict):
		diagnosticResponse(w, r, http.StatusConflict, services.ErrScheduleImageConflict.Error(), codeScheduleConflict, err)

	case errors.Is(err, services.ErrUploadsDisabled):
		errorResponse(w, r, http.StatusServiceUnavailable, err.Error())

	default:
		storeFailureResponse(w, r, err)
	}
}

func getIDFromURL(r *http.Request, paramName string) (int, error) {
	idStr := chi.URLParam(r, paramName)
	if idStr == "" {
		return 0, fmt.Errorf("missing %s in URL path", paramName)
	}

	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format: %q", paramName, idStr)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid %s value: %d", paramName, id)
	}
	return id, nil
}

// requireActor достаёт инициатора из контекста; при ошибке ответ уже записан.
func requireActor(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return models.Actor{}, false
	}
	return actor, true
}

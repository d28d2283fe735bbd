package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dreschagin/vessel-guard/internal/domain/service"
	"github.com/dreschagin/vessel-guard/pkg/logger"
)

const maxRequestBodyBytes = 1 << 20

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError отделяет ошибки валидации (400) от сбоев выполнения (500)
func writeError(w http.ResponseWriter, r *http.Request, log *logger.Logger, op string, err error) {
	if errors.Is(err, service.ErrInvalidInput) {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	log.FromContext(r.Context()).Error("Request failed", err, "operation", op)
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to " + op})
}

// decodeJSON читает тело запроса с ограничением размера; неизвестные поля запрещены
func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	body := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", service.ErrInvalidInput, err)
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: request body must contain a single JSON object", service.ErrInvalidInput)
	}
	return nil
}

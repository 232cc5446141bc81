package api

import (
	"encoding/json"
	"net/http"

	"accelerator-admin/internal/common/errors"
	"accelerator-admin/internal/common/logger"
	"accelerator-admin/internal/models"
)

type envelope struct {
	Success    bool               `json:"success"`
	Data       interface{}        `json:"data,omitempty"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
	Error      string             `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

// writeError maps err onto an HTTP status. Details of server-side failures
// stay in the log.
func writeError(w http.ResponseWriter, log logger.Logger, err error) {
	code := errors.KindOf(err)
	status := errors.HTTPStatus(code)

	message := "internal error"
	if se, ok := errors.AsStandard(err); ok {
		message = se.Message
		if status < http.StatusInternalServerError && se.Details != "" {
			message = se.Message + ": " + se.Details
		}
	}

	fields := map[string]interface{}{
		"code":   string(code),
		"status": status,
		"error":  err.Error(),
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", fields)
	} else {
		log.Debug("request rejected", fields)
	}

	writeJSON(w, status, envelope{Success: false, Error: message})
}

package server

import (
	"encoding/json"
	"net/http"

	apperr "github.com/matzehuels/factoryflow/pkg/errors"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// maxBody caps request bodies. Drop payloads are small; graphs are never
// uploaded.
const maxBody = 1 << 20

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encode response", "err", err)
	}
}

// respondError maps err's code to an HTTP status.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: apperr.UserMessage(err),
		Code:    string(apperr.GetCode(err)),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		return apperr.Wrap(apperr.ErrCodeInvalidPayload, err, "decode request body")
	}
	return nil
}

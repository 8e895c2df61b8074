package httpadapter

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/couchcryptid/sanitation-analytics-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

type errorResponse struct {
	Error     string            `json:"error"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// writeError maps validation and parameter errors to 400 and everything else
// to 500. Internal error details are logged, not returned.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	resp := errorResponse{RequestID: RequestIDFrom(r.Context())}

	if fields := fieldMessages(err); fields != nil {
		resp.Error = "invalid query parameters"
		resp.Fields = fields
		sharedobs.WriteJSON(w, http.StatusBadRequest, resp)
		return
	}

	var ipe *domain.InvalidParameterError
	if errors.As(err, &ipe) {
		resp.Error = ipe.Error()
		resp.Fields = map[string]string{ipe.Param: ipe.Reason}
		sharedobs.WriteJSON(w, http.StatusBadRequest, resp)
		return
	}

	var perr *paramError
	if errors.As(err, &perr) {
		resp.Error = perr.Error()
		sharedobs.WriteJSON(w, http.StatusBadRequest, resp)
		return
	}

	logger.Error("analytics request failed",
		"error", err,
		"path", r.URL.Path,
		"request_id", resp.RequestID,
	)
	resp.Error = "internal error"
	sharedobs.WriteJSON(w, http.StatusInternalServerError, resp)
}

func writeNotFound(w http.ResponseWriter, r *http.Request, msg string) {
	sharedobs.WriteJSON(w, http.StatusNotFound, errorResponse{Error: msg, RequestID: RequestIDFrom(r.Context())})
}

// paramError wraps query string parse failures.
type paramError struct {
	err error
}

func (e *paramError) Error() string { return "invalid query parameters: " + e.err.Error() }
func (e *paramError) Unwrap() error { return e.err }

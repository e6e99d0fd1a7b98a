package errors

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// HTTPAdapter handles error presentation and status code determination for
// the HTTP surface.
type HTTPAdapter struct {
	logger *slog.Logger
}

// NewHTTPAdapter creates a new HTTP error adapter. If logger is nil, the
// default package logger is used.
func NewHTTPAdapter(logger *slog.Logger) *HTTPAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPAdapter{logger: logger}
}

// HTTPErrorResponse is the standard JSON error payload.
type HTTPErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// StatusCodeFor maps an error onto an HTTP status code. Unknown errors map
// to 500.
func (a *HTTPAdapter) StatusCodeFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch GetCategory(err) {
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryComposition, CategoryRender:
		return http.StatusUnprocessableEntity
	case CategoryDelivery:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes a JSON error response and logs with a level matching the
// error severity.
func (a *HTTPAdapter) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	status := a.StatusCodeFor(err)
	payload := a.format(err)

	b, jerr := json.Marshal(payload)
	if jerr != nil {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"internal error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)

	if ee, ok := AsExport(err); ok {
		lvl := slog.LevelError
		if ee.Severity == SeverityWarning {
			lvl = slog.LevelWarn
		}
		a.logger.Log(r.Context(), lvl, ee.Error(), "path", r.URL.Path)
		return
	}
	a.logger.Error(err.Error(), "path", r.URL.Path)
}

// format converts known errors into the canonical error payload.
func (a *HTTPAdapter) format(err error) HTTPErrorResponse {
	if ee, ok := AsExport(err); ok {
		resp := HTTPErrorResponse{Error: ee.Message, Code: string(ee.Category)}
		if len(ee.Context) > 0 {
			resp.Details = map[string]any(ee.Context)
		}
		return resp
	}
	return HTTPErrorResponse{Error: err.Error(), Code: string(CategoryInternal)}
}

package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vedran77/statusd/internal/logger"
	"github.com/vedran77/statusd/internal/service"
	"github.com/vedran77/statusd/pkg/validator"
)

// maxRequestBytes bounds what we read from a request body; the character
// limit on statuses is enforced by the service.
const maxRequestBytes = 64 << 10

type StatusHandler struct {
	statusService *service.StatusService
	logger        logger.Logger
}

func NewStatusHandler(statusService *service.StatusService, log logger.Logger) *StatusHandler {
	return &StatusHandler{statusService: statusService, logger: log}
}

func (h *StatusHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, expected, err := readStatusInput(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	if expected != nil {
		writeValidationErrors(w, validator.ValidationErrors{"expected_modified": "Not allowed on create"})
		return
	}

	st, err := h.statusService.Create(r.Context(), service.CreateStatusInput{Body: body})
	if err != nil {
		h.writeServiceError(w, r, "create status", err)
		return
	}

	w.Header().Set("Location", "/statuses/"+st.ID)
	w.Header().Set("ETag", st.ETag())
	writeJSON(w, http.StatusCreated, st)
}

func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	st, err := h.statusService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "get status", err)
		return
	}

	etag := st.ETag()
	w.Header().Set("ETag", etag)
	if matchesETag(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *StatusHandler) Update(w http.ResponseWriter, r *http.Request) {
	body, expected, err := readStatusInput(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	if ifMatch := r.Header.Get("If-Match"); ifMatch != "" {
		fromHeader, ok := parseETag(ifMatch)
		if !ok {
			writeValidationErrors(w, validator.ValidationErrors{"If-Match": "Must be an ETag returned by this service"})
			return
		}
		if expected != nil && !expected.Equal(fromHeader) {
			writeValidationErrors(w, validator.ValidationErrors{"expected_modified": "Disagrees with If-Match"})
			return
		}
		expected = &fromHeader
	}

	st, err := h.statusService.Update(r.Context(), chi.URLParam(r, "id"), service.UpdateStatusInput{
		Body:             body,
		ExpectedModified: expected,
	})
	if err != nil {
		h.writeServiceError(w, r, "update status", err)
		return
	}

	w.Header().Set("ETag", st.ETag())
	writeJSON(w, http.StatusOK, st)
}

func (h *StatusHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.statusService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, "delete status", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *StatusHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// Unparseable limits fall back to the default page size.
	limit := 0
	if limitStr := q.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	page, err := h.statusService.List(r.Context(), q.Get("cursor"), limit)
	if err != nil {
		h.writeServiceError(w, r, "list statuses", err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// writeServiceError is the single place service errors become responses.
// Backend failure detail is logged, never returned.
func (h *StatusHandler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeValidationErrors(w, vErr.Fields)
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid input")
	case errors.Is(err, service.ErrStatusNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Status not found")
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, "CONFLICT", "Status was modified since you last read it")
	case errors.Is(err, service.ErrUnavailable):
		h.logger.Warn(op+" failed",
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.Error(err))
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Service temporarily unavailable")
	default:
		h.logger.Error(op+" failed",
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
	}
}

type statusInput struct {
	Body             string     `json:"body"`
	ExpectedModified *time.Time `json:"expected_modified"`
}

// readStatusInput accepts either a JSON object or, for any other content
// type, the raw request body as the status text.
func readStatusInput(w http.ResponseWriter, r *http.Request) (string, *time.Time, error) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var input statusInput
		if err := json.NewDecoder(reader).Decode(&input); err != nil {
			return "", nil, err
		}
		return input.Body, input.ExpectedModified, nil
	}

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", nil, err
	}
	return string(raw), nil, nil
}

func parseETag(header string) (time.Time, bool) {
	tag := strings.TrimPrefix(strings.TrimSpace(header), "W/")
	if len(tag) < 2 || tag[0] != '"' || tag[len(tag)-1] != '"' {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, tag[1:len(tag)-1])
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func matchesETag(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

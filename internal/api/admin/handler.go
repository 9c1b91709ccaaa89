package admin

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"stockalert/internal/domain/watchlist"
	"stockalert/pkg/errors"
	"stockalert/pkg/logger"
)

//go:embed templates/admin.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Store is the part of the watch list store the admin surface edits
type Store interface {
	Snapshot() []watchlist.Entry
	Add(isin string) error
	Update(isin string, upper, lower *float64, active bool) error
	SetThresholds(isin string, upper, lower *float64) error
	Delete(isin string) (bool, error)
}

// Handler serves the admin page, its form actions and the JSON config API
type Handler struct {
	store Store
	log   *logger.Logger
	page  *template.Template
}

// New creates the admin handler
func New(store Store, log *logger.Logger) (*Handler, error) {
	page, err := template.New("admin.html").
		Funcs(template.FuncMap{"threshold": formatThreshold}).
		ParseFS(templatesFS, "templates/admin.html")
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse admin template")
	}

	return &Handler{
		store: store,
		log:   log.With("component", "admin"),
		page:  page,
	}, nil
}

// Register mounts the admin routes on mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.HandleIndex)
	mux.HandleFunc("POST /update", h.HandleUpdate)
	mux.HandleFunc("POST /add", h.HandleAdd)
	mux.HandleFunc("POST /delete", h.HandleDelete)
	mux.HandleFunc("GET /api/config", h.HandleGetConfig)
	mux.HandleFunc("POST /api/config", h.HandleUpdateConfig)
	mux.Handle("GET /static/", http.FileServerFS(staticFS))
}

type pageData struct {
	Entries []watchlist.Entry
	Flash   string
	Level   string
}

// HandleIndex renders the watch list
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Entries: h.store.Snapshot(),
		Flash:   r.URL.Query().Get("flash"),
		Level:   r.URL.Query().Get("level"),
	}
	if data.Level != levelSuccess {
		data.Level = levelError
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.page.Execute(w, data); err != nil {
		h.log.Errorw("Failed to render admin page", "error", err)
	}
}

// HandleUpdate applies the thresholds and active flag of one row
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	isin := watchlist.NormalizeISIN(r.PostFormValue("isin"))
	if isin == "" {
		redirect(w, r, levelError, "ISIN is missing from the form submission.")
		return
	}

	upper, err := watchlist.ParseThreshold(r.PostFormValue("upper_threshold"))
	if err != nil {
		redirect(w, r, levelError, "Invalid upper threshold for ISIN "+isin+".")
		return
	}
	lower, err := watchlist.ParseThreshold(r.PostFormValue("lower_threshold"))
	if err != nil {
		redirect(w, r, levelError, "Invalid lower threshold for ISIN "+isin+".")
		return
	}
	active := r.PostFormValue("active") != ""

	switch err := h.store.Update(isin, upper, lower, active); {
	case errors.Is(err, errors.ErrNotFound):
		redirect(w, r, levelError, "ISIN "+isin+" not found.")
	case err != nil:
		h.log.Errorw("Failed to update ISIN", "isin", isin, "error", err)
		redirect(w, r, levelError, "Failed to save ISIN "+isin+".")
	default:
		h.log.Infow("Config updated via admin UI",
			"isin", isin,
			"upper", upper,
			"lower", lower,
			"active", active,
		)
		redirect(w, r, levelSuccess, "ISIN "+isin+" updated.")
	}
}

// HandleAdd inserts a new ISIN with no thresholds
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	isin := watchlist.NormalizeISIN(r.PostFormValue("new_isin"))

	switch err := h.store.Add(isin); {
	case errors.Is(err, errors.ErrInvalidISIN):
		redirect(w, r, levelError, "Invalid ISIN. Must be 12 alphanumeric characters.")
	case errors.Is(err, errors.ErrAlreadyExists):
		redirect(w, r, levelError, "ISIN "+isin+" already exists.")
	case err != nil:
		h.log.Errorw("Failed to add ISIN", "isin", isin, "error", err)
		redirect(w, r, levelError, "Failed to save ISIN "+isin+".")
	default:
		h.log.Infow("Added new ISIN via admin UI", "isin", isin)
		redirect(w, r, levelSuccess, "ISIN "+isin+" added.")
	}
}

// HandleDelete removes an ISIN
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	isin := watchlist.NormalizeISIN(r.PostFormValue("delete_isin"))

	deleted, err := h.store.Delete(isin)
	switch {
	case err != nil:
		h.log.Errorw("Failed to delete ISIN", "isin", isin, "error", err)
		redirect(w, r, levelError, "Failed to delete ISIN "+isin+".")
	case !deleted:
		redirect(w, r, levelError, "ISIN "+isin+" not found.")
	default:
		h.log.Infow("Deleted ISIN via admin UI", "isin", isin)
		redirect(w, r, levelSuccess, "ISIN "+isin+" deleted.")
	}
}

// HandleGetConfig returns the watch list as JSON
func (h *Handler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

type configUpdate struct {
	ISIN           string          `json:"isin"`
	UpperThreshold json.RawMessage `json:"upper_threshold"`
	LowerThreshold json.RawMessage `json:"lower_threshold"`
}

type apiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HandleUpdateConfig sets the thresholds of one ISIN.
// Thresholds may be numbers, numeric strings or null.
func (h *Handler) HandleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req configUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Status: "error", Message: "Invalid JSON body."})
		return
	}

	req.ISIN = watchlist.NormalizeISIN(req.ISIN)
	if err := watchlist.ValidateISIN(req.ISIN); err != nil {
		h.log.Warnw("Invalid ISIN received via API", "isin", req.ISIN)
		writeJSON(w, http.StatusBadRequest, apiResponse{Status: "error", Message: "Invalid ISIN."})
		return
	}

	upper, errUpper := decodeThreshold(req.UpperThreshold)
	lower, errLower := decodeThreshold(req.LowerThreshold)
	if errUpper != nil || errLower != nil {
		h.log.Warnw("Invalid threshold values received via API",
			"isin", req.ISIN,
			"upper", string(req.UpperThreshold),
			"lower", string(req.LowerThreshold),
		)
		writeJSON(w, http.StatusBadRequest, apiResponse{Status: "error", Message: "Invalid threshold values."})
		return
	}

	switch err := h.store.SetThresholds(req.ISIN, upper, lower); {
	case errors.Is(err, errors.ErrNotFound):
		writeJSON(w, http.StatusNotFound, apiResponse{Status: "error", Message: "ISIN not found."})
	case err != nil:
		h.log.Errorw("Failed to update thresholds via API", "isin", req.ISIN, "error", err)
		writeJSON(w, http.StatusInternalServerError, apiResponse{Status: "error", Message: "Failed to save config."})
	default:
		h.log.Infow("Config updated via API", "isin", req.ISIN, "upper", upper, "lower", lower)
		writeJSON(w, http.StatusOK, apiResponse{Status: "ok"})
	}
}

// decodeThreshold accepts a JSON number, a numeric string or null
func decodeThreshold(raw json.RawMessage) (*float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			return nil, errors.Wrap(errors.ErrInvalidThreshold, "empty string")
		}
		return watchlist.ParseThreshold(s)
	}

	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidThreshold, "%s is not a number", raw)
	}
	return &v, nil
}

func formatThreshold(v *float64) string {
	if v == nil {
		return ""
	}
	return watchlist.FormatNumber(*v)
}

const (
	levelSuccess = "success"
	levelError   = "error"
)

func redirect(w http.ResponseWriter, r *http.Request, level, message string) {
	q := url.Values{}
	q.Set("flash", message)
	q.Set("level", level)
	http.Redirect(w, r, "/?"+q.Encode(), http.StatusSeeOther)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

package task

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	authapi "taskman/cmd/internal/auth/api"
)

// Handler wires the /tasks HTTP endpoints to the ownership-scoped store.
// Every route is behind the access-control guard.
type Handler struct {
	log          *slog.Logger
	store        Store
	guard        *authapi.Guard
	maxBodyBytes int64
}

// NewHandler constructs the task Handler.
func NewHandler(log *slog.Logger, store Store, guard *authapi.Guard) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		log:          log,
		store:        store,
		guard:        guard,
		maxBodyBytes: 1 << 20,
	}
}

// Register wires the task routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.Handle("POST /tasks", h.guard.Require(http.HandlerFunc(h.handleCreate)))
	mux.Handle("GET /tasks", h.guard.Require(http.HandlerFunc(h.handleList)))
	mux.Handle("GET /tasks/{id}", h.guard.Require(http.HandlerFunc(h.handleGet)))
	mux.Handle("PATCH /tasks/{id}", h.guard.Require(http.HandlerFunc(h.handleUpdate)))
	mux.Handle("DELETE /tasks/{id}", h.guard.Require(http.HandlerFunc(h.handleDelete)))
}

// ---- wire models ----

type createRequest struct {
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	// Unknown keys (including an owner field) are deliberately ignored on
	// create: ownership always comes from the authenticated principal.
}

type taskResponse struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	Owner       string    `json:"owner"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toTaskResponse(t Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		Description: t.Description,
		Completed:   t.Completed,
		Owner:       t.OwnerID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// ---- handlers ----

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	p, ok := authapi.PrincipalFrom(r.Context())
	if !ok {
		h.writeErr(w, http.StatusUnauthorized, "unauthenticated", "please authenticate")
		return
	}

	var req createRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeErr(w, http.StatusBadRequest, "validation_failure", "invalid request body")
		return
	}

	created, err := h.store.Create(r.Context(), CreateInput{
		OwnerID:     p.Account.ID,
		Description: req.Description,
		Completed:   req.Completed,
		Now:         time.Now().UTC(),
	})
	if err != nil {
		h.writeStoreError(w, err, "task.create.fail")
		return
	}

	h.writeJSON(w, http.StatusCreated, toTaskResponse(created))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	p, ok := authapi.PrincipalFrom(r.Context())
	if !ok {
		h.writeErr(w, http.StatusUnauthorized, "unauthenticated", "please authenticate")
		return
	}

	opts, err := parseListOptions(r.URL.Query())
	if err != nil {
		h.writeErr(w, http.StatusBadRequest, "validation_failure", err.Error())
		return
	}

	tasks, err := h.store.List(r.Context(), p.Account.ID, opts)
	if err != nil {
		h.writeStoreError(w, err, "task.list.fail")
		return
	}

	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}

	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	p, ok := authapi.PrincipalFrom(r.Context())
	if !ok {
		h.writeErr(w, http.StatusUnauthorized, "unauthenticated", "please authenticate")
		return
	}

	got, err := h.store.Get(r.Context(), p.Account.ID, r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, err, "task.get.fail")
		return
	}

	h.writeJSON(w, http.StatusOK, toTaskResponse(got))
}

// taskPatchAllowList is the fixed set of fields PATCH /tasks/{id} may touch.
var taskPatchAllowList = map[string]bool{
	"description": true,
	"completed":   true,
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	p, ok := authapi.PrincipalFrom(r.Context())
	if !ok {
		h.writeErr(w, http.StatusUnauthorized, "unauthenticated", "please authenticate")
		return
	}

	patch, err := h.decodePatch(w, r)
	if err != nil {
		h.writeErr(w, http.StatusBadRequest, "validation_failure", "invalid request body")
		return
	}

	// Any key outside the allow-list rejects the whole patch; nothing from it
	// may be applied.
	for key := range patch {
		if !taskPatchAllowList[key] {
			h.writeErr(w, http.StatusBadRequest, "validation_failure", "invalid updates")
			return
		}
	}

	in := UpdateInput{Now: time.Now().UTC()}
	if raw, ok := patch["description"]; ok {
		if err := json.Unmarshal(raw, &in.Description); err != nil || in.Description == nil {
			h.writeErr(w, http.StatusBadRequest, "validation_failure", "invalid updates")
			return
		}
	}
	if raw, ok := patch["completed"]; ok {
		if err := json.Unmarshal(raw, &in.Completed); err != nil || in.Completed == nil {
			h.writeErr(w, http.StatusBadRequest, "validation_failure", "invalid updates")
			return
		}
	}

	updated, err := h.store.Update(r.Context(), p.Account.ID, r.PathValue("id"), in)
	if err != nil {
		h.writeStoreError(w, err, "task.update.fail")
		return
	}

	h.writeJSON(w, http.StatusOK, toTaskResponse(updated))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	p, ok := authapi.PrincipalFrom(r.Context())
	if !ok {
		h.writeErr(w, http.StatusUnauthorized, "unauthenticated", "please authenticate")
		return
	}

	deleted, err := h.store.Delete(r.Context(), p.Account.ID, r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, err, "task.delete.fail")
		return
	}

	h.writeJSON(w, http.StatusOK, toTaskResponse(deleted))
}

// ---- query parsing ----

// parseListOptions maps ?completed=&limit=&skip=&sortBy=field:asc|desc onto
// ListOptions. Malformed values are a validation failure, not silently dropped.
func parseListOptions(q map[string][]string) (ListOptions, error) {
	var opts ListOptions

	if v := first(q, "completed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return ListOptions{}, errors.New("completed must be true or false")
		}
		opts.Completed = &b
	}

	if v := first(q, "limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return ListOptions{}, errors.New("limit must be a non-negative integer")
		}
		opts.Limit = n
	}

	if v := first(q, "skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return ListOptions{}, errors.New("skip must be a non-negative integer")
		}
		opts.Skip = n
	}

	if v := first(q, "sortBy"); v != "" {
		field, dir, _ := strings.Cut(v, ":")
		switch field {
		case "createdAt":
			opts.SortBy = SortCreatedAt
		case "description":
			opts.SortBy = SortDescription
		case "completed":
			opts.SortBy = SortCompleted
		default:
			return ListOptions{}, errors.New("unknown sortBy field")
		}
		switch dir {
		case "", "asc":
		case "desc":
			opts.SortDesc = true
		default:
			return ListOptions{}, errors.New("sortBy direction must be asc or desc")
		}
	}

	return opts, nil
}

func first(q map[string][]string, key string) string {
	vs := q[key]
	if len(vs) == 0 {
		return ""
	}
	return strings.TrimSpace(vs[0])
}

// ---- helpers ----

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeErr(w http.ResponseWriter, status int, code, msg string) {
	h.writeJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": msg},
	})
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error, event string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		h.writeErr(w, http.StatusBadRequest, "validation_failure", "invalid input")
	case errors.Is(err, ErrNotFound):
		h.writeErr(w, http.StatusNotFound, "not_found", "not found")
	default:
		h.log.Error(event, "err", err)
		h.writeErr(w, http.StatusInternalServerError, "storage_failure", "internal error")
	}
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer func() { _ = r.Body.Close() }()

	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after JSON object")
	}
	return nil
}

func (h *Handler) decodePatch(w http.ResponseWriter, r *http.Request) (map[string]json.RawMessage, error) {
	if r.Body == nil {
		return nil, errors.New("empty body")
	}
	defer func() { _ = r.Body.Close() }()

	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	dec := json.NewDecoder(body)

	var patch map[string]json.RawMessage
	if err := dec.Decode(&patch); err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, errors.New("extra data after JSON object")
	}
	if len(patch) == 0 {
		return nil, errors.New("empty patch")
	}
	return patch, nil
}

package authapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"taskman/cmd/identity"
	"taskman/cmd/internal/auth/session"
	"taskman/cmd/internal/mailer"
)

// Handler wires the /users HTTP endpoints to the account store, the session
// token set, and the mail notifier.
type Handler struct {
	log *slog.Logger
	cfg Config

	accounts identity.Store
	sessions *session.Service
	guard    *Guard
	notify   *mailer.Notifier

	dummyHash string
}

// NewHandler constructs the auth Handler.
func NewHandler(log *slog.Logger, cfg Config, accounts identity.Store, sessions *session.Service, guard *Guard, notify *mailer.Notifier) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if notify == nil {
		notify = mailer.NewNotifier(log, mailer.Noop{})
	}

	h := &Handler{
		log:      log,
		cfg:      cfg.withDefaults(),
		accounts: accounts,
		sessions: sessions,
		guard:    guard,
		notify:   notify,
	}

	// Dummy hash for timing-resistant login checks.
	if hash, err := identity.HashPassword("dummy-password-for-timing-only", identity.DefaultArgon2idParams()); err == nil {
		h.dummyHash = hash
	}

	return h
}

// Register wires the user routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /users", h.handleSignup)
	mux.HandleFunc("POST /users/login", h.handleLogin)
	mux.Handle("POST /users/logout", h.guard.Require(http.HandlerFunc(h.handleLogout)))
	mux.Handle("POST /users/logoutAll", h.guard.Require(http.HandlerFunc(h.handleLogoutAll)))
	mux.Handle("GET /users/me", h.guard.Require(http.HandlerFunc(h.handleMe)))
	mux.Handle("PATCH /users/me", h.guard.Require(http.HandlerFunc(h.handleUpdateMe)))
	mux.Handle("DELETE /users/me", h.guard.Require(http.HandlerFunc(h.handleDeleteMe)))
	mux.Handle("POST /users/me/avatar", h.guard.Require(http.HandlerFunc(h.handleUploadAvatar)))
	mux.Handle("DELETE /users/me/avatar", h.guard.Require(http.HandlerFunc(h.handleDeleteAvatar)))
	mux.HandleFunc("GET /users/{id}/avatar", h.handleServeAvatar)
}

// Guard returns the access-control guard so other route groups can share it.
func (h *Handler) Guard() *Guard {
	if h == nil {
		return nil
	}
	return h.guard
}

// ---- handlers ----

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailure, "invalid request body")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	account, err := h.accounts.CreateAccount(ctx, identity.CreateAccountInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Age:      req.Age,
		Now:      now,
	})
	if err != nil {
		h.writeStoreError(w, err, "auth.signup.fail")
		return
	}

	token, err := h.sessions.Issue(ctx, now, account.ID)
	if err != nil {
		h.log.Error("auth.signup.issue_token.fail", "err", err)
		writeError(w, http.StatusInternalServerError, codeStorageFailure, "internal error")
		return
	}

	h.notify.Welcome(account.Email, account.Name)

	writeJSON(w, http.StatusCreated, authResponse{
		User:  toAccountResponse(account),
		Token: token,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailure, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailure, "email and password are required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	auth, err := h.accounts.GetAuthByEmail(ctx, req.Email)
	if err != nil {
		// Timing resistance: perform a dummy verify when the account is missing.
		if h.dummyHash != "" {
			_, _ = identity.VerifyPassword(req.Password, h.dummyHash)
		}
		if !identity.IsNotFound(err) && !identity.IsInvalidInput(err) {
			h.log.Error("auth.login.lookup.fail", "err", err)
			writeError(w, http.StatusInternalServerError, codeStorageFailure, "internal error")
			return
		}
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "invalid credentials")
		return
	}

	okPw, err := identity.VerifyPassword(req.Password, auth.PasswordHash)
	if err != nil || !okPw {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "invalid credentials")
		return
	}

	token, err := h.sessions.Issue(ctx, now, auth.Account.ID)
	if err != nil {
		h.log.Error("auth.login.issue_token.fail", "err", err)
		writeError(w, http.StatusInternalServerError, codeStorageFailure, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		User:  toAccountResponse(auth.Account),
		Token: token,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "please authenticate")
		return
	}

	if err := h.sessions.RevokeOne(r.Context(), p.Account.ID, p.Token); err != nil {
		h.log.Error("auth.logout.fail", "err", err)
		writeError(w, http.StatusInternalServerError, codeStorageFailure, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "please authenticate")
		return
	}

	if err := h.sessions.RevokeAll(r.Context(), p.Account.ID); err != nil {
		h.log.Error("auth.logout_all.fail", "err", err)
		writeError(w, http.StatusInternalServerError, codeStorageFailure, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "please authenticate")
		return
	}

	writeJSON(w, http.StatusOK, meResponse{User: toAccountResponse(p.Account)})
}

// accountPatchAllowList is the fixed set of fields PATCH /users/me may touch.
var accountPatchAllowList = map[string]bool{
	"name":     true,
	"email":    true,
	"password": true,
	"age":      true,
}

func (h *Handler) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "please authenticate")
		return
	}

	patch, err := decodePatch(w, r, h.cfg.MaxBodyBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailure, "invalid request body")
		return
	}

	// Any key outside the allow-list rejects the whole patch; nothing from it
	// may be applied.
	for key := range patch {
		if !accountPatchAllowList[key] {
			writeError(w, http.StatusBadRequest, codeValidationFailure, "invalid updates")
			return
		}
	}

	in := identity.UpdateAccountInput{Now: time.Now().UTC()}
	if raw, ok := patch["name"]; ok {
		if err := json.Unmarshal(raw, &in.Name); err != nil || in.Name == nil {
			writeError(w, http.StatusBadRequest, codeValidationFailure, "invalid updates")
			return
		}
	}
	if raw, ok := patch["email"]; ok {
		if err := json.Unmarshal(raw, &in.Email); err != nil || in.Email == nil {
			writeError(w, http.StatusBadRequest, codeValidationFailure, "invalid updates")
			return
		}
	}
	if raw, ok := patch["password"]; ok {
		if err := json.Unmarshal(raw, &in.Password); err != nil || in.Password == nil {
			writeError(w, http.StatusBadRequest, codeValidationFailure, "invalid updates")
			return
		}
	}
	if raw, ok := patch["age"]; ok {
		if err := json.Unmarshal(raw, &in.Age); err != nil || in.Age == nil {
			writeError(w, http.StatusBadRequest, codeValidationFailure, "invalid updates")
			return
		}
	}

	account, err := h.accounts.UpdateAccount(r.Context(), p.Account.ID, in)
	if err != nil {
		h.writeStoreError(w, err, "auth.update_me.fail")
		return
	}

	writeJSON(w, http.StatusOK, meResponse{User: toAccountResponse(account)})
}

func (h *Handler) handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "please authenticate")
		return
	}

	if err := h.accounts.DeleteAccount(r.Context(), p.Account.ID); err != nil {
		h.writeStoreError(w, err, "auth.delete_me.fail")
		return
	}

	h.notify.Cancellation(p.Account.Email, p.Account.Name)

	writeJSON(w, http.StatusOK, meResponse{User: toAccountResponse(p.Account)})
}

// ---- helpers ----

// writeStoreError maps store error kinds onto the API's failure taxonomy.
// Raw store errors are logged, never serialized.
func (h *Handler) writeStoreError(w http.ResponseWriter, err error, event string) {
	switch {
	case identity.IsInvalidInput(err), identity.IsConflict(err):
		writeError(w, http.StatusBadRequest, codeValidationFailure, "invalid input")
	case identity.IsNotFound(err):
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	default:
		h.log.Error(event, "err", err)
		writeError(w, http.StatusInternalServerError, codeStorageFailure, "internal error")
	}
}

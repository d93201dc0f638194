package authapi

import (
	"errors"
	"io"
	"net/http"
	"time"

	"taskman/cmd/identity"
	"taskman/cmd/internal/avatar"
)

// handleUploadAvatar accepts a multipart "avatar" file, normalizes it to the
// canonical 250x250 PNG, and stores it on the caller's account.
func (h *Handler) handleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "please authenticate")
		return
	}

	// Bound the whole multipart body; a small allowance covers part headers.
	r.Body = http.MaxBytesReader(w, r.Body, avatar.MaxUploadBytes+(64<<10))

	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailure, "avatar file is required")
		return
	}
	defer func() { _ = file.Close() }()

	if !avatar.AllowedFilename(header.Filename) {
		writeError(w, http.StatusBadRequest, codeValidationFailure, "please upload a jpg, jpeg, or png")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, avatar.MaxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailure, "unreadable upload")
		return
	}
	if len(data) > avatar.MaxUploadBytes {
		writeError(w, http.StatusBadRequest, codeValidationFailure, "avatar exceeds the size limit")
		return
	}

	normalized, err := avatar.Normalize(data)
	if err != nil {
		if errors.Is(err, avatar.ErrBadImage) || errors.Is(err, avatar.ErrTooLarge) {
			writeError(w, http.StatusBadRequest, codeValidationFailure, "invalid image data")
			return
		}
		h.log.Error("auth.avatar.normalize.fail", "err", err)
		writeError(w, http.StatusInternalServerError, codeStorageFailure, "internal error")
		return
	}

	if err := h.accounts.SetAvatar(r.Context(), p.Account.ID, normalized, time.Now().UTC()); err != nil {
		h.writeStoreError(w, err, "auth.avatar.store.fail")
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleDeleteAvatar(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "please authenticate")
		return
	}

	if err := h.accounts.ClearAvatar(r.Context(), p.Account.ID, time.Now().UTC()); err != nil {
		h.writeStoreError(w, err, "auth.avatar.clear.fail")
		return
	}

	w.WriteHeader(http.StatusOK)
}

// handleServeAvatar is public: avatars are served by account id with no auth.
// A missing account and a missing avatar are both a plain 404.
func (h *Handler) handleServeAvatar(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("id")

	data, err := h.accounts.GetAvatar(r.Context(), accountID)
	if err != nil {
		if identity.IsNotFound(err) || identity.IsInvalidInput(err) {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		h.log.Error("auth.avatar.serve.fail", "err", err)
		writeError(w, http.StatusInternalServerError, codeStorageFailure, "internal error")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

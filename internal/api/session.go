package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/govright/platform-services/internal/auth"
)

const maxWait = 60 * time.Second

// Login handles POST /api/auth/login.
//
//	@Summary		Sign in with corpus credentials
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LoginRequest	true	"Credentials"
//	@Success		200		{object}	corpus.LoginResult
//	@Failure		400		{object}	errResponse
//	@Failure		401		{object}	errResponse
//	@Router			/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "login", err)
		return
	}
	res, err := h.Auth.Login(r.Context(), auth.Credentials(req))
	if err != nil {
		writeError(w, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Logout handles POST /api/auth/logout. Local state is always cleared.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Auth.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Session handles GET /api/auth/session: the signed-in user, restoring
// the session from saved tokens when needed.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	if u := h.Auth.CurrentUser(); u != nil {
		writeJSON(w, http.StatusOK, u)
		return
	}
	u, err := h.Auth.CheckLogin(r.Context())
	if err != nil {
		writeError(w, "check login", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func attemptResponse(a *auth.Attempt) AttemptResponse {
	resp := AttemptResponse{ID: a.ID, URL: a.URL, Features: a.Features}
	select {
	case <-a.Done():
		resp.Done = true
		u, err := a.Result()
		resp.User = u
		if err != nil {
			resp.Error = err.Error()
		}
	default:
	}
	return resp
}

// SocialLogin handles POST /api/auth/social. The popup is opened through
// the event stream; the response describes the pending attempt.
func (h *Handler) SocialLogin(w http.ResponseWriter, r *http.Request) {
	var req SocialLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "social login", err)
		return
	}
	if req.URL == "" {
		req.URL = h.AuthURL
	}
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("url is required"))
		return
	}
	a, err := h.Auth.SocialLogin(r.Context(), req.URL, req.Screen)
	if err != nil {
		writeError(w, "social login", err)
		return
	}
	writeJSON(w, http.StatusAccepted, attemptResponse(a))
}

// SocialAttempt handles GET /api/auth/social/{id}. With ?wait=<duration>
// the request blocks until the attempt settles or the wait elapses.
func (h *Handler) SocialAttempt(w http.ResponseWriter, r *http.Request) {
	a, ok := h.Auth.Attempt(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	if d, err := time.ParseDuration(r.URL.Query().Get("wait")); err == nil && d > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), min(d, maxWait))
		_, _ = a.Wait(ctx)
		cancel()
		if r.Context().Err() != nil {
			return
		}
	}
	writeJSON(w, http.StatusOK, attemptResponse(a))
}

// SocialClosed handles POST /api/auth/social/{id}/closed, sent by the front
// end when the user closes the popup.
func (h *Handler) SocialClosed(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.PopupClosed(chi.URLParam(r, "id")); err != nil {
		writeError(w, "popup closed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AuthMessage handles POST /api/auth/message: the payload the popup posted
// back to its opener.
func (h *Handler) AuthMessage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	u, err := h.Auth.ProcessAuthMessage(r.Context(), body)
	if err != nil {
		writeError(w, "auth message", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// PostAction handles POST /api/facebook/actions/{action}.
//
//	@Summary		Publish an Open Graph action for the signed-in user
//	@Tags			facebook
//	@Accept			json
//	@Produce		json
//	@Param			action	path	string	true	"Action name"
//	@Failure		400		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Router			/facebook/actions/{action} [post]
func (h *Handler) PostAction(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &data); err != nil {
			writeError(w, "facebook action", err)
			return
		}
	}
	res, err := h.Facebook.PostAction(r.Context(), chi.URLParam(r, "action"), data)
	if err != nil {
		writeError(w, "facebook action", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ShowMessage handles POST /api/messages. Confirmations block until the
// front end answers or the request ends.
func (h *Handler) ShowMessage(w http.ResponseWriter, r *http.Request) {
	var req ShowRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "show message", err)
		return
	}
	ctx := r.Context()
	text, _ := req.Content.(string)
	ok := true
	var err error
	switch req.Kind {
	case ShowNotFound:
		err = h.notify.Error404(ctx, text)
	case ShowTransition:
		err = h.notify.Transition(ctx, req.Title, text)
	case ShowSuccess:
		err = h.notify.Success(ctx, text)
	case ShowError:
		err = h.notify.Error(ctx, req.Title, req.Content, req.OK)
	case ShowConfirm:
		ok, err = h.notify.Confirm(ctx, req.Title, req.OK, req.Cancel)
	}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		writeError(w, "show message", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": ok})
}

// PendingMessages handles GET /api/messages: unanswered confirmations.
func (h *Handler) PendingMessages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"pending": h.Messages.Pending()})
}

// AnswerMessage handles POST /api/messages/{id}/answer.
func (h *Handler) AnswerMessage(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "answer message", err)
		return
	}
	if err := h.Messages.Answer(chi.URLParam(r, "id"), req.OK); err != nil {
		writeError(w, "answer message", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

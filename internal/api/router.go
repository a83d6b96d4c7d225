package api

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer auth is enforced with token or the
// d.Sessions access token; d.Events, if non-nil, is mounted at GET /events
// inside the auth group.
func NewRouter(d Deps, authEnabled bool, token string) chi.Router {
	h := NewHandler(d)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token, d.Sessions))

	r.Route("/documents", func(r chi.Router) {
		r.Get("/", h.ListDocuments)
		r.Post("/", h.CreateDocument)
		r.Get("/{id}", h.GetDocument)
		r.Put("/{id}", h.UpdateDocument)
		r.Delete("/{id}", h.DeleteDocument)
		r.Get("/{id}/nodes/{nodeID}", h.GetNode)
		r.Post("/{id}/nodes/{nodeID}/open", h.OpenNode)
	})

	r.Get("/search", h.Search)

	r.Get("/locale", h.GetLocale)
	r.Put("/locale", h.SetLocale)
	r.Get("/locales", h.ListLocales)
	r.Put("/locales", h.SetLocales)

	r.Post("/embedding", h.ReadEmbedding)
	if d.Embedding != nil {
		r.Get("/embedding", h.GetEmbedding)
	}

	if d.Auth != nil {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.Get("/session", h.Session)
			r.Post("/social", h.SocialLogin)
			r.Get("/social/{id}", h.SocialAttempt)
			r.Post("/social/{id}/closed", h.SocialClosed)
			r.Post("/message", h.AuthMessage)
		})
	}
	if d.Facebook != nil {
		r.Post("/facebook/actions/{action}", h.PostAction)
	}
	if d.Messages != nil {
		r.Post("/messages", h.ShowMessage)
		r.Get("/messages", h.PendingMessages)
		r.Post("/messages/{id}/answer", h.AnswerMessage)
	}

	// SSE endpoint (protected by same auth middleware).
	if d.Events != nil {
		r.Get("/events", d.Events.ServeHTTP)
	}

	return r
}

package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/govright/platform-services/internal/auth"
	"github.com/govright/platform-services/internal/checksum"
	"github.com/govright/platform-services/internal/docservice"
	"github.com/govright/platform-services/internal/embedding"
	"github.com/govright/platform-services/internal/facebook"
	"github.com/govright/platform-services/internal/message"
	"github.com/govright/platform-services/internal/models"
)

// Deps are the services behind the routes. Only Docs is required; routes
// of nil services are not mounted.
type Deps struct {
	Docs      *docservice.Service
	Auth      *auth.Service
	Facebook  *facebook.Client
	Messages  *message.BusPresenter
	Embedding *embedding.Provider
	Events    http.Handler

	// Sessions, when set, lets the signed-in user's corpus access token
	// authorize API requests alongside the static token.
	Sessions SessionTokens

	// AuthURL is the social login page used when a request names none.
	AuthURL string
}

// Handler holds API route handlers.
type Handler struct {
	Deps
	notify *message.Service
}

// NewHandler creates a new Handler.
func NewHandler(d Deps) *Handler {
	h := &Handler{Deps: d}
	if d.Messages != nil {
		h.notify = message.NewService(d.Messages)
	}
	return h
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List documents with optional pagination
//	@Tags			documents
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			sort	query		string	false	"Sort field"	Enums(id, title, updated)
//	@Success		200		{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	items, total, err := h.Docs.List(r.Context(), queryInt(r, "limit"), queryInt(r, "offset"), r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, "list documents", err)
		return
	}
	if items == nil {
		items = []models.DocumentMeta{}
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: items, Total: total})
}

// GetDocument handles GET /api/documents/{id}. With ?raw=1 the stored
// package is returned as is.
//
//	@Summary		Get a decorated document
//	@Tags			documents
//	@Produce		json
//	@Param			id		path		string	true	"Document id"
//	@Param			raw		query		bool	false	"Return the stored package"
//	@Success		200		{object}	DocumentView
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if raw, _ := strconv.ParseBool(r.URL.Query().Get("raw")); raw {
		data, sum, err := h.Docs.Raw(r.Context(), id)
		if err != nil {
			writeError(w, "get document", err)
			return
		}
		w.Header().Set("ETag", checksum.ETag(sum))
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(data)
		return
	}

	doc, err := h.Docs.Get(r.Context(), id)
	if err != nil {
		writeError(w, "get document", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(doc.Checksum))
	if inm := r.Header.Get("If-None-Match"); inm != "" && checksum.MatchETag(inm, doc.Checksum) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func packageName(r *http.Request) string {
	if name := r.URL.Query().Get("name"); name != "" {
		return name
	}
	ct := r.Header.Get("Content-Type")
	if strings.Contains(ct, "yaml") {
		return "upload.yaml"
	}
	return "upload.json"
}

// CreateDocument handles POST /api/documents. The body is the package
// itself, JSON or YAML.
//
//	@Summary		Create a document package
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			name	query		string	false	"File name used for format and default id"
//	@Success		201		{object}	models.DocumentMeta
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents [post]
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("package body is required"))
		return
	}
	meta, err := h.Docs.Create(r.Context(), packageName(r), body)
	if err != nil {
		writeError(w, "create document", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(meta.Checksum))
	writeJSON(w, http.StatusCreated, meta)
}

// UpdateDocument handles PUT /api/documents/{id}.
//
//	@Summary		Replace a document package with optimistic concurrency
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			id			path	string	true	"Document id"
//	@Param			If-Match	header	string	false	"ETag of the package being replaced"
//	@Success		200		{object}	models.DocumentMeta
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [put]
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("package body is required"))
		return
	}
	meta, err := h.Docs.Update(r.Context(), chi.URLParam(r, "id"), body, r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, "update document", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(meta.Checksum))
	writeJSON(w, http.StatusOK, meta)
}

// DeleteDocument handles DELETE /api/documents/{id}.
//
//	@Summary		Delete a document package
//	@Tags			documents
//	@Param			id	path	string	true	"Document id"
//	@Success		204	"Document deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.Docs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetNode handles GET /api/documents/{id}/nodes/{nodeID}.
//
//	@Summary		Get one decorated node
//	@Tags			documents
//	@Produce		json
//	@Success		200	{object}	nodetree.NodeView
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/nodes/{nodeID} [get]
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	n, err := h.Docs.Node(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "nodeID"))
	if err != nil {
		writeError(w, "get node", err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// OpenNode handles POST /api/documents/{id}/nodes/{nodeID}/open.
//
//	@Summary		Expand the ancestors of a node
//	@Tags			documents
//	@Produce		json
//	@Success		200	{object}	nodetree.NodeView
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/nodes/{nodeID}/open [post]
func (h *Handler) OpenNode(w http.ResponseWriter, r *http.Request) {
	n, err := h.Docs.OpenParents(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "nodeID"))
	if err != nil {
		writeError(w, "open node", err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across node titles and text
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			locale	query		string	false	"Restrict to one locale"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	results, err := h.Docs.Search(r.Context(), q, r.URL.Query().Get("locale"), queryInt(r, "limit"))
	if err != nil {
		writeError(w, "search", err)
		return
	}
	if results == nil {
		results = []models.SearchHit{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// GetLocale handles GET /api/locale.
func (h *Handler) GetLocale(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Docs.Locale())
}

// SetLocale handles PUT /api/locale.
func (h *Handler) SetLocale(w http.ResponseWriter, r *http.Request) {
	var req LocaleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "set locale", err)
		return
	}
	l, err := h.Docs.SetLocale(req.Code)
	if err != nil {
		writeError(w, "set locale", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// ListLocales handles GET /api/locales.
func (h *Handler) ListLocales(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"locales": h.Docs.Locales()})
}

// SetLocales handles PUT /api/locales.
func (h *Handler) SetLocales(w http.ResponseWriter, r *http.Request) {
	var req LocalesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "set locales", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"locales": h.Docs.SetLocales(req.Codes)})
}

// ReadEmbedding handles POST /api/embedding: the body is an HTML page and
// the response its application root's parameters.
func (h *Handler) ReadEmbedding(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	root, err := embedding.FromHTML(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid HTML body"))
		return
	}
	params, err := embedding.Read(root)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, params)
}

// GetEmbedding handles GET /api/embedding: parameters of the configured
// host page.
func (h *Handler) GetEmbedding(w http.ResponseWriter, _ *http.Request) {
	params, err := h.Embedding.Params()
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, params)
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/govright/platform-services/internal/auth"
	"github.com/govright/platform-services/internal/corpus"
	"github.com/govright/platform-services/internal/docservice"
	"github.com/govright/platform-services/internal/events"
	"github.com/govright/platform-services/internal/kv"
	"github.com/govright/platform-services/internal/message"
	"github.com/govright/platform-services/internal/models"
	"github.com/govright/platform-services/internal/nodetree"
	"github.com/govright/platform-services/internal/testutil"
)

type env struct {
	docs     *docservice.Service
	bus      *events.Bus
	messages *message.BusPresenter
	router   http.Handler
}

// testEnv sets up a temp documents dir, SQLite DB, services, and router.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) *env {
	t.Helper()
	return testEnvWith(t, authToken, nil)
}

func testEnvWith(t *testing.T, authToken string, eventsHandler http.Handler) *env {
	t.Helper()
	_, store := testutil.TestStore(t)
	db := testutil.TestDB(t)
	bus := events.NewBus()
	logger := testutil.QuietLogger()
	docs := docservice.New(store, db, testutil.TestResolver(t, bus), bus, logger, nodetree.DefaultSettings().Options()...)
	t.Cleanup(docs.Close)

	srv := httptest.NewServer(http.HandlerFunc(fakeCorpus))
	t.Cleanup(srv.Close)
	tokens, err := corpus.NewTokenStore(kv.NewStorage(nil))
	if err != nil {
		t.Fatal(err)
	}
	users := corpus.NewClient(srv.URL+"/api/", tokens, srv.Client(), logger)

	e := &env{docs: docs, bus: bus, messages: message.NewBusPresenter(bus)}
	e.router = NewRouter(Deps{
		Docs:     docs,
		Auth:     auth.NewService(users, tokens, nil, auth.BusOpener{Bus: bus}, bus, logger),
		Messages: e.messages,
		Events:   eventsHandler,
		Sessions: tokens,
	}, authToken != "", authToken)
	return e
}

func fakeCorpus(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/Users/login":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"statusCode":401,"message":"login failed"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"tok-1","ttl":1209600,"userId":7,"user":{"id":7,"email":"a@b.org"}}`))
	case r.Method == http.MethodPost && r.URL.Path == "/api/Users/logout":
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (e *env) do(t *testing.T, method, target string, body []byte, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *env) create(t *testing.T) *httptest.ResponseRecorder {
	t.Helper()
	w := e.do(t, http.MethodPost, "/documents", []byte(testutil.LawPackage))
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	return w
}

func TestCreateAndGetDocument(t *testing.T) {
	e := testEnv(t, "")
	w := e.create(t)
	etag := w.Header().Get("ETag")
	if !strings.HasPrefix(etag, `"`) {
		t.Errorf("ETag = %q", etag)
	}

	w = e.do(t, http.MethodGet, "/documents/law-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var doc DocumentView
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Title != "Constitution" || len(doc.Nodes) != 1 {
		t.Errorf("doc = %+v", doc)
	}
	if w.Header().Get("ETag") != etag {
		t.Errorf("get ETag = %q, want %q", w.Header().Get("ETag"), etag)
	}

	w = e.do(t, http.MethodGet, "/documents/law-1", nil, "If-None-Match", etag)
	if w.Code != http.StatusNotModified {
		t.Errorf("conditional get = %d, want 304", w.Code)
	}

	w = e.do(t, http.MethodGet, "/documents/law-1?raw=1", nil)
	if w.Body.String() != testutil.LawPackage {
		t.Errorf("raw body differs")
	}
}

func TestCreateDuplicate(t *testing.T) {
	e := testEnv(t, "")
	e.create(t)
	w := e.do(t, http.MethodPost, "/documents", []byte(testutil.LawPackage))
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", w.Code)
	}
}

func TestCreateInvalidPackage(t *testing.T) {
	e := testEnv(t, "")
	w := e.do(t, http.MethodPost, "/documents", []byte(`{"nodes": [`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid create = %d, want 400", w.Code)
	}
}

func TestUpdateWithOptimisticLocking(t *testing.T) {
	e := testEnv(t, "")
	etag := e.create(t).Header().Get("ETag")
	updated := []byte(`{"id": "law-1", "locales": {"en": {"title": "Charter"}}, "nodes": []}`)

	w := e.do(t, http.MethodPut, "/documents/law-1", updated, "If-Match", `"wrong"`)
	if w.Code != http.StatusConflict {
		t.Errorf("stale update = %d, want 409", w.Code)
	}

	w = e.do(t, http.MethodPut, "/documents/law-1", updated, "If-Match", etag)
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d, body = %s", w.Code, w.Body.String())
	}
	var meta models.DocumentMeta
	_ = json.Unmarshal(w.Body.Bytes(), &meta)
	if meta.Title != "Charter" {
		t.Errorf("meta = %+v", meta)
	}
	if w.Header().Get("ETag") == etag {
		t.Error("ETag unchanged after update")
	}
}

func TestUpdateNotFound(t *testing.T) {
	e := testEnv(t, "")
	w := e.do(t, http.MethodPut, "/documents/missing", []byte(`{"nodes": []}`))
	if w.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", w.Code)
	}
}

func TestDeleteDocument(t *testing.T) {
	e := testEnv(t, "")
	e.create(t)
	if w := e.do(t, http.MethodDelete, "/documents/law-1", nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/documents/law-1", nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
	if w := e.do(t, http.MethodDelete, "/documents/law-1", nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestListDocuments(t *testing.T) {
	e := testEnv(t, "")
	w := e.do(t, http.MethodGet, "/documents", nil)
	if !strings.Contains(w.Body.String(), `"documents":[]`) {
		t.Errorf("empty list = %s", w.Body.String())
	}
	e.create(t)
	w = e.do(t, http.MethodGet, "/documents?limit=10&sort=title", nil)
	var resp DocumentListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Documents[0].ID != "law-1" {
		t.Errorf("list = %+v", resp)
	}
}

func TestNodeEndpoints(t *testing.T) {
	e := testEnv(t, "")
	e.create(t)

	w := e.do(t, http.MethodGet, "/documents/law-1/nodes/2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get node = %d", w.Code)
	}
	var n nodetree.NodeView
	_ = json.Unmarshal(w.Body.Bytes(), &n)
	if n.Title != "Article 1" || n.ParentID == nil || *n.ParentID != "1" {
		t.Errorf("node = %+v", n)
	}

	if w := e.do(t, http.MethodPost, "/documents/law-1/nodes/2/open", nil); w.Code != http.StatusOK {
		t.Errorf("open = %d", w.Code)
	}
	w = e.do(t, http.MethodGet, "/documents/law-1/nodes/1", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &n)
	if !n.Open {
		t.Error("parent not open")
	}

	if w := e.do(t, http.MethodGet, "/documents/law-1/nodes/9", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing node = %d", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	e := testEnv(t, "")
	e.create(t)
	w := e.do(t, http.MethodGet, "/search?q=Preamble", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) == 0 || resp.Results[0].DocumentID != "law-1" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	e := testEnv(t, "")
	if w := e.do(t, http.MethodGet, "/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("search without q = %d, want 400", w.Code)
	}
}

func TestLocaleEndpoints(t *testing.T) {
	e := testEnv(t, "")
	e.create(t)

	w := e.do(t, http.MethodPut, "/locale", []byte(`{"code":"ar"}`))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"dir":"rtl"`) {
		t.Fatalf("set locale = %d %s", w.Code, w.Body.String())
	}
	w = e.do(t, http.MethodGet, "/documents/law-1/nodes/1", nil)
	if !strings.Contains(w.Body.String(), "ديباجة") {
		t.Errorf("node not repopulated: %s", w.Body.String())
	}

	if w := e.do(t, http.MethodPut, "/locale", []byte(`{"code":"xx"}`)); w.Code != http.StatusBadRequest {
		t.Errorf("invalid locale = %d", w.Code)
	}
	if w := e.do(t, http.MethodPut, "/locale", []byte(`{}`)); w.Code != http.StatusBadRequest {
		t.Errorf("missing code = %d", w.Code)
	}

	w = e.do(t, http.MethodPut, "/locales", []byte(`{"codes":["ar"]}`))
	if !strings.Contains(w.Body.String(), `"code":"ar"`) || strings.Contains(w.Body.String(), `"code":"en"`) {
		t.Errorf("set locales = %s", w.Body.String())
	}
	w = e.do(t, http.MethodGet, "/locales", nil)
	if strings.Contains(w.Body.String(), `"code":"en"`) {
		t.Errorf("locales = %s", w.Body.String())
	}
}

func TestEmbeddingEndpoint(t *testing.T) {
	e := testEnv(t, "")
	page := `<html><body><div ng-app="corpus" data-is-embedded-mode="true" data-query="a=1&b=2"></div></body></html>`
	w := e.do(t, http.MethodPost, "/embedding", []byte(page))
	if w.Code != http.StatusOK {
		t.Fatalf("embedding = %d %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"isEmbeddedMode"`) {
		t.Errorf("params = %s", w.Body.String())
	}
}

func TestLoginEndpoints(t *testing.T) {
	e := testEnv(t, "")

	if w := e.do(t, http.MethodGet, "/auth/session", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("session before login = %d, want 401", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/auth/login", []byte(`{"password":"secret"}`)); w.Code != http.StatusBadRequest {
		t.Errorf("login without name = %d, want 400", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/auth/login", []byte(`{"email":"a@b.org","password":"nope"}`)); w.Code != http.StatusUnauthorized {
		t.Errorf("bad password = %d, want 401", w.Code)
	}

	w := e.do(t, http.MethodPost, "/auth/login", []byte(`{"email":"a@b.org","password":"secret"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("login = %d %s", w.Code, w.Body.String())
	}
	w = e.do(t, http.MethodGet, "/auth/session", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"id":"7"`) {
		t.Errorf("session = %d %s", w.Code, w.Body.String())
	}

	if w := e.do(t, http.MethodPost, "/auth/logout", nil); w.Code != http.StatusNoContent {
		t.Errorf("logout = %d", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/auth/session", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("session after logout = %d, want 401", w.Code)
	}
}

func TestSocialLoginFlow(t *testing.T) {
	e := testEnv(t, "")
	var opened []auth.PopupRequest
	e.bus.Subscribe(events.TopicAuthPopup, func(ev events.Event) {
		opened = append(opened, ev.Data.(auth.PopupRequest))
	})

	w := e.do(t, http.MethodPost, "/auth/social", []byte(`{"url":"https://corpus.govright.org/auth/facebook","screen":{"width":1280,"height":800}}`))
	if w.Code != http.StatusAccepted {
		t.Fatalf("social = %d %s", w.Code, w.Body.String())
	}
	var a AttemptResponse
	_ = json.Unmarshal(w.Body.Bytes(), &a)
	if a.Done || !strings.Contains(a.Features, "left=290") || len(opened) != 1 {
		t.Errorf("attempt = %+v, opened = %v", a, opened)
	}

	payload := `{"corpusAccessToken":{"id":"tok-9","userId":9},"facebookAccessData":{"appId":"app","accessToken":"fb","namespace":"ns"}}`
	if w := e.do(t, http.MethodPost, "/auth/message", []byte(payload)); w.Code != http.StatusOK {
		t.Fatalf("message = %d %s", w.Code, w.Body.String())
	}
	// A settled attempt is no longer pending.
	if w := e.do(t, http.MethodGet, "/auth/social/"+a.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("attempt after settle = %d", w.Code)
	}

	if w := e.do(t, http.MethodPost, "/auth/message", []byte(`{}`)); w.Code != http.StatusBadRequest {
		t.Errorf("invalid payload = %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/auth/social/nope/closed", nil); w.Code != http.StatusNotFound {
		t.Errorf("closed unknown = %d", w.Code)
	}
}

func TestSocialAttemptWait(t *testing.T) {
	e := testEnv(t, "")
	w := e.do(t, http.MethodPost, "/auth/social", []byte(`{"url":"https://corpus.govright.org/auth/facebook"}`))
	var a AttemptResponse
	_ = json.Unmarshal(w.Body.Bytes(), &a)

	start := time.Now()
	w = e.do(t, http.MethodGet, "/auth/social/"+a.ID+"?wait=50ms", nil)
	if w.Code != http.StatusOK || time.Since(start) < 50*time.Millisecond {
		t.Errorf("wait = %d after %v", w.Code, time.Since(start))
	}
	if err := json.Unmarshal(w.Body.Bytes(), &a); err != nil || a.Done {
		t.Errorf("attempt = %+v", a)
	}
}

func TestAnswerMessage(t *testing.T) {
	e := testEnv(t, "")
	svc := message.NewService(e.messages)

	got := make(chan bool, 1)
	go func() {
		ok, _ := svc.Confirm(context.Background(), "Delete?", "", "")
		got <- ok
	}()

	var id string
	for i := 0; i < 100 && id == ""; i++ {
		if p := e.messages.Pending(); len(p) > 0 {
			id = p[0]
		} else {
			time.Sleep(5 * time.Millisecond)
		}
	}
	if id == "" {
		t.Fatal("confirmation never pending")
	}
	if w := e.do(t, http.MethodPost, "/messages/"+id+"/answer", []byte(`{"ok":true}`)); w.Code != http.StatusNoContent {
		t.Fatalf("answer = %d", w.Code)
	}
	if ok := <-got; !ok {
		t.Error("confirm = false, want true")
	}
	if w := e.do(t, http.MethodPost, "/messages/"+id+"/answer", []byte(`{"ok":true}`)); w.Code != http.StatusNotFound {
		t.Errorf("second answer = %d, want 404", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	e := testEnv(t, "secret-token")
	w := e.do(t, http.MethodGet, "/documents", nil, "Authorization", "Bearer secret-token")
	if w.Code != http.StatusOK {
		t.Errorf("authed list = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	e := testEnv(t, "secret-token")
	if w := e.do(t, http.MethodGet, "/documents", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	e := testEnv(t, "secret-token")
	if w := e.do(t, http.MethodGet, "/documents", nil, "Authorization", "Bearer wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_SessionToken(t *testing.T) {
	e := testEnv(t, "secret-token")
	if w := e.do(t, http.MethodGet, "/documents", nil, "Authorization", "Bearer tok-1"); w.Code != http.StatusUnauthorized {
		t.Fatalf("session token before login = %d, want 401", w.Code)
	}

	w := e.do(t, http.MethodPost, "/auth/login", []byte(`{"email":"a@b.org","password":"secret"}`),
		"Authorization", "Bearer secret-token")
	if w.Code != http.StatusOK {
		t.Fatalf("login = %d %s", w.Code, w.Body.String())
	}
	if w := e.do(t, http.MethodGet, "/documents", nil, "Authorization", "Bearer tok-1"); w.Code != http.StatusOK {
		t.Errorf("session token = %d, want 200", w.Code)
	}

	if w := e.do(t, http.MethodPost, "/auth/logout", nil, "Authorization", "Bearer tok-1"); w.Code != http.StatusNoContent {
		t.Fatalf("logout = %d", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/documents", nil, "Authorization", "Bearer tok-1"); w.Code != http.StatusUnauthorized {
		t.Errorf("session token after logout = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_EmptyBearer(t *testing.T) {
	h := AuthMiddleware(true, "", nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer ")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("empty bearer = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	sse := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	e := testEnvWith(t, "secret-token", sse)
	if w := e.do(t, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/events", nil, "Authorization", "Bearer secret-token"); w.Code != http.StatusOK {
		t.Errorf("SSE valid token = %d, want 200", w.Code)
	}
}

func TestShowMessage(t *testing.T) {
	e := testEnv(t, "")
	var shown []message.Message
	e.bus.Subscribe(events.TopicMessageShow, func(ev events.Event) {
		shown = append(shown, ev.Data.(message.Message))
	})

	w := e.do(t, http.MethodPost, "/messages", []byte(`{"kind":"error","title":"Oops","content":{"message":"boom"}}`))
	if w.Code != http.StatusOK {
		t.Fatalf("show = %d %s", w.Code, w.Body.String())
	}
	if len(shown) != 1 || shown[0].Content != "boom" || shown[0].OK != message.DefaultAlertOK {
		t.Errorf("shown = %+v", shown)
	}
	if w := e.do(t, http.MethodPost, "/messages", []byte(`{"kind":"shout"}`)); w.Code != http.StatusBadRequest {
		t.Errorf("unknown kind = %d", w.Code)
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"chunav.chat/completion"
	"chunav.chat/languages"
	"chunav.chat/session"
)

// fakeUpstream is an OpenAI-style streaming endpoint for handler tests. It
// records every message list it receives and can be switched to fail.
type fakeUpstream struct {
	mu        sync.Mutex
	fragments []string
	fail      bool
	calls     int
	lastMsgs  []completion.Message
}

func (f *fakeUpstream) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls++
		fail := f.fail
		fragments := f.fragments
		var req struct {
			Messages []completion.Message `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		f.lastMsgs = req.Messages
		f.mu.Unlock()

		if fail {
			http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, frag := range fragments {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", frag)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}
}

func (f *fakeUpstream) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeUpstream) lastMessages() []completion.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastMsgs
}

func newTestApp(t *testing.T, upstreamURL string) *app {
	t.Helper()
	cfg := &Config{
		APIKey:          "test-key",
		APIURL:          upstreamURL,
		Model:           "llama3-8b-8192",
		Temperature:     0.3,
		SessionSecret:   "test-secret",
		PromptProtocol:  languages.ProtocolSingle,
		UpstreamTimeout: 10 * time.Second,
	}
	registry := languages.NewRegistry()
	return &app{
		cfg:      cfg,
		registry: registry,
		resolver: languages.NewResolver(registry),
		store:    session.NewMemoryStore(10),
		llm:      completion.NewClient(upstreamURL, cfg.APIKey, cfg.UpstreamTimeout),
	}
}

// remoteSeq hands out distinct client addresses so handler tests never trip
// the shared per-IP rate limiter.
var (
	remoteMu  sync.Mutex
	remoteSeq int
)

func nextRemoteAddr() string {
	remoteMu.Lock()
	defer remoteMu.Unlock()
	remoteSeq++
	return fmt.Sprintf("10.1.%d.%d:4321", remoteSeq/250, remoteSeq%250+1)
}

func doRequest(a *app, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.RemoteAddr = nextRemoteAddr()
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.routes().ServeHTTP(rec, req)
	return rec
}

func sessionCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatal("response did not set a session cookie")
	return nil
}

func TestChatRejectsInvalidMessage(t *testing.T) {
	up := &fakeUpstream{fragments: []string{"should not be called"}}
	srv := httptest.NewServer(up.handler())
	defer srv.Close()
	a := newTestApp(t, srv.URL)

	for _, body := range []string{`{"message":""}`, `{}`, `not json`} {
		rec := doRequest(a, "POST", "/chat", body, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status %d, want 400", body, rec.Code)
		}
		if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"Invalid message."}` {
			t.Errorf("body %q: response %q", body, got)
		}
	}

	if n := up.callCount(); n != 0 {
		t.Errorf("gateway was invoked %d times for invalid messages, want 0", n)
	}
}

func TestChatStreamsPlainTextAndPersists(t *testing.T) {
	up := &fakeUpstream{fragments: []string{"**Voter card:** ", "apply ", "on the NVSP portal."}}
	srv := httptest.NewServer(up.handler())
	defer srv.Close()
	a := newTestApp(t, srv.URL)

	rec := doRequest(a, "POST", "/chat", `{"message":"How do I get a voter card?","lang":"en"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
	want := "**Voter card:** apply on the NVSP portal."
	if rec.Body.String() != want {
		t.Errorf("streamed body %q, want %q", rec.Body.String(), want)
	}

	// The completed exchange is now in the session history.
	cookie := sessionCookieFrom(t, rec)
	sid, ok := a.verifySession(cookie.Value)
	if !ok {
		t.Fatal("session cookie failed verification")
	}
	turns, err := a.store.Get(context.Background(), sid)
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 2 {
		t.Fatalf("history has %d turns, want 2", len(turns))
	}
	if turns[0].Role != session.RoleUser || turns[0].Content != "How do I get a voter card?" {
		t.Errorf("user turn = %+v", turns[0])
	}
	if turns[1].Role != session.RoleAssistant || turns[1].Content != want {
		t.Errorf("assistant turn = %+v", turns[1])
	}

	// A follow-up in the same session carries the history upstream.
	rec2 := doRequest(a, "POST", "/chat", `{"message":"And where do I vote?","lang":"en"}`, cookie)
	if rec2.Code != http.StatusOK {
		t.Fatalf("follow-up status %d, want 200", rec2.Code)
	}
	msgs := up.lastMessages()
	if len(msgs) != 4 {
		t.Fatalf("upstream saw %d messages, want 4 (system + 2 history + user)", len(msgs))
	}
	if msgs[0].Role != "system" || msgs[1].Content != "How do I get a voter card?" ||
		msgs[2].Role != "assistant" || msgs[3].Content != "And where do I vote?" {
		t.Errorf("unexpected upstream message list: %+v", msgs)
	}
}

func TestChatSystemPromptMatchesLanguage(t *testing.T) {
	up := &fakeUpstream{fragments: []string{"ok"}}
	srv := httptest.NewServer(up.handler())
	defer srv.Close()
	a := newTestApp(t, srv.URL)

	rec := doRequest(a, "POST", "/chat", `{"message":"hello","lang":"ta"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}

	msgs := up.lastMessages()
	if len(msgs) == 0 || msgs[0].Role != "system" {
		t.Fatalf("no system turn: %+v", msgs)
	}
	if want := a.registry.Lookup("ta").Instruction; !strings.Contains(msgs[0].Content, want) {
		t.Errorf("system prompt missing Tamil instruction %q", want)
	}
}

func TestChatGreetingTriggerOmitsHistory(t *testing.T) {
	up := &fakeUpstream{fragments: []string{"नमस्ते! 🙏"}}
	srv := httptest.NewServer(up.handler())
	defer srv.Close()
	a := newTestApp(t, srv.URL)

	rec := doRequest(a, "POST", "/chat", `{"message":"GREET_USER","lang":"hi"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}

	msgs := up.lastMessages()
	if len(msgs) != 2 {
		t.Fatalf("greeting sent %d messages upstream, want exactly 2", len(msgs))
	}
	if msgs[0].Role != "system" || msgs[1].Content != "GREET_USER" {
		t.Errorf("unexpected greeting messages: %+v", msgs)
	}
}

func TestChatUpstreamFailureReturns500AndNoHistory(t *testing.T) {
	up := &fakeUpstream{fail: true}
	srv := httptest.NewServer(up.handler())
	defer srv.Close()
	a := newTestApp(t, srv.URL)

	rec := doRequest(a, "POST", "/chat", `{"message":"hello"}`, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"An error occurred while communicating with the AI."}` {
		t.Errorf("response %q", got)
	}

	cookie := sessionCookieFrom(t, rec)
	sid, _ := a.verifySession(cookie.Value)
	turns, err := a.store.Get(context.Background(), sid)
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 0 {
		t.Errorf("failed turn was persisted: %d turns", len(turns))
	}
}

func TestResetClearsHistory(t *testing.T) {
	up := &fakeUpstream{fragments: []string{"ok"}}
	srv := httptest.NewServer(up.handler())
	defer srv.Close()
	a := newTestApp(t, srv.URL)

	// Seed a session directly.
	sid := "seeded-session"
	cookie := &http.Cookie{Name: sessionCookieName, Value: a.signSession(sid)}
	if err := a.store.Append(context.Background(), sid,
		session.Turn{Role: session.RoleUser, Content: "q"},
		session.Turn{Role: session.RoleAssistant, Content: "a"}); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ { // idempotent
		rec := doRequest(a, "POST", "/reset", "", cookie)
		if rec.Code != http.StatusOK {
			t.Fatalf("reset #%d: status %d", i+1, rec.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if body["status"] != "success" || body["message"] != "Chat history cleared." {
			t.Errorf("reset #%d: body %v", i+1, body)
		}
	}

	turns, err := a.store.Get(context.Background(), sid)
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 0 {
		t.Errorf("history not cleared: %d turns", len(turns))
	}
}

func TestHomeClearsHistoryAndServesPage(t *testing.T) {
	up := &fakeUpstream{}
	srv := httptest.NewServer(up.handler())
	defer srv.Close()
	a := newTestApp(t, srv.URL)

	sid := "landing-session"
	cookie := &http.Cookie{Name: sessionCookieName, Value: a.signSession(sid)}
	if err := a.store.Append(context.Background(), sid,
		session.Turn{Role: session.RoleUser, Content: "q"},
		session.Turn{Role: session.RoleAssistant, Content: "a"}); err != nil {
		t.Fatal(err)
	}

	rec := doRequest(a, "GET", "/", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	if !strings.Contains(rec.Body.String(), "चुनाव सलाहकार") {
		t.Error("landing page is missing the product title")
	}

	turns, err := a.store.Get(context.Background(), sid)
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 0 {
		t.Errorf("landing page load did not clear history: %d turns", len(turns))
	}
}

func TestFeedbackValidation(t *testing.T) {
	up := &fakeUpstream{}
	srv := httptest.NewServer(up.handler())
	defer srv.Close()
	a := newTestApp(t, srv.URL)

	valid := `{"user_message":"q","bot_response":"a","feedback_type":"positive","language":"hi"}`
	rec := doRequest(a, "POST", "/feedback", valid, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid feedback: status %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "success" {
		t.Errorf("valid feedback: body %v", body)
	}

	// Missing comment is fine; it gets a placeholder server-side.
	noComment := `{"user_message":"q","bot_response":"a","feedback_type":"negative"}`
	if rec := doRequest(a, "POST", "/feedback", noComment, nil); rec.Code != http.StatusOK {
		t.Errorf("missing comment: status %d, want 200", rec.Code)
	}

	malformed := []string{
		`not json`,
		`{"bot_response":"a","feedback_type":"positive"}`,
		`{"user_message":"q","feedback_type":"positive"}`,
		`{"user_message":"q","bot_response":"a"}`,
		`{"user_message":"q","bot_response":"a","feedback_type":"meh"}`,
	}
	for _, body := range malformed {
		rec := doRequest(a, "POST", "/feedback", body, nil)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("payload %q: status %d, want 500", body, rec.Code)
		}
	}
}

func TestSessionCookieSigning(t *testing.T) {
	a := newTestApp(t, "http://unused.invalid")

	signed := a.signSession("some-session-id")
	id, ok := a.verifySession(signed)
	if !ok || id != "some-session-id" {
		t.Errorf("round trip failed: id=%q ok=%v", id, ok)
	}

	for _, bad := range []string{"", "no-signature", "some-session-id.deadbeef", signed + "x"} {
		if _, ok := a.verifySession(bad); ok {
			t.Errorf("verifySession accepted %q", bad)
		}
	}
}

func TestHealth(t *testing.T) {
	a := newTestApp(t, "http://unused.invalid")
	rec := doRequest(a, "GET", "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status %d", rec.Code)
	}
}

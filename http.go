package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"chunav.chat/completion"
	"chunav.chat/languages"
	"chunav.chat/session"
)

// app wires the request handlers to their collaborators. The session store
// is injected rather than ambient so the history contract stays testable.
type app struct {
	cfg      *Config
	registry *languages.Registry
	resolver *languages.Resolver
	store    session.Store
	llm      *completion.Client
}

// StartHTTPServer serves the advisor on the given port. Blocks.
func StartHTTPServer(port int, a *app) error {
	addr := fmt.Sprintf(":%d", port)
	log.Printf("[HTTP] Listening on %s", addr)
	return http.ListenAndServe(addr, a.routes())
}

func (a *app) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", a.handleHome)
	mux.HandleFunc("POST /chat", a.handleChat)
	mux.HandleFunc("POST /reset", a.handleReset)
	mux.HandleFunc("POST /feedback", a.handleFeedback)
	mux.HandleFunc("GET /health", a.handleHealth)
	return mux
}

// --- session cookie ---

const sessionCookieName = "advisor_session"

// sessionID returns the verified session ID from the request cookie, minting
// and setting a fresh one when the cookie is absent or tampered.
func (a *app) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		if id, ok := a.verifySession(c.Value); ok {
			return id
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    a.signSession(id),
		Path:     "/",
		MaxAge:   int((24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.cfg.Production,
	})
	return id
}

func (a *app) signSession(id string) string {
	mac := hmac.New(sha256.New, []byte(a.cfg.SessionSecret))
	mac.Write([]byte(id))
	return id + "." + hex.EncodeToString(mac.Sum(nil))
}

func (a *app) verifySession(value string) (string, bool) {
	id, _, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}
	if !hmac.Equal([]byte(a.signSession(id)), []byte(value)) {
		return "", false
	}
	return id, true
}

// --- handlers ---

// handleHome renders the landing page. Loading it starts a fresh
// conversation: any stored history for the session is cleared.
func (a *app) handleHome(w http.ResponseWriter, r *http.Request) {
	if !rateLimitAllow(r.RemoteAddr) {
		http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	sid := a.sessionID(w, r)
	if err := a.store.Clear(r.Context(), sid); err != nil {
		log.Printf("[HTTP] Failed to clear history for session %s: %v", sid, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, landingPage)
}

type chatRequest struct {
	Message string `json:"message"`
	Lang    string `json:"lang"`
}

// handleChat runs one chat turn: resolve language, build the system prompt,
// fetch history, stream the completion to the client as raw text/plain, and
// persist the exchange only after the full stream has been consumed.
func (a *app) handleChat(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if !rateLimitAllow(r.RemoteAddr) {
		http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	var req chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid message."})
		return
	}

	ctx := r.Context()
	sid := a.sessionID(w, r)
	requestID := generateRequestID()

	code := a.resolver.Resolve(req.Lang, req.Message)
	systemPrompt := a.registry.SystemPrompt(code, a.cfg.PromptProtocol)

	history, err := a.store.Get(ctx, sid)
	if err != nil {
		// A broken store shouldn't take chat down; answer without context.
		log.Printf("[HTTP] History fetch failed for session %s: %v", sid, err)
		history = nil
	}

	msgs := completion.BuildMessages(systemPrompt, toMessages(history), req.Message, languages.GreetingTrigger)
	params := completion.Params{
		Model:       a.cfg.Model,
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
	}

	if debugMode {
		log.Printf("[HTTP] Chat request %s: session=%s lang=%s turns=%d", requestID, sid, code, len(history))
	}

	ch := make(chan completion.Chunk)
	go a.llm.Stream(ctx, msgs, params, ch)

	// Hold the first chunk back: an upstream failure before any forwarded
	// byte must surface as a clean 500, not a truncated 200.
	first, ok := <-ch
	if !ok || first.Err != nil {
		if first.Err != nil {
			log.Printf("[HTTP] LLM error on request %s: %v", requestID, first.Err)
		}
		LogChatTurn(sid, requestID, a.cfg.Model, code, req.Message, "", first.Err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "An error occurred while communicating with the AI."})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	flusher, _ := w.(http.Flusher)

	var full strings.Builder
	completed := false
	chunk := first
	for {
		if chunk.Err != nil {
			// Tokens are already on the wire; nothing can be retracted.
			// The client sees a silently truncated stream and nothing is
			// persisted.
			log.Printf("[HTTP] Stream truncated on request %s: %v", requestID, chunk.Err)
			LogChatTurn(sid, requestID, a.cfg.Model, code, req.Message, full.String(), chunk.Err)
			return
		}
		if chunk.Done {
			completed = true
			break
		}
		if chunk.Data != "" {
			if _, err := io.WriteString(w, chunk.Data); err != nil {
				// Client went away; the request context aborts the
				// upstream call. Partial turns are never persisted.
				log.Printf("[HTTP] Client disconnected on request %s", requestID)
				return
			}
			full.WriteString(chunk.Data)
			if flusher != nil {
				flusher.Flush()
			}
		}

		chunk, ok = <-ch
		if !ok {
			break
		}
	}

	if !completed {
		log.Printf("[HTTP] Stream ended without completion on request %s", requestID)
		return
	}

	// True end-of-stream: persist the exchange. Detached from the request
	// context so a client that hung up after the last token doesn't lose
	// the turn.
	persistCtx := context.WithoutCancel(ctx)
	userTurn := session.Turn{Role: session.RoleUser, Content: req.Message}
	botTurn := session.Turn{Role: session.RoleAssistant, Content: full.String()}
	if err := a.store.Append(persistCtx, sid, userTurn, botTurn); err != nil {
		log.Printf("[HTTP] Failed to persist turn for session %s: %v", sid, err)
	}

	LogChatTurn(sid, requestID, a.cfg.Model, code, req.Message, full.String(), nil)
}

// handleReset clears the session's history unconditionally.
func (a *app) handleReset(w http.ResponseWriter, r *http.Request) {
	if !rateLimitAllow(r.RemoteAddr) {
		http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	sid := a.sessionID(w, r)
	if err := a.store.Clear(r.Context(), sid); err != nil {
		log.Printf("[HTTP] Failed to clear history for session %s: %v", sid, err)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Chat history cleared.",
	})
}

type feedbackRequest struct {
	UserMessage  string `json:"user_message"`
	BotResponse  string `json:"bot_response"`
	FeedbackType string `json:"feedback_type"`
	Comment      string `json:"comment"`
	Language     string `json:"language"`
}

// handleFeedback validates and records a feedback submission. Optional
// fields never fail the request; a malformed payload gets a generic error
// with no detail leaked.
func (a *app) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if !rateLimitAllow(r.RemoteAddr) {
		http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	var req feedbackRequest
	r.Body = http.MaxBytesReader(w, r.Body, 256*1024)
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil || req.UserMessage == "" || req.BotResponse == "" ||
		(req.FeedbackType != "positive" && req.FeedbackType != "negative") {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Invalid feedback payload."})
		return
	}

	if req.Comment == "" {
		req.Comment = "No comment provided."
	}

	log.Printf("[FEEDBACK] type=%s lang=%s msg=%s", req.FeedbackType, req.Language, generateSignature(req.UserMessage))
	LogFeedback(FeedbackEntry{
		UserMessage:  req.UserMessage,
		BotResponse:  req.BotResponse,
		FeedbackType: req.FeedbackType,
		Comment:      req.Comment,
		Language:     req.Language,
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Feedback recorded.",
	})
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[HTTP] Failed to encode response: %v", err)
	}
}

func toMessages(turns []session.Turn) []completion.Message {
	if len(turns) == 0 {
		return nil
	}
	msgs := make([]completion.Message, len(turns))
	for i, t := range turns {
		msgs[i] = completion.Message{Role: t.Role, Content: t.Content}
	}
	return msgs
}

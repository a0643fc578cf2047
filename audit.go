package main

import (
	"database/sql"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkoukk/tiktoken-go"
)

var (
	auditDB      *sql.DB
	auditDBOnce  sync.Once
	auditEnabled = true
)

// DisableAudit turns off all audit logging.
func DisableAudit() {
	auditEnabled = false
	log.Println("[AUDIT] Audit logging DISABLED")
}

// ChatAuditEntry is one completed (or failed) chat turn.
type ChatAuditEntry struct {
	ID           int64
	SessionID    string
	RequestID    string
	Timestamp    time.Time
	Model        string
	Language     string
	InputHash    string
	OutputHash   string
	InputTokens  int
	OutputTokens int
	Error        string
}

// FeedbackEntry is one user feedback record.
type FeedbackEntry struct {
	ID           int64
	Timestamp    time.Time
	UserMessage  string
	BotResponse  string
	FeedbackType string
	Comment      string
	Language     string
}

// InitAuditDB opens the SQLite audit database and creates the schema.
func InitAuditDB(path string) error {
	var err error
	auditDBOnce.Do(func() {
		auditDB, err = sql.Open("sqlite3", path)
		if err != nil {
			log.Printf("[AUDIT] Failed to open audit database: %v", err)
			return
		}

		schema := `
		CREATE TABLE IF NOT EXISTS chat_audit (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			request_id TEXT NOT NULL,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
			model TEXT NOT NULL,
			language TEXT,
			input_hash TEXT,
			output_hash TEXT,
			input_tokens INTEGER,
			output_tokens INTEGER,
			error TEXT
		);

		CREATE TABLE IF NOT EXISTS feedback (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
			user_message TEXT NOT NULL,
			bot_response TEXT NOT NULL,
			feedback_type TEXT NOT NULL,
			comment TEXT,
			language TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_chat_session ON chat_audit(session_id);
		CREATE INDEX IF NOT EXISTS idx_chat_timestamp ON chat_audit(timestamp);
		CREATE INDEX IF NOT EXISTS idx_feedback_type ON feedback(feedback_type);
		`

		if _, err = auditDB.Exec(schema); err != nil {
			log.Printf("[AUDIT] Failed to create audit schema: %v", err)
			return
		}

		log.Println("[AUDIT] Audit database initialized")
	})
	return err
}

// LogChatTurn records one chat turn. Inputs and outputs are stored as hashes
// plus token counts, never as raw text. Failures are logged and swallowed so
// the audit path can't break a request.
func LogChatTurn(sessionID, requestID, model, language, input, output string, turnErr error) {
	if !auditEnabled || auditDB == nil {
		return
	}

	errStr := ""
	if turnErr != nil {
		errStr = turnErr.Error()
	}

	_, err := auditDB.Exec(`
		INSERT INTO chat_audit (
			session_id, request_id, model, language,
			input_hash, output_hash, input_tokens, output_tokens, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, requestID, model, language,
		generateSignature(input), generateSignature(output),
		countTokens(input), countTokens(output), errStr)
	if err != nil {
		log.Printf("[AUDIT] Failed to log chat turn: %v", err)
	}
}

// LogFeedback records one feedback submission.
func LogFeedback(fb FeedbackEntry) {
	if !auditEnabled || auditDB == nil {
		return
	}

	_, err := auditDB.Exec(`
		INSERT INTO feedback (user_message, bot_response, feedback_type, comment, language)
		VALUES (?, ?, ?, ?, ?)`,
		fb.UserMessage, fb.BotResponse, fb.FeedbackType, fb.Comment, fb.Language)
	if err != nil {
		log.Printf("[AUDIT] Failed to log feedback: %v", err)
	}
}

// GetSessionAudit retrieves the audit rows for one session, oldest first.
// Returns nothing when the audit database was never opened.
func GetSessionAudit(sessionID string) ([]ChatAuditEntry, error) {
	if auditDB == nil {
		return nil, nil
	}
	rows, err := auditDB.Query(`
		SELECT id, session_id, request_id, timestamp, model, language,
		       input_hash, output_hash, input_tokens, output_tokens, error
		FROM chat_audit
		WHERE session_id = ?
		ORDER BY timestamp ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ChatAuditEntry
	for rows.Next() {
		var e ChatAuditEntry
		if err := rows.Scan(
			&e.ID, &e.SessionID, &e.RequestID, &e.Timestamp, &e.Model, &e.Language,
			&e.InputHash, &e.OutputHash, &e.InputTokens, &e.OutputTokens, &e.Error,
		); err != nil {
			log.Printf("[AUDIT] Error scanning row: %v", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var (
	tokenEncoder     *tiktoken.Tiktoken
	tokenEncoderOnce sync.Once
)

// countTokens estimates the token count of text. Returns 0 when the encoding
// can't be loaded; audit rows just carry zeros in that case.
func countTokens(text string) int {
	tokenEncoderOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			log.Printf("[AUDIT] Token encoding unavailable: %v", err)
			return
		}
		tokenEncoder = enc
	})
	if tokenEncoder == nil {
		return 0
	}
	return len(tokenEncoder.Encode(text, nil, nil))
}

package main

import (
	"crypto/sha256"
	"fmt"

	"github.com/google/uuid"
)

// generateRequestID returns a unique ID for request logging and audit rows.
func generateRequestID() string {
	return uuid.NewString()
}

// generateSignature creates a short hash signature for content.
// Used for deduplication and tracking in the audit log.
func generateSignature(content string) string {
	hash := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", hash)[:16]
}

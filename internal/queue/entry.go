package queue

import "time"

// Entry is a single queued message, owned entirely by the queue (spec §3:
// "Queued entry (owned by the queue)"). ExpiresAt must always be after
// CreatedAt; RetryCount never decreases.
type Entry struct {
	MessageID        string     `json:"message_id"`
	Recipient        string     `json:"recipient"`
	EncryptedContent string     `json:"encrypted_content"`
	Precedence       Precedence `json:"precedence"`
	CreatedAt        time.Time  `json:"created_at"`
	ExpiresAt        time.Time  `json:"expires_at"`
	RetryCount       int        `json:"retry_count"`
}

// Expired reports whether e's TTL has elapsed as of now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

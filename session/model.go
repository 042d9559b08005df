package session

// Blob is the ephemeral session payload read by the request pipeline.
//
// SessionID is the Redis key suffix and is not part of the encoded form.
type Blob struct {
	SchemaVersion uint8
	SessionID     string
	UserID        string
	Platform      string

	CreatedAt int64
	ExpiresAt int64
}

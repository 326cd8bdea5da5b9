package model

import "time"

// QueueLock is an advisory lock serializing mutations of one session's
// waiting-list queue. The lock id is the session id, so distinct sessions
// never contend.
type QueueLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

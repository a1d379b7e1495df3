package models

import "time"

// SessionInfo is a read-only view of a live session for the operator API
type SessionInfo struct {
	ID        string    `json:"id"`
	Tag       string    `json:"tag"`
	State     string    `json:"state"`
	Initiator string    `json:"initiator"`
	Responder string    `json:"responder"`
	CreatedAt time.Time `json:"createdAt"`
}

// RelayStats summarizes the in-process relay state
type RelayStats struct {
	Connections    int            `json:"connections"`
	ActiveSessions int            `json:"activeSessions"`
	Waiting        map[string]int `json:"waiting"` // Waiting clients per tag
}

// TagStatus is the public view of a single tag
type TagStatus struct {
	Tag     string `json:"tag"`
	Waiting int    `json:"waiting"`
}

// PresenceSnapshot aggregates the presence records of every relay instance
// sharing one Redis.
type PresenceSnapshot struct {
	Instances      int              `json:"instances"`
	ActiveSessions int64            `json:"activeSessions"`
	Waiting        map[string]int64 `json:"waiting"`
}

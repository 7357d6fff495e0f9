package models

import "time"

// ErrorResponse is the JSON body every failed request returns, mirroring
// the teacher's ErrorResponse shape.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      int       `json:"code"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// CreateSessionRequest is STORY_LOADED's HTTP body: which compiled story
// to load and the optional known-chats allowlist used for Target Chat
// validation.
type CreateSessionRequest struct {
	StoryID    string   `json:"storyId"`
	KnownChats []string `json:"knownChats,omitempty"`
}

// CreateSessionResponse echoes the assigned session id.
type CreateSessionResponse struct {
	SessionID string `json:"sessionId"`
}

// ChooseRequest is CHOOSE{index}'s HTTP body.
type ChooseRequest struct {
	Index int `json:"index"`
}

// OpenChatRequest is OPEN_CHAT{chatId}'s HTTP body.
type OpenChatRequest struct {
	ChatID string `json:"chatId"`
}

// DataReadyRequest is DATA_READY's HTTP body — source/payload are carried
// through for host bookkeeping even though the core only needs the signal
// that clears _awaitingData and resumes processing.
type DataReadyRequest struct {
	Source  string      `json:"source"`
	Payload interface{} `json:"payload,omitempty"`
}

// MarkChatNotifiedRequest is MARK_CHAT_NOTIFIED{chatId}'s HTTP body.
type MarkChatNotifiedRequest struct {
	ChatID string `json:"chatId"`
}

// SnapshotResponse is the on-demand saved-state serialization response,
// returned as a raw JSON blob under a named field rather than inlined, so
// the transport layer never needs to re-parse it.
type SnapshotResponse struct {
	Snapshot string `json:"snapshot"`
}

// HealthResponse reports liveness in the teacher's health-handler style:
// status, environment, active session count and which session store is in
// use. It carries no downstream adapter connectivity check.
type HealthResponse struct {
	Status         string    `json:"status"`
	Environment    string    `json:"environment"`
	ActiveSessions int       `json:"activeSessions"`
	SessionStore   string    `json:"sessionStore"` // "redis" or "memory"
	Timestamp      time.Time `json:"timestamp"`
}

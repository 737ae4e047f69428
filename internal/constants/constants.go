package constants

// Session and context keys
const (
	SessionCookieName = "task_session"
	ContextKeyUserID  = "user_id"
	ContextKeyTask    = "task"
)

// Field limits
const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinEmailLength    = 5
	MaxEmailLength    = 100
	MinPasswordLength = 6
	MinContentLength  = 3
	MaxContentLength  = 128
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// MaxLiveMessageBytes bounds a single websocket frame from a client
const MaxLiveMessageBytes = 4096

// MaxAIGeneratedTasks caps how many tasks a single generation request may create
const MaxAIGeneratedTasks = 10

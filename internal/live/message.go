// Package live serves the websocket channel that accepts task commands and
// answers each one with an acknowledgement.
package live

import "errors"

// Actions a client may send
const (
	ActionAdd    = "add"
	ActionDelete = "delete"
	ActionUpdate = "update"
	ActionError  = "error"
)

const (
	StatusFailure = 0
	StatusSuccess = 1
)

var (
	ErrUnknownAction = errors.New("Unknown action")
	ErrIDRequired    = errors.New("id is required")
)

// Message is a client command
type Message struct {
	Action  string  `json:"action"`
	Content string  `json:"content,omitempty"`
	ID      *uint64 `json:"id,omitempty"`
}

// Reply acknowledges exactly one Message
type Reply struct {
	Status int    `json:"status"`
	Action string `json:"action,omitempty"`
	ID     uint64 `json:"id,omitempty"`
	Error  string `json:"error,omitempty"`
}

func success(action string, id uint64) Reply {
	return Reply{Status: StatusSuccess, Action: action, ID: id}
}

func failure(message string) Reply {
	return Reply{Status: StatusFailure, Action: ActionError, Error: message}
}

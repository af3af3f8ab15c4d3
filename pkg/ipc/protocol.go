package ipc

import (
	"encoding/json"
	"fmt"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/i3"
)

// Command selects the request variant.
type Command string

const (
	CmdGetBarItems Command = "get_bar_items"
	CmdRefreshAll  Command = "refresh_all"
	CmdClick       Command = "click"
	CmdCustom      Command = "custom"
	CmdSetTheme    Command = "set_theme"
	CmdGetTheme    Command = "get_theme"
	CmdGetBar      Command = "get_bar"
	CmdGetConfig   Command = "get_config"
	CmdSignal      Command = "signal"
	CmdStatus      Command = "status"
	CmdShutdown    Command = "shutdown"
)

// Request is one control message. Which fields apply depends on Command:
//
//	click      instance, button, modifiers (geometry is zero)
//	custom     target, event, args
//	signal     target
//	set_theme  path, value
type Request struct {
	Command Command `json:"command"`

	Instance  string        `json:"instance,omitempty"`
	Button    i3.Button     `json:"button,omitempty"`
	Modifiers []i3.Modifier `json:"modifiers,omitempty"`

	Target string   `json:"target,omitempty"`
	Event  string   `json:"event,omitempty"`
	Args   []string `json:"args,omitempty"`

	Path  string          `json:"path,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

// ClickEvent returns the synthetic click described by a click request.
func (r Request) ClickEvent() i3.ClickEvent {
	mods := r.Modifiers
	if mods == nil {
		mods = []i3.Modifier{}
	}
	return i3.ClickEvent{Instance: r.Instance, Button: r.Button, Modifiers: mods}
}

// CustomArgs returns the arguments passed to an item's custom handler: the
// event name, if any, followed by the request arguments.
func (r Request) CustomArgs() []string {
	args := make([]string, 0, len(r.Args)+1)
	if r.Event != "" {
		args = append(args, r.Event)
	}
	return append(args, r.Args...)
}

// ResponseType distinguishes success from failure.
type ResponseType string

const (
	TypeOK    ResponseType = "ok"
	TypeError ResponseType = "error"
)

// ErrorKind classifies a failed request.
type ErrorKind string

const (
	KindNotFound       ErrorKind = "not_found"
	KindUnknownCommand ErrorKind = "unknown_command"
	KindBadRequest     ErrorKind = "bad_request"
	KindUnsupported    ErrorKind = "unsupported"
	KindBusy           ErrorKind = "busy"
	KindItemError      ErrorKind = "item_error"
	KindShuttingDown   ErrorKind = "shutting_down"
)

// Response answers one Request.
type Response struct {
	Type    ResponseType    `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Kind    ErrorKind       `json:"kind,omitempty"`
	Message string          `json:"message,omitempty"`
}

// OK builds a success response. A payload that cannot be encoded turns into
// an error response.
func OK(payload any) Response {
	if payload == nil {
		return Response{Type: TypeOK}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Fail(KindItemError, "encode payload: %v", err)
	}
	return Response{Type: TypeOK, Payload: data}
}

// Fail builds an error response.
func Fail(kind ErrorKind, format string, args ...any) Response {
	return Response{Type: TypeError, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Err returns the response's error, or nil for a success.
func (r Response) Err() error {
	if r.Type == TypeOK {
		return nil
	}
	return &Error{Kind: r.Kind, Message: r.Message}
}

// Decode unmarshals the payload of a successful response into v.
func (r Response) Decode(v any) error {
	if err := r.Err(); err != nil {
		return err
	}
	if len(r.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(r.Payload, v)
}

// Error is a failed request as seen by a client.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

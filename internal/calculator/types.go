package calculator

// DigitRequest is the JSON body for POST /calculator/sessions/{id}/digit.
type DigitRequest struct {
	Digit string `json:"digit"` // "0".."9"
}

// OperatorRequest is the JSON body for POST /calculator/sessions/{id}/operator.
type OperatorRequest struct {
	Operator string `json:"operator"` // "+", "-", "*", "/"
}

// KeysRequest is the JSON body for POST /calculator/sessions/{id}/keys. Keys
// are keyboard names ("5", "Enter", "Escape") or button ids ("five", "equals").
type KeysRequest struct {
	Keys []string `json:"keys"`
}

// EvaluateRequest is the JSON body for POST /calculator/evaluate.
type EvaluateRequest struct {
	Expression string `json:"expression"`
}

// EvaluateResponse is the JSON response for POST /calculator/evaluate.
type EvaluateResponse struct {
	Expression string  `json:"expression"`
	Result     float64 `json:"result"`
	Display    string  `json:"display"`
}

// SessionResponse describes a session's display.
type SessionResponse struct {
	SessionID string `json:"session_id"`
	Display   string `json:"display"`
}

// InputResponse is the JSON response for a single input.
type InputResponse struct {
	SessionID string `json:"session_id"`
	Input     string `json:"input"`
	Display   string `json:"display"`
}

// KeysResponse is the JSON response for POST /calculator/sessions/{id}/keys.
type KeysResponse struct {
	SessionID string      `json:"session_id"`
	Steps     []KeyResult `json:"steps"`
	Display   string      `json:"display"`
}

// KeyResult records the display after one key.
type KeyResult struct {
	Key     string `json:"key"`
	Display string `json:"display"`
}

// KeyMessage is sent by WebSocket clients.
type KeyMessage struct {
	Key string `json:"key"`
}

// KeyReply answers one KeyMessage.
type KeyReply struct {
	Key     string `json:"key"`
	Display string `json:"display,omitempty"`
	Error   string `json:"error,omitempty"`
}

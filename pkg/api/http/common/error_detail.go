package common

// ErrorDetail is the error envelope the runner attaches to non-2xx
// responses: {"detail": {"error": {"code": ..., "message": ...}}}.
type ErrorDetail struct {
	Detail struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"detail"`
}

// Text flattens the envelope to "CODE: message", or "" when empty.
func (e *ErrorDetail) Text() string {
	code := e.Detail.Error.Code
	msg := e.Detail.Error.Message
	if code == "" && msg == "" {
		return ""
	}
	if code == "" {
		return msg
	}
	return code + ": " + msg
}

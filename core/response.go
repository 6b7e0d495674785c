package core

// Response is the result of processing one message. Data is meaningful only
// when Success is true; Error only when it is false.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Succeed builds a successful response carrying data.
func Succeed(data any) Response { return Response{Success: true, Data: data} }

// Fail builds a failed response carrying msg.
func Fail(msg string) Response { return Response{Success: false, Error: msg} }

package models

// APIResponse is the envelope every backend endpoint wraps its payload in.
type APIResponse[T any] struct {
	Result  T      `json:"result"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Package safety confines tool file access to the invoice workspace.
package safety

import "encoding/json"

// Error codes carried by ToolError.
const (
	CodeOutsideSandbox = "ERR_PATH_OUTSIDE_SANDBOX"
	CodeDeniedRead     = "ERR_DENIED_READ"
	CodeDeniedWrite    = "ERR_DENIED_WRITE"
	CodeNotAFile       = "ERR_NOT_A_FILE"
	CodeTooLarge       = "ERR_TOO_LARGE"
)

// ToolError is a policy violation reported back to the model. It renders
// as compact JSON so the tool result stays small and parseable.
type ToolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e ToolError) Error() string {
	b, _ := json.Marshal(e)
	return string(b)
}

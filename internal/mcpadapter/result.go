package mcpadapter

import (
	"encoding/json"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/kberrors"
)

// errorEnvelope is the RPC tool error shape: a stable code
// string alongside a sanitized message, distinct from the bare JSON payload
// a successful call returns.
type errorEnvelope struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

// textResult wraps a value as a single JSON-encoded text content block.
func textResult(v any) (*mcpsdk.CallToolResult, any, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(payload)}},
	}, nil, nil
}

// errorResult converts a use-case error into the tool's error envelope. A
// *kberrors.Error carries a stable code; anything else is reported as
// internal so a caller never sees a bare, unmapped error string.
func errorResult(err error) (*mcpsdk.CallToolResult, any, error) {
	kerr, ok := kberrors.AsError(err)
	code := "internal"
	message := kberrors.Sanitize(err.Error())
	if ok {
		code = string(kerr.Kind)
		if kerr.Code != "" {
			code = kerr.Code
		}
		message = kerr.Message
	}
	payload, marshalErr := json.Marshal(errorEnvelope{Success: false, Error: message, ErrorCode: code})
	if marshalErr != nil {
		return nil, nil, marshalErr
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(payload)}},
	}, nil, nil
}

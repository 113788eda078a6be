package mcp

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/ila/internal/errors"
	"github.com/standardbeagle/ila/internal/repair"
)

// createJSONResponse creates a standardized JSON response for MCP tools
func createJSONResponse(data interface{}) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response data: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(content)},
		},
	}, nil
}

// createErrorResponse reports a tool failure inside the result with IsError
// set. Protocol-level errors are invisible to the calling model, results
// are not.
func createErrorResponse(operation string, err error) (*mcp.CallToolResult, error) {
	return createSmartErrorResponse(operation, err, nil)
}

// createSmartErrorResponse is createErrorResponse with suggestions and
// caller context attached.
func createSmartErrorResponse(operation string, err error, context map[string]interface{}) (*mcp.CallToolResult, error) {
	errorData := map[string]interface{}{
		"success":   false,
		"error":     err.Error(),
		"operation": operation,
	}
	if suggestions := generateErrorSuggestions(err, context); len(suggestions) > 0 {
		errorData["suggestions"] = suggestions
	}
	if len(context) > 0 {
		errorData["context"] = context
	}

	response, marshalErr := createJSONResponse(errorData)
	if marshalErr != nil {
		return nil, marshalErr
	}
	response.IsError = true
	return response, nil
}

// generateErrorSuggestions maps the sentinel errors of the fixer to hints
// a client can act on.
func generateErrorSuggestions(err error, context map[string]interface{}) []string {
	var suggestions []string
	switch {
	case stderrors.Is(err, errors.ErrUnknownAction):
		if given, ok := context["action"].(string); ok {
			if hint, ok := repair.SuggestActionKey(given); ok {
				suggestions = append(suggestions, fmt.Sprintf("did you mean %q?", hint))
			}
		}
		suggestions = append(suggestions, "valid actions: "+actionList())
	case stderrors.Is(err, errors.ErrFieldNotFound):
		suggestions = append(suggestions, "offset must point inside a field declaration; use analyze to get field spans")
	case stderrors.Is(err, errors.ErrNoFinding):
		suggestions = append(suggestions, "the field's logger already matches its class")
	case stderrors.Is(err, errors.ErrSplitIneligible), stderrors.Is(err, errors.ErrNoBaseType), stderrors.Is(err, errors.ErrNoBaseInitializer):
		suggestions = append(suggestions, fmt.Sprintf("use %s instead", repair.RetypeFix))
	case stderrors.Is(err, errors.ErrStaticOwner):
		suggestions = append(suggestions, "create the logger with ILoggerFactory.CreateLogger and an explicit category")
	case stderrors.Is(err, errors.ErrStaleSnapshot):
		suggestions = append(suggestions, "the file changed after the preview; call preview_fix again")
	case stderrors.Is(err, errPreviewNotFound):
		suggestions = append(suggestions, "previews expire and are consumed by apply_fix; call preview_fix again")
	}
	return suggestions
}

func actionList() string {
	keys := make([]string, 0, len(repair.ActionKeys))
	for _, k := range repair.ActionKeys {
		keys = append(keys, string(k))
	}
	return strings.Join(keys, ", ")
}

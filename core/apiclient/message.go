package apiclient

import (
	"encoding/json"
	"sort"
	"strings"
)

// message fields, in order of preference
var messageKeys = []string{"message", "error", "detail", "title"}

// extractMessage finds the most specific human readable message in an error payload.
func extractMessage(payload json.RawMessage) string {
	if len(payload) == 0 {
		return ""
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil {
		// bare JSON string or array
		if s := stringValue(payload); s != "" {
			return s
		}
		return flattenErrors(payload)
	}

	for _, key := range messageKeys {
		if s := stringValue(obj[key]); s != "" {
			return s
		}
	}
	if errs, ok := obj["errors"]; ok {
		return flattenErrors(errs)
	}
	return ""
}

// stringValue returns raw as a string when it is one, or the "message" of an object.
func stringValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Message)
	}
	return ""
}

// flattenErrors joins an `errors` collection: arrays are joined as is,
// objects have their values flattened (ordered by key).
func flattenErrors(raw json.RawMessage) string {
	msgs := collectErrors(raw, nil)
	return strings.Join(msgs, "; ")
}

func collectErrors(raw json.RawMessage, msgs []string) []string {
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		for _, item := range arr {
			msgs = collectErrors(item, msgs)
		}
		return msgs
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s = strings.TrimSpace(s); s != "" {
			msgs = append(msgs, s)
		}
		return msgs
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		if s := stringValue(obj["message"]); s != "" {
			return append(msgs, s)
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msgs = collectErrors(obj[k], msgs)
		}
		return msgs
	}

	// numbers, booleans
	if s := strings.TrimSpace(string(raw)); s != "" && s != "null" {
		msgs = append(msgs, s)
	}
	return msgs
}

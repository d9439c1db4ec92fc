package logging

import (
	"encoding/json"
	"strings"
)

var secretKeys = map[string]bool{
	"api_key":       true,
	"apikey":        true,
	"x-api-key":     true,
	"authorization": true,
	"cookie":        true,
	"set-cookie":    true,
	"password":      true,
	"access_token":  true,
	"refresh_token": true,
	"token":         true,
	"secret":        true,
}

// RedactValue masks all but the last four characters of a secret.
func RedactValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(trimmed), "bearer ") {
		return "Bearer " + mask(trimmed[7:])
	}
	return mask(trimmed)
}

// RedactAny walks decoded JSON and masks values stored under secret keys.
func RedactAny(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, val := range typed {
			if isSecretKey(key) {
				out[key] = redactLeaf(val)
				continue
			}
			out[key] = RedactAny(val)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, val := range typed {
			out[i] = RedactAny(val)
		}
		return out
	default:
		return value
	}
}

// RedactJSON returns raw with secrets masked. Input that is not JSON is
// returned unchanged.
func RedactJSON(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return raw
	}
	out, err := json.Marshal(RedactAny(payload))
	if err != nil {
		return raw
	}
	return out
}

func redactLeaf(val any) any {
	switch typed := val.(type) {
	case string:
		return RedactValue(typed)
	case nil:
		return nil
	default:
		return "****"
	}
}

func isSecretKey(key string) bool {
	return secretKeys[strings.ToLower(strings.TrimSpace(key))]
}

func mask(value string) string {
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}

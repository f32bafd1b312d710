package masking

import "strings"

const maskToken = "****"

var sensitiveKeys = map[string]struct{}{
	"email":              {},
	"referral_code":      {},
	"referral_code_used": {},
	"password":           {},
	"token":              {},
}

// MaskSecret redacts a secret while keeping a minimal suffix for auditing.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-4:]
}

// MaskSensitive returns a copy of metadata with values under sensitive keys
// masked. Nested maps are walked. Blank keys are dropped.
func MaskSensitive(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		if _, ok := sensitiveKeys[strings.ToLower(trimmedKey)]; ok {
			masked[trimmedKey] = maskValue(value)
			continue
		}
		if nested, ok := value.(map[string]any); ok {
			masked[trimmedKey] = MaskSensitive(nested)
			continue
		}
		masked[trimmedKey] = value
	}
	return masked
}

func maskValue(value any) any {
	switch cast := value.(type) {
	case string:
		return MaskSecret(cast)
	case *string:
		if cast == nil {
			return nil
		}
		return MaskSecret(*cast)
	case nil:
		return nil
	default:
		return maskToken
	}
}

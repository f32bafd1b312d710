package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("abc"))
	assert.Equal(t, "****7890", MaskSecret("REF-1234567890"))
}

func TestMaskSensitive(t *testing.T) {
	code := "PARTNER-2026"
	out := MaskSensitive(map[string]any{
		"stage":              "SUBMITTED",
		"referral_code_used": &code,
		"":                   "dropped",
		"owner": map[string]any{
			"email": "owner@example.com",
			"id":    "42",
		},
	})

	assert.Equal(t, "SUBMITTED", out["stage"])
	assert.Equal(t, "****2026", out["referral_code_used"])
	assert.NotContains(t, out, "")
	assert.Equal(t, map[string]any{"email": "****.com", "id": "42"}, out["owner"])
}

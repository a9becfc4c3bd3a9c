// Package jsonutil decodes JSON produced by language models, which is often almost valid.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Unmarshal decodes content into v. If plain decoding fails, the content is stripped of
// markdown code fences, repaired and decoded again. It returns the JSON that was finally
// decoded.
func Unmarshal(content string, v any) (string, error) {
	err := json.Unmarshal([]byte(content), v)
	if err == nil {
		return content, nil
	}

	candidate := stripFences(content)
	repaired, repairErr := jsonrepair.JSONRepair(candidate)
	if repairErr != nil {
		return "", fmt.Errorf("invalid JSON and repair failed: unmarshal error: %w, repair error: %v", err, repairErr)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return "", fmt.Errorf("failed to unmarshal repaired JSON: %w", err)
	}
	return repaired, nil
}

// stripFences removes a surrounding ```json ... ``` block.
func stripFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return s
	}
	t = strings.TrimPrefix(t, "```")
	if i := strings.IndexByte(t, '\n'); i >= 0 {
		t = t[i+1:]
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}

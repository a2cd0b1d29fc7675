package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile("```json\n?|\n?```")

// StripFences removes optional markdown code fencing from a model reply.
// Replies are expected to be JSON but often arrive wrapped in ```json blocks.
func StripFences(reply string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(reply, ""))
}

// Decode strips fencing and unmarshals the reply into v. Callers substitute
// their documented fallback value when this fails; a malformed model reply
// must never propagate to the client.
func Decode(reply string, v any) error {
	return json.Unmarshal([]byte(StripFences(reply)), v)
}

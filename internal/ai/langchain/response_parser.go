package langchain

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// structuredReply is the JSON envelope some models produce when asked for
// review feedback, even with plain-text instructions.
type structuredReply struct {
	Reply    string `json:"reply"`
	Feedback string `json:"feedback"`
	Message  string `json:"message"`
}

// ExtractReply normalizes a model response to plain reply text. Code fences
// are stripped; a JSON envelope is unwrapped, repairing malformed JSON with
// the jsonrepair library before giving up and returning the raw text.
func ExtractReply(raw string) string {
	text := stripCodeFence(strings.TrimSpace(raw))
	if text == "" {
		return ""
	}
	if !strings.HasPrefix(text, "{") {
		return text
	}

	if reply, ok := unmarshalReply(text); ok {
		return reply
	}

	repaired, err := jsonrepair.JSONRepair(text)
	if err == nil {
		if reply, ok := unmarshalReply(repaired); ok {
			return reply
		}
	}

	// Not a reply envelope after all; the raw text is the reply.
	return text
}

func unmarshalReply(text string) (string, bool) {
	var env structuredReply
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return "", false
	}
	for _, candidate := range []string{env.Reply, env.Feedback, env.Message} {
		if s := strings.TrimSpace(candidate); s != "" {
			return s, true
		}
	}
	return "", false
}

func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

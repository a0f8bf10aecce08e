package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// PayloadKind tags what ExtractJSON found.
type PayloadKind int

const (
	PayloadEmpty PayloadKind = iota
	PayloadObject
	PayloadArray
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadObject:
		return "object"
	case PayloadArray:
		return "array"
	default:
		return "empty"
	}
}

// Payload is the structured part of a model reply.
type Payload struct {
	Kind   PayloadKind
	Object map[string]any
	Array  []any
}

func (p Payload) IsEmpty() bool { return p.Kind == PayloadEmpty }

// AsObject returns the object payload or nil.
func (p Payload) AsObject() map[string]any {
	if p.Kind != PayloadObject {
		return nil
	}
	return p.Object
}

// AsArray returns the array payload. An object whose only array-valued
// field is a list (e.g. {"instructions": [...]}) is unwrapped.
func (p Payload) AsArray() []any {
	switch p.Kind {
	case PayloadArray:
		return p.Array
	case PayloadObject:
		var found []any
		for _, v := range p.Object {
			arr, ok := v.([]any)
			if !ok {
				continue
			}
			if found != nil {
				return nil
			}
			found = arr
		}
		return found
	default:
		return nil
	}
}

var fenceRe = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")

// ExtractJSON pulls the first JSON object or array out of free-form model
// text. A fenced block wins over bare JSON in the prose. It never fails:
// anything unparseable yields an empty Payload.
func ExtractJSON(text string) Payload {
	if strings.TrimSpace(text) == "" {
		return Payload{}
	}

	if m := fenceRe.FindStringSubmatch(text); m != nil {
		inner := m[1]
		if p, ok := parsePayload(inner); ok {
			return p
		}
		if p := scanBalanced(inner); !p.IsEmpty() {
			return p
		}
	}

	return scanBalanced(text)
}

func parsePayload(s string) (Payload, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Payload{}, false
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return Payload{}, false
	}
	switch t := v.(type) {
	case map[string]any:
		return Payload{Kind: PayloadObject, Object: t}, true
	case []any:
		return Payload{Kind: PayloadArray, Array: t}, true
	default:
		return Payload{}, false
	}
}

// scanBalanced tries each '{' or '[' in order and returns the first
// bracket-balanced span that parses.
func scanBalanced(s string) Payload {
	for i := 0; i < len(s); i++ {
		if s[i] != '{' && s[i] != '[' {
			continue
		}
		end := matchClose(s, i)
		if end < 0 {
			continue
		}
		if p, ok := parsePayload(s[i : end+1]); ok {
			return p
		}
	}
	return Payload{}
}

// matchClose returns the index of the bracket closing s[start], honoring
// JSON string literals and escapes, or -1.
func matchClose(s string, start int) int {
	var stack []byte
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}

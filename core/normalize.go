/*
This file converts the agent's raw textual output into exactly one canonical
response. Model output is unreliable: it may be valid response JSON, JSON
wrapped in markdown fences, JSON buried in prose, prose with leftover JSON
fragments, or nothing at all.

The algorithm is ordered and the order is a contract - first success wins:

 1. Empty or whitespace-only input short-circuits to the fixed apology.
 2. Strip markdown code fences and try to parse the whole string.
 3. Scan for the first discriminant opening sequence and extract a balanced
    JSON object by brace-depth counting; try to parse that.
 4. Strip the first balanced discriminant-bearing blob from the text and
    wrap whatever remains (or the original text) as plain text.

Nothing here ever fails: the worst case degrades to a text response.
*/
package core

import (
	"encoding/json"
	"regexp"
	"strings"
)

// apologyMessage is the fixed fail-closed reply used when the agent
// produced no usable output.
const apologyMessage = "I couldn't generate a response. Please try again."

// discriminantOpen is the opening sequence of a serialized canonical
// response; the extraction scanner anchors on its first occurrence.
const discriminantOpen = `{"type"`

var (
	fenceOpenJSONRe = regexp.MustCompile("(?i)^```json\\s*")
	fenceOpenRe     = regexp.MustCompile("^```\\s*")
	fenceCloseRe    = regexp.MustCompile("\\s*```$")
	discriminantRe  = regexp.MustCompile(`"type"\s*:\s*"(?:text|json)"`)
)

// Normalize reduces raw model output to a canonical response.
func Normalize(raw string) Response {
	if strings.TrimSpace(raw) == "" {
		return TextResponse(apologyMessage)
	}

	cleaned := stripCodeFences(strings.TrimSpace(raw))

	if resp, ok := tryParseResponse(cleaned); ok {
		return resp
	}

	// The model sometimes prepends prose before the JSON. Salvage the first
	// balanced response object embedded in the original text.
	if candidate, _, ok := extractBalancedResponse(raw); ok {
		if resp, ok := tryParseResponse(candidate); ok {
			return resp
		}
	}

	// Fallback: wrap as plain text, stripping any leftover response blob so
	// the user does not see raw JSON.
	stripped := strings.TrimSpace(stripResponseBlob(raw))
	if stripped == "" {
		stripped = strings.TrimSpace(raw)
	}
	return TextResponse(stripped)
}

// stripCodeFences removes ```json ... ``` wrappers that some models add.
func stripCodeFences(input string) string {
	out := fenceOpenJSONRe.ReplaceAllString(input, "")
	out = fenceOpenRe.ReplaceAllString(out, "")
	out = fenceCloseRe.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

// tryParseResponse parses text as a canonical response: one JSON object
// with a recognized type discriminant and an object-typed data payload.
func tryParseResponse(text string) (Response, bool) {
	var envelope struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		return Response{}, false
	}
	if envelope.Type != ResponseTypeText && envelope.Type != ResponseTypeJSON {
		return Response{}, false
	}
	payload := strings.TrimSpace(string(envelope.Data))
	if !strings.HasPrefix(payload, "{") {
		return Response{}, false
	}

	var data ResponseData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return Response{}, false
	}
	return Response{Type: envelope.Type, Data: data}, true
}

// extractBalancedResponse finds the first discriminant opening sequence and
// scans forward counting brace depth until it returns to zero. It returns
// the candidate substring and its start offset. The scanner does not track
// string literals; a candidate cut short by a brace inside a string simply
// fails the subsequent parse and the caller falls through.
func extractBalancedResponse(text string) (candidate string, start int, ok bool) {
	start = strings.Index(text, discriminantOpen)
	if start < 0 {
		return "", 0, false
	}

	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], start, true
			}
		}
	}
	return "", 0, false
}

// stripResponseBlob removes the first balanced discriminant-bearing JSON
// object from the text. If no balanced blob with a valid discriminant
// exists, the text is returned untouched.
func stripResponseBlob(text string) string {
	candidate, start, ok := extractBalancedResponse(text)
	if !ok || !discriminantRe.MatchString(candidate) {
		return text
	}
	return text[:start] + text[start+len(candidate):]
}

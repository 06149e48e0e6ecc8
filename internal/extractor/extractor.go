package extractor

import (
	"regexp"
	"strings"

	apperrors "github.com/Pr0gramm3r2022/3DSpatialAgents/internal/errors"
)

// diagnosticPrefixLen bounds how much of an unparseable response is carried
// in the error details.
const diagnosticPrefixLen = 100

var (
	// Fenced code block, optionally tagged json: ```json ... ```
	codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

	// First non-greedy bracketed span anywhere in the text, across lines
	arraySpanRe = regexp.MustCompile(`(?s)\[.*?\]`)
)

// ExtractPayload locates a JSON array embedded in free-form model output,
// tolerating markdown code fences and surrounding commentary.
//
// This is a best-effort syntactic search, not a JSON parser: the returned
// text is expected to be handed to a real JSON parse by the caller, and a
// parse failure there is a distinct error from the NoJSONFound reported here.
func ExtractPayload(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", apperrors.NewEmptyResponseError("model returned an empty response")
	}

	if m := codeBlockRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), nil
	}

	if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") {
		return text, nil
	}

	if span := arraySpanRe.FindString(text); span != "" {
		return strings.TrimSpace(span), nil
	}

	return "", apperrors.NewNoJSONFoundError(
		"could not locate a JSON payload in the model response",
		truncate(raw, diagnosticPrefixLen))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

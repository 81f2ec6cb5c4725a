package inference

import (
	"fmt"
	"strings"
)

var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i cannot provide",
	"as a large language model",
}

// CleanText trims whitespace and a surrounding code fence from model output.
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// CheckRefusal returns an error when text reads like the model declined the
// task instead of answering it.
func CheckRefusal(text string) error {
	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return fmt.Errorf("model response indicates refusal (%q)", phrase)
		}
	}
	return nil
}

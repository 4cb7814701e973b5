package providers

import "strings"

// openAIVoice drops Azure neural voice names, which the OpenAI speech API
// rejects, so the adapter falls back to its own default.
func openAIVoice(voice string) string {
	voice = strings.TrimSpace(voice)
	if strings.HasSuffix(voice, "Neural") || strings.Contains(voice, ":") {
		return ""
	}
	return voice
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

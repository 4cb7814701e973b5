package models

// GenerationFailedText is what clients see in place of a reply when generation
// is degraded.
const GenerationFailedText = "Error generating response."

// Reply is the outcome of the generation stage. A degraded reply carries the
// failure cause instead of generated text.
type Reply struct {
	Text     string
	Degraded bool
	Cause    error
}

// GeneratedReply wraps successful model output.
func GeneratedReply(text string) Reply {
	return Reply{Text: text}
}

// DegradedReply records a failed generation attempt.
func DegradedReply(cause error) Reply {
	return Reply{Text: GenerationFailedText, Degraded: true, Cause: cause}
}

// Display returns the text shown to callers.
func (r Reply) Display() string {
	if r.Degraded {
		return GenerationFailedText
	}
	return r.Text
}

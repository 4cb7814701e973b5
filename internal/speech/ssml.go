package speech

import (
	"encoding/xml"
	"strings"

	"github.com/ncecere/feedback_assistant/internal/models"
)

const (
	ssmlNamespace  = "http://www.w3.org/2001/10/synthesis"
	msttsNamespace = "https://www.w3.org/2001/mstts"
	ssmlLanguage   = "en-US"
)

var speakingStyles = map[models.SentimentLabel]string{
	models.SentimentPositive: "cheerful",
	models.SentimentNegative: "empathetic",
	models.SentimentNeutral:  "calm",
}

// Style returns the express-as style for a label, or "" for an unstyled voice.
func Style(label models.SentimentLabel) string {
	return speakingStyles[label]
}

// BuildSSML renders text as a single-voice SSML document, wrapping it in an
// express-as element when the label has a speaking style.
func BuildSSML(voice string, label models.SentimentLabel, text string) string {
	var b strings.Builder
	b.WriteString(`<speak version="1.0" xmlns="` + ssmlNamespace + `" xmlns:mstts="` + msttsNamespace + `" xml:lang="` + ssmlLanguage + `">`)
	b.WriteString(`<voice name="`)
	b.WriteString(escape(voice))
	b.WriteString(`">`)
	if style := Style(label); style != "" {
		b.WriteString(`<mstts:express-as style="` + style + `">`)
		b.WriteString(escape(text))
		b.WriteString(`</mstts:express-as>`)
	} else {
		b.WriteString(escape(text))
	}
	b.WriteString(`</voice></speak>`)
	return b.String()
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

package models

import "io"

// MediaTypeWAV is the media type of every stored speech artifact.
const MediaTypeWAV = "audio/wav"

// AudioArtifact describes a synthesized rendering of a reply.
type AudioArtifact struct {
	Filename   string         `json:"filename"`
	Key        string         `json:"-"`
	MediaType  string         `json:"media_type"`
	Size       int64          `json:"size"`
	Sentiment  SentimentLabel `json:"sentiment"`
	SourceText string         `json:"-"`
	Voice      string         `json:"voice"`
	Markup     string         `json:"-"`
	Cached     bool           `json:"cached"`
}

// SpeechRequest is what a speech backend receives: the SSML document plus the
// plain text and mood for backends that cannot read markup.
type SpeechRequest struct {
	Markup    string
	Text      string
	Voice     string
	Sentiment SentimentLabel
	Style     string
	Format    string
}

// SpeechAudio holds the raw bytes a backend produced.
type SpeechAudio struct {
	Audio     []byte
	MediaType string
}

// AudioInput wraps a stored audio payload for streaming back to clients.
type AudioInput struct {
	Reader      io.ReadCloser
	Filename    string
	ContentType string
	Bytes       int64
}

package models

import "time"

// Stage names the pipeline state an invocation reached.
type Stage string

const (
	StageReceived             Stage = "received"
	StageClassified           Stage = "classified"
	StageReplied              Stage = "replied"
	StageSynthesized          Stage = "synthesized"
	StageDone                 Stage = "done"
	StageClassificationFailed Stage = "classification_failed"
)

// Outcome is the aggregate returned by one pipeline invocation. Sentiment and
// Reply are nil when the invocation failed at classification; Audio is nil
// whenever no artifact was produced.
type Outcome struct {
	RequestID string
	Stage     Stage
	// Path lists every stage entered, in order, ending with Stage.
	Path            []Stage
	Sentiment       *SentimentResult
	Reply           *Reply
	Audio           *AudioArtifact
	SpeechRequested bool
	SpeechError     error
	StartedAt       time.Time
	Duration        time.Duration
}

// HasReply reports whether the generation stage ran.
func (o Outcome) HasReply() bool { return o.Reply != nil }

// Advance moves the outcome into stage and appends it to Path.
func (o *Outcome) Advance(stage Stage) {
	o.Stage = stage
	o.Path = append(o.Path, stage)
}

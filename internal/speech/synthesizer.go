package speech

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/ncecere/feedback_assistant/internal/models"
	"github.com/ncecere/feedback_assistant/internal/providers"
	"github.com/ncecere/feedback_assistant/internal/storage/blob"
)

// ErrSynthesisUnavailable is matched by every synthesis failure.
var ErrSynthesisUnavailable = errors.New("speech synthesis unavailable")

// UnavailableError explains why no artifact was produced.
type UnavailableError struct {
	Reason string
	Cause  error
}

func (e *UnavailableError) Error() string {
	msg := ErrSynthesisUnavailable.Error()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *UnavailableError) Unwrap() error { return e.Cause }

func (e *UnavailableError) Is(target error) bool { return target == ErrSynthesisUnavailable }

const hashPrefixLen = 24

// Options configure a Synthesizer.
type Options struct {
	Backend providers.TextToSpeech
	Store   blob.Store
	Voice   string
	Prefix  string
	Format  string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Synthesizer renders replies to speech and stores them content-addressed.
type Synthesizer struct {
	backend providers.TextToSpeech
	store   blob.Store
	voice   string
	prefix  string
	format  string
	timeout time.Duration
	logger  *slog.Logger
}

func New(opts Options) (*Synthesizer, error) {
	if opts.Backend == nil {
		return nil, errors.New("speech backend required")
	}
	if opts.Store == nil {
		return nil, errors.New("audio store required")
	}
	voice := strings.TrimSpace(opts.Voice)
	if voice == "" {
		return nil, errors.New("speech voice required")
	}
	prefix := strings.Trim(opts.Prefix, "/")
	if prefix == "" {
		prefix = "audio"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		backend: opts.Backend,
		store:   opts.Store,
		voice:   voice,
		prefix:  prefix,
		format:  opts.Format,
		timeout: opts.Timeout,
		logger:  logger,
	}, nil
}

// Filename is the content address of the rendering of text in voice and mood.
func Filename(voice string, label models.SentimentLabel, text string) string {
	sum := sha256.Sum256([]byte(voice + "|" + string(label) + "|" + text))
	return fmt.Sprintf("%s-%s.wav", safeLabel(label), hex.EncodeToString(sum[:])[:hashPrefixLen])
}

var filenamePattern = regexp.MustCompile(fmt.Sprintf(`^(positive|neutral|negative|mixed|unknown)-[0-9a-f]{%d}\.wav$`, hashPrefixLen))

// ValidFilename reports whether name could have been produced by Filename.
// Store sidecars and temp files never match.
func ValidFilename(name string) bool {
	return filenamePattern.MatchString(name)
}

// Key is the store key for an artifact filename.
func (s *Synthesizer) Key(filename string) string {
	return path.Join(s.prefix, filename)
}

// Synthesize returns the stored artifact for (voice, label, text), calling the
// backend at most once and only when no artifact exists yet.
func (s *Synthesizer) Synthesize(ctx context.Context, label models.SentimentLabel, text string) (*models.AudioArtifact, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &UnavailableError{Reason: "empty text"}
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	filename := Filename(s.voice, label, text)
	key := s.Key(filename)
	markup := BuildSSML(s.voice, label, text)
	artifact := &models.AudioArtifact{
		Filename:   filename,
		Key:        key,
		MediaType:  models.MediaTypeWAV,
		Sentiment:  label,
		SourceText: text,
		Voice:      s.voice,
		Markup:     markup,
	}

	info, err := s.store.Stat(ctx, key)
	switch {
	case err == nil:
		artifact.Size = info.Size
		artifact.Cached = true
		s.logger.Debug("speech cache hit", "key", key)
		return artifact, nil
	case !errors.Is(err, blob.ErrNotFound):
		s.logger.Warn("audio store lookup failed", "key", key, "error", err)
	}

	audio, err := s.backend.Synthesize(ctx, models.SpeechRequest{
		Markup:    markup,
		Text:      text,
		Voice:     s.voice,
		Sentiment: label,
		Style:     Style(label),
		Format:    s.format,
	})
	if err != nil {
		return nil, &UnavailableError{Reason: "backend", Cause: err}
	}
	if len(audio.Audio) == 0 {
		return nil, &UnavailableError{Reason: "backend returned no audio"}
	}

	stored, err := s.store.Put(ctx, key, bytes.NewReader(audio.Audio), blob.PutOptions{
		ContentType: models.MediaTypeWAV,
		Metadata: map[string]string{
			"sentiment": string(label),
			"voice":     s.voice,
		},
	})
	if err != nil {
		return nil, &UnavailableError{Reason: "store", Cause: err}
	}
	artifact.Size = stored.Size
	return artifact, nil
}

func safeLabel(label models.SentimentLabel) string {
	switch label {
	case models.SentimentPositive, models.SentimentNeutral, models.SentimentNegative, models.SentimentMixed:
		return string(label)
	default:
		return string(models.SentimentUnknown)
	}
}

// Package capture defines the speech-to-text boundary used to dictate
// todo text. Recognition engines live outside this module.
package capture

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
)

const DefaultLocale = "en-US"

var (
	ErrUnsupported      = errors.New("speech capture not supported")
	ErrDeviceError      = errors.New("capture device error")
	ErrNoTranscript     = errors.New("no finalized transcript")
	ErrAlreadyListening = errors.New("capture already in progress")
)

// Result is one recognition update. Interim results may be revised;
// a Final result is not.
type Result struct {
	Text  string
	Final bool
	Err   error
}

// Recognizer is an external recognition engine. The results channel closes
// when recognition ends.
type Recognizer interface {
	Start(ctx context.Context, locale string) (<-chan Result, error)
	Stop()
}

// Unsupported is the recognizer used when no engine is configured.
type Unsupported struct{}

func (Unsupported) Start(context.Context, string) (<-chan Result, error) {
	return nil, ErrUnsupported
}

func (Unsupported) Stop() {}

// Session collects one dictation at a time.
type Session struct {
	rec    Recognizer
	locale string
	logger *slog.Logger

	mu        sync.Mutex
	listening bool
	cancel    context.CancelFunc
	done      chan struct{}
	final     []string
	interim   string
	err       error
}

func NewSession(rec Recognizer, locale string, logger *slog.Logger) *Session {
	if rec == nil {
		rec = Unsupported{}
	}
	if locale == "" {
		locale = DefaultLocale
	}
	return &Session{rec: rec, locale: locale, logger: logger}
}

func (s *Session) Locale() string { return s.locale }

// Start begins a new capture and discards any previous transcript.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listening {
		return ErrAlreadyListening
	}
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithCancel(ctx)
	results, err := s.rec.Start(ctx, s.locale)
	if err != nil {
		cancel()
		s.logger.Warn("capture start failed", "locale", s.locale, "error", err)
		return err
	}

	s.final = nil
	s.interim = ""
	s.err = nil
	s.listening = true
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.consume(results, s.done)
	s.logger.Debug("capture started", "locale", s.locale)
	return nil
}

func (s *Session) consume(results <-chan Result, done chan struct{}) {
	defer close(done)
	for r := range results {
		s.mu.Lock()
		switch {
		case r.Err != nil:
			s.err = r.Err
			s.logger.Warn("capture error", "error", r.Err)
		case r.Final:
			if text := strings.TrimSpace(r.Text); text != "" {
				s.final = append(s.final, text)
			}
			s.interim = ""
		default:
			s.interim = r.Text
		}
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.listening = false
	s.mu.Unlock()
}

// Stop ends the capture in progress and waits for pending results.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.listening {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	s.rec.Stop()
	cancel()
	<-done
	s.logger.Debug("capture stopped")
}

func (s *Session) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

// Transcript is the finalized text if there is any, otherwise the latest
// interim hypothesis.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.final) > 0 {
		return strings.Join(s.final, " ")
	}
	return s.interim
}

func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Commit stops capture and hands over the finalized transcript. Interim
// text is never committed.
func (s *Session) Commit() (string, error) {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	text := strings.TrimSpace(strings.Join(s.final, " "))
	s.final = nil
	s.interim = ""
	if text == "" {
		return "", ErrNoTranscript
	}
	return text, nil
}

// Close stops capture and discards the transcript.
func (s *Session) Close() {
	s.Stop()

	s.mu.Lock()
	s.final = nil
	s.interim = ""
	s.err = nil
	s.mu.Unlock()
}

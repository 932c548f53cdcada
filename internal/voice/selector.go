package voice

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Classifier answers "male" or "female" for a narration text.
type Classifier interface {
	ClassifyNarrator(ctx context.Context, text string) (string, error)
}

// Decision records which voice was picked and why.
type Decision struct {
	Voice    string
	Answer   string
	Fallback bool
	Reason   string
}

// Selector picks a narrator voice from a text-derived gender signal.
type Selector struct {
	classifier Classifier
	male       string
	female     string
	logger     zerolog.Logger
}

// NewSelector creates a selector. A nil classifier always yields the male voice.
func NewSelector(classifier Classifier, male, female string, logger zerolog.Logger) *Selector {
	return &Selector{
		classifier: classifier,
		male:       male,
		female:     female,
		logger:     logger.With().Str("component", "voice").Logger(),
	}
}

// Select never fails: any classifier error or unexpected answer falls back
// to the male voice. There is no retry.
func (s *Selector) Select(ctx context.Context, text string) Decision {
	if s.classifier == nil {
		return s.fallback("", "no classifier configured")
	}

	answer, err := s.classifier.ClassifyNarrator(ctx, text)
	if err != nil {
		return s.fallback("", err.Error())
	}

	answer = strings.ToLower(strings.TrimSpace(answer))
	if strings.Contains(answer, "female") {
		s.logger.Info().Str("answer", answer).Str("voice", s.female).Msg("narrator classified, using female voice")
		return Decision{Voice: s.female, Answer: answer}
	}
	if answer != "male" {
		return s.fallback(answer, "unrecognized classifier answer")
	}
	s.logger.Info().Str("answer", answer).Str("voice", s.male).Msg("narrator classified, using male voice")
	return Decision{Voice: s.male, Answer: answer}
}

func (s *Selector) fallback(answer, reason string) Decision {
	s.logger.Warn().Str("answer", answer).Str("reason", reason).Str("voice", s.male).Msg("gender detection failed, using default male voice")
	return Decision{Voice: s.male, Answer: answer, Fallback: true, Reason: reason}
}

// Package diagnosis turns free-text symptoms into a suggested diagnosis by
// asking a chat completion endpoint.
package diagnosis

import (
	"context"
	"log/slog"
	"time"

	"github.com/medportal/portal-backend/internal/llm"
	"github.com/medportal/portal-backend/internal/metrics"
)

const (
	DefaultModel = "gpt-3.5-turbo"
	Temperature  = 0.3

	UnavailableMessage = "Unable to get a diagnosis right now. Please try again later."
)

// Unavailable is returned for every failed diagnosis. Its message is the same
// whatever went wrong; the cause stays reachable through errors.Unwrap.
type Unavailable struct {
	Cause error
}

func (e *Unavailable) Error() string   { return UnavailableMessage }
func (e *Unavailable) Message() string { return UnavailableMessage }
func (e *Unavailable) Unwrap() error   { return e.Cause }

type Service struct {
	completer llm.Completer
	model     string
	timeout   time.Duration
}

// NewService returns a Service using model (DefaultModel when empty). A
// positive timeout bounds each completion call.
func NewService(c llm.Completer, model string, timeout time.Duration) *Service {
	if model == "" {
		model = DefaultModel
	}
	return &Service{completer: c, model: model, timeout: timeout}
}

// GetDiagnosis returns the model's first answer verbatim. history may be
// empty.
func (s *Service) GetDiagnosis(ctx context.Context, symptoms, history string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	out, err := s.completer.Complete(ctx, llm.Request{
		Model: s.model,
		Messages: []llm.Message{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: userPrompt(symptoms, history)},
		},
		Temperature: Temperature,
	})
	if err != nil {
		slog.Warn("diagnosis unavailable", "model", s.model, "err", err)
		metrics.Diagnosis("unavailable")
		return "", &Unavailable{Cause: err}
	}
	metrics.Diagnosis("ok")
	return out, nil
}

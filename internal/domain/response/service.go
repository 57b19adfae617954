package response

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	orcherrors "relay-server/services/response-orchestrator/internal/domain/errors"
	"relay-server/services/response-orchestrator/internal/domain/extract"
	"relay-server/services/response-orchestrator/internal/domain/llm"
	"relay-server/services/response-orchestrator/internal/domain/retry"
	"relay-server/services/response-orchestrator/internal/domain/stream"
)

// ServiceImpl executes responses against the upstream provider with
// classification-driven retry. It never mutates conversation state; callers
// advance conversations after inspecting the result.
type ServiceImpl struct {
	provider   llm.Provider
	executor   *retry.Executor
	registry   *extract.Registry
	classifier *orcherrors.Classifier
	log        zerolog.Logger
}

var _ Service = (*ServiceImpl)(nil)

// NewService wires dependencies. A nil executor falls back to the default
// retry policy, a nil registry to the built-in extractor families.
func NewService(
	provider llm.Provider,
	executor *retry.Executor,
	registry *extract.Registry,
	log zerolog.Logger,
) *ServiceImpl {
	if executor == nil {
		executor = retry.NewExecutor(retry.DefaultPolicy())
	}
	if registry == nil {
		registry = extract.DefaultRegistry()
	}
	return &ServiceImpl{
		provider:   provider,
		executor:   executor,
		registry:   registry,
		classifier: orcherrors.NewClassifier(),
		log:        log.With().Str("component", "response-service").Logger(),
	}
}

// CreateResponse builds the provider payload, executes the call with retry
// and returns the completed response with extraction already applied.
func (s *ServiceImpl) CreateResponse(ctx context.Context, req Request) (*CompletedResponse, error) {
	payload, err := BuildPayload(req)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	wire, err := retry.ExecuteWithResult(ctx, s.executor, func(ctx context.Context, attempt int) (*llm.ResponseWire, error) {
		if attempt > 0 {
			s.log.Warn().Int("attempt", attempt).Str("model", req.Model).Msg("retrying create response")
		}
		return s.provider.CreateResponse(ctx, payload)
	})
	if err != nil {
		return nil, s.upstreamFailure(err)
	}

	s.log.Debug().
		Str("response_id", wire.ID).
		Str("model", req.Model).
		Dur("duration", time.Since(started)).
		Msg("response completed")

	return s.completed(wire), nil
}

// StreamResponse establishes the upstream stream with retry, then yields
// normalized chunks in receipt order. Retries happen only before the first
// chunk; once streaming has begun a failure surfaces as an error chunk and
// ends the sequence.
func (s *ServiceImpl) StreamResponse(ctx context.Context, req Request) (<-chan stream.Chunk, error) {
	payload, err := BuildPayload(req)
	if err != nil {
		return nil, err
	}
	payload.Stream = true

	upstream, err := retry.ExecuteWithResult(ctx, s.executor, func(ctx context.Context, attempt int) (llm.Stream, error) {
		if attempt > 0 {
			s.log.Warn().Int("attempt", attempt).Str("model", req.Model).Msg("retrying stream connect")
		}
		return s.provider.StreamResponse(ctx, payload)
	})
	if err != nil {
		return nil, s.upstreamFailure(err)
	}

	chunks := make(chan stream.Chunk)
	go s.pump(ctx, upstream, chunks)
	return chunks, nil
}

// pump reads upstream events until EOF, failure or cancellation. The chunk
// channel is closed when the sequence ends.
func (s *ServiceImpl) pump(ctx context.Context, upstream llm.Stream, chunks chan<- stream.Chunk) {
	defer close(chunks)
	defer upstream.Close()

	for {
		event, err := upstream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.send(ctx, chunks, stream.Done())
				return
			}
			if ctx.Err() != nil {
				return
			}
			s.log.Error().Err(err).Msg("stream failed mid-flight")
			s.send(ctx, chunks, stream.Error(orcherrors.ErrCodeMidStreamFailure, err.Error()))
			return
		}

		chunk, ok := stream.Normalize(event)
		if !ok {
			continue
		}
		if !s.send(ctx, chunks, chunk) {
			return
		}
	}
}

func (s *ServiceImpl) send(ctx context.Context, chunks chan<- stream.Chunk, chunk stream.Chunk) bool {
	select {
	case chunks <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// upstreamFailure maps an exhausted retryable failure onto
// UpstreamUnavailable, keeping the last underlying error. Terminal failures
// and cancellation pass through unchanged.
func (s *ServiceImpl) upstreamFailure(err error) error {
	if s.classifier.Classify(err).IsRetryable() {
		return orcherrors.NewUpstreamUnavailable(err)
	}
	return err
}

func (s *ServiceImpl) completed(wire *llm.ResponseWire) *CompletedResponse {
	extraction := s.registry.Parse(wire.Output)
	return &CompletedResponse{
		ID:          wire.ID,
		Model:       wire.Model,
		OutputText:  outputText(wire.Output),
		Output:      wire.Output,
		Usage:       wire.Usage,
		Annotations: extraction.Annotations,
		ToolResults: extraction.ToolResults,
		CreatedAt:   time.Now(),
	}
}

// outputText concatenates every output_text segment in order, with no
// separator.
func outputText(output []llm.OutputItem) string {
	var sb strings.Builder
	for _, item := range output {
		if item.Type == llm.OutputTypeText {
			sb.WriteString(item.Text)
		}
	}
	return sb.String()
}

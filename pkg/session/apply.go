package session

import (
	"context"
	"fmt"

	"github.com/vango-dev/wiretap/pkg/protocol"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ApplyState sends an entity visual state frame carrying stateCode and the
// last known identity and category, then records stateCode as the known
// state. An unknown identity is sent as 0.
func (s *State) ApplyState(ctx context.Context, stateCode string) error {
	_, span := s.tracer.Start(ctx, "session.ApplyState",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(attribute.String("wiretap.state_code", stateCode)),
	)
	defer span.End()

	if stateCode == "" {
		return spanError(span, ErrEmptyStateCode)
	}

	s.mu.Lock()
	sender := s.transport
	identity, _ := s.fields[FieldIdentity].(int32)
	category, _ := s.fields[FieldCategory].(string)
	s.mu.Unlock()

	if sender == nil {
		s.logger.Warn("apply state without transport")
		return spanError(span, ErrTransportUnavailable)
	}

	frame, err := protocol.EncodeEntityVisualState(&protocol.EntityVisualState{
		Identity:  identity,
		Category:  category,
		StateCode: stateCode,
	})
	if err != nil {
		return spanError(span, fmt.Errorf("session: encode state: %w", err))
	}

	if err := s.send(sender, frame); err != nil {
		return spanError(span, err)
	}

	s.update(map[string]any{FieldStateCode: stateCode})
	s.logger.Info("state applied", "transport", sender.ID(), "state_code", stateCode)
	return nil
}

// UpdateFigure sends a figure update frame and records figure as the known
// state code. An empty gender is sent as is.
func (s *State) UpdateFigure(ctx context.Context, figure, gender string) error {
	_, span := s.tracer.Start(ctx, "session.UpdateFigure",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(attribute.String("wiretap.state_code", figure)),
	)
	defer span.End()

	if figure == "" {
		return spanError(span, ErrEmptyStateCode)
	}

	sender := s.Transport()
	if sender == nil {
		s.logger.Warn("figure update without transport")
		return spanError(span, ErrTransportUnavailable)
	}

	frame, err := protocol.EncodeUpdateFigure(&protocol.UpdateFigure{Figure: figure, Gender: gender})
	if err != nil {
		return spanError(span, fmt.Errorf("session: encode figure: %w", err))
	}

	if err := s.send(sender, frame); err != nil {
		return spanError(span, err)
	}

	s.update(map[string]any{FieldStateCode: figure})
	s.logger.Info("figure updated", "transport", sender.ID(), "state_code", figure)
	return nil
}

func (s *State) send(sender Sender, frame []byte) error {
	err := sender.Send(frame)
	s.metrics.OutboundSend(err)
	if err != nil {
		s.logger.Error("outbound send failed", "transport", sender.ID(), "error", err)
		return fmt.Errorf("session: send: %w", err)
	}
	return nil
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ipm-pk/fingerprint/internal/infrastructure/config"
	"github.com/ipm-pk/fingerprint/internal/infrastructure/mqtt"
	"github.com/ipm-pk/fingerprint/internal/service"
	"github.com/ipm-pk/fingerprint/internal/status"
)

// requestTopicParts is the number of segments in a service request topic
// (fingerprint/service/{Operation}/request).
const requestTopicParts = 4

// Broker is the MQTT surface the server needs.
// Satisfied by *mqtt.Client; narrowed for mocking in tests.
type Broker interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// PublishRetained sends a retained message at QoS 1.
	PublishRetained(topic string, payload []byte) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// Unsubscribe removes a subscription.
	Unsubscribe(topic string) error
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options holds configuration for creating a server.
type Options struct {
	// Broker is the MQTT client implementation.
	Broker Broker

	// Dispatcher routes operation calls.
	Dispatcher *service.Dispatcher

	// Variables are the declared protocol variables published retained
	// on startup. Optional.
	Variables config.VariablesConfig

	// Logger is optional structured logging.
	Logger Logger
}

// Server receives operation requests over MQTT and renders replies,
// completion events, and state variables back out.
//
// It implements service.Notifier and service.StatusSink, so it plugs
// directly into the dispatcher and the periodic publisher.
type Server struct {
	broker     Broker
	dispatcher *service.Dispatcher
	variables  config.VariablesConfig
	topics     mqtt.Topics
	logger     Logger

	// Server-level context, cancelled on Stop(). Dispatched calls run
	// under it so background tasks survive individual request handling.
	ctx       context.Context
	ctxCancel context.CancelFunc
	stopOnce  sync.Once
}

// New creates a server. Call Start() to begin receiving requests.
func New(opts Options) (*Server, error) {
	if opts.Broker == nil {
		return nil, fmt.Errorf("broker is required")
	}
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	return &Server{
		broker:     opts.Broker,
		dispatcher: opts.Dispatcher,
		variables:  opts.Variables,
		logger:     logger,
		ctx:        ctx,
		ctxCancel:  ctxCancel,
	}, nil
}

// Start subscribes to the service request pattern and publishes the
// declared protocol variables.
func (s *Server) Start() error {
	pattern := s.topics.AllServiceRequests()
	if err := s.broker.Subscribe(pattern, 1, s.handleRequest); err != nil {
		return fmt.Errorf("subscribe to requests: %w", err)
	}
	s.logger.Info("subscribed to service requests", "topic", pattern)

	s.publishDeclaredVariables()

	return nil
}

// Stop unsubscribes from the request pattern and cancels in-flight
// request handling. Background tasks already registered keep running;
// draining them is the caller's responsibility.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		if err := s.broker.Unsubscribe(s.topics.AllServiceRequests()); err != nil {
			s.logger.Warn("unsubscribe failed", "error", err)
		}
		s.ctxCancel()
		s.logger.Info("server stopped")
	})
}

// handleRequest processes one message from the service request pattern.
func (s *Server) handleRequest(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) != requestTopicParts || parts[3] != "request" {
		return fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}
	operation := parts[2]

	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		// No request ID to address a reply to.
		s.logger.Error("failed to parse request", "operation", operation, "error", err)
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	s.logger.Debug("received request",
		"operation", operation,
		"request_id", req.RequestID,
		"args", len(req.Args))

	// Dispatch off the broker callback so a slow synchronous operation
	// never stalls delivery of other requests.
	go s.dispatch(operation, req)
	return nil
}

// dispatch runs one accepted request and publishes its reply.
func (s *Server) dispatch(operation string, req Request) {
	reply, err := s.dispatcher.Handle(s.ctx, operation, req.Args)

	var resp Response
	switch {
	case err == nil:
		resp = NewResponse(req.RequestID, reply)
	case errors.Is(err, service.ErrNotLinked):
		resp = NewErrorResponse(req.RequestID, ErrCodeOperationNotFound,
			fmt.Sprintf("operation %s is not available", operation))
	default:
		resp = NewErrorResponse(req.RequestID, ErrCodeExecutionFailed, err.Error())
	}

	s.publishResponse(operation, resp)
}

func (s *Server) publishResponse(operation string, resp Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	topic := s.topics.ServiceResponse(operation, resp.RequestID)
	if err := s.broker.Publish(topic, payload, 1, false); err != nil {
		s.logger.Error("failed to publish response",
			"operation", operation,
			"request_id", resp.RequestID,
			"error", err)
		return err
	}
	return nil
}

// Completed publishes the completion event of one background task.
// Implements service.Notifier.
func (s *Server) Completed(ev service.CompletionEvent) {
	msg := NewEventMessage(ev)

	payload, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("failed to marshal event", "operation", ev.Operation, "error", err)
		return
	}

	topic := s.topics.Event(ev.Operation)
	if err := s.broker.Publish(topic, payload, 1, false); err != nil {
		s.logger.Error("failed to publish event",
			"operation", ev.Operation,
			"task_id", ev.TaskID,
			"error", err)
	}
}

// PublishStatus writes the status snapshot to the retained state variable
// topics. Implements service.StatusSink.
func (s *Server) PublishStatus(st status.Status) {
	for name, value := range st.Variables() {
		s.publishVariable(name, value)
	}
}

// publishDeclaredVariables publishes the Capabilities, Properties and
// State sections from configuration as typed retained variables.
// Malformed values are skipped; startup continues.
func (s *Server) publishDeclaredVariables() {
	published := 0
	for _, section := range []map[string]string{
		s.variables.Capabilities,
		s.variables.Properties,
		s.variables.State,
	} {
		for name, raw := range section {
			value, err := ParseValue(raw)
			if err != nil {
				s.logger.Error("skipping malformed variable",
					"variable", name,
					"value", raw,
					"error", err)
				continue
			}
			if s.publishVariable(name, value) {
				published++
			}
		}
	}
	if published > 0 {
		s.logger.Info("published declared variables", "count", published)
	}
}

func (s *Server) publishVariable(name string, value any) bool {
	payload, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("failed to marshal variable", "variable", name, "error", err)
		return false
	}
	if err := s.broker.PublishRetained(s.topics.StateVariable(name), payload); err != nil {
		s.logger.Error("failed to publish variable", "variable", name, "error", err)
		return false
	}
	return true
}

package nats

import (
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// StatusSnapshot is the agent state reported to status queries
type StatusSnapshot struct {
	State         string  `json:"state"`
	Version       string  `json:"version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// StatusFunc returns the agent's current state on demand
type StatusFunc func() StatusSnapshot

// StatusResponder answers request/reply status queries for the agent
type StatusResponder struct {
	logger  *zap.Logger
	service string
	prefix  string
	status  StatusFunc
}

// NewStatusResponder creates a responder for the named service
func NewStatusResponder(logger *zap.Logger, prefix, service string, status StatusFunc) *StatusResponder {
	return &StatusResponder{
		logger:  logger,
		service: service,
		prefix:  prefix,
		status:  status,
	}
}

type statusResponse struct {
	Status        string  `json:"status"`
	Service       string  `json:"service"`
	State         string  `json:"state"`
	Version       string  `json:"version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Timestamp     string  `json:"timestamp"`
}

type pingResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type errorResponse struct {
	Status    string `json:"status"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// Subscribe registers the status and ping subjects on the given client
func (r *StatusResponder) Subscribe(client *Client) error {
	if _, err := client.Subscribe(
		fmt.Sprintf("%s.svc.%s.status", r.prefix, r.service),
		r.handleWithRecovery("status", r.handleStatus),
	); err != nil {
		return err
	}

	if _, err := client.Subscribe(
		fmt.Sprintf("%s.svc.%s.ping", r.prefix, r.service),
		r.handleWithRecovery("ping", r.handlePing),
	); err != nil {
		return err
	}

	return nil
}

// handleWithRecovery wraps a handler with panic recovery so a bad query
// cannot take down the agent
func (r *StatusResponder) handleWithRecovery(name string, handler nats.MsgHandler) nats.MsgHandler {
	return func(msg *nats.Msg) {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("Panic recovered in responder",
					zap.String("handler", name),
					zap.String("subject", msg.Subject),
					zap.Any("panic", rec),
					zap.String("stack", string(debug.Stack())))

				response := errorResponse{
					Status:    "error",
					Error:     fmt.Sprintf("Internal error: handler panicked: %v", rec),
					Timestamp: time.Now().UTC().Format(time.RFC3339),
				}
				responseBytes, _ := json.Marshal(response)
				msg.Respond(responseBytes)
			}
		}()

		handler(msg)
	}
}

// handleStatus replies with the agent's current lifecycle state
func (r *StatusResponder) handleStatus(msg *nats.Msg) {
	r.logger.Debug("Received status query")

	snap := r.status()
	response := statusResponse{
		Status:        "ok",
		Service:       r.service,
		State:         snap.State,
		Version:       snap.Version,
		UptimeSeconds: snap.UptimeSeconds,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}

	responseBytes, _ := json.Marshal(response)
	msg.Respond(responseBytes)
}

// handlePing replies to liveness probes
func (r *StatusResponder) handlePing(msg *nats.Msg) {
	r.logger.Debug("Received ping")

	response := pingResponse{
		Status:    "pong",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	responseBytes, _ := json.Marshal(response)
	msg.Respond(responseBytes)
}

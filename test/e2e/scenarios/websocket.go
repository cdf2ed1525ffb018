package scenarios

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/sousschef/test/e2e/client"
	"github.com/c360/sousschef/test/e2e/config"
)

// WebsocketScenario validates the streaming chat endpoint at /ws/chat
type WebsocketScenario struct {
	name        string
	description string
	wsURL       string
	config      *WebsocketConfig

	conn      *websocket.Conn
	sessionID string
}

// WebsocketConfig contains configuration for the websocket check
type WebsocketConfig struct {
	Message  string        `json:"message"`
	FollowUp string        `json:"follow_up"`
	ReadWait time.Duration `json:"read_wait"`
}

// DefaultWebsocketConfig returns default configuration for the websocket check
func DefaultWebsocketConfig() *WebsocketConfig {
	return &WebsocketConfig{
		Message:  config.DefaultTestConfig.ChatMessage,
		FollowUp: config.DefaultTestConfig.FollowUpMessage,
		ReadWait: config.DefaultTestConfig.Timeout,
	}
}

// NewWebsocketScenario creates a new websocket chat scenario
func NewWebsocketScenario(wsURL string, config *WebsocketConfig) *WebsocketScenario {
	if config == nil {
		config = DefaultWebsocketConfig()
	}

	return &WebsocketScenario{
		name:        "websocket",
		description: "Dials /ws/chat and validates chat round trips and per-connection session stickiness",
		wsURL:       wsURL,
		config:      config,
	}
}

// Name returns the scenario name
func (s *WebsocketScenario) Name() string {
	return s.name
}

// Description returns the scenario description
func (s *WebsocketScenario) Description() string {
	return s.description
}

// Setup dials the websocket endpoint
func (s *WebsocketScenario) Setup(ctx context.Context) error {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			return fmt.Errorf("dialing %s: handshake status %d: %w", s.wsURL, resp.StatusCode, err)
		}
		return fmt.Errorf("dialing %s: %w", s.wsURL, err)
	}

	s.conn = conn
	return nil
}

// Execute runs the websocket chat scenario
func (s *WebsocketScenario) Execute(ctx context.Context) (*Result, error) {
	result := &Result{
		ScenarioName: s.name,
		StartTime:    time.Now(),
		Success:      false,
		Metrics:      make(map[string]any),
		Details:      make(map[string]any),
		Errors:       []string{},
		Warnings:     []string{},
	}

	stages := []struct {
		name string
		fn   func(context.Context, *Result) error
	}{
		{"round-trip", s.executeRoundTrip},
		{"session-stickiness", s.executeSessionStickiness},
	}

	for _, stage := range stages {
		stageStart := time.Now()

		if err := stage.fn(ctx, result); err != nil {
			result.Success = false
			result.Error = fmt.Sprintf("%s failed: %v", stage.name, err)
			result.EndTime = time.Now()
			result.Duration = result.EndTime.Sub(result.StartTime)
			return result, nil // Return result even on failure
		}

		result.Metrics[fmt.Sprintf("%s_duration_ms", stage.name)] = time.Since(stageStart).Milliseconds()
	}

	result.Success = true
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	return result, nil
}

// Teardown closes the websocket connection
func (s *WebsocketScenario) Teardown(_ context.Context) error {
	if s.conn == nil {
		return nil
	}

	// Best-effort close frame so the server logs a normal closure
	deadline := time.Now().Add(time.Second)
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)

	err := s.conn.Close()
	s.conn = nil
	return err
}

// executeRoundTrip sends one message without a session and validates
// the reply and minted session
func (s *WebsocketScenario) executeRoundTrip(ctx context.Context, result *Result) error {
	reply, err := s.exchange(ctx, map[string]string{"message": s.config.Message})
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Round trip failed: %v", err))
		return fmt.Errorf("round trip failed: %w", err)
	}

	result.Details["first_frame"] = reply
	result.Metrics["first_frame_chars"] = len(reply.Response)

	if reply.Response == "" {
		result.Errors = append(result.Errors, "Round trip returned an empty response")
		return fmt.Errorf("empty response")
	}
	if reply.SessionID == "" {
		result.Errors = append(result.Errors, "Connection did not mint a session ID")
		return fmt.Errorf("missing session ID")
	}

	s.sessionID = reply.SessionID
	return nil
}

// executeSessionStickiness sends a second frame without a session and
// validates the connection keeps the first one
func (s *WebsocketScenario) executeSessionStickiness(ctx context.Context, result *Result) error {
	reply, err := s.exchange(ctx, map[string]string{"message": s.config.FollowUp})
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Follow-up frame failed: %v", err))
		return fmt.Errorf("follow-up frame failed: %w", err)
	}

	result.Details["second_frame"] = reply

	if reply.SessionID != s.sessionID {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Session drifted across frames: %q then %q", s.sessionID, reply.SessionID))
		return fmt.Errorf("session drift")
	}

	return nil
}

// exchange writes one frame and reads one reply under the configured
// read deadline
func (s *WebsocketScenario) exchange(ctx context.Context, frame map[string]string) (*client.ChatReply, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := s.conn.WriteJSON(frame); err != nil {
		return nil, fmt.Errorf("writing frame: %w", err)
	}

	if err := s.conn.SetReadDeadline(time.Now().Add(s.config.ReadWait)); err != nil {
		return nil, fmt.Errorf("setting read deadline: %w", err)
	}

	var reply client.ChatReply
	if err := s.conn.ReadJSON(&reply); err != nil {
		return nil, fmt.Errorf("reading frame: %w", err)
	}

	return &reply, nil
}

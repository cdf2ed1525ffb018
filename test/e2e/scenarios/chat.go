package scenarios

import (
	"context"
	"fmt"
	"time"

	"github.com/c360/sousschef/test/e2e/client"
	"github.com/c360/sousschef/test/e2e/config"
)

// ChatScenario validates conversation turns through /api/chat
type ChatScenario struct {
	name        string
	description string
	client      *client.AssistantClient
	config      *ChatConfig

	// Session minted by the first turn, reused by the second
	sessionID string
}

// ChatConfig contains configuration for the conversation check
type ChatConfig struct {
	Message  string `json:"message"`
	FollowUp string `json:"follow_up"`

	// Query types the classifier is allowed to report
	ValidQueryTypes []string `json:"valid_query_types"`
}

// DefaultChatConfig returns default configuration for the conversation check
func DefaultChatConfig() *ChatConfig {
	return &ChatConfig{
		Message:  config.DefaultTestConfig.ChatMessage,
		FollowUp: config.DefaultTestConfig.FollowUpMessage,
		ValidQueryTypes: []string{
			"recipe_search",
			"cooking_question",
			"ingredient_recognition",
		},
	}
}

// NewChatScenario creates a new conversation scenario
func NewChatScenario(apiClient *client.AssistantClient, config *ChatConfig) *ChatScenario {
	if config == nil {
		config = DefaultChatConfig()
	}

	return &ChatScenario{
		name:        "chat",
		description: "Sends conversation turns through /api/chat and validates classification and session handling",
		client:      apiClient,
		config:      config,
	}
}

// Name returns the scenario name
func (s *ChatScenario) Name() string {
	return s.name
}

// Description returns the scenario description
func (s *ChatScenario) Description() string {
	return s.description
}

// Setup probes service health so Execute failures point at the chat
// path rather than at connectivity
func (s *ChatScenario) Setup(ctx context.Context) error {
	if _, err := s.client.GetHealth(ctx); err != nil {
		return fmt.Errorf("service not reachable: %w", err)
	}
	return nil
}

// Execute runs the conversation scenario
func (s *ChatScenario) Execute(ctx context.Context) (*Result, error) {
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
		{"first-turn", s.executeFirstTurn},
		{"session-continuity", s.executeSessionContinuity},
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

// Teardown cleans up after the scenario (no-op, sessions are server-side)
func (s *ChatScenario) Teardown(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return nil
}

// executeFirstTurn sends the opening message without a session and
// validates the minted session and classification
func (s *ChatScenario) executeFirstTurn(ctx context.Context, result *Result) error {
	reply, err := s.client.Chat(ctx, s.config.Message, "")
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("First turn failed: %v", err))
		return fmt.Errorf("first turn failed: %w", err)
	}

	result.Details["first_reply"] = reply
	result.Metrics["first_reply_chars"] = len(reply.Response)

	if reply.Response == "" {
		result.Errors = append(result.Errors, "First turn returned an empty response")
		return fmt.Errorf("empty response")
	}

	if reply.SessionID == "" {
		result.Errors = append(result.Errors, "Service did not mint a session ID")
		return fmt.Errorf("missing session ID")
	}
	s.sessionID = reply.SessionID

	validType := false
	for _, qt := range s.config.ValidQueryTypes {
		if reply.QueryType == qt {
			validType = true
			break
		}
	}
	if !validType {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Unexpected query type %q (valid: %v)", reply.QueryType, s.config.ValidQueryTypes))
		return fmt.Errorf("unexpected query type: %q", reply.QueryType)
	}
	result.Metrics["query_type"] = reply.QueryType

	return nil
}

// executeSessionContinuity sends a follow-up on the minted session and
// validates the session echo
func (s *ChatScenario) executeSessionContinuity(ctx context.Context, result *Result) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	reply, err := s.client.Chat(ctx, s.config.FollowUp, s.sessionID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Follow-up turn failed: %v", err))
		return fmt.Errorf("follow-up turn failed: %w", err)
	}

	result.Details["follow_up_reply"] = reply

	if reply.Response == "" {
		result.Errors = append(result.Errors, "Follow-up turn returned an empty response")
		return fmt.Errorf("empty follow-up response")
	}

	if reply.SessionID != s.sessionID {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Session not echoed: sent %q, got %q", s.sessionID, reply.SessionID))
		return fmt.Errorf("session mismatch")
	}

	return nil
}

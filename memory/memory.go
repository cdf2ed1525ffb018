// Package memory keeps a bounded conversation history: a rolling window
// of raw turns plus a running summary of everything older. Operations are
// best-effort; a failed summarization never reaches the caller, it only
// costs the dropped turns their place in the summary.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/c360/sousschef/types"
)

const (
	// DefaultTokenBudget is the estimated token count the raw turn buffer
	// may reach before compaction.
	DefaultTokenBudget = 2000

	// DefaultRecentWindow is how many raw turns stay out of compaction.
	DefaultRecentWindow = 4

	// charsPerToken is the estimation heuristic. No tokenizer dependency;
	// the budget is a bound, not an accounting.
	charsPerToken = 4
)

// Generator produces the compressed summary text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config configures a conversation memory.
type Config struct {
	// TokenBudget is the estimated-token ceiling for raw turns
	// (default 2000).
	TokenBudget int

	// RecentWindow is how many raw turns are never compacted away
	// (default 4).
	RecentWindow int

	// Generator summarizes old turns. Nil means compaction drops them.
	Generator Generator

	// Logger for warnings (optional, defaults to slog.Default()).
	Logger *slog.Logger
}

// Memory holds one conversation's turns and running summary. Safe for
// concurrent use; a single mutex guards all state, so SaveTurn may block
// on an in-flight summarization.
type Memory struct {
	mu      sync.Mutex
	turns   []types.Turn
	summary string

	tokenBudget  int
	recentWindow int
	generator    Generator
	logger       *slog.Logger
}

// NewMemory creates a conversation memory.
func NewMemory(cfg Config) *Memory {
	budget := cfg.TokenBudget
	if budget <= 0 {
		budget = DefaultTokenBudget
	}

	window := cfg.RecentWindow
	if window <= 0 {
		window = DefaultRecentWindow
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Memory{
		tokenBudget:  budget,
		recentWindow: window,
		generator:    cfg.Generator,
		logger:       logger,
	}
}

// SaveTurn appends one user/assistant turn pair, then compacts if the
// buffer outgrew the budget.
func (m *Memory) SaveTurn(ctx context.Context, input, output string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.turns = append(m.turns,
		types.NewTurn(types.RoleUser, input),
		types.NewTurn(types.RoleAssistant, output),
	)
	m.compactLocked(ctx)
}

// LoadSummary returns the running summary, empty until the first
// compaction succeeds.
func (m *Memory) LoadSummary() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summary
}

// RecentTurns returns up to n of the newest raw turns in chronological
// order.
func (m *Memory) RecentTurns(n int) []types.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n <= 0 || len(m.turns) == 0 {
		return nil
	}
	if n > len(m.turns) {
		n = len(m.turns)
	}

	recent := make([]types.Turn, n)
	copy(recent, m.turns[len(m.turns)-n:])
	return recent
}

// Clear drops all turns and the summary.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = nil
	m.summary = ""
}

// compactLocked folds everything but the recent window into the running
// summary once the buffer exceeds the budget. On summarization failure
// the old turns are dropped and the summary stays as it was: lossy, but
// the buffer never grows past budget plus one window.
func (m *Memory) compactLocked(ctx context.Context) {
	if m.estimatedTokensLocked() <= m.tokenBudget {
		return
	}
	if len(m.turns) <= m.recentWindow {
		return
	}

	boundary := len(m.turns) - m.recentWindow
	old := m.turns[:boundary]
	recent := m.turns[boundary:]

	if m.generator != nil {
		summary, err := m.generator.Generate(ctx, summaryPrompt(m.summary, old))
		if err == nil {
			m.summary = strings.TrimSpace(summary)
			m.turns = append([]types.Turn(nil), recent...)
			return
		}
		m.logger.Warn("conversation summarization failed, dropping oldest turns",
			"dropped", len(old),
			"error", err)
	}

	m.turns = append([]types.Turn(nil), recent...)
}

func (m *Memory) estimatedTokensLocked() int {
	chars := 0
	for _, turn := range m.turns {
		chars += len(turn.Content)
	}
	return chars / charsPerToken
}

func summaryPrompt(existing string, turns []types.Turn) string {
	var b strings.Builder
	b.WriteString("Progressively summarize the conversation below for future context.\n")
	if existing != "" {
		fmt.Fprintf(&b, "Current summary:\n%s\n", existing)
	}
	b.WriteString("New lines of conversation:\n")
	for _, turn := range turns {
		fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
	}
	b.WriteString("Return only the updated summary.")
	return b.String()
}

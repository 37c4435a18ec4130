// ABOUTME: Public SDK for programmatic use of the agent runtime
// ABOUTME: Wraps internal/agent.Agent with functional options and convenience result types

package sdk

import (
	"context"
	"fmt"
	"strings"

	"github.com/pi-agent/runtime/internal/agent"
	"github.com/pi-agent/runtime/pkg/ai"
)

// defaultModelID is the fallback model when none is specified.
const defaultModelID = "claude-sonnet-4-20250514"

// Client is the main entry point for the SDK: one Client wraps one
// conversation's worth of Agent state.
type Client struct {
	agent  *agent.Agent
	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Client at construction time.
type Option func(*clientConfig)

type clientConfig struct {
	modelID       string
	model         *ai.Model
	provider      ai.ApiProvider
	systemPrompt  string
	thinkingLevel ai.ThinkingLevel
	temperature   float64
	maxTokens     int
	tools         []*agent.Tool
	steeringMode  agent.QueueMode
	followUpMode  agent.QueueMode
}

// WithModel sets the model by ID (from the built-in catalog).
func WithModel(id string) Option { return func(c *clientConfig) { c.modelID = id } }

// WithModelDirect sets the model directly (bypasses catalog lookup).
func WithModelDirect(m *ai.Model) Option { return func(c *clientConfig) { c.model = m } }

// WithSystemPrompt sets the system prompt for the agent.
func WithSystemPrompt(prompt string) Option { return func(c *clientConfig) { c.systemPrompt = prompt } }

// WithThinkingLevel sets the extended-thinking budget level.
func WithThinkingLevel(level ai.ThinkingLevel) Option {
	return func(c *clientConfig) { c.thinkingLevel = level }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option { return func(c *clientConfig) { c.temperature = t } }

// WithMaxTokens sets the max-output-tokens budget.
func WithMaxTokens(n int) Option { return func(c *clientConfig) { c.maxTokens = n } }

// WithTool registers an additional tool with the agent.
func WithTool(t *agent.Tool) Option { return func(c *clientConfig) { c.tools = append(c.tools, t) } }

// WithProvider sets the LLM provider directly (for testing or a custom provider).
func WithProvider(p ai.ApiProvider) Option { return func(c *clientConfig) { c.provider = p } }

// WithSteeringMode sets the steering queue's drain mode.
func WithSteeringMode(mode agent.QueueMode) Option {
	return func(c *clientConfig) { c.steeringMode = mode }
}

// WithFollowUpMode sets the follow-up queue's drain mode.
func WithFollowUpMode(mode agent.QueueMode) Option {
	return func(c *clientConfig) { c.followUpMode = mode }
}

// New creates a new SDK client with the given options.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{temperature: 1.0}
	for _, o := range opts {
		o(cfg)
	}

	var model *ai.Model
	switch {
	case cfg.model != nil:
		model = cfg.model
	default:
		modelID := cfg.modelID
		if modelID == "" {
			modelID = defaultModelID
		}
		model = ai.FindModel(modelID)
		if model == nil {
			return nil, fmt.Errorf("model %q not found in built-in catalog", modelID)
		}
	}

	if cfg.provider == nil {
		provider := ai.GetProvider(model.Api, model.BaseURL)
		if provider == nil {
			return nil, fmt.Errorf("no provider registered for API %q; use WithProvider to supply one", model.Api)
		}
		cfg.provider = provider
	}

	ctx, cancel := context.WithCancel(context.Background())

	ag := agent.New(cfg.provider, model, cfg.steeringMode, cfg.followUpMode)
	ag.SetSystemPrompt(cfg.systemPrompt)
	ag.SetThinkingLevel(cfg.thinkingLevel)
	ag.SetTemperature(cfg.temperature)
	ag.SetMaxTokens(cfg.maxTokens)
	for _, t := range cfg.tools {
		if err := ag.RegisterTool(t); err != nil {
			cancel()
			return nil, fmt.Errorf("registering tool %s: %w", t.Name, err)
		}
	}

	return &Client{agent: ag, ctx: ctx, cancel: cancel}, nil
}

// Prompt sends a user message and runs the turn loop to completion,
// returning the messages appended to the conversation. The run is
// cancelled if either ctx or the client's own lifecycle (via Close) ends.
func (c *Client) Prompt(ctx context.Context, text string) (*Result, error) {
	promptCtx, promptCancel := context.WithCancel(c.ctx)
	defer promptCancel()

	if err := c.ctx.Err(); err != nil {
		return nil, fmt.Errorf("sdk: client is closed: %w", err)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	stop := context.AfterFunc(ctx, promptCancel)
	defer stop()

	messages, err := c.agent.Prompt(promptCtx, text)
	if err != nil {
		return nil, err
	}
	return &Result{Messages: messages}, nil
}

// Steer enqueues text as a steering message for the in-flight run.
func (c *Client) Steer(text string) { c.agent.Steer(text) }

// FollowUp enqueues text as a follow-up message for after the current run ends.
func (c *Client) FollowUp(text string) { c.agent.FollowUp(text) }

// Abort cancels the in-flight run, if any.
func (c *Client) Abort() { c.agent.Abort() }

// OnEvent registers a listener for agent lifecycle events and returns a
// disposer that removes just this subscription.
func (c *Client) OnEvent(handler func(agent.AgentEvent)) func() {
	return c.agent.On("", handler)
}

// Use runs an extension factory against the client's agent.
func (c *Client) Use(factory agent.ExtensionFactory) *agent.Extension {
	return c.agent.Use(c.ctx, factory)
}

// History returns a snapshot of the conversation so far.
func (c *Client) History() []agent.Message { return c.agent.History() }

// Close cancels any in-flight run and releases the client's lifecycle context.
func (c *Client) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

// Result wraps the messages appended by one Prompt call with convenience accessors.
type Result struct {
	Messages []agent.Message
}

// Text concatenates the text content of every assistant message in the result.
func (r *Result) Text() string {
	var parts []string
	for _, m := range r.Messages {
		if m.Role != agent.RoleAssistant {
			continue
		}
		if text := m.Assistant.Text(); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "")
}

// ToolCalls returns every tool-call part across the result's assistant messages.
func (r *Result) ToolCalls() []agent.Part {
	var calls []agent.Part
	for _, m := range r.Messages {
		if m.Role != agent.RoleAssistant {
			continue
		}
		calls = append(calls, m.Assistant.ToolCalls()...)
	}
	return calls
}

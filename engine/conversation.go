package engine

import (
	"context"
	"log/slog"
)

// Conversation lifecycle states. Canceled and Complete are terminal.
type State string

const (
	StateStart        State = "start"
	StateAwaitingText State = "awaiting-text"
	StateAtDecision   State = "at-decision"
	StateCanceled     State = "canceled"
	StateComplete     State = "complete"
)

type NodeID string

// Pseudo-targets a node handler can return instead of a real node.
const (
	// NodeStay keeps the conversation where it is (recoverable failure,
	// re-prompt in the same state).
	NodeStay NodeID = ""
	// NodeCanceled and NodeComplete move to the matching terminal state.
	NodeCanceled NodeID = "canceled"
	NodeComplete NodeID = "complete"
)

type TextFunc[F any] func(ctx context.Context, f *F, text string) (NodeID, []Outbound, error)

type SelectFunc[F any] func(ctx context.Context, f *F, selected []string) (NodeID, []Outbound, error)

// One choice at a decision node: its label, and what answering it does.
type Option[F any] struct {
	Label  string
	Select SelectFunc[F]
}

// A decision-tree node, as data. Free-text nodes set OnText; single-select
// decision nodes set Options (or OptionsFunc when the choices depend on flow
// state); multi-select nodes set MultiSelect plus OnSelect.
type Node[F any] struct {
	// Shown when the conversation enters this node: as plain text for text
	// nodes, as the widget prompt for decision nodes. PromptFunc wins when set.
	Prompt     string
	PromptFunc func(f *F) string

	OnText TextFunc[F]

	Options     []Option[F]
	OptionsFunc func(ctx context.Context, f *F) ([]Option[F], error)

	MultiSelect bool
	OnSelect    SelectFunc[F]
}

func (n *Node[F]) isText() bool { return n.OnText != nil }

type Tree[F any] map[NodeID]*Node[F]

// Conversation drives one actor through a decision tree, one inbound event at
// a time. It is the single interpreter for every flow; the trees are static
// tables of Node values.
type Conversation[F any] struct {
	tree     Tree[F]
	flow     *F
	state    State
	node     NodeID
	answered map[NodeID]bool

	cancelText string
	busyText   string
	logger     *slog.Logger
}

func NewConversation[F any](tree Tree[F], flow *F, cancelText, busyText string, logger *slog.Logger) *Conversation[F] {
	return &Conversation[F]{
		tree:       tree,
		flow:       flow,
		state:      StateStart,
		answered:   make(map[NodeID]bool),
		cancelText: cancelText,
		busyText:   busyText,
		logger:     logger,
	}
}

func (c *Conversation[F]) Flow() *F     { return c.flow }
func (c *Conversation[F]) State() State { return c.state }

func (c *Conversation[F]) Canceled() bool { return c.state == StateCanceled }
func (c *Conversation[F]) Complete() bool { return c.state == StateComplete }

func (c *Conversation[F]) terminal() bool {
	return c.state == StateCanceled || c.state == StateComplete
}

// Whether the given node belongs to this conversation's tree. Used by the
// dispatcher to route widget selections.
func (c *Conversation[F]) HasNode(id NodeID) bool {
	_, ok := c.tree[id]
	return ok
}

// Begin enters the start node and returns its opening output.
func (c *Conversation[F]) Begin(ctx context.Context, start NodeID) []Outbound {
	return c.advance(ctx, start)
}

// HandleText consumes one plain-text event. The cancel keyword short-circuits
// from every non-terminal state; text arriving while a decision widget is
// pending is rejected without a state change.
func (c *Conversation[F]) HandleText(ctx context.Context, text string) []Outbound {
	if c.terminal() {
		return nil
	}
	if text == CancelKeyword {
		c.state = StateCanceled
		return []Outbound{textOut(c.cancelText)}
	}
	if c.state == StateAtDecision {
		return []Outbound{textOut(c.busyText)}
	}
	node := c.tree[c.node]
	if node == nil || node.OnText == nil {
		c.logger.Warn("conversation got text outside a text node", "node", c.node, "state", c.state)
		return nil
	}
	next, outs, err := node.OnText(ctx, c.flow, text)
	if err != nil {
		c.logger.Error("conversation text handler failed", "err", err, "node", c.node)
		c.state = StateCanceled
		return append(outs, textOut(internalErrorText))
	}
	return append(outs, c.advance(ctx, next)...)
}

// HandleChoice consumes one widget selection reported by the UI collaborator.
// Answered nodes are locked: a selection for anything but the pending node gets
// the busy notice back and changes nothing.
func (c *Conversation[F]) HandleChoice(ctx context.Context, node NodeID, selected []string) []Outbound {
	if c.terminal() {
		return nil
	}
	if c.state != StateAtDecision || node != c.node || c.answered[node] {
		return []Outbound{textOut(c.busyText)}
	}
	n := c.tree[node]

	var fn SelectFunc[F]
	if n.MultiSelect {
		fn = n.OnSelect
	} else {
		if len(selected) != 1 {
			c.logger.Warn("single-select node got multiple values", "node", node)
			return []Outbound{textOut(c.busyText)}
		}
		opts, err := c.options(ctx, n)
		if err != nil {
			c.logger.Error("resolving node options", "err", err, "node", node)
			c.state = StateCanceled
			return []Outbound{textOut(internalErrorText)}
		}
		for _, opt := range opts {
			if opt.Label == selected[0] {
				fn = opt.Select
				break
			}
		}
		if fn == nil {
			c.logger.Warn("selection does not match any option", "node", node, "value", selected[0])
			return []Outbound{textOut(c.busyText)}
		}
	}

	next, outs, err := fn(ctx, c.flow, selected)
	if err != nil {
		c.logger.Error("conversation select handler failed", "err", err, "node", node)
		c.state = StateCanceled
		return append(outs, textOut(internalErrorText))
	}
	if next != NodeStay {
		c.answered[node] = true
	}
	return append(outs, c.advance(ctx, next)...)
}

func (c *Conversation[F]) options(ctx context.Context, n *Node[F]) ([]Option[F], error) {
	if n.OptionsFunc != nil {
		return n.OptionsFunc(ctx, c.flow)
	}
	return n.Options, nil
}

// advance moves the conversation to the next node and emits that node's
// opening output: the prompt text for text nodes, or a widget descriptor for
// decision nodes.
func (c *Conversation[F]) advance(ctx context.Context, next NodeID) []Outbound {
	switch next {
	case NodeStay:
		return nil
	case NodeCanceled:
		c.state = StateCanceled
		return nil
	case NodeComplete:
		c.state = StateComplete
		return nil
	}
	n := c.tree[next]
	if n == nil {
		c.logger.Error("conversation advanced to unknown node", "node", next)
		c.state = StateCanceled
		return []Outbound{textOut(internalErrorText)}
	}
	c.node = next

	prompt := n.Prompt
	if n.PromptFunc != nil {
		prompt = n.PromptFunc(c.flow)
	}
	if n.isText() {
		c.state = StateAwaitingText
		return []Outbound{textOut(prompt)}
	}

	c.state = StateAtDecision
	// trees may loop back to a node (e.g. "add another?"); re-entry re-arms it
	delete(c.answered, next)
	opts, err := c.options(ctx, n)
	if err != nil {
		c.logger.Error("resolving node options", "err", err, "node", next)
		c.state = StateCanceled
		return []Outbound{textOut(internalErrorText)}
	}
	labels := make([]string, len(opts))
	for i, opt := range opts {
		labels[i] = opt.Label
	}
	return []Outbound{{Prompt: &Prompt{
		Node:        next,
		Text:        prompt,
		Options:     labels,
		MultiSelect: n.MultiSelect,
	}}}
}

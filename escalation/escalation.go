// Graduated sanctions: strike bookkeeping, suspensions, and bans, with the
// user-facing explanations for each.
package escalation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/modqueue/triage/cases"
	"github.com/modqueue/triage/directory"
	"github.com/modqueue/triage/queue"
	"github.com/modqueue/triage/statstore"
)

type Sanction string

const (
	SanctionNone      Sanction = "none"
	SanctionSuspended Sanction = "suspended"
	SanctionBanned    Sanction = "banned"
)

// A user-facing notification.
type Notice struct {
	Title string
	Body  string
}

// Interface for a type that can deliver notifications to users and to the
// moderator channel.
type Notifier interface {
	SendUser(ctx context.Context, userID string, notice Notice) error
	SendModChannel(ctx context.Context, text string) error
}

const guidelinesFooter = "Refer to the linked Community Guidelines for more information."

// Engine converts accumulated violations into graduated sanctions. Strike
// counts live in the StatStore; this type only decides and acts.
type Engine struct {
	StrikeLimit int
	Stats       statstore.StatStore
	Queue       *queue.CaseQueue
	Directory   directory.Directory
	Notifier    Notifier
	Logger      *slog.Logger
	// Identity of the bot itself; autoreports it authors never get reporter
	// feedback.
	SelfID string

	mu     sync.Mutex
	banned map[string]bool
}

func NewEngine(stats statstore.StatStore, q *queue.CaseQueue, dir directory.Directory, notifier Notifier, logger *slog.Logger) *Engine {
	return &Engine{
		StrikeLimit: 3,
		Stats:       stats,
		Queue:       q,
		Directory:   dir,
		Notifier:    notifier,
		Logger:      logger,
		banned:      make(map[string]bool),
	}
}

func (e *Engine) IsBanned(userID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.banned[userID]
}

// Adds a strike against the user. Reaching the strike limit bans; anything
// short of it suspends.
func (e *Engine) Strike(ctx context.Context, user directory.User, messageContent string, adversarial bool) (Sanction, error) {
	n, err := e.Stats.AddStrike(ctx, user.ID)
	if err != nil {
		return SanctionNone, fmt.Errorf("recording strike: %w", err)
	}
	if n >= e.StrikeLimit {
		if err := e.Notifier.SendModChannel(ctx, fmt.Sprintf("This is the user's %drd strike. They will be banned...", e.StrikeLimit)); err != nil {
			e.Logger.Warn("mod channel notification failed", "err", err)
		}
		if err := e.Ban(ctx, user, messageContent, adversarial); err != nil {
			return SanctionNone, err
		}
		return SanctionBanned, nil
	}
	if err := e.suspend(ctx, user, messageContent, adversarial); err != nil {
		return SanctionNone, err
	}
	return SanctionSuspended, nil
}

// Explains why action against the user has been taken.
func (e *Engine) explain(ctx context.Context, user directory.User, messageContent string, adversarial bool, action string) string {
	footer := guidelinesFooter
	if action == "suspend" {
		strikes, err := e.Stats.GetStrikes(ctx, user.ID)
		if err != nil {
			e.Logger.Warn("reading strike count for explanation", "err", err, "user", user.ID)
		}
		footer = fmt.Sprintf("After %d suspension(s) any further violations will get your account banned.\n", e.StrikeLimit-strikes) + footer
	}
	if adversarial {
		return "You have violated our Community Guidelines by targeting a user with wrong reports.\n" +
			fmt.Sprintf("We do not tolerate this behavior, so we were forced to %s your account.\n", action) +
			footer
	}
	return "Your recent messages have violated our Community Guidelines:\n" +
		fmt.Sprintf("```%s```", messageContent) +
		fmt.Sprintf("We do not tolerate this behavior, so we were forced to %s your account.\n", action) +
		footer
}

// Bans the user: explains the decision, purges their queued cases, and removes
// their content from the regular channel.
func (e *Engine) Ban(ctx context.Context, user directory.User, messageContent string, adversarial bool) error {
	notice := Notice{
		Title: "Your account has been banned!",
		Body:  e.explain(ctx, user, messageContent, adversarial, "ban"),
	}
	if err := e.Notifier.SendUser(ctx, user.ID, notice); err != nil {
		e.Logger.Warn("ban notification failed", "err", err, "user", user.ID)
	}

	e.mu.Lock()
	e.banned[user.ID] = true
	e.mu.Unlock()
	sanctionCount.WithLabelValues("ban", causeLabel(adversarial)).Inc()

	// reports naming the banned user as the flagged author are moot now
	purged := e.Queue.RemoveWhere(func(c *cases.Case) bool {
		return c.Message != nil && c.Message.Author.ID == user.ID
	})
	if purged > 0 {
		e.Logger.Info("purged queued cases for banned user", "user", user.ID, "count", purged)
	}

	deleted, err := e.Directory.PurgeUserMessages(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("purging banned user content: %w", err)
	}
	return e.Notifier.SendModChannel(ctx, fmt.Sprintf("%d messages from user %s have been deleted.", deleted, user.Name))
}

func (e *Engine) suspend(ctx context.Context, user directory.User, messageContent string, adversarial bool) error {
	notice := Notice{
		Title: "Your account has been suspended for 7 days!",
		Body:  e.explain(ctx, user, messageContent, adversarial, "suspend"),
	}
	sanctionCount.WithLabelValues("suspend", causeLabel(adversarial)).Inc()
	return e.Notifier.SendUser(ctx, user.ID, notice)
}

// Tells the reporter their report led to a confirmed sanction. Autoreports
// authored by the bot itself are skipped.
func (e *Engine) NotifyReporter(ctx context.Context, reporter directory.User) error {
	if reporter.ID == e.SelfID {
		return nil
	}
	return e.Notifier.SendUser(ctx, reporter.ID, Notice{
		Title: "Instant Feedback Report",
		Body:  "Your recent report was reviewed by our moderation team and the user in question has been issued a penalty. We take every report seriously and value your efforts towards keeping our community accountable.",
	})
}

func causeLabel(adversarial bool) string {
	if adversarial {
		return "adversarial-reporting"
	}
	return "content-violation"
}

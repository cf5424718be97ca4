// Moderation triage runtime: routes inbound chat events to conversational
// flows or automated scoring, and manages the shared queue and statistics.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/modqueue/triage/cases"
	"github.com/modqueue/triage/directory"
	"github.com/modqueue/triage/escalation"
	"github.com/modqueue/triage/queue"
	"github.com/modqueue/triage/scoring"
	"github.com/modqueue/triage/statstore"
)

// Inbound plain-text commands. Recognized case-sensitively, exact match.
const (
	ReportKeyword      = "report"
	ReviewKeyword      = "review"
	CancelKeyword      = "cancel"
	HelpKeyword        = "help"
	PerformanceKeyword = "performance"
)

// Automated scoring thresholds, applied to inbound channel content. Strictly
// greater-than comparisons at each boundary.
const (
	AutoReportThreshold  = 0.70
	AutoSuspendThreshold = 0.80
	AutoBanThreshold     = 0.95
)

const (
	intakeCancelText = "Report cancelled."
	intakeBusyText   = "Sorry, you are in the middle of a report.\nContinue by selecting an option above or stop by typing `cancel`."
	reviewCancelText = "Review cancelled."
	reviewBusyText   = "Sorry, you are in the middle of a review process.\nContinue by selecting an option above or stop by typing `cancel`."
	noReviewsText    = "There are no reviews to review."

	internalErrorText = "Something went wrong on our side. The flow has been stopped; please start over."

	dmHelpText = "Use the `report` command to begin the reporting process.\n" +
		"Use the `cancel` command to cancel the report process.\n"
	modHelpText = "Use the `review` command to begin the reviewing process.\n" +
		"Use the `cancel` command to cancel the reviewing process.\n" +
		"Use the `performance` command to review the accuracy of the API."
)

type Config struct {
	Logger     *slog.Logger
	Directory  directory.Directory
	Queue      *queue.CaseQueue
	Stats      statstore.StatStore
	Escalation *escalation.Engine
	Scores     scoring.ScoreProvider
	Notifier   escalation.Notifier
	// Identity the engine files autoreports under.
	Self directory.User
}

// Engine is the dispatcher: one logical actor consuming inbound events in
// arrival order. It enforces the two global exclusivity constraints (one
// intake per reporter, one review session process-wide).
type Engine struct {
	Logger     *slog.Logger
	Directory  directory.Directory
	Queue      *queue.CaseQueue
	Stats      statstore.StatStore
	Escalation *escalation.Engine
	Scores     scoring.ScoreProvider
	Notifier   escalation.Notifier
	Self       directory.User

	mu      sync.Mutex
	intakes map[string]*Conversation[Intake]
	review  *Conversation[Review]
}

func NewEngine(config Config) *Engine {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Logger:     logger,
		Directory:  config.Directory,
		Queue:      config.Queue,
		Stats:      config.Stats,
		Escalation: config.Escalation,
		Scores:     config.Scores,
		Notifier:   config.Notifier,
		Self:       config.Self,
		intakes:    make(map[string]*Conversation[Intake]),
	}
}

// ProcessDirectMessage handles one DM from a (potential) reporter: help text,
// intake start, or a turn of the reporter's active intake flow.
func (e *Engine) ProcessDirectMessage(ctx context.Context, from directory.User, text string) []Outbound {
	// similar to an HTTP server, we want to recover any panics from flow execution
	defer func() {
		if r := recover(); r != nil {
			e.Logger.Error("event processing exception", "err", r, "user", from.ID, "type", "direct")
		}
	}()
	eventProcessCount.WithLabelValues("direct").Inc()

	if text == HelpKeyword {
		return []Outbound{textOut(dmHelpText)}
	}

	e.mu.Lock()
	conv, ok := e.intakes[from.ID]
	if !ok {
		if text != ReportKeyword {
			e.mu.Unlock()
			return nil
		}
		flow := &Intake{Case: cases.New(from), eng: e}
		conv = NewConversation(intakeTree, flow, intakeCancelText, intakeBusyText,
			e.Logger.With("flow", "intake", "reporter", from.ID))
		e.intakes[from.ID] = conv
		e.mu.Unlock()
		return conv.Begin(ctx, nodeIntakeLocator)
	}
	e.mu.Unlock()

	outs := conv.HandleText(ctx, text)
	e.cleanupIntake(ctx, from.ID)
	return outs
}

// ProcessChannelMessage runs the classifier against regular-channel content and
// applies the automated thresholds: ban, strike, synthetic case, or statistics
// only. Scorer failures are surfaced to the moderator channel and take no
// automated action.
func (e *Engine) ProcessChannelMessage(ctx context.Context, msg directory.Message) error {
	defer func() {
		if r := recover(); r != nil {
			e.Logger.Error("event processing exception", "err", r, "user", msg.Author.ID, "type", "channel")
		}
	}()
	eventProcessCount.WithLabelValues("channel").Inc()

	score, err := e.Scores.AnalyzeText(ctx, msg.Text)
	if err != nil {
		scorerErrorCount.Inc()
		e.Logger.Error("scoring message failed", "err", err, "user", msg.Author.ID)
		if nerr := e.Notifier.SendModChannel(ctx, fmt.Sprintf("Could not score a message from `%s`; it was left unreviewed: %v", msg.Author.Name, err)); nerr != nil {
			e.Logger.Warn("mod channel notification failed", "err", nerr)
		}
		return fmt.Errorf("scoring message: %w", err)
	}
	if err := e.Stats.AddSentiment(ctx, msg.Author.ID, score); err != nil {
		e.Logger.Warn("recording sentiment failed", "err", err, "user", msg.Author.ID)
	}

	switch {
	case score > AutoBanThreshold:
		autoActionCount.WithLabelValues("ban").Inc()
		if err := e.Notifier.SendModChannel(ctx, fmt.Sprintf("User `%s` got auto-banned for a message with concern score %.2f%%.", msg.Author.Name, score*100)); err != nil {
			e.Logger.Warn("mod channel notification failed", "err", err)
		}
		return e.Escalation.Ban(ctx, msg.Author, msg.Text, false)
	case score > AutoSuspendThreshold:
		autoActionCount.WithLabelValues("strike").Inc()
		if err := e.Notifier.SendModChannel(ctx, fmt.Sprintf("User `%s` got auto-suspended for a message with concern score %.2f%%.", msg.Author.Name, score*100)); err != nil {
			e.Logger.Warn("mod channel notification failed", "err", err)
		}
		_, err := e.Escalation.Strike(ctx, msg.Author, msg.Text, false)
		return err
	case score > AutoReportThreshold:
		autoActionCount.WithLabelValues("report").Inc()
		m := msg
		c := &cases.Case{
			Reporter:    e.Self,
			Message:     &m,
			AbuseType:   cases.AbuseHarassment,
			SubmittedAt: time.Now(),
			Score:       score,
			Status:      cases.StatusComplete,
		}
		return e.enqueueCase(ctx, c)
	}
	return nil
}

// ProcessModMessage handles one message in the moderator channel: help, the
// calibration report, review start, or a turn of the active review.
func (e *Engine) ProcessModMessage(ctx context.Context, from directory.User, text string) []Outbound {
	defer func() {
		if r := recover(); r != nil {
			e.Logger.Error("event processing exception", "err", r, "user", from.ID, "type", "mod")
		}
	}()
	eventProcessCount.WithLabelValues("mod").Inc()

	if text == HelpKeyword {
		return []Outbound{textOut(modHelpText)}
	}
	if text == PerformanceKeyword {
		overview, err := e.Stats.Overview(ctx)
		if err != nil {
			e.Logger.Error("rendering calibration overview", "err", err)
			return []Outbound{textOut("Statistics are unavailable right now.")}
		}
		return []Outbound{textOut(overview)}
	}

	e.mu.Lock()
	conv := e.review
	if conv == nil {
		if text != ReviewKeyword {
			e.mu.Unlock()
			return nil
		}
		if e.Queue.Len() == 0 {
			e.mu.Unlock()
			return []Outbound{textOut(noReviewsText)}
		}
		conv = NewConversation(reviewTree, &Review{eng: e}, reviewCancelText, reviewBusyText,
			e.Logger.With("flow", "review", "moderator", from.ID))
		e.review = conv
		e.mu.Unlock()
		return conv.Begin(ctx, nodeReviewPolicy)
	}
	e.mu.Unlock()

	outs := conv.HandleText(ctx, text)
	return append(outs, e.cleanupReview(ctx)...)
}

// ProcessChoice routes a widget selection reported by the UI collaborator to
// the actor's intake flow or to the active review.
func (e *Engine) ProcessChoice(ctx context.Context, actor directory.User, node NodeID, selected []string) []Outbound {
	defer func() {
		if r := recover(); r != nil {
			e.Logger.Error("event processing exception", "err", r, "user", actor.ID, "type", "choice")
		}
	}()
	eventProcessCount.WithLabelValues("choice").Inc()

	e.mu.Lock()
	intake := e.intakes[actor.ID]
	review := e.review
	e.mu.Unlock()

	if intake != nil && intake.HasNode(node) {
		outs := intake.HandleChoice(ctx, node, selected)
		e.cleanupIntake(ctx, actor.ID)
		return outs
	}
	if review != nil && review.HasNode(node) {
		outs := review.HandleChoice(ctx, node, selected)
		return append(outs, e.cleanupReview(ctx)...)
	}
	e.Logger.Warn("choice event with no matching flow", "user", actor.ID, "node", node)
	return nil
}

// cleanupIntake releases a terminal intake flow: completed cases are enqueued,
// canceled ones discarded with all collected fields.
func (e *Engine) cleanupIntake(ctx context.Context, reporterID string) {
	e.mu.Lock()
	conv, ok := e.intakes[reporterID]
	if !ok || !(conv.Canceled() || conv.Complete()) {
		e.mu.Unlock()
		return
	}
	delete(e.intakes, reporterID)
	e.mu.Unlock()

	if conv.Complete() {
		if err := e.enqueueCase(ctx, conv.Flow().Case); err != nil {
			e.Logger.Error("enqueueing completed case", "err", err, "reporter", reporterID)
		}
	}
}

// enqueueCase scores an unscored case, records the report counters, pushes it
// for review, and announces the backlog size.
func (e *Engine) enqueueCase(ctx context.Context, c *cases.Case) error {
	if c.Status != cases.StatusComplete {
		return fmt.Errorf("only complete cases may be enqueued (got %s)", c.Status)
	}
	if c.Score == 0 {
		// human-filed reports get their priority from the classifier; if it is
		// unavailable they still enter the queue, at the bottom
		score, err := e.Scores.AnalyzeText(ctx, c.Message.Text)
		if err != nil {
			scorerErrorCount.Inc()
			e.Logger.Warn("scoring reported message failed, enqueueing at zero priority", "err", err)
		} else {
			c.Score = score
		}
	}
	if c.Reporter.ID != e.Self.ID {
		if err := e.Stats.IncrementReportsAuthored(ctx, c.Reporter.ID); err != nil {
			e.Logger.Warn("recording authored report failed", "err", err, "reporter", c.Reporter.ID)
		}
	}
	if err := e.Stats.IncrementReportsAgainst(ctx, c.Message.Author.ID); err != nil {
		e.Logger.Warn("recording report-against failed", "err", err, "user", c.Message.Author.ID)
	}

	e.Queue.Push(c.Score, c)
	casesEnqueuedCount.Inc()
	return e.Notifier.SendModChannel(ctx, fmt.Sprintf("There are %d reports outstanding.", e.Queue.Len()))
}

// cleanupReview releases a terminal review session. A canceled session that
// had already popped a case pushes it back at its original score; losing a
// popped-but-abandoned case would be a correctness bug.
func (e *Engine) cleanupReview(ctx context.Context) []Outbound {
	e.mu.Lock()
	conv := e.review
	if conv == nil || !(conv.Canceled() || conv.Complete()) {
		e.mu.Unlock()
		return nil
	}
	e.review = nil
	e.mu.Unlock()

	r := conv.Flow()
	if conv.Canceled() {
		if r.Case != nil {
			e.Queue.Push(r.Score, r.Case)
		}
		return nil
	}
	reviewsCompletedCount.Inc()
	return []Outbound{summaryOut("Review completed!",
		fmt.Sprintf("Thank you for reviewing this report. Necessary actions have been taken.\nThere are now %d reports outstanding.", e.Queue.Len()))}
}

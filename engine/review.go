package engine

import (
	"context"
	"fmt"

	"github.com/modqueue/triage/cases"
)

// Review is the moderator-side flow: at most one exists process-wide. It pops
// one case from the queue and walks the adjudication tree; every leaf except
// the "not accurate, not adversarial" dead-end results in exactly one
// escalation against exactly one user.
type Review struct {
	// The popped case, or nil before or after the hold. A canceled review with
	// a non-nil Case gets pushed back at Score by the dispatcher.
	Case  *cases.Case
	Score float64
	// Whether the review concluded the report itself was adversarial.
	Adversarial bool

	accurate bool
	eng      *Engine
}

const (
	nodeReviewPolicy      NodeID = "review/policy"
	nodeReviewAccurate    NodeID = "review/accurate"
	nodeReviewFlagged     NodeID = "review/flagged"
	nodeReviewAdversarial NodeID = "review/adversarial"
	nodeReviewMass        NodeID = "review/mass-reporting"
	nodeReviewRisk        NodeID = "review/risk"
	nodeReviewViolation   NodeID = "review/violation-type"
)

func (r *Review) pop(policy string) (NodeID, []Outbound, error) {
	var (
		score float64
		c     *cases.Case
		err   error
	)
	if policy == "Oldest" {
		score, c, err = r.eng.Queue.PopOldest()
	} else {
		score, c, err = r.eng.Queue.PopHighest()
	}
	if err != nil {
		// the dispatcher guards review start against an empty queue; losing a
		// race to the last case still ends the session cleanly
		return NodeCanceled, []Outbound{textOut(noReviewsText)}, nil
	}
	r.Case = c
	r.Score = score
	out := summaryOut(fmt.Sprintf("Report against %s", c.Message.Author.Name), c.ReviewInfo())
	return nodeReviewAccurate, []Outbound{out}, nil
}

// Records the review outcome: calibration sample always, reporter accuracy
// credit and feedback only when the report held up.
func (r *Review) recordOutcome(ctx context.Context) error {
	if err := r.eng.Stats.AddCase(ctx, r.Score, r.accurate); err != nil {
		return fmt.Errorf("recording calibration sample: %w", err)
	}
	if !r.accurate {
		return nil
	}
	if err := r.eng.Stats.IncrementConfirmedReports(ctx, r.Case.Reporter.ID); err != nil {
		return fmt.Errorf("recording confirmed report: %w", err)
	}
	if err := r.eng.Escalation.NotifyReporter(ctx, r.Case.Reporter); err != nil {
		r.eng.Logger.Warn("reporter feedback notification failed", "err", err, "reporter", r.Case.Reporter.ID)
	}
	return nil
}

// The reporter filed a wrong report on purpose; they take the strike.
func (r *Review) strikeReporter(ctx context.Context) (NodeID, []Outbound, error) {
	if _, err := r.eng.Escalation.Strike(ctx, r.Case.Reporter, r.Case.Message.Text, true); err != nil {
		return NodeStay, nil, err
	}
	if err := r.recordOutcome(ctx); err != nil {
		return NodeStay, nil, err
	}
	return NodeComplete, nil, nil
}

func (r *Review) sanctionAuthor(ctx context.Context, ban bool) (NodeID, []Outbound, error) {
	author := r.Case.Message.Author
	if ban {
		if err := r.eng.Escalation.Ban(ctx, author, r.Case.Message.Text, false); err != nil {
			return NodeStay, nil, err
		}
	} else {
		if _, err := r.eng.Escalation.Strike(ctx, author, r.Case.Message.Text, false); err != nil {
			return NodeStay, nil, err
		}
	}
	if err := r.recordOutcome(ctx); err != nil {
		return NodeStay, nil, err
	}
	return NodeComplete, nil, nil
}

var reviewTree = Tree[Review]{
	nodeReviewPolicy: {
		Prompt: "Thank you for starting the review process. Say `help` at any time for more information.",
		Options: []Option[Review]{
			{
				Label: "Most Urgent",
				Select: func(ctx context.Context, r *Review, _ []string) (NodeID, []Outbound, error) {
					return r.pop("Most Urgent")
				},
			},
			{
				Label: "Oldest",
				Select: func(ctx context.Context, r *Review, _ []string) (NodeID, []Outbound, error) {
					return r.pop("Oldest")
				},
			},
		},
	},
	nodeReviewAccurate: {
		Prompt: "Is the following report accurate for Bullying or Harassment?",
		Options: []Option[Review]{
			{
				Label: "Yes",
				Select: func(ctx context.Context, r *Review, _ []string) (NodeID, []Outbound, error) {
					r.accurate = true
					return nodeReviewRisk, nil, nil
				},
			},
			{
				Label: "No",
				Select: func(ctx context.Context, r *Review, _ []string) (NodeID, []Outbound, error) {
					return nodeReviewFlagged, nil, nil
				},
			},
		},
	},
	nodeReviewFlagged: {
		Prompt: "Is this report flagged as possible adversarial activity?",
		Options: []Option[Review]{
			{
				Label: "Yes",
				Select: func(ctx context.Context, r *Review, _ []string) (NodeID, []Outbound, error) {
					return nodeReviewAdversarial, nil, nil
				},
			},
			{
				Label: "No",
				Select: func(ctx context.Context, r *Review, _ []string) (NodeID, []Outbound, error) {
					// not accurate, not adversarial: the only leaf without an
					// escalation
					if err := r.recordOutcome(ctx); err != nil {
						return NodeStay, nil, err
					}
					return NodeComplete, nil, nil
				},
			},
		},
	},
	nodeReviewAdversarial: {
		Prompt: "After a manual investigation, is this a case of adversarial reporting?",
		Options: []Option[Review]{
			{
				Label: "Yes",
				Select: func(ctx context.Context, r *Review, _ []string) (NodeID, []Outbound, error) {
					r.Adversarial = true
					return nodeReviewMass, nil, nil
				},
			},
			{
				Label: "No",
				Select: func(ctx context.Context, r *Review, _ []string) (NodeID, []Outbound, error) {
					if err := r.recordOutcome(ctx); err != nil {
						return NodeStay, nil, err
					}
					return NodeComplete, nil, nil
				},
			},
		},
	},
	nodeReviewMass: {
		Prompt: "Does this appear to be a coordinated mass reporting in order to harass/bully a user?",
		Options: []Option[Review]{
			{
				Label: "Yes",
				Select: func(ctx context.Context, r *Review, _ []string) (NodeID, []Outbound, error) {
					next, outs, err := r.strikeReporter(ctx)
					outs = append([]Outbound{textOut("Please file separate reports for other involved users as well.")}, outs...)
					return next, outs, err
				},
			},
			{
				Label: "No",
				Select: func(ctx context.Context, r *Review, _ []string) (NodeID, []Outbound, error) {
					return r.strikeReporter(ctx)
				},
			},
		},
	},
	nodeReviewRisk: {
		Prompt: "Is the user(s) in immediate or actionable danger / risk of harm?",
		Options: []Option[Review]{
			{
				Label: "Yes",
				Select: func(ctx context.Context, r *Review, _ []string) (NodeID, []Outbound, error) {
					out := textOut("Please write a report to forward relevant information to law enforcement, separately.\nFor now, I will ban the user for you...")
					next, outs, err := r.sanctionAuthor(ctx, true)
					return next, append([]Outbound{out}, outs...), err
				},
			},
			{
				Label: "No",
				Select: func(ctx context.Context, r *Review, _ []string) (NodeID, []Outbound, error) {
					return nodeReviewViolation, nil, nil
				},
			},
		},
	},
	nodeReviewViolation: {
		Prompt: "Is this an impersonation, threat, hate speech, private info, or blackmailing violation?",
		Options: []Option[Review]{
			{
				Label: "Yes",
				Select: func(ctx context.Context, r *Review, _ []string) (NodeID, []Outbound, error) {
					return r.sanctionAuthor(ctx, true)
				},
			},
			{
				Label: "No",
				Select: func(ctx context.Context, r *Review, _ []string) (NodeID, []Outbound, error) {
					return r.sanctionAuthor(ctx, false)
				},
			},
		},
	},
}

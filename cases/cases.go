// Case model for the moderation triage workflow: a filed report, its taxonomy
// tags, and the metadata human reviewers see.
package cases

import (
	"fmt"
	"strings"
	"time"

	"github.com/modqueue/triage/directory"
)

// Case lifecycle. Only complete cases may enter the review queue.
var (
	StatusInProgress = "in-progress"
	StatusCanceled   = "canceled"
	StatusComplete   = "complete"
)

// The harassment category gets the extended intake branch (victim + sub-types).
const AbuseHarassment = "Bullying or harassment"

var AbuseTypes = []string{
	AbuseHarassment,
	"Scam or fraud",
	"Suicide or self-injury",
	"Violence or dangerous organizations",
	"Hate speech or symbols",
	"Nudity or sexual activity",
	"Spam",
	"Other reason",
}

var HarassmentTypes = []string{
	"Impersonation",
	"Threat",
	"Hate speech",
	"Flaming",
	"Denigration",
	"Revealing Private Info",
	"Blackmailing",
	"Other",
}

// A filed moderation report. Owned by the intake conversation that builds it
// until enqueued; by the queue until popped; by the review session until the
// review terminates.
type Case struct {
	Reporter directory.User
	// The flagged message.
	Message *directory.Message
	// Further messages the reporter attached.
	AdditionalMessages []*directory.Message
	AbuseType          string
	HarassmentTypes    []string
	// Who the abuse targets: "Me" or a named third party.
	Target         string
	AdditionalInfo string
	SubmittedAt    time.Time
	// Concern probability in [0,1], from the classifier or the intake default.
	Score  float64
	Status string
}

func New(reporter directory.User) *Case {
	return &Case{
		Reporter: reporter,
		Status:   StatusInProgress,
	}
}

func (c *Case) formatExtraMessages() string {
	parts := make([]string, 0, len(c.AdditionalMessages))
	for _, msg := range c.AdditionalMessages {
		parts = append(parts, fmt.Sprintf("`%s`", msg.Text))
	}
	return strings.Join(parts, ", ")
}

// Info provided to the moderators for review.
func (c *Case) ReviewInfo() string {
	return fmt.Sprintf("User %s reported the following message on %s:\n", c.Reporter.Name, c.SubmittedAt.Format(time.DateOnly)) +
		fmt.Sprintf("```%s: %s```\n", c.Message.Author.Name, c.Message.Text) +
		fmt.Sprintf("Abuse Type: %s\n", c.AbuseType) +
		fmt.Sprintf("Harassment Types: %s\n", strings.Join(c.HarassmentTypes, ", ")) +
		fmt.Sprintf("Target of the abuse: %s\n", c.Target) +
		fmt.Sprintf("Additional Msgs: %s\n", c.formatExtraMessages()) +
		fmt.Sprintf("Additional Info: %s", c.AdditionalInfo)
}

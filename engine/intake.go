package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/modqueue/triage/cases"
	"github.com/modqueue/triage/directory"
)

// Intake is the reporter-side flow: it collects a Case over several turns and
// hands it to the engine for enqueue on completion.
type Intake struct {
	Case *cases.Case
	eng  *Engine
}

const (
	nodeIntakeLocator      NodeID = "intake/locator"
	nodeIntakeAbuseType    NodeID = "intake/abuse-type"
	nodeIntakeVictim       NodeID = "intake/victim"
	nodeIntakeVictimName   NodeID = "intake/victim-name"
	nodeIntakeHarassment   NodeID = "intake/harassment-types"
	nodeIntakeSubmitOrInfo NodeID = "intake/submit-or-info"
	nodeIntakeMoreMessages NodeID = "intake/more-messages"
	nodeIntakeExtraLocator NodeID = "intake/extra-locator"
	nodeIntakeAnythingElse NodeID = "intake/anything-else"
	nodeIntakeExtraInfo    NodeID = "intake/extra-info"
)

// Three /-separated numeric segments anywhere in the text: guild, channel,
// message.
var locatorPattern = regexp.MustCompile(`/(\d+)/(\d+)/(\d+)`)

const locatorInstructions = "Please copy paste the link to the message you want to report.\nYou can obtain this link by right-clicking the message and clicking `Copy Message Link`."

const submitAck = "Thank you for reporting. We take your report very seriously. Our content moderation team will review your report. Further action might include temporary or permanent account suspension."

// Parses a content locator and resolves it against the transport directory.
// Every failure mode returns its own user-facing message and leaves the flow
// in the same state.
func (in *Intake) resolveLocator(ctx context.Context, text string, rejectBanned bool) (*directory.Message, []Outbound, error) {
	m := locatorPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, []Outbound{textOut("I'm sorry, I couldn't read that link. Please try again or say `cancel` to cancel.")}, nil
	}
	msg, err := in.eng.Directory.ResolveMessage(ctx, m[1], m[2], m[3])
	switch {
	case errors.Is(err, directory.ErrGuildNotFound):
		return nil, []Outbound{textOut("I cannot accept reports of messages from guilds that I'm not in. Please have the guild owner add me to the guild and try again.")}, nil
	case errors.Is(err, directory.ErrChannelNotFound):
		return nil, []Outbound{textOut("It seems this channel was deleted or never existed. Please try again or say `cancel` to cancel.")}, nil
	case errors.Is(err, directory.ErrMessageNotFound):
		return nil, []Outbound{textOut("It seems this message was deleted or never existed. Please try again or say `cancel` to cancel.")}, nil
	case err != nil:
		return nil, nil, fmt.Errorf("resolving content locator: %w", err)
	}
	if rejectBanned && in.eng.Escalation.IsBanned(msg.Author.ID) {
		return nil, []Outbound{
			textOut("This user is already banned."),
			textOut("Please provide a different message."),
		}, nil
	}
	return msg, nil, nil
}

func (in *Intake) submit() []Outbound {
	in.Case.SubmittedAt = time.Now()
	in.Case.Status = cases.StatusComplete
	return []Outbound{summaryOut("We received your report!", submitAck)}
}

func intakeAbuseOptions() []Option[Intake] {
	opts := make([]Option[Intake], 0, len(cases.AbuseTypes))
	for _, abuse := range cases.AbuseTypes {
		opts = append(opts, Option[Intake]{
			Label: abuse,
			Select: func(ctx context.Context, in *Intake, _ []string) (NodeID, []Outbound, error) {
				in.Case.AbuseType = abuse
				outs := []Outbound{textOut("You selected " + strings.ToLower(abuse) + ".")}
				if abuse == cases.AbuseHarassment {
					return nodeIntakeVictim, outs, nil
				}
				return nodeIntakeSubmitOrInfo, outs, nil
			},
		})
	}
	return opts
}

func intakeHarassmentOptions() []Option[Intake] {
	opts := make([]Option[Intake], 0, len(cases.HarassmentTypes))
	for _, h := range cases.HarassmentTypes {
		opts = append(opts, Option[Intake]{Label: h})
	}
	return opts
}

var intakeTree = Tree[Intake]{
	nodeIntakeLocator: {
		Prompt: "Thank you for starting the reporting process. Say `help` at any time for more information.\n\n" + locatorInstructions,
		OnText: func(ctx context.Context, in *Intake, text string) (NodeID, []Outbound, error) {
			msg, fail, err := in.resolveLocator(ctx, text, true)
			if err != nil || fail != nil {
				return NodeStay, fail, err
			}
			in.Case.Message = msg
			return nodeIntakeAbuseType, []Outbound{
				textOut("I found this message:"),
				textOut(fmt.Sprintf("```%s: %s```", msg.Author.Name, msg.Text)),
			}, nil
		},
	},
	nodeIntakeAbuseType: {
		Prompt:  "Why would you like to report this message?",
		Options: intakeAbuseOptions(),
	},
	nodeIntakeVictim: {
		Prompt: "Who is being bullied or harassed?",
		Options: []Option[Intake]{
			{
				Label: "Me",
				Select: func(ctx context.Context, in *Intake, _ []string) (NodeID, []Outbound, error) {
					in.Case.Target = "Me"
					return nodeIntakeHarassment, []Outbound{textOut("You selected 'Me'.")}, nil
				},
			},
			{
				Label: "Someone Else",
				Select: func(ctx context.Context, in *Intake, _ []string) (NodeID, []Outbound, error) {
					return nodeIntakeVictimName, []Outbound{textOut("You selected 'Someone Else'.")}, nil
				},
			},
		},
	},
	nodeIntakeVictimName: {
		Prompt: "Who is being bullied?",
		OptionsFunc: func(ctx context.Context, in *Intake) ([]Option[Intake], error) {
			members, err := in.eng.Directory.ChannelMembers(ctx, in.Case.Message.GuildID, in.Case.Message.ChannelID)
			if err != nil {
				return nil, fmt.Errorf("listing channel members: %w", err)
			}
			opts := make([]Option[Intake], 0, len(members))
			for _, member := range members {
				name := member.Name
				opts = append(opts, Option[Intake]{
					Label: name,
					Select: func(ctx context.Context, in *Intake, _ []string) (NodeID, []Outbound, error) {
						in.Case.Target = name
						return nodeIntakeHarassment, []Outbound{textOut("You selected " + name + ".")}, nil
					},
				})
			}
			return opts, nil
		},
	},
	nodeIntakeHarassment: {
		PromptFunc: func(in *Intake) string {
			target := in.Case.Target
			if target == "Me" {
				target = "you"
			}
			return fmt.Sprintf("What kinds of harassment did %s experience? Select all that apply.", target)
		},
		MultiSelect: true,
		Options:     intakeHarassmentOptions(),
		OnSelect: func(ctx context.Context, in *Intake, selected []string) (NodeID, []Outbound, error) {
			in.Case.HarassmentTypes = selected
			out := textOut("You selected the following: " + strings.Join(selected, ", ") + ".")
			return nodeIntakeSubmitOrInfo, []Outbound{out}, nil
		},
	},
	nodeIntakeSubmitOrInfo: {
		Prompt: "Would you like to submit your report or provide more information?",
		Options: []Option[Intake]{
			{
				Label: "Submit",
				Select: func(ctx context.Context, in *Intake, _ []string) (NodeID, []Outbound, error) {
					return NodeComplete, in.submit(), nil
				},
			},
			{
				Label: "More Info",
				Select: func(ctx context.Context, in *Intake, _ []string) (NodeID, []Outbound, error) {
					return nodeIntakeMoreMessages, []Outbound{textOut("Sure.")}, nil
				},
			},
		},
	},
	nodeIntakeMoreMessages: {
		Prompt: "Is there another message you would like to add to this report?",
		Options: []Option[Intake]{
			{
				Label: "Yes",
				Select: func(ctx context.Context, in *Intake, _ []string) (NodeID, []Outbound, error) {
					return nodeIntakeExtraLocator, nil, nil
				},
			},
			{
				Label: "No",
				Select: func(ctx context.Context, in *Intake, _ []string) (NodeID, []Outbound, error) {
					return nodeIntakeAnythingElse, nil, nil
				},
			},
		},
	},
	nodeIntakeExtraLocator: {
		Prompt: locatorInstructions,
		OnText: func(ctx context.Context, in *Intake, text string) (NodeID, []Outbound, error) {
			msg, fail, err := in.resolveLocator(ctx, text, false)
			if err != nil || fail != nil {
				return NodeStay, fail, err
			}
			in.Case.AdditionalMessages = append(in.Case.AdditionalMessages, msg)
			return nodeIntakeMoreMessages, []Outbound{
				textOut("I found this message to add to the report:"),
				textOut(fmt.Sprintf("```%s: %s```", msg.Author.Name, msg.Text)),
			}, nil
		},
	},
	nodeIntakeAnythingElse: {
		Prompt: "Is there anything else you would like the moderators to know?\nIf not, your report will be submitted.",
		Options: []Option[Intake]{
			{
				Label: "Submit",
				Select: func(ctx context.Context, in *Intake, _ []string) (NodeID, []Outbound, error) {
					return NodeComplete, in.submit(), nil
				},
			},
			{
				Label: "Add description",
				Select: func(ctx context.Context, in *Intake, _ []string) (NodeID, []Outbound, error) {
					return nodeIntakeExtraInfo, nil, nil
				},
			},
		},
	},
	nodeIntakeExtraInfo: {
		Prompt: "Please share any additional info you have.\nYour report will be automatically submitted afterwards.",
		OnText: func(ctx context.Context, in *Intake, text string) (NodeID, []Outbound, error) {
			in.Case.AdditionalInfo = text
			return NodeComplete, in.submit(), nil
		},
	},
}

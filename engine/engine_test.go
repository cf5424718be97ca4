package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/modqueue/triage/cases"
	"github.com/modqueue/triage/directory"
	"github.com/modqueue/triage/scoring"
)

type failingScoreProvider struct{}

func (failingScoreProvider) AnalyzeText(ctx context.Context, text string) (float64, error) {
	return 0, errors.New("classifier unavailable")
}

func channelMessage(text string) directory.Message {
	return directory.Message{
		ID: "310", GuildID: FixtureGuild, ChannelID: FixtureChannel,
		Author: FixtureAuthor, Text: text,
	}
}

func TestChannelMessageBelowThreshold(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng := EngineTestFixture()
	notifier := eng.Notifier.(*TestNotifier)

	assert.NoError(eng.ProcessChannelMessage(ctx, channelMessage("hello there")))

	assert.Equal(0, eng.Queue.Len())
	assert.Empty(notifier.UserNotices)
	assert.Empty(notifier.ModLines)

	// sentiment is recorded for every scored message
	stats, err := eng.Stats.GetUserStats(ctx, FixtureAuthor.ID)
	assert.NoError(err)
	assert.Equal(1, stats.MessagesSent)
	assert.Equal(50.0, stats.AverageSentiment())
}

func TestChannelMessageAutoReport(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng := EngineTestFixture()
	notifier := eng.Notifier.(*TestNotifier)
	eng.Scores = &scoring.StaticScoreProvider{
		Scores: map[string]float64{"you people disgust me": 0.75},
	}

	assert.NoError(eng.ProcessChannelMessage(ctx, channelMessage("you people disgust me")))

	assert.Equal(1, eng.Queue.Len())
	score, c, err := eng.Queue.PopHighest()
	assert.NoError(err)
	assert.Equal(0.75, score)
	assert.Equal(FixtureSelf, c.Reporter)
	assert.Equal(cases.AbuseHarassment, c.AbuseType)
	assert.Equal(cases.StatusComplete, c.Status)
	assert.Contains(notifier.ModLines, "There are 1 reports outstanding.")

	// no sanction and no user contact at this level
	assert.Empty(notifier.UserNotices)
	assert.False(eng.Escalation.IsBanned(FixtureAuthor.ID))

	// autoreports are not credited to anyone's authored-report count
	stats, err := eng.Stats.GetUserStats(ctx, FixtureSelf.ID)
	assert.NoError(err)
	assert.Equal(0, stats.ReportsAuthored)
	stats, err = eng.Stats.GetUserStats(ctx, FixtureAuthor.ID)
	assert.NoError(err)
	assert.Equal(1, stats.ReportsAgainst)
}

func TestChannelMessageAutoSuspend(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng := EngineTestFixture()
	notifier := eng.Notifier.(*TestNotifier)
	eng.Scores = &scoring.StaticScoreProvider{
		Scores: map[string]float64{"I will make you regret this": 0.81},
	}

	assert.NoError(eng.ProcessChannelMessage(ctx, channelMessage("I will make you regret this")))

	assert.Equal(0, eng.Queue.Len())
	assert.False(eng.Escalation.IsBanned(FixtureAuthor.ID))
	notices := notifier.UserNotices[FixtureAuthor.ID]
	assert.Len(notices, 1)
	assert.Equal("Your account has been suspended for 7 days!", notices[0].Title)

	found := false
	for _, line := range notifier.ModLines {
		if line == "User `mallory` got auto-suspended for a message with concern score 81.00%." {
			found = true
		}
	}
	assert.True(found)
}

func TestChannelMessageAutoBan(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng := EngineTestFixture()
	notifier := eng.Notifier.(*TestNotifier)
	eng.Scores = &scoring.StaticScoreProvider{
		Scores: map[string]float64{"kill yourself": 0.97},
	}

	assert.NoError(eng.ProcessChannelMessage(ctx, channelMessage("kill yourself")))

	assert.True(eng.Escalation.IsBanned(FixtureAuthor.ID))
	notices := notifier.UserNotices[FixtureAuthor.ID]
	assert.Len(notices, 1)
	assert.Equal("Your account has been banned!", notices[0].Title)
	assert.Contains(notifier.ModLines,
		"User `mallory` got auto-banned for a message with concern score 97.00%.")
	// their channel content is purged with the ban
	assert.Contains(notifier.ModLines, "2 messages from user mallory have been deleted.")
}

func TestChannelMessageThresholdsAreStrict(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng := EngineTestFixture()
	notifier := eng.Notifier.(*TestNotifier)

	// exactly 0.80 does not suspend; it files a synthetic case
	eng.Scores = &scoring.StaticScoreProvider{Default: 0.80}
	assert.NoError(eng.ProcessChannelMessage(ctx, channelMessage("borderline")))
	assert.Equal(1, eng.Queue.Len())
	assert.Empty(notifier.UserNotices)

	// exactly 0.70 takes no action at all
	eng.Scores = &scoring.StaticScoreProvider{Default: 0.70}
	assert.NoError(eng.ProcessChannelMessage(ctx, channelMessage("borderline")))
	assert.Equal(1, eng.Queue.Len())

	// exactly 0.95 suspends rather than bans
	eng.Scores = &scoring.StaticScoreProvider{Default: 0.95}
	assert.NoError(eng.ProcessChannelMessage(ctx, channelMessage("borderline")))
	assert.False(eng.Escalation.IsBanned(FixtureAuthor.ID))
	notices := notifier.UserNotices[FixtureAuthor.ID]
	assert.Len(notices, 1)
	assert.Equal("Your account has been suspended for 7 days!", notices[0].Title)
}

func TestChannelMessageScorerFailure(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng := EngineTestFixture()
	notifier := eng.Notifier.(*TestNotifier)
	eng.Scores = failingScoreProvider{}

	err := eng.ProcessChannelMessage(ctx, channelMessage("whatever"))
	assert.Error(err)

	// fail open: no automated action, but the moderators hear about it
	assert.Equal(0, eng.Queue.Len())
	assert.Empty(notifier.UserNotices)
	assert.Len(notifier.ModLines, 1)
	assert.Contains(notifier.ModLines[0], "Could not score a message from `mallory`")

	stats, serr := eng.Stats.GetUserStats(ctx, FixtureAuthor.ID)
	assert.NoError(serr)
	assert.Equal(0, stats.MessagesSent)
}

func TestEnqueueRejectsIncompleteCase(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng := EngineTestFixture()

	c := cases.New(FixtureReporter)
	c.Message = &directory.Message{ID: "301", Author: FixtureAuthor, Text: "x"}
	assert.Error(eng.enqueueCase(ctx, c))
	assert.Equal(0, eng.Queue.Len())
}

func TestEnqueueScoresUnscoredCase(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng := EngineTestFixture()
	eng.Scores = &scoring.StaticScoreProvider{Default: 0.65}

	c := cases.New(FixtureReporter)
	c.Message = &directory.Message{ID: "301", Author: FixtureAuthor, Text: "you are the worst"}
	c.Status = cases.StatusComplete
	assert.NoError(eng.enqueueCase(ctx, c))

	score, _, err := eng.Queue.PopHighest()
	assert.NoError(err)
	assert.Equal(0.65, score)
}

func TestEnqueueWithFailingScorerStillQueues(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng := EngineTestFixture()
	eng.Scores = failingScoreProvider{}

	c := cases.New(FixtureReporter)
	c.Message = &directory.Message{ID: "301", Author: FixtureAuthor, Text: "you are the worst"}
	c.Status = cases.StatusComplete
	assert.NoError(eng.enqueueCase(ctx, c))

	score, _, err := eng.Queue.PopHighest()
	assert.NoError(err)
	assert.Equal(0.0, score)
}

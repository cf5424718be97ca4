package escalation

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/modqueue/triage/cases"
	"github.com/modqueue/triage/directory"
	"github.com/modqueue/triage/queue"
	"github.com/modqueue/triage/statstore"
)

type recordingNotifier struct {
	userNotices map[string][]Notice
	modLines    []string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{userNotices: make(map[string][]Notice)}
}

func (n *recordingNotifier) SendUser(ctx context.Context, userID string, notice Notice) error {
	n.userNotices[userID] = append(n.userNotices[userID], notice)
	return nil
}

func (n *recordingNotifier) SendModChannel(ctx context.Context, text string) error {
	n.modLines = append(n.modLines, text)
	return nil
}

func testEngine() (*Engine, *recordingNotifier, *directory.MemDirectory) {
	notifier := newRecordingNotifier()
	dir := directory.NewMemDirectory()
	eng := NewEngine(statstore.NewMemStatStore(), queue.NewCaseQueue(), dir, notifier, slog.Default())
	return eng, notifier, dir
}

func TestStrikeEscalation(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, notifier, _ := testEngine()
	mallory := directory.User{ID: "11", Name: "mallory"}

	sanction, err := eng.Strike(ctx, mallory, "you are the worst", false)
	assert.NoError(err)
	assert.Equal(SanctionSuspended, sanction)
	assert.False(eng.IsBanned("11"))

	notices := notifier.userNotices["11"]
	assert.Len(notices, 1)
	assert.Equal("Your account has been suspended for 7 days!", notices[0].Title)
	assert.Contains(notices[0].Body, "```you are the worst```")
	assert.Contains(notices[0].Body, "After 2 suspension(s) any further violations will get your account banned.")
	assert.Contains(notices[0].Body, "Community Guidelines")

	sanction, err = eng.Strike(ctx, mallory, "nobody wants you here", false)
	assert.NoError(err)
	assert.Equal(SanctionSuspended, sanction)
	assert.Contains(notifier.userNotices["11"][1].Body, "After 1 suspension(s)")

	sanction, err = eng.Strike(ctx, mallory, "still at it", false)
	assert.NoError(err)
	assert.Equal(SanctionBanned, sanction)
	assert.True(eng.IsBanned("11"))

	notices = notifier.userNotices["11"]
	assert.Len(notices, 3)
	assert.Equal("Your account has been banned!", notices[2].Title)
	assert.Contains(notifier.modLines, "This is the user's 3rd strike. They will be banned...")
}

func TestBanPurgesUserState(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, notifier, dir := testEngine()
	mallory := directory.User{ID: "11", Name: "mallory"}

	msg := directory.Message{
		ID: "301", GuildID: "100", ChannelID: "200",
		Author: mallory, Text: "you are the worst",
	}
	dir.Insert(msg)
	dir.Insert(directory.Message{
		ID: "302", GuildID: "100", ChannelID: "200",
		Author: mallory, Text: "nobody wants you here",
	})
	dir.Insert(directory.Message{
		ID: "303", GuildID: "100", ChannelID: "200",
		Author: directory.User{ID: "12", Name: "bob"}, Text: "hello",
	})

	now := time.Now()
	eng.Queue.Push(0.9, &cases.Case{Message: &msg, SubmittedAt: now, Status: cases.StatusComplete})
	eng.Queue.Push(0.4, &cases.Case{
		Message:     &directory.Message{ID: "303", Author: directory.User{ID: "12"}},
		SubmittedAt: now, Status: cases.StatusComplete,
	})

	assert.NoError(eng.Ban(ctx, mallory, "you are the worst", false))
	assert.True(eng.IsBanned("11"))

	// cases against the banned user are dropped, others stay
	assert.Equal(1, eng.Queue.Len())
	_, c, err := eng.Queue.PopHighest()
	assert.NoError(err)
	assert.Equal("12", c.Message.Author.ID)

	// their channel content is gone
	_, err = eng.Directory.ResolveMessage(ctx, "100", "200", "301")
	assert.ErrorIs(err, directory.ErrMessageNotFound)
	_, err = eng.Directory.ResolveMessage(ctx, "100", "200", "303")
	assert.NoError(err)

	assert.Contains(notifier.modLines, "2 messages from user mallory have been deleted.")
}

func TestAdversarialStrikeExplanation(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, notifier, _ := testEngine()
	alice := directory.User{ID: "10", Name: "alice"}

	sanction, err := eng.Strike(ctx, alice, "", true)
	assert.NoError(err)
	assert.Equal(SanctionSuspended, sanction)

	notices := notifier.userNotices["10"]
	assert.Len(notices, 1)
	assert.Contains(notices[0].Body, "targeting a user with wrong reports")
	assert.NotContains(notices[0].Body, "```")
}

func TestNotifyReporter(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, notifier, _ := testEngine()
	eng.SelfID = "1"

	assert.NoError(eng.NotifyReporter(ctx, directory.User{ID: "10", Name: "alice"}))
	assert.Len(notifier.userNotices["10"], 1)
	assert.Equal("Instant Feedback Report", notifier.userNotices["10"][0].Title)

	// autoreports filed by the bot itself get no feedback notice
	assert.NoError(eng.NotifyReporter(ctx, directory.User{ID: "1", Name: "triage-bot"}))
	assert.Empty(notifier.userNotices["1"])
}

package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/modqueue/triage/directory"
	"github.com/modqueue/triage/escalation"
	"github.com/modqueue/triage/queue"
	"github.com/modqueue/triage/scoring"
	"github.com/modqueue/triage/statstore"
)

// Notifier that records everything it is asked to send. Intended for tests.
type TestNotifier struct {
	mu          sync.Mutex
	UserNotices map[string][]escalation.Notice
	ModLines    []string
}

var _ escalation.Notifier = (*TestNotifier)(nil)

func NewTestNotifier() *TestNotifier {
	return &TestNotifier{UserNotices: make(map[string][]escalation.Notice)}
}

func (n *TestNotifier) SendUser(ctx context.Context, userID string, notice escalation.Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.UserNotices[userID] = append(n.UserNotices[userID], notice)
	return nil
}

func (n *TestNotifier) SendModChannel(ctx context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ModLines = append(n.ModLines, text)
	return nil
}

// Actors every fixture engine knows about.
var (
	FixtureSelf     = directory.User{ID: "1", Name: "triage-bot"}
	FixtureReporter = directory.User{ID: "10", Name: "alice"}
	FixtureAuthor   = directory.User{ID: "11", Name: "mallory"}
	FixtureBystand  = directory.User{ID: "12", Name: "bob"}
)

const (
	FixtureGuild   = "100"
	FixtureChannel = "200"
)

// EngineTestFixture builds a fully in-memory engine: mem directory seeded with
// one guild channel and two messages, a static scorer, and a recording
// notifier.
func EngineTestFixture() *Engine {
	dir := directory.NewMemDirectory()
	for _, u := range []directory.User{FixtureReporter, FixtureAuthor, FixtureBystand} {
		dir.AddMember(FixtureGuild, FixtureChannel, u)
	}
	dir.Insert(directory.Message{
		ID: "301", GuildID: FixtureGuild, ChannelID: FixtureChannel,
		Author: FixtureAuthor, Text: "you are the worst",
	})
	dir.Insert(directory.Message{
		ID: "302", GuildID: FixtureGuild, ChannelID: FixtureChannel,
		Author: FixtureAuthor, Text: "nobody wants you here",
	})

	q := queue.NewCaseQueue()
	stats := statstore.NewMemStatStore()
	notifier := NewTestNotifier()
	logger := slog.Default()

	esc := escalation.NewEngine(stats, q, dir, notifier, logger)
	esc.SelfID = FixtureSelf.ID

	return NewEngine(Config{
		Logger:     logger,
		Directory:  dir,
		Queue:      q,
		Stats:      stats,
		Escalation: esc,
		Scores:     &scoring.StaticScoreProvider{Default: 0.5},
		Notifier:   notifier,
		Self:       FixtureSelf,
	})
}

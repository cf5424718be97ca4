package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/modqueue/triage/directory"
	"github.com/modqueue/triage/engine"
	"github.com/modqueue/triage/escalation"
	"github.com/modqueue/triage/queue"
	"github.com/modqueue/triage/scoring"
	"github.com/modqueue/triage/statstore"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	cli "github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "triaged",
		Usage:   "moderation triage daemon",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "perspective-host",
			Usage:   "scheme and hostname of the comment analyzer API",
			Value:   "https://commentanalyzer.googleapis.com",
			EnvVars: []string{"PERSPECTIVE_HOST"},
		},
		&cli.StringFlag{
			Name:    "perspective-api-key",
			Usage:   "API key for the comment analyzer; scoring is disabled when empty",
			EnvVars: []string{"PERSPECTIVE_API_KEY"},
		},
		&cli.IntFlag{
			Name:    "perspective-qps",
			Usage:   "max number of requests per second to the comment analyzer",
			Value:   10,
			EnvVars: []string{"PERSPECTIVE_QPS"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for the event gateway",
			Value:   ":8300",
			EnvVars: []string{"TRIAGED_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":8301",
			EnvVars: []string{"TRIAGED_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL for statistics; in-process memory when empty",
			EnvVars: []string{"REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "guild-fixture",
			Usage:   "JSON channel fixture to serve directory lookups from",
			EnvVars: []string{"TRIAGED_GUILD_FIXTURE"},
		},
		&cli.StringFlag{
			Name:    "user-webhook-url",
			Usage:   "webhook receiving user-facing notices",
			EnvVars: []string{"TRIAGED_USER_WEBHOOK_URL"},
		},
		&cli.StringFlag{
			Name:    "mod-webhook-url",
			Usage:   "webhook receiving moderator channel messages",
			EnvVars: []string{"TRIAGED_MOD_WEBHOOK_URL"},
		},
		&cli.StringFlag{
			Name:    "self-id",
			Usage:   "user ID the engine files autoreports under",
			Value:   "1",
			EnvVars: []string{"TRIAGED_SELF_ID"},
		},
		&cli.StringFlag{
			Name:    "self-name",
			Value:   "triage-bot",
			EnvVars: []string{"TRIAGED_SELF_NAME"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		var stats statstore.StatStore
		if url := cctx.String("redis-url"); url != "" {
			var err error
			stats, err = statstore.NewRedisStatStore(url)
			if err != nil {
				return fmt.Errorf("connecting to redis: %w", err)
			}
		} else {
			stats = statstore.NewMemStatStore()
		}

		var dir directory.Directory
		if path := cctx.String("guild-fixture"); path != "" {
			dir = directory.MustLoadFixture(path)
		} else {
			dir = directory.NewMemDirectory()
		}
		dir = directory.NewCachedDirectory(dir, 1000, time.Minute)

		var scores scoring.ScoreProvider
		if key := cctx.String("perspective-api-key"); key != "" {
			scores = scoring.NewPerspectiveClient(cctx.String("perspective-host"), key, cctx.Int("perspective-qps"))
		} else {
			logger.Warn("no comment analyzer API key configured; every message scores zero")
			scores = &scoring.StaticScoreProvider{}
		}

		notifier := &WebhookNotifier{
			UserWebhookURL: cctx.String("user-webhook-url"),
			ModWebhookURL:  cctx.String("mod-webhook-url"),
			Logger:         logger,
		}

		q := queue.NewCaseQueue()
		self := directory.User{ID: cctx.String("self-id"), Name: cctx.String("self-name")}
		esc := escalation.NewEngine(stats, q, dir, notifier, logger)
		esc.SelfID = self.ID

		eng := engine.NewEngine(engine.Config{
			Logger:     logger,
			Directory:  dir,
			Queue:      q,
			Stats:      stats,
			Escalation: esc,
			Scores:     scores,
			Notifier:   notifier,
			Self:       self,
		})

		// prometheus HTTP endpoint
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cctx.String("metrics-listen"), mux); err != nil {
				slog.Error("metrics listener failed", "err", err)
			}
		}()

		srv := NewServer(eng, logger)
		return srv.Run(cctx.String("bind"))
	},
}

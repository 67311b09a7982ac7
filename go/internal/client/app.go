package client

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/typesprint/go/clients/typingapi"
	"github.com/mcdev12/typesprint/go/internal/outbox"
	"github.com/mcdev12/typesprint/go/internal/realtime"
	"github.com/mcdev12/typesprint/go/internal/session"
	"github.com/mcdev12/typesprint/go/internal/views"
)

// Config assembles one client core.
type Config struct {
	Username         string
	APIBaseURL       string
	GatewayURL       string
	RosterTTL        time.Duration
	LeaderboardType  string
	LeaderboardLimit int
	Channel          realtime.ChannelConfig
	Outbox           outbox.Config
	OutboxCapacity   int
}

// DefaultConfig returns defaults for everything but the identity and
// endpoints.
func DefaultConfig() Config {
	return Config{
		RosterTTL:        30 * time.Second,
		LeaderboardType:  "wpm",
		LeaderboardLimit: 25,
		Channel:          realtime.DefaultChannelConfig(),
		Outbox:           outbox.DefaultConfig(),
		OutboxCapacity:   64,
	}
}

// App is the assembled client core: one session controller, the
// realtime publisher/subscriber pair over a websocket channel, the
// four view caches, and the submission outbox. Rendering sits on top
// of the Snapshot methods and is not this package's concern.
type App struct {
	config Config

	api        *typingapi.Client
	channel    *realtime.Channel
	publisher  *realtime.Publisher
	subscriber *realtime.Subscriber

	controller  *session.Controller
	roster      *views.Roster
	stats       *views.StatsCache
	leaderboard *views.LeaderboardCache
	profile     *views.ProfileCache

	queue  *outbox.Queue
	worker *outbox.Worker
}

// New dials the gateway and wires the core together. The caller owns
// the lifecycle via Start/Stop.
func New(ctx context.Context, config Config) (*App, error) {
	api := typingapi.NewClient(config.APIBaseURL)

	channel, err := realtime.Dial(ctx, config.GatewayURL, config.Channel)
	if err != nil {
		return nil, fmt.Errorf("dial gateway: %w", err)
	}

	return newWithTransport(config, api, channel, channel.Inbound())
}

// newWithTransport is the wiring seam: tests inject their own sender
// and inbound feed instead of a live websocket.
func newWithTransport(config Config, api *typingapi.Client, sender realtime.Sender, inbound <-chan *realtime.Event) (*App, error) {
	clock := clockwork.NewRealClock()

	publisher := realtime.NewPublisher(config.Username, sender)
	subscriber := realtime.NewSubscriber(inbound)

	queue := outbox.NewQueue(config.OutboxCapacity)
	worker := outbox.NewWorker(queue, api, config.Outbox)

	controller, err := session.NewController(config.Username, api, publisher, queue, clock)
	if err != nil {
		return nil, fmt.Errorf("create session controller: %w", err)
	}

	channel, _ := sender.(*realtime.Channel)
	return &App{
		config:      config,
		api:         api,
		channel:     channel,
		publisher:   publisher,
		subscriber:  subscriber,
		controller:  controller,
		roster:      views.NewRoster(clock, config.RosterTTL),
		stats:       views.NewStatsCache(api),
		leaderboard: views.NewLeaderboardCache(api, config.LeaderboardType, config.LeaderboardLimit),
		profile:     views.NewProfileCache(config.Username, api),
		queue:       queue,
		worker:      worker,
	}, nil
}

// Start announces the identity, launches the dispatch loop and the
// view cache owners, runs the initial pulls, and starts the outbox
// worker. Pull failures are logged and leave the caches in their
// loading state; pushes will fill them in.
func (a *App) Start(ctx context.Context) error {
	if err := a.publisher.Announce(ctx); err != nil {
		log.Warn().Err(err).Msg("user_online announce failed")
	}

	go a.subscriber.Run(ctx)
	go a.roster.Run(ctx, a.subscriber.Subscribe(realtime.EventTypeUserTypingProgress))
	go a.stats.Run(ctx, a.subscriber.Subscribe(realtime.EventTypeStatsUpdate, realtime.EventTypeOnlineUsersUpdate))
	go a.leaderboard.Run(ctx, a.subscriber.Subscribe(realtime.EventTypeLeaderboardUpdate))
	go a.profile.Run(ctx, a.subscriber.Subscribe(realtime.EventTypeUserStatsUpdated))

	if err := a.controller.LoadText(ctx); err != nil {
		log.Error().Err(err).Msg("initial text load failed, input blocked until retry")
	}
	if err := a.stats.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("initial stats load failed")
	}
	if err := a.leaderboard.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("initial leaderboard load failed")
	}
	if err := a.profile.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("initial profile load failed")
	}

	return a.worker.Start(ctx)
}

// Stop shuts down the worker and the transport. Pending submissions
// stay queued; a future Start drains them.
func (a *App) Stop() error {
	if err := a.worker.Stop(); err != nil {
		log.Warn().Err(err).Msg("outbox worker stop")
	}
	if a.channel != nil {
		return a.channel.Close()
	}
	return nil
}

// Session exposes the typing attempt controller.
func (a *App) Session() *session.Controller { return a.controller }

// Roster exposes the active-typer view.
func (a *App) Roster() *views.Roster { return a.roster }

// Stats exposes the aggregate statistics view.
func (a *App) Stats() *views.StatsCache { return a.stats }

// Leaderboard exposes the ranked view.
func (a *App) Leaderboard() *views.LeaderboardCache { return a.leaderboard }

// Profile exposes the own-profile view.
func (a *App) Profile() *views.ProfileCache { return a.profile }

// PendingSubmissions reports results still awaiting delivery.
func (a *App) PendingSubmissions() int { return a.queue.Pending() }

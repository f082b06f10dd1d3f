// Copyright (c) 2026 Aperture. All rights reserved.
// Author: davi.tran.dev@gmail.com

// Command aperture is the reference wiring of the Aperture client core.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Open durable local storage (file, redis, optionally sealed).
//  4. Create the event bus and post channel.
//  5. Wire identity provider, session, authorized client.
//  6. Wire feed cache, offline queue, connectivity monitor.
//  7. Run the requested subcommand.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/davitran/aperture/internal/auth"
	"github.com/davitran/aperture/internal/event"
	"github.com/davitran/aperture/internal/feed"
	"github.com/davitran/aperture/internal/httpclient"
	"github.com/davitran/aperture/internal/netmon"
	"github.com/davitran/aperture/internal/notify"
	"github.com/davitran/aperture/internal/offline"
	"github.com/davitran/aperture/internal/platform/config"
	"github.com/davitran/aperture/internal/platform/constants"
	"github.com/davitran/aperture/internal/platform/kvstore"
	"github.com/davitran/aperture/pkg/hashtag"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("[Aperture] client_core_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("api_base_url", cfg.APIBaseURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 3. Durable Local Storage ──────────────────────────────────────────
	var store kvstore.Store
	if cfg.RedisURL != "" {
		redisStore, err := kvstore.NewRedis(ctx, cfg.RedisURL, log)
		must(log, err, "connect to redis store")
		defer func() {
			log.Info("closing redis store")
			if cerr := redisStore.Close(); cerr != nil {
				log.Error("redis store close error", slog.Any("error", cerr))
			}
		}()
		store = redisStore
	} else {
		fileStore, err := kvstore.NewFile(cfg.CacheDir)
		must(log, err, "open cache directory")
		store = fileStore
	}
	if cfg.SealPassphrase != "" {
		sealed, err := kvstore.NewSealed(store, cfg.SealPassphrase)
		must(log, err, "initialize sealed store")
		store = sealed
	}

	// ── 4. Events ─────────────────────────────────────────────────────────
	bus := event.NewBus(log)
	posts := event.NewChannel(log)
	center := notify.NewCenter(bus)
	defer center.Close()

	// ── 5. Session & Authorized Client ────────────────────────────────────
	provider := auth.NewRESTProvider(cfg.IdentityBaseURL, nil)
	client := httpclient.New(provider, httpclient.WithTimeout(cfg.RequestTimeout))
	profiles := auth.NewRESTProfileStore(client, cfg.APIBaseURL)
	session := auth.NewService(provider, store, profiles, cfg.ProfileCacheTTL, log)
	session.Init(ctx)
	defer session.Cleanup()

	// ── 6. Sync Layer ─────────────────────────────────────────────────────
	monitor := netmon.New(cfg.HealthURL, log, netmon.WithProbeInterval(cfg.ProbeInterval))
	uploader := offline.NewRESTUploader(cfg.UploadURL, "aperture_default", nil)
	queue := offline.NewQueue(store, client, uploader, posts, cfg.APIBaseURL, monitor.Online, log)
	cache := feed.NewCache(client, store, session, bus, cfg.APIBaseURL, cfg.FeedTimeout, log)

	// Reconnect drains the queue before the feed announces refreshability;
	// listeners run in registration order.
	monitor.Subscribe(func(online bool) {
		if online {
			if err := queue.DrainAndRetry(ctx); err != nil {
				log.Error("drain on reconnect failed", slog.Any("error", err))
			}
		}
		cache.OnConnectivityChange(ctx, online)
	})

	// ── 7. Subcommand ─────────────────────────────────────────────────────
	if err := run(ctx, os.Args[1:], log, session, cache, queue, monitor); err != nil {
		log.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// run dispatches the CLI subcommand.
func run(
	ctx context.Context,
	args []string,
	log *slog.Logger,
	session *auth.Service,
	cache *feed.Cache,
	queue *offline.Queue,
	monitor *netmon.Monitor,
) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: aperture <login|feed|post|watch> [args]")
	}

	switch args[0] {
	case "login":
		if len(args) != 3 {
			return fmt.Errorf("usage: aperture login <email> <password>")
		}
		identity, err := session.Login(ctx, args[1], args[2])
		if err != nil {
			return err
		}
		log.Info("signed in", slog.String("user_id", identity.UserID))
		return nil

	case "feed":
		kind := feed.KindGlobal
		if len(args) > 1 && args[1] == string(feed.KindFriends) {
			kind = feed.KindFriends
		}
		result, err := cache.Fetch(ctx, kind)
		if err != nil {
			return err
		}
		log.Info("feed fetched",
			slog.String("kind", string(kind)),
			slog.Int("entries", len(result.Entries)),
			slog.Bool("stale", result.Stale),
		)
		for _, entry := range result.Entries {
			fmt.Printf("%s  %s  %s\n", entry.PostID, entry.CreatedAt.Format("2006-01-02"), entry.Caption)
		}
		return nil

	case "post":
		if len(args) != 3 {
			return fmt.Errorf("usage: aperture post <image-ref> <caption>")
		}
		record := offline.NewRecord(args[1], args[2], session.CurrentUserID(ctx), hashtag.Extract(args[2]))
		queued, err := queue.Submit(ctx, record)
		if err != nil {
			return err
		}
		if queued {
			log.Info("post queued for replay", slog.String("record_id", record.ID))
		} else {
			log.Info("post published", slog.String("record_id", record.ID))
		}
		return nil

	case "watch":
		log.Info("watching connectivity, ctrl-c to stop")
		monitor.Run(ctx)
		return nil

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// must aborts startup on a wiring error.
func must(log *slog.Logger, err error, step string) {
	if err != nil {
		log.Error("startup failed", slog.String("step", step), slog.Any("error", err))
		os.Exit(1)
	}
}

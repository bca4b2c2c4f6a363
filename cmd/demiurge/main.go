package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/theogony/demiurge/internal/agent"
	"github.com/theogony/demiurge/internal/api"
	"github.com/theogony/demiurge/internal/chat"
	"github.com/theogony/demiurge/internal/config"
	"github.com/theogony/demiurge/internal/debate"
	"github.com/theogony/demiurge/internal/hub"
	"github.com/theogony/demiurge/internal/journal"
	"github.com/theogony/demiurge/internal/memory"
	"github.com/theogony/demiurge/internal/provider"
	pgstore "github.com/theogony/demiurge/internal/store"
	"github.com/theogony/demiurge/internal/world"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/demiurge.json"
	}
	cfg, cfgErr := config.Load(cfgPath)
	if cfgErr != nil {
		cfg = config.Default()
	}

	logger := newLogger(cfg.Server.LogLevel)
	defer logger.Sync()
	if cfgErr != nil {
		logger.Warn("config file not loaded, using defaults",
			zap.String("path", cfgPath), zap.Error(cfgErr))
	}
	logger.Info("Starting Demiurge...", zap.String("config", cfgPath))

	// Provider router
	router := provider.NewRouter(logger)
	for _, pc := range cfg.Providers {
		provCfg := provider.Config{
			ID: pc.ID, Type: pc.Type, Name: pc.Name,
			Endpoint: pc.Endpoint, APIKey: pc.APIKey, Model: pc.Model,
		}
		switch pc.Type {
		case "anthropic":
			router.Register(provider.NewAnthropicClient(provCfg, logger))
		case "openai":
			router.Register(provider.NewOpenAIClient(provCfg, logger))
		default:
			logger.Warn("unknown provider type", zap.String("id", pc.ID), zap.String("type", pc.Type))
		}
	}

	// Event hub and optional collaborators
	h := hub.New(logger)

	var jl *journal.Journal
	if cfg.Database.Redis.URL != "" {
		j, jErr := journal.New(cfg.Database.Redis.URL, logger)
		if jErr != nil {
			logger.Warn("Redis unavailable, running without event journal", zap.Error(jErr))
		} else {
			jl = j
			replayCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if events, rErr := jl.Replay(replayCtx, 100); rErr != nil {
				logger.Warn("event replay failed", zap.Error(rErr))
			} else if len(events) > 0 {
				h.Seed(events)
				logger.Info("event history restored", zap.Int("count", len(events)))
			}
			cancel()
			h.Add(jl)
		}
	}

	var memStore *memory.Store
	if cfg.Database.Neo4j.URI != "" {
		ms, msErr := memory.NewStore(cfg.Database.Neo4j.URI, cfg.Database.Neo4j.User, cfg.Database.Neo4j.Password, logger)
		if msErr != nil {
			logger.Warn("Neo4j unavailable, running without durable memory", zap.Error(msErr))
		} else {
			memStore = ms
		}
	}

	var pgStore *pgstore.Store
	if cfg.Database.Postgres.DSN != "" {
		ps, pgErr := pgstore.New(cfg.Database.Postgres.DSN, logger)
		if pgErr != nil {
			logger.Warn("PostgreSQL unavailable, running without persistence", zap.Error(pgErr))
		} else {
			if mErr := ps.Migrate(context.Background(), "internal/store/migrations"); mErr != nil {
				logger.Fatal("migration failed", zap.Error(mErr))
			}
			pgStore = ps
		}
	}

	if cfg.Relays.Discord.Enabled && cfg.Relays.Discord.BotToken != "" {
		relay := hub.NewDiscordRelay(cfg.Relays.Discord.BotToken, cfg.Relays.Discord.ChannelID, logger)
		if err := relay.Connect(); err != nil {
			logger.Warn("Discord relay unavailable", zap.Error(err))
		} else {
			h.Add(relay)
			defer relay.Close()
		}
	}
	if cfg.Relays.Slack.Enabled && cfg.Relays.Slack.BotToken != "" {
		relay := hub.NewSlackRelay(cfg.Relays.Slack.BotToken, cfg.Relays.Slack.Channel, logger)
		if err := relay.Ping(); err != nil {
			logger.Warn("Slack relay unavailable", zap.Error(err))
		} else {
			h.Add(relay)
		}
	}

	// The three agents. The debate loop, autonomy poller, and API
	// handlers all draw randomness concurrently, so every source here
	// must be lock-guarded.
	seed := time.Now().UnixNano()
	agents := map[string]*agent.Agent{
		"Axioma":    agent.NewAxioma("agent_axioma", agent.NewLockedRand(seed), logger),
		"Veridicus": agent.NewVeridicus("agent_veridicus", agent.NewLockedRand(seed+1), logger),
		"Paradoxia": agent.NewParadoxia("agent_paradoxia", agent.NewLockedRand(seed+2), logger),
	}

	// World and orchestrator
	w := world.NewState(cfg.World.MaxStructures, agent.NewLockedRand(seed+3), logger)
	w.SetMinDistance(cfg.World.MinStructureDistance)

	var archive debate.Archive
	if pgStore != nil {
		archive = pgStore
	}
	orch := debate.New(agents, h, w, router, archive, cfg.Debate, logger)

	if pgStore != nil {
		doctrines, dErr := pgStore.ListDoctrines(context.Background())
		if dErr != nil {
			logger.Warn("doctrine restore failed", zap.Error(dErr))
		} else if len(doctrines) > 0 {
			orch.RestoreDoctrines(doctrines)
			logger.Info("doctrine canon restored", zap.Int("count", len(doctrines)))
		}
	}

	// Chat manager and autonomy poller
	var recorder chat.Recorder
	if memStore != nil {
		recorder = memStore
	}
	chatMgr := chat.NewManager(agents, router, h, recorder, logger)
	poller := chat.NewPoller(chatMgr, cfg.Autonomy.PollInterval(), logger)

	// HTTP surface. The snapshot handler only exists to lend its
	// WorldSnapshot to new websocket connections.
	snapshots := api.NewHandler(agents, orch, w, chatMgr, nil, logger)
	ws := hub.NewWSServer(h, snapshots.WorldSnapshot, logger)
	ws.OnInbound(func(connID string, msg *hub.InboundMessage) {
		switch msg.Type {
		case "user_presence":
			username, _ := msg.Data["username"].(string)
			chatMgr.UserConnected(userID(connID, msg), username)
		case "send_chat":
			agentID, _ := msg.Data["agent_id"].(string)
			message, _ := msg.Data["message"].(string)
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
				defer cancel()
				if _, err := chatMgr.SendUserMessage(ctx, userID(connID, msg), agentID, message); err != nil {
					logger.Warn("websocket chat failed", zap.Error(err))
				}
			}()
		}
	})
	ws.OnDisconnect(chatMgr.UserDisconnected)
	handler := api.NewHandler(agents, orch, w, chatMgr, ws, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go orch.Run(ctx)
	go poller.Run(ctx)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: handler.Router(),
	}
	go func() {
		logger.Info("Demiurge listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down Demiurge...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)

	if jl != nil {
		jl.Close()
	}
	if memStore != nil {
		memStore.Close(shutdownCtx)
	}
	if pgStore != nil {
		pgStore.Close()
	}
}

// userID prefers the client-declared user id, falling back to the
// connection id.
func userID(connID string, msg *hub.InboundMessage) string {
	if msg.UserID != "" {
		return msg.UserID
	}
	return connID
}

func newLogger(level string) *zap.Logger {
	var logger *zap.Logger
	var err error
	switch level {
	case "debug":
		logger, err = zap.NewDevelopment()
	default:
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

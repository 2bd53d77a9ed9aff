// Package main provides the headless arena simulator: it loads arenas and
// agent profiles, runs the tick loop against an in-memory sandbox world, and
// serves gRPC health while the loop runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/arbitration"
	"github.com/cory-johannsen/skirmish/internal/game/bot"
	"github.com/cory-johannsen/skirmish/internal/game/chance"
	"github.com/cory-johannsen/skirmish/internal/game/entity"
	"github.com/cory-johannsen/skirmish/internal/game/world"
	"github.com/cory-johannsen/skirmish/internal/gameserver"
	"github.com/cory-johannsen/skirmish/internal/observability"
	"github.com/cory-johannsen/skirmish/internal/server"
)

const serviceName = "skirmish.ArenaSim"

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	dummies := flag.Int("dummies", 1, "training dummy players placed in each enabled arena")
	statusEvery := flag.Int("status-every", 200, "ticks between status summaries; 0 disables")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "arenasim")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting arena simulator",
		zap.String("status_addr", cfg.Status.Addr()),
		zap.Duration("tick_interval", cfg.Sim.TickInterval),
	)

	// Load content
	contentStart := time.Now()
	arenas, err := world.LoadArenasFromDir(cfg.Content.ZonesDir)
	if err != nil {
		logger.Fatal("loading arenas", zap.Error(err))
	}
	arenaMgr, err := world.NewManager(arenas)
	if err != nil {
		logger.Fatal("creating arena manager", zap.Error(err))
	}
	profiles, err := bot.LoadProfiles(cfg.Content.ProfilesDir)
	if err != nil {
		logger.Fatal("loading agent profiles", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("arenas", arenaMgr.Count()),
		zap.Int("profiles", len(profiles)),
		zap.Duration("elapsed", time.Since(contentStart)),
	)

	sandboxCfg := world.DefaultSandboxConfig()
	sandboxCfg.BotVsBot = cfg.Targeting.BotVsBot
	sandbox := world.NewSandbox(sandboxCfg, logger.Named("sandbox"))
	for _, a := range arenaMgr.All() {
		sandbox.Build(a)
	}
	placeDummies(sandbox, arenaMgr, *dummies, logger)

	policy, _ := bot.ParsePolicy(cfg.Targeting.Policy)
	registry := arbitration.NewRegistry(arbitration.Ceilings{
		Player: cfg.Arbitration.PlayerCeiling,
		Agent:  cfg.Arbitration.AgentCeiling,
	})
	mgr := gameserver.NewManager(gameserver.Config{
		MaxAgents:          cfg.Sim.MaxAgents,
		ParallelTicks:      cfg.Sim.ParallelTicks,
		TickWorkers:        cfg.Sim.TickWorkers,
		PopulationInterval: cfg.Sim.PopulationIntervalTicks,
		RespawnDelay:       cfg.Sim.RespawnDelayTicks,
		Policy:             policy,
		BotVsBot:           cfg.Targeting.BotVsBot,
		DefaultProfile:     cfg.Content.DefaultProfile,
	}, sandbox, arenaMgr, profiles, registry, logger.Named("agents"))

	loop := gameserver.NewTickLoop(cfg.Sim.TickInterval)
	loop.Register("world", func(context.Context) { sandbox.Step() })
	loop.Register("agents", func(ctx context.Context) {
		if err := mgr.Tick(ctx); err != nil && ctx.Err() == nil {
			logger.Error("agent tick failed", zap.Error(err))
		}
	})
	if *statusEvery > 0 {
		every := uint64(*statusEvery)
		loop.Register("status", func(context.Context) {
			if tick := mgr.CurrentTick(); tick%every == 0 {
				logStatus(logger, tick, mgr.Statuses())
			}
		})
	}

	healthSrv := health.NewServer()
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)

	// Wire lifecycle
	lifecycle := server.NewLifecycle(logger)

	lifecycle.Add("grpc", &server.FuncService{
		StartFn: func() error {
			lis, err := net.Listen("tcp", cfg.Status.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.Status.Addr(), err)
			}
			logger.Info("gRPC status server listening",
				zap.String("addr", lis.Addr().String()),
			)
			return grpcServer.Serve(lis)
		},
		StopFn: func() {
			healthSrv.Shutdown()
			grpcServer.GracefulStop()
		},
	})

	lifecycle.Add("ticks", &server.ContextService{
		RunFn: func(ctx context.Context) error {
			healthSrv.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
			defer healthSrv.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
			err := loop.Run(ctx)
			mgr.Shutdown()
			logger.Info("tick loop stopped", zap.Uint64("ticks", loop.Ticks()))
			return err
		},
	})

	logger.Info("arena simulator initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("policy", policy.String()),
	)

	if err := lifecycle.Run(context.Background()); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

// placeDummies adds n stationary survival-mode players to every enabled arena.
func placeDummies(sandbox *world.Sandbox, arenas *world.Manager, n int, logger *zap.Logger) {
	src := chance.NewCryptoSource()
	for _, a := range arenas.Enabled() {
		for i := 0; i < n; i++ {
			loc, err := world.SafeLocation(sandbox, a.Bounds, src)
			if err != nil {
				logger.Warn("no room for training dummy", zap.String("arena", a.ID), zap.Error(err))
				break
			}
			id := entity.ID(fmt.Sprintf("dummy-%s-%d", a.ID, i+1))
			if err := sandbox.AddPlayer(id, loc, entity.ModeSurvival, 1000); err != nil {
				logger.Warn("placing training dummy", zap.String("arena", a.ID), zap.Error(err))
			}
		}
	}
}

func logStatus(logger *zap.Logger, tick uint64, statuses []bot.Status) {
	inCombat, respawning := 0, 0
	for _, st := range statuses {
		if st.State.InCombat() {
			inCombat++
		}
		if st.Lifecycle == bot.Respawning {
			respawning++
		}
	}
	logger.Info("simulation status",
		zap.Uint64("tick", tick),
		zap.Int("agents", len(statuses)-respawning),
		zap.Int("respawning", respawning),
		zap.Int("in_combat", inCombat),
	)
	for _, st := range statuses {
		logger.Debug("agent status",
			zap.String("agent", string(st.ID)),
			zap.String("name", st.Name),
			zap.String("zone", st.Zone),
			zap.Stringer("state", st.State),
			zap.Stringer("lifecycle", st.Lifecycle),
			zap.String("target", string(st.Target)),
			zap.Float64("health", st.Health),
			zap.Int("combo", st.Combo),
		)
	}
}

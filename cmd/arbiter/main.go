package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/tryfairplay/arbiter/pkg/anticheat"
	"github.com/tryfairplay/arbiter/pkg/api"
	"github.com/tryfairplay/arbiter/pkg/config"
	"github.com/tryfairplay/arbiter/pkg/game"
	"github.com/tryfairplay/arbiter/pkg/store/memory"
	"github.com/tryfairplay/arbiter/pkg/store/postgres"
	"github.com/tryfairplay/arbiter/pkg/store/redis"
)

const Version = "0.1.0"

func main() {
	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cfg := loadConfig()
		if len(os.Args) > 2 {
			cfg.ListenAddr = ":" + os.Args[2]
		}
		runServer(cfg)
	case "simulate":
		seed := int64(1)
		if len(os.Args) > 2 {
			if v, err := strconv.ParseInt(os.Args[2], 10, 64); err == nil {
				seed = v
			}
		}
		runSimulation(seed)
	case "analyze":
		if len(os.Args) < 4 {
			fmt.Println("Usage: arbiter analyze <actions.jsonl> <player_id>")
			os.Exit(1)
		}
		runOfflineAnalysis(os.Args[2], os.Args[3])
	case "version":
		fmt.Printf("Arbiter v%s\n", Version)
		fmt.Println("Multiplayer game engine with behavioral cheat detection")
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Arbiter v%s - Game Engine & Cheat Detection\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  arbiter serve [port]       Start HTTP server (default: 8080)")
	fmt.Println("  arbiter simulate [seed]    Play one scripted game and analyze every player")
	fmt.Println("  arbiter analyze <f> <pid>  Run detection over a JSONL action log")
	fmt.Println("  arbiter version            Show version")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  ARBITER_PRESET         Config preset: default, strict, lenient")
	fmt.Println("  ARBITER_LISTEN_ADDR    HTTP listen address (default: :8080)")
	fmt.Println("  ARBITER_REDIS_ADDR     Redis address for session storage")
	fmt.Println("  ARBITER_POSTGRES_DSN   Postgres DSN for durable storage")
	fmt.Println("  ARBITER_TUNING_PATH    YAML detector tuning file")
}

func loadConfig() *config.Config {
	switch config.GetEnv("ARBITER_PRESET", "default") {
	case "strict":
		log.Println("Using strict (tournament) preset")
		return config.NewStrictConfig()
	case "lenient":
		log.Println("Using lenient (casual) preset")
		return config.NewLenientConfig()
	default:
		return config.NewDefaultConfig()
	}
}

// backends bundles whichever store implementation the config selected.
// Postgres wins over Redis; with neither configured everything stays
// in-process.
type backends struct {
	sessions  game.SessionStore
	actions   game.ActionStore
	baselines anticheat.BaselineStore
	close     func()
}

func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	if cfg.PostgresDSN != "" {
		st, err := postgres.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := st.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		log.Println("✓ Storage: postgres")
		return &backends{sessions: st, actions: st, baselines: st, close: st.Close}, nil
	}
	if cfg.RedisAddr != "" {
		st, err := redis.New(ctx, cfg.RedisAddr, redis.WithArchiveTTL(cfg.SessionTTL))
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		log.Println("✓ Storage: redis")
		return &backends{sessions: st, actions: st, baselines: st, close: func() { _ = st.Close() }}, nil
	}
	st := memory.New(memory.WithMaxAge(cfg.SessionTTL), memory.WithCleanupInterval(cfg.CleanupInterval))
	log.Println("○ Storage: in-memory (no ARBITER_REDIS_ADDR or ARBITER_POSTGRES_DSN set)")
	return &backends{sessions: st, actions: st, baselines: st, close: st.Close}, nil
}

func buildAnalyzer(mgr *game.Manager, cfg *config.Config, tuning *config.Tuning, baselines anticheat.BaselineStore) (*anticheat.Analyzer, error) {
	registry := anticheat.NewRegistry()
	for name, w := range tuning.Weights {
		registry.SetWeight(anticheat.IndicatorType(name), w)
	}

	var opts []anticheat.AnalyzerOption
	if cfg.EnableBaselines && baselines != nil {
		opts = append(opts, anticheat.WithBaselineStore(baselines))
	}
	if cfg.EnableAnomaly {
		idx, err := anticheat.NewAnomalyIndex()
		if err != nil {
			return nil, fmt.Errorf("init anomaly index: %w", err)
		}
		floor := cfg.AnomalyFloor
		if tuning.Thresholds.AnomalyFloor > 0 {
			floor = tuning.Thresholds.AnomalyFloor
		}
		idx.SetFloor(floor)
		opts = append(opts, anticheat.WithAnomalyIndex(idx))
		log.Printf("✓ Anomaly detection enabled (similarity floor: %.2f)", floor)
	} else {
		log.Println("○ Anomaly detection disabled")
	}
	if tuning.Thresholds.VoteWindowSeconds > 0 {
		opts = append(opts, anticheat.WithVoteWindow(tuning.Thresholds.VoteWindowSeconds))
	}
	return anticheat.NewAnalyzer(mgr, registry, opts...), nil
}

// roundNotifier forwards events and, when auto-analysis is on, sweeps
// every player of a session after each phase change. Analysis runs off
// the event goroutine under its own deadline so a slow detector can
// never back up into the dispatcher.
type roundNotifier struct {
	next     game.Notifier
	analyzer *anticheat.Analyzer // set after manager construction, before serving
	deadline time.Duration
}

func (n *roundNotifier) Notify(e game.Event) {
	n.next.Notify(e)
	if n.analyzer == nil || e.Type != game.EventPhaseAdvanced {
		return
	}
	go n.sweep(e.SessionID)
}

func (n *roundNotifier) sweep(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), n.deadline)
	defer cancel()
	players, err := n.analyzer.SessionPlayers(ctx, sessionID)
	if err != nil {
		log.Printf("[WARN] auto-analysis sweep session_id=%s: %v", sessionID, err)
		return
	}
	for _, pid := range players {
		res, err := n.analyzer.AnalyzePlayer(ctx, sessionID, pid)
		if err != nil {
			log.Printf("[WARN] auto-analysis session_id=%s player_id=%s: %v", sessionID, pid, err)
			continue
		}
		if res.Action != anticheat.ActionNone {
			log.Printf("[WARN] cheat signal session_id=%s player_id=%s probability=%.2f action=%s",
				sessionID, pid, res.Probability, res.Action)
		}
	}
}

func runServer(cfg *config.Config) {
	ctx := context.Background()

	tuning, err := config.LoadTuning(cfg.TuningPath)
	if err != nil {
		log.Fatalf("load tuning: %v", err)
	}

	be, err := openBackends(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer be.close()

	opts := []game.Option{
		game.WithSessionStore(be.sessions),
		game.WithActionStore(be.actions),
		game.WithTTL(cfg.SessionTTL),
		game.WithCleanupInterval(cfg.CleanupInterval),
		game.WithEventBuffer(cfg.EventBufferSize),
	}
	var auto *roundNotifier
	if cfg.AutoAnalyzeRounds {
		auto = &roundNotifier{next: game.LogNotifier{}, deadline: cfg.AnalysisDeadline}
		opts = append(opts, game.WithNotifier(auto))
	}
	mgr := game.NewManager(opts...)
	defer mgr.Close()

	analyzer, err := buildAnalyzer(mgr, cfg, tuning, be.baselines)
	if err != nil {
		log.Fatal(err)
	}
	if auto != nil {
		auto.analyzer = analyzer
		log.Println("✓ Auto-analysis enabled (every phase change)")
	}

	srv := api.NewServer(mgr, analyzer)

	log.Printf("Arbiter v%s starting on %s", Version, cfg.ListenAddr)
	log.Printf("Endpoints:")
	log.Printf("  GET  /health                                   - Health check")
	log.Printf("  POST /v1/sessions                              - Create session")
	log.Printf("  GET  /v1/sessions/:id                          - Session state (roles redacted)")
	log.Printf("  POST /v1/sessions/:id/join|leave|start         - Lobby operations")
	log.Printf("  POST /v1/sessions/:id/actions                  - Submit player action")
	log.Printf("  POST /v1/sessions/:id/advance                  - Force phase advance")
	log.Printf("  POST /v1/sessions/:id/cancel                   - Cancel session")
	log.Printf("  GET  /v1/sessions/:id/players/:pid/analysis    - Cheat analysis")

	if err := srv.Listen(cfg.ListenAddr); err != nil {
		log.Fatal(err)
	}
}

// runSimulation plays one scripted social deduction game end to end in
// memory, then prints the analysis verdict for every player. Useful for
// eyeballing detector behavior without standing up a server.
func runSimulation(seed int64) {
	ctx := context.Background()

	mgr := game.NewManager()
	defer mgr.Close()
	analyzer := anticheat.NewAnalyzer(mgr, anticheat.NewRegistry())

	players := make([]*game.Player, 5)
	for i := range players {
		players[i] = &game.Player{
			ID:   fmt.Sprintf("p%d", i+1),
			Name: fmt.Sprintf("Player %d", i+1),
		}
	}
	id, err := mgr.CreateSession(ctx, game.CreateParams{
		Type:     game.GameSocialDeduction,
		Players:  players,
		Settings: game.Settings{Seed: seed},
	})
	if err != nil {
		log.Fatalf("create session: %v", err)
	}
	if err := mgr.StartSession(ctx, id); err != nil {
		log.Fatalf("start session: %v", err)
	}

	s, err := mgr.GetSession(ctx, id)
	if err != nil {
		log.Fatalf("get session: %v", err)
	}
	var mafia *game.Player
	for _, p := range s.Players {
		if p.Role.IsMafia() {
			mafia = p
		}
	}
	fmt.Printf("Session %s started (seed %d), mafia is %s\n", id, seed, mafia.ID)

	// The town chats, the mafia kills, the town votes the mafia out.
	for round := 1; round <= 5; round++ {
		s, _ = mgr.GetSession(ctx, id)
		if s.Status != game.StatusActive {
			break
		}
		var victim string
		for _, p := range s.Players {
			if p.Alive() && !p.Role.IsMafia() {
				victim = p.ID
				break
			}
		}
		mustApply(ctx, mgr, id, mafia.ID, game.ActionKill, game.Payload{TargetID: victim})
		mustAdvance(ctx, mgr, id) // NIGHT -> DAY

		s, _ = mgr.GetSession(ctx, id)
		for _, p := range s.Players {
			if p.Alive() {
				mustApply(ctx, mgr, id, p.ID, game.ActionChat,
					game.Payload{Text: fmt.Sprintf("round %d discussion from %s", round, p.Name)})
			}
		}
		mustAdvance(ctx, mgr, id) // DAY -> VOTING

		s, _ = mgr.GetSession(ctx, id)
		for _, p := range s.Players {
			if p.Alive() {
				mustApply(ctx, mgr, id, p.ID, game.ActionVote, game.Payload{TargetID: mafia.ID})
			}
		}
		time.Sleep(10 * time.Millisecond)
	}

	s, _ = mgr.GetSession(ctx, id)
	fmt.Printf("Game over: status=%s\n\n", s.Status)

	for _, p := range s.Players {
		res, err := analyzer.AnalyzePlayer(ctx, id, p.ID)
		if err != nil {
			log.Fatalf("analyze %s: %v", p.ID, err)
		}
		out, _ := json.MarshalIndent(res, "", "  ")
		fmt.Printf("--- %s (%s) ---\n%s\n", p.Name, p.Role, out)
	}
}

// runOfflineAnalysis replays a JSONL action log through the detector
// battery without a live session. Roles are unknown offline, so phrase
// matching runs in its conservative both-groups mode.
func runOfflineAnalysis(path, playerID string) {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var actions []game.Action
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var a game.Action
		if err := json.Unmarshal(sc.Bytes(), &a); err != nil {
			log.Fatalf("parse line %d: %v", line, err)
		}
		actions = append(actions, a)
	}
	if err := sc.Err(); err != nil {
		log.Fatalf("read log: %v", err)
	}

	registry := anticheat.NewRegistry()
	profile := anticheat.BuildProfile(playerID, actions)
	dc := &anticheat.Context{
		PlayerID: playerID,
		Profile:  profile,
		Log:      actions,
		Now:      time.Now().UTC(),
	}
	result := registry.Aggregate(anticheat.AggregateInput{
		PlayerID:   playerID,
		Indicators: registry.Run(context.Background(), dc),
		Complexity: profile.StrategicComplexity,
		Now:        dc.Now,
	})
	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}

func mustApply(ctx context.Context, mgr *game.Manager, id, actor string, t game.ActionType, pl game.Payload) {
	if _, err := mgr.ApplyAction(ctx, id, actor, t, pl); err != nil {
		log.Fatalf("apply %s by %s: %v", t, actor, err)
	}
}

func mustAdvance(ctx context.Context, mgr *game.Manager, id string) {
	if _, err := mgr.AdvancePhase(ctx, id); err != nil {
		log.Fatalf("advance: %v", err)
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gamelog "gallop/internal/log"
	"gallop/internal/race"
	"gallop/internal/server"
	"gallop/internal/sim"
	"gallop/internal/store"
)

func main() {
	addr := flag.String("addr", ":8080", "server listen address")
	lanes := flag.Int("lanes", 0, "number of runners, 0 keeps the configured count")
	seed := flag.Int64("seed", 0, "random seed, 0 seeds from the clock")
	tick := flag.Duration("tick", 16*time.Millisecond, "simulation tick interval")
	dbPath := flag.String("db", "", "sqlite preset database, empty disables presets")
	preset := flag.String("preset", "", "preset to load at startup")
	gait := flag.Float64("gait", 1.0, "idle animation rate")
	level := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	logger := gamelog.New(os.Stderr, "", gamelog.LevelFromString(*level))
	sim.SetGaitRate(*gait)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := race.DefaultConfig()

	var presets server.Presets
	if *dbPath != "" {
		st, err := store.Open(*dbPath)
		if err != nil {
			log.Fatalf("open preset store: %v", err)
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			log.Fatalf("migrate preset store: %v", err)
		}
		if *preset != "" {
			p, err := st.LoadPreset(ctx, *preset)
			if err != nil {
				log.Fatalf("load preset %q: %v", *preset, err)
			}
			cfg = p.Config
			logger.Infof("using preset %q", p.Name)
		}
		presets = st
	} else if *preset != "" {
		log.Fatalf("-preset needs -db")
	}

	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *lanes > 0 {
		cfg.Track.Lanes = *lanes
	}

	simulation := sim.New(cfg, sim.WithLogger(logger.With("[host] ")))
	hub := server.NewHub(simulation, logger.With("[ws] "))
	srv := server.New(simulation, presets, hub, logger.With("[http] "))

	announced := ""
	go simulation.Run(ctx, *tick, func(snap sim.Snapshot) {
		// Broadcast every frame so clients stay in sync.
		hub.BroadcastSnapshot(snap)
		if !snap.Complete || snap.GameID == announced {
			return
		}
		res, err := simulation.Result()
		if err != nil {
			return
		}
		announced = snap.GameID
		hub.BroadcastResult(res)
		logger.Infof("race %s finished, top5=%v", res.GameID, res.Top5)
	})

	httpServer := &http.Server{Addr: *addr, Handler: srv.Routes()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("serving race host on http://localhost%v", *addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server failed: %v", err)
	}
}

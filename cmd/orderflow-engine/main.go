// Command orderflow-engine wires the engine to a CSV trade-feed replay for
// local running and demonstration. It is illustrative wiring, not a
// production transport — it exists so the module is a buildable, runnable
// program exercising the engine's Ingest and Tick path.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"orderflow-engine/internal/clock"
	"orderflow-engine/internal/config"
	"orderflow-engine/internal/dispatcher"
	"orderflow-engine/internal/engine"
	"orderflow-engine/internal/ingest/csvreplay"
	"orderflow-engine/internal/metrics"
	"orderflow-engine/internal/model"
	"orderflow-engine/internal/persistence"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	csvPath := flag.String("csv", "", "path to a CSV trade feed to replay")
	symbol := flag.String("symbol", "NQ", "symbol to tag replayed trades with")
	flag.Parse()

	if *csvPath == "" {
		log.Fatal("orderflow-engine: -csv is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("orderflow-engine: config: %v", err)
	}

	reg := metrics.New(prometheus.DefaultRegisterer)

	// persist stays a nil engine.PersistenceSink (not a typed-nil *Repository)
	// when no DSN is configured, so engine.New's nil check actually fires.
	var persist engine.PersistenceSink
	if cfg.DatabaseDSN == "" {
		log.Println("orderflow-engine: no database DSN configured, running without persistence")
	} else {
		db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
		if err != nil {
			log.Fatalf("orderflow-engine: database: %v", err)
		}
		if err := persistence.Migrate(db); err != nil {
			log.Fatalf("orderflow-engine: migrate: %v", err)
		}
		repo := persistence.New(db, cfg.PersistenceQueueSize, reg)
		defer repo.Close()
		persist = repo
	}

	dispatch := dispatcher.New(reg)
	defer dispatch.Close()

	eng := engine.New(engine.Options{
		Clock:    clock.System{},
		Dispatch: dispatch,
		Metrics:  reg,
		Persist:  persist,
		Config:   cfg,
	})

	rows, err := csvreplay.Open(*csvPath)
	if err != nil {
		log.Fatalf("orderflow-engine: %v", err)
	}
	log.Printf("orderflow-engine: loaded %d trades from %s", len(rows), *csvPath)

	artifacts := dispatch.Subscribe(cfg.DispatchBufferSize)
	go logArtifacts(artifacts)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("orderflow-engine: shutting down...")
		cancel()
	}()

	replayTrades(ctx, eng, rows, *symbol, cfg.TickPeriodMs)
}

// rowsPerTick bounds how many CSV rows replayTrades ingests between ticks,
// so a large feed replays over many ticks instead of collapsing onto the
// first one.
const rowsPerTick = 200

// replayTrades feeds rows into eng at a fixed wall-clock tick period, at
// most rowsPerTick rows between ticks. Each row's own EventTimeMs is
// metadata only; the engine's Tick is driven by the system clock, per
// clock.Clock's contract.
func replayTrades(ctx context.Context, eng *engine.Engine, rows []csvreplay.Row, symbol string, tickPeriodMs int64) {
	ticker := time.NewTicker(time.Duration(tickPeriodMs) * time.Millisecond)
	defer ticker.Stop()

	i := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for batch := 0; batch < rowsPerTick && i < len(rows); batch++ {
				row := rows[i]
				i++
				if err := eng.Ingest(row.Trade(symbol)); err != nil {
					continue
				}
			}
			eng.Tick(clock.System{}.NowMs())
			if i >= len(rows) {
				log.Println("orderflow-engine: replay complete")
				return
			}
		}
	}
}

func logArtifacts(artifacts <-chan model.Artifact) {
	for a := range artifacts {
		switch a.Kind {
		case model.ArtifactDeltaFlip:
			log.Printf("delta flip: %+v", *a.DeltaFlip)
		case model.ArtifactAbsorptionEvent:
			log.Printf("absorption: %+v", *a.AbsorptionEvent)
		case model.ArtifactStackedImbalance:
			log.Printf("stacked imbalance: %+v", *a.StackedImbalance)
		case model.ArtifactVolumeProfile:
			log.Printf("volume profile: %d levels", len(a.VolumeProfile))
		case model.ArtifactConfluence:
			log.Printf("confluence: %+v", *a.Confluence)
		case model.ArtifactSessionStats:
			log.Printf("session stats: %+v", *a.SessionStats)
		}
	}
}

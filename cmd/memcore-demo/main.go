// cmd/memcore-demo is a thin wiring binary for local testing: it
// constructs a store, a model gateway, and an engine.Core from a
// configuration file, then runs the core's testable scenarios end to
// end and reports pass/fail on each. It is not a server and implements
// no transport; a real deployment's request/response framing, dashboard,
// and maintenance CLI are separate collaborators built on top of
// engine.Core.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/config"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/engine"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/llm"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/storage"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/storage/postgres"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/storage/sqlite"
)

func main() {
	log.SetPrefix("memcore-demo: ")

	configPath := flag.String("config", "", "path to a YAML config file (defaults applied if omitted)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		doc, err := os.ReadFile(*configPath)
		if err != nil {
			log.Fatalf("read config %q: %v", *configPath, err)
		}
		cfg, err = config.FromYAML(doc)
		if err != nil {
			log.Fatalf("parse config %q: %v", *configPath, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	store, err := openStore(cfg.Store)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if applier, ok := store.(schemaApplier); ok {
		if err := applier.ApplySchema(ctx); err != nil {
			log.Fatalf("apply schema: %v", err)
		}
	}

	model, err := llm.NewGateway(cfg.Model)
	if err != nil {
		log.Fatalf("build model gateway: %v", err)
	}

	core := engine.NewCore(store, model, cfg)
	defer core.Close()

	results := runScenarios(ctx, core)
	failed := 0
	for _, r := range results {
		status := "ok"
		if r.err != nil {
			status = fmt.Sprintf("FAIL: %v", r.err)
			failed++
		}
		log.Printf("%s: %s", r.name, status)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// schemaApplier is implemented by both bundled store backends; it is not
// part of storage.MemoryStore because a future backend might manage its
// own migrations out of band.
type schemaApplier interface {
	ApplySchema(ctx context.Context) error
}

func openStore(cfg config.StoreConfig) (storage.MemoryStore, error) {
	switch cfg.Backend {
	case "postgres":
		return postgres.New(postgres.Config{
			DSN:         cfg.DSN,
			Dimension:   cfg.Dimension,
			MaxOpenConn: cfg.MaxOpenConn,
			MaxIdleConn: cfg.MaxIdleConn,
		})
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = ":memory:"
		}
		return sqlite.New(dsn, cfg.Dimension)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

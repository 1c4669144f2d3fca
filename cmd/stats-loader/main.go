package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/bangumi-archive/stats-loader/internal/archive"
	"github.com/bangumi-archive/stats-loader/internal/config"
	"github.com/bangumi-archive/stats-loader/internal/dump"
	"github.com/bangumi-archive/stats-loader/internal/loader"
)

func main() {
	cfg, err := config.LoadFromEnv("config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	types, limit, err := parseArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	runID := uuid.NewString()[:8]
	log.Printf("[%s] bangumi archive stats loader", runID)

	ctx := context.Background()
	repo := archive.NewGitRepo(cfg.Archive.Dir)

	if cfg.Iteration.StartDate != "" {
		log.Printf("[%s] backfill from %s", runID, cfg.Iteration.StartDate)
		ctrl := &archive.Controller{
			Repo:      repo,
			StartDate: cfg.Iteration.StartDate,
			Transient: cfg.Archive.FilePaths(),
			Process: func(ctx context.Context, dataDate string) error {
				return runTypes(ctx, cfg, types, dataDate, limit, runID)
			},
		}
		if err := ctrl.Run(ctx); err != nil {
			log.Fatalf("[%s] backfill: %v", runID, err)
		}
		return
	}

	// Single pass: the run is dated from the archive's current revision.
	msg, err := repo.Message(ctx, "HEAD")
	if err != nil {
		log.Fatalf("[%s] read archive head: %v", runID, err)
	}
	dataDate, err := archive.DumpDate(msg)
	if err != nil {
		log.Fatalf("[%s] resolve data date: %v", runID, err)
	}
	log.Printf("[%s] data date %s", runID, dataDate)

	if err := runTypes(ctx, cfg, types, dataDate, limit, runID); err != nil {
		log.Printf("[%s] %v", runID, err)
		os.Exit(1)
	}
	log.Printf("[%s] all types processed", runID)
}

// parseArgs handles "[run] [type|all|limit] [limit]". A bare number means
// all types capped at that many records per file.
func parseArgs(args []string) (types []string, limit int, err error) {
	if len(args) > 0 && args[0] == "run" {
		args = args[1:]
	}

	typeArg := "all"
	if len(args) > 0 {
		if n, convErr := strconv.Atoi(args[0]); convErr == nil {
			limit = n
			log.Printf("no type given, processing all types, limit %d", limit)
		} else {
			typeArg = strings.ToLower(args[0])
			if len(args) > 1 {
				if n, convErr := strconv.Atoi(args[1]); convErr == nil {
					limit = n
					log.Printf("limit %d records per file", limit)
				} else {
					log.Printf("ignoring invalid limit %q, processing all records", args[1])
				}
			}
		}
	}

	if typeArg == "all" {
		for _, t := range dump.Types() {
			types = append(types, string(t))
		}
		return types, limit, nil
	}
	if _, ok := dump.ParseType(typeArg); !ok {
		return nil, 0, fmt.Errorf("unsupported type %q (character, person, subject or all)", typeArg)
	}
	return []string{typeArg}, limit, nil
}

// runTypes processes each record type in turn. A failed type does not stop
// the others, except an unreachable database, which no later type can
// recover from and which callers must see as-is to abort on.
func runTypes(ctx context.Context, cfg *config.Config, types []string, dataDate string, limit int, runID string) error {
	failed := 0
	for _, t := range types {
		err := runType(ctx, cfg, t, dataDate, limit, runID)
		if err == nil {
			continue
		}
		if errors.Is(err, loader.ErrConnect) {
			return fmt.Errorf("%s: %w", t, err)
		}
		log.Printf("[%s] %s: %v", runID, t, err)
		failed++
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d types failed", failed, len(types))
	}
	return nil
}

func runType(ctx context.Context, cfg *config.Config, recordType, dataDate string, limit int, runID string) error {
	proc, err := loader.New(recordType, cfg)
	if err != nil {
		return err
	}
	defer proc.Close()

	if err := proc.Connect(ctx); err != nil {
		return err
	}
	if err := proc.EnsureSchema(ctx); err != nil {
		return err
	}

	path, err := cfg.Archive.FilePath(recordType)
	if err != nil {
		return err
	}
	stats, err := proc.ProcessFile(ctx, path, dataDate, limit)
	if err != nil {
		return err
	}
	log.Printf("[%s] %s %s: %s", runID, recordType, dataDate, stats)
	return nil
}

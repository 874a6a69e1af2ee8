// Package main provides the content seeding binary: it loads entity
// definition and combat preset YAML files into the document store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ravenfell/gametable/internal/config"
	"github.com/ravenfell/gametable/internal/game/battlefield"
	"github.com/ravenfell/gametable/internal/observability"
	"github.com/ravenfell/gametable/internal/storage/mongostore"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	entitiesDir := flag.String("entities", "content/entities", "directory of entity definition YAML files")
	presetsDir := flag.String("presets", "content/presets", "directory of combat preset YAML files")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	store, err := mongostore.Connect(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("connecting to document store", zap.Error(err))
	}
	defer store.Close(ctx)

	start := time.Now()

	entities, err := seedEntities(ctx, store, *entitiesDir)
	if err != nil {
		logger.Fatal("seeding entity definitions", zap.Error(err))
	}

	presets, err := seedPresets(ctx, store, *presetsDir)
	if err != nil {
		logger.Fatal("seeding combat presets", zap.Error(err))
	}

	logger.Info("content seeded",
		zap.Int("entities", entities),
		zap.Int("presets", presets),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// seedEntities loads every YAML file in dir as an entity definition and
// upserts it. A missing directory seeds nothing.
func seedEntities(ctx context.Context, store *mongostore.Store, dir string) (int, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return count, fmt.Errorf("reading %s: %w", path, err)
		}
		var def battlefield.EntityDefinition
		if err := yaml.Unmarshal(data, &def); err != nil {
			return count, fmt.Errorf("parsing %s: %w", path, err)
		}
		if def.Name == "" {
			return count, fmt.Errorf("%s: entity definition has no name", path)
		}
		if err := store.UpsertEntity(ctx, def); err != nil {
			return count, fmt.Errorf("storing entity from %s: %w", path, err)
		}
		count++
	}
	return count, nil
}

// seedPresets loads every YAML file in dir as a combat preset and saves it.
func seedPresets(ctx context.Context, store *mongostore.Store, dir string) (int, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return count, fmt.Errorf("reading %s: %w", path, err)
		}
		var doc battlefield.PresetDocument
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return count, fmt.Errorf("parsing %s: %w", path, err)
		}
		if len(doc.Placements) == 0 {
			return count, fmt.Errorf("%s: combat preset has no placements", path)
		}
		if _, err := store.SaveCombatPreset(ctx, doc); err != nil {
			return count, fmt.Errorf("storing preset from %s: %w", path, err)
		}
		count++
	}
	return count, nil
}

// yamlFiles lists the .yaml/.yml files directly under dir, sorted by name.
// A missing directory yields an empty list.
func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

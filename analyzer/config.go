package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	reaction "github.com/next-exp/reaction_go/pkg"
	"gopkg.in/yaml.v3"
)

// LoadConfiguration reads a JSON or YAML (by extension) configuration file
// on top of the default values and validates it.
func LoadConfiguration(filename string) (reaction.Configuration, error) {
	config := reaction.DefaultConfiguration()

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return config, err
	}
	return config, config.Validate()
}

func printConfiguration(config reaction.Configuration, logger Logger) {
	logger.Info(fmt.Sprintf("File in: %s", config.FileIn), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("Histograms out: %s", config.HistoOut), "config")
	logger.Info(fmt.Sprintf("No DB: %t", config.NoDB), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	logger.Info(fmt.Sprintf("Run number: %d", config.RunNumber), "config")
	logger.Info(fmt.Sprintf("Truth matched: %t", config.TruthMatched), "config")
	logger.Info(fmt.Sprintf("Match quality: %t", config.MatchQuality), "config")
	logger.Info(fmt.Sprintf("Forward tagger bank: %t", config.UseFTB), "config")
	logger.Info(fmt.Sprintf("Types: %v", config.Types), "config")
	logger.Info(fmt.Sprintf("Particles: %d", len(config.Particles)), "config")
	logger.Info(fmt.Sprintf("Composites: %d", len(config.Composites)), "config")
	logger.Info(fmt.Sprintf("Detector associations: %d", len(config.Detectors)), "config")
	logger.Info(fmt.Sprintf("Cuts: %d", len(config.Cuts)), "config")
	logger.Info(fmt.Sprintf("Histograms: %d", len(config.Histograms)), "config")
	logger.Info(fmt.Sprintf("Snapshot columns: %v", config.Snapshot), "config")
	logger.Info(fmt.Sprintf("Skip: %d", config.Skip), "config")
	logger.Info(fmt.Sprintf("Max events: %d", config.MaxEvents), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("Number of workers: %d", config.NumWorkers), "config")
	logger.Info(fmt.Sprintf("Compression level: %d", config.CompressionLevel), "config")
	logger.Info(fmt.Sprintf("Snapshot batch: %d", config.SnapshotBatch), "config")
	logger.Info(fmt.Sprintf("Metrics address: %s", config.MetricsAddr), "config")
}

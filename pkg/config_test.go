package reaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfiguration() Configuration {
	cfg := DefaultConfiguration()
	cfg.FileIn = "events.jsonl"
	cfg.Particles = []ParticleConfig{{Name: "el", Tag: 11, Rank: 1}}
	return cfg
}

func TestConfigurationValidate(t *testing.T) {
	assert.NoError(t, validConfiguration().Validate())

	tests := []struct {
		name   string
		modify func(c *Configuration)
	}{
		{"missing input", func(c *Configuration) { c.FileIn = "" }},
		{"no workers", func(c *Configuration) { c.NumWorkers = 0 }},
		{"verbosity too high", func(c *Configuration) { c.Verbosity = 4 }},
		{"compression too high", func(c *Configuration) { c.CompressionLevel = 10 }},
		{"unknown type", func(c *Configuration) { c.Types = []string{"gen"} }},
		{"database without host", func(c *Configuration) { c.Host = "" }},
		{"particle without rank", func(c *Configuration) { c.Particles[0].Rank = 0 }},
		{"particle without name", func(c *Configuration) { c.Particles[0].Name = "" }},
		{"empty composite", func(c *Configuration) {
			c.Composites = []CompositeConfig{{Name: "x"}}
		}},
		{"histogram with inverted range", func(c *Configuration) {
			c.Histograms = []HistogramConfig{{Name: "h", Column: "rec_px", Bins: 10, Min: 1, Max: 0}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfiguration()
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigurationWithoutDatabase(t *testing.T) {
	cfg := validConfiguration()
	cfg.NoDB = true
	cfg.Host = ""
	cfg.DBName = ""
	assert.NoError(t, cfg.Validate())

	fixed := 2
	cfg.Particles[0].Rank = 0
	cfg.Particles[0].FixedIndex = &fixed
	assert.NoError(t, cfg.Validate())
}

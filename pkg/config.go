package reaction

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

type Configuration struct {
	FileIn           string `json:"file_in" yaml:"file_in" validate:"required"`
	FileOut          string `json:"file_out" yaml:"file_out"`
	HistoOut         string `json:"histo_out" yaml:"histo_out"`
	MaxEvents        int    `json:"max_events" yaml:"max_events" validate:"gte=0"`
	Skip             int    `json:"skip" yaml:"skip" validate:"gte=0"`
	Verbosity        int    `json:"verbosity" yaml:"verbosity" validate:"gte=0,lte=3"`
	NumWorkers       int    `json:"num_workers" yaml:"num_workers" validate:"gte=1,lte=256"`
	TruthMatched     bool   `json:"truth_matched" yaml:"truth_matched"`
	MatchQuality     bool   `json:"match_quality" yaml:"match_quality"`
	UseFTB           bool   `json:"use_ftb" yaml:"use_ftb"`
	TruthGenType     *int32 `json:"truth_gen_type" yaml:"truth_gen_type"`
	NoDB             bool   `json:"no_db" yaml:"no_db"`
	Host             string `json:"host" yaml:"host" validate:"required_unless=NoDB true"`
	User             string `json:"user" yaml:"user"`
	Passwd           string `json:"pass" yaml:"pass"`
	DBName           string `json:"dbname" yaml:"dbname" validate:"required_unless=NoDB true"`
	RunNumber        int    `json:"run_number" yaml:"run_number" validate:"gte=0"`
	CompressionLevel int    `json:"compression_level" yaml:"compression_level" validate:"gte=0,lte=9"`
	SnapshotBatch    int    `json:"snapshot_batch" yaml:"snapshot_batch" validate:"gte=0"`
	MetricsAddr      string `json:"metrics_addr" yaml:"metrics_addr"`

	Particles  []ParticleConfig  `json:"particles" yaml:"particles" validate:"dive"`
	Composites []CompositeConfig `json:"composites" yaml:"composites" validate:"dive"`
	Detectors  []DetectorConfig  `json:"detectors" yaml:"detectors" validate:"dive"`
	Cuts       []CutConfig       `json:"cuts" yaml:"cuts" validate:"dive"`
	RequireOK  []string          `json:"require_ok" yaml:"require_ok"`
	Histograms []HistogramConfig `json:"histograms" yaml:"histograms" validate:"dive"`
	Snapshot   []string          `json:"snapshot" yaml:"snapshot"`
	Types      []string          `json:"types" yaml:"types" validate:"dive,oneof=rec tru"`
	Extra      map[string]string `json:"extra_inputs" yaml:"extra_inputs"`
}

// ParticleConfig binds a particle name to an index rule over a tag column.
type ParticleConfig struct {
	Name       string `json:"name" yaml:"name" validate:"required"`
	TagColumn  string `json:"tag_column" yaml:"tag_column"`
	Tag        int32  `json:"tag" yaml:"tag"`
	Rank       int    `json:"rank" yaml:"rank" validate:"gte=0"`
	Expected   *int32 `json:"expected" yaml:"expected"`
	FixedIndex *int   `json:"fixed_index" yaml:"fixed_index" validate:"omitempty,gte=0"`
}

type CompositeConfig struct {
	Name         string   `json:"name" yaml:"name" validate:"required"`
	Constituents []string `json:"constituents" yaml:"constituents" validate:"required,min=1"`
}

type DetectorConfig struct {
	Bank         string   `json:"bank" yaml:"bank" validate:"required"`
	Subdetectors []int16  `json:"subdetectors" yaml:"subdetectors" validate:"required,min=1"`
	Layers       []int16  `json:"layers" yaml:"layers"`
	Particles    []string `json:"particles" yaml:"particles" validate:"required,min=1"`
	Fields       []string `json:"fields" yaml:"fields" validate:"required,min=1"`
}

// CutConfig keeps events whose column value lies in [Min, Max]. For jagged
// columns Particle names the index column used to pick the entry.
type CutConfig struct {
	Label    string   `json:"label" yaml:"label" validate:"required"`
	Column   string   `json:"column" yaml:"column" validate:"required"`
	Particle string   `json:"particle" yaml:"particle"`
	Min      *float64 `json:"min" yaml:"min"`
	Max      *float64 `json:"max" yaml:"max"`
}

type HistogramConfig struct {
	Name     string  `json:"name" yaml:"name" validate:"required"`
	Title    string  `json:"title" yaml:"title"`
	Column   string  `json:"column" yaml:"column" validate:"required"`
	Particle string  `json:"particle" yaml:"particle"`
	Bins     int     `json:"bins" yaml:"bins" validate:"gte=1"`
	Min      float64 `json:"min" yaml:"min"`
	Max      float64 `json:"max" yaml:"max" validate:"gtfield=Min"`
	Typed    bool    `json:"typed" yaml:"typed"`
}

var configuration Configuration

func GetConfiguration() Configuration {
	return configuration
}

func SetConfiguration(config Configuration) {
	configuration = config
}

var validate = validator.New()

// DefaultConfiguration returns the values used for fields missing from a
// configuration file.
func DefaultConfiguration() Configuration {
	return Configuration{
		MaxEvents:        1000000000,
		Verbosity:        0,
		NumWorkers:       1,
		Host:             "clasdb.jlab.org",
		User:             "clasreader",
		DBName:           "clas12",
		CompressionLevel: 4,
		SnapshotBatch:    10000,
		Types:            []string{"rec"},
	}
}

// Validate checks the field constraints of the configuration.
func (c Configuration) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	for _, p := range c.Particles {
		if p.FixedIndex == nil && p.Rank < 1 {
			return fmt.Errorf("invalid configuration: particle %q needs a rank >= 1 or a fixed index", p.Name)
		}
	}
	return nil
}

package reaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssociateDetector(t *testing.T) {
	r := NewReaction()
	r.Use(RecParticles{Fields: KinematicFields})
	r.SetParticleIndex("el", "rec_pid", UseNthOccurrence(1, 11))
	r.SetParticleIndex("pip", "rec_pid", UseNthOccurrence(1, 211))
	r.AssociateDetector("Scintillator", []DetectorID{FTOF, CTOF}, []string{"el", "pip"}, []string{"time", "energy"})
	require.NoError(t, r.Build())

	record := recRecord([]float64{1, 2}, []int32{11, 211})
	record["REC_Scintillator_pindex"] = []int16{1, 0, 0}
	record["REC_Scintillator_detector"] = []int16{int16(FTOF), int16(FTOF), int16(CTOF)}
	record["REC_Scintillator_time"] = []float64{5, 7, 9}
	record["REC_Scintillator_energy"] = []float64{0.5, 0.7, 0.9}
	e := newEvent(t, r, record)

	toRec := get[ReverseMap](t, e, ReverseMapColumn("Scintillator"))
	assert.Equal(t, ReverseMap{{1, 2}, {0}}, toRec)

	assert.Equal(t, 7.0, get[float64](t, e, DetectorColumn("el", "FTOF", "time")))
	assert.Equal(t, 9.0, get[float64](t, e, DetectorColumn("el", "CTOF", "time")))
	assert.Equal(t, 0.9, get[float64](t, e, DetectorColumn("el", "CTOF", "energy")))
	assert.Equal(t, 5.0, get[float64](t, e, DetectorColumn("pip", "FTOF", "time")))
	assert.Equal(t, 0.0, get[float64](t, e, DetectorColumn("pip", "CTOF", "time")))

	assert.Contains(t, r.Graph().Columns(), "el_FTOF_time")
	assert.NotContains(t, r.Graph().Columns(), ReverseMapColumn("Scintillator"))
}

func TestAssociateDetectorMissingParticle(t *testing.T) {
	r := NewReaction()
	r.Use(RecParticles{Fields: KinematicFields})
	r.SetParticleIndex("kp", "rec_pid", UseNthOccurrence(1, 321))
	r.AssociateDetector("Calorimeter", []DetectorID{ECAL}, []string{"kp"}, []string{"energy"})
	require.NoError(t, r.Build())

	record := recRecord([]float64{1}, []int32{11})
	record["REC_Calorimeter_pindex"] = []int16{0}
	record["REC_Calorimeter_detector"] = []int16{int16(ECAL)}
	record["REC_Calorimeter_energy"] = []float64{1.5}
	e := newEvent(t, r, record)
	assert.Equal(t, 0.0, get[float64](t, e, "kp_ECAL_energy"))
}

func TestAssociateDetectorTruthMatched(t *testing.T) {
	r := NewReaction(WithTruthMatching())
	r.Use(RecParticles{Fields: KinematicFields}, TruthParticles{}, TruthMatching{})
	r.SetParticleIndex("el", "rec_pid", UseNthOccurrence(1, 11))
	r.AssociateDetector("Scintillator", []DetectorID{FTOF}, []string{"el"}, []string{"time"})
	require.NoError(t, r.Build())

	record := matchedRecord()
	record["REC_Particle_px"] = []float64{1, 2}
	record["REC_Particle_py"] = []float64{0, 0}
	record["REC_Particle_pz"] = []float64{0, 0}
	record["REC_Particle_pid"] = []int32{211, 11}
	record["MC_GenMatch_pindex"] = []int16{0, 1}
	record["MC_GenMatch_mcindex"] = []int16{1, 0}
	// hit pindex refers to reconstructed order
	record["REC_Scintillator_pindex"] = []int16{1, 0}
	record["REC_Scintillator_detector"] = []int16{int16(FTOF), int16(FTOF)}
	record["REC_Scintillator_time"] = []float64{3, 4}
	e := newEvent(t, r, record)

	assert.Equal(t, 0, get[int](t, e, "el"))
	assert.Equal(t, ReverseMap{{0}, {1}}, get[ReverseMap](t, e, ReverseMapColumn("Scintillator")))
	assert.Equal(t, 3.0, get[float64](t, e, "el_FTOF_time"))
}

func TestDetectorNames(t *testing.T) {
	r := NewReaction(WithTables(NewTables(nil, map[DetectorID]string{FTOF: "TOF"})))
	r.Use(RecParticles{Fields: KinematicFields})
	r.SetParticleIndex("el", "rec_pid", UseNthOccurrence(1, 11))
	r.AssociateDetector("Scintillator", []DetectorID{FTOF, 99}, []string{"el"}, []string{"time"})
	require.NoError(t, r.Build())

	assert.Contains(t, r.Graph().Columns(), "el_TOF_time")
	assert.Contains(t, r.Graph().Columns(), "el_DET99_time")
}

func TestAssociateDetectorLayers(t *testing.T) {
	r := NewReaction()
	r.Use(RecParticles{Fields: KinematicFields})
	r.SetParticleIndex("el", "rec_pid", UseNthOccurrence(1, 11))
	r.Use(DetectorAssociation{
		Bank:         "Calorimeter",
		Subdetectors: []DetectorID{ECAL},
		Layers:       []LayerID{PCAL, ECIN, ECOUT},
		Particles:    []string{"el"},
		Fields:       []string{"energy"},
	})
	r.Use(DetectorAssociation{
		Bank:         "Scintillator",
		Subdetectors: []DetectorID{FTOF, CND},
		Layers:       []LayerID{FTOF1B, CND2},
		Particles:    []string{"el"},
		Fields:       []string{"time"},
	})
	require.NoError(t, r.Build())

	record := recRecord([]float64{1}, []int32{11})
	record["REC_Calorimeter_pindex"] = []int16{0, 0, 0}
	record["REC_Calorimeter_detector"] = []int16{int16(ECAL), int16(ECAL), int16(ECAL)}
	record["REC_Calorimeter_layer"] = []int16{int16(ECIN), int16(PCAL), int16(PCAL)}
	record["REC_Calorimeter_energy"] = []float64{0.2, 0.5, 0.9}
	// CND layers are stored without their offset
	record["REC_Scintillator_pindex"] = []int16{0, 0, 0}
	record["REC_Scintillator_detector"] = []int16{int16(CND), int16(FTOF), int16(FTOF)}
	record["REC_Scintillator_layer"] = []int16{2, 2, 1}
	record["REC_Scintillator_time"] = []float64{11, 12, 13}
	e := newEvent(t, r, record)

	assert.Equal(t, 0.5, get[float64](t, e, "el_PCAL_energy"))
	assert.Equal(t, 0.2, get[float64](t, e, "el_ECIN_energy"))
	assert.Equal(t, 0.0, get[float64](t, e, "el_ECOUT_energy"))
	assert.Equal(t, 12.0, get[float64](t, e, "el_FTOF1B_time"))
	assert.Equal(t, 11.0, get[float64](t, e, "el_CND2_time"))
	// a layer not found in a detector keeps a generated name
	assert.Equal(t, 0.0, get[float64](t, e, "el_FTOFL152_time"))
	assert.Equal(t, 0.0, get[float64](t, e, "el_CNDL2_time"))
}

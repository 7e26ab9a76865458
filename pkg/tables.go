package reaction

import "fmt"

// DetectorID identifies a CLAS12 detector in the detector banks.
type DetectorID int16

const (
	BMT    DetectorID = 1
	CND    DetectorID = 3
	CTOF   DetectorID = 4
	CVT    DetectorID = 5
	DC     DetectorID = 6
	ECAL   DetectorID = 7
	FMT    DetectorID = 8
	FTCAL  DetectorID = 10
	FTHODO DetectorID = 11
	FTOF   DetectorID = 12
	FTTRK  DetectorID = 13
	HTCC   DetectorID = 15
	LTCC   DetectorID = 16
	RF     DetectorID = 17
	RICH   DetectorID = 18
	RTPC   DetectorID = 19
	HEL    DetectorID = 20
	BAND   DetectorID = 21
)

// LayerID identifies a layer within a detector. Scintillator layers of the
// central detectors are offset so they stay distinct from the FTOF panels.
type LayerID int16

const (
	FTOF1A LayerID = 1
	FTOF1B LayerID = 2
	FTOF2  LayerID = 3

	CNDOFF LayerID = 150
	CND1   LayerID = 151
	CND2   LayerID = 152
	CND3   LayerID = 153

	PCAL  LayerID = 1
	ECIN  LayerID = 4
	ECOUT LayerID = 7

	// trajectory layers
	DC1 LayerID = 6
	DC2 LayerID = 12
	DC3 LayerID = 18
	DC4 LayerID = 24
	DC5 LayerID = 30
	DC6 LayerID = 36

	BANDOFF LayerID = 250
	BTOF1   LayerID = 251
	BTOF2   LayerID = 252
	BTOF3   LayerID = 253
	BTOF4   LayerID = 254
	BTOF5   LayerID = 255
	BVETO   LayerID = 256
)

// LayerKey converts the layer stored in a bank to the LayerID compared
// against the constants above.
func LayerKey(det DetectorID, layer int16) LayerID {
	switch det {
	case CND:
		return CNDOFF + LayerID(layer)
	case BAND:
		return BANDOFF + LayerID(layer)
	}
	return LayerID(layer)
}

// Detector regions, as stored in the particle status word.
const (
	RegionFT = 1000
	RegionFD = 2000
	RegionCD = 3000
	RegionBD = 4000
)

// UndefinedPDG is the tag of particles with no identified species.
const UndefinedPDG int32 = 10000

// Tables holds the static lookup data of a run: particle masses by PDG code
// and detector names by id. It is built once and never modified.
type Tables struct {
	masses    map[int32]float64
	detectors map[DetectorID]string
}

// NewTables copies the given maps into an immutable Tables.
func NewTables(masses map[int32]float64, detectors map[DetectorID]string) Tables {
	t := Tables{
		masses:    make(map[int32]float64, len(masses)),
		detectors: make(map[DetectorID]string, len(detectors)),
	}
	for k, v := range masses {
		t.masses[k] = v
	}
	for k, v := range detectors {
		t.detectors[k] = v
	}
	return t
}

// DefaultTables returns the PDG masses (GeV) and CLAS12 detector names used
// when no database is available.
func DefaultTables() Tables {
	return NewTables(
		map[int32]float64{
			11:    0.00051099900,
			-11:   0.00051099900,
			211:   0.13957040,
			-211:  0.13957040,
			321:   0.49367700,
			-321:  0.49367700,
			2212:  0.93827210,
			-2212: 0.93827210,
			2112:  0.93956540,
			22:    0,
			45:    1.875612, // CLAS12 deuteron
		},
		map[DetectorID]string{
			FTOF:   "FTOF",
			CTOF:   "CTOF",
			CND:    "CND",
			CVT:    "CVT",
			DC:     "DC",
			ECAL:   "ECAL",
			FTCAL:  "FTCAL",
			FTTRK:  "FTTRK",
			FTHODO: "FTHODO",
			HTCC:   "HTCC",
			LTCC:   "LTCC",
			BMT:    "BMT",
			FMT:    "FMT",
			RF:     "RF",
			RICH:   "RICH",
			RTPC:   "RTPC",
			HEL:    "HEL",
			BAND:   "BAND",
		},
	)
}

// Merge returns a new Tables with the entries of other overriding t.
func (t Tables) Merge(other Tables) Tables {
	merged := NewTables(t.masses, t.detectors)
	for k, v := range other.masses {
		merged.masses[k] = v
	}
	for k, v := range other.detectors {
		merged.detectors[k] = v
	}
	return merged
}

// Mass returns the mass of a PDG code, 0 if unknown.
func (t Tables) Mass(pdg int32) float64 {
	return t.masses[pdg]
}

// DetectorName returns the name of a detector id. Unknown ids get a
// generated name so column names stay unique.
func (t Tables) DetectorName(id DetectorID) string {
	if name, ok := t.detectors[id]; ok {
		return name
	}
	return fmt.Sprintf("DET%d", id)
}

// LayerName returns the name of a layer of det, e.g. PCAL or FTOF1B.
// Unknown layers are named after the detector and the layer number.
func (t Tables) LayerName(det DetectorID, layer LayerID) string {
	switch det {
	case FTOF:
		switch layer {
		case FTOF1A:
			return "FTOF1A"
		case FTOF1B:
			return "FTOF1B"
		case FTOF2:
			return "FTOF2"
		}
	case CND:
		if layer > CNDOFF && layer <= CND3 {
			return fmt.Sprintf("CND%d", layer-CNDOFF)
		}
	case ECAL:
		switch layer {
		case PCAL:
			return "PCAL"
		case ECIN:
			return "ECIN"
		case ECOUT:
			return "ECOUT"
		}
	case DC:
		if layer >= DC1 && layer <= DC6 && layer%DC1 == 0 {
			return fmt.Sprintf("DC%d", layer/DC1)
		}
	case BAND:
		if layer > BANDOFF && layer <= BTOF5 {
			return fmt.Sprintf("BTOF%d", layer-BANDOFF)
		}
		if layer == BVETO {
			return "BVETO"
		}
	}
	return fmt.Sprintf("%sL%d", t.DetectorName(det), layer)
}

// AssignMasses maps a tag array to masses.
func (t Tables) AssignMasses(pid []int32) []float64 {
	masses := make([]float64, len(pid))
	for i, p := range pid {
		masses[i] = t.Mass(p)
	}
	return masses
}

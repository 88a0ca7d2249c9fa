package models

// Grade is an ISO letter grade. A is best, F is failing.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// gradeRank orders grades from worst (0) to best (4).
var gradeRank = map[Grade]int{GradeF: 0, GradeD: 1, GradeC: 2, GradeB: 3, GradeA: 4}

// Rank returns 0 for F up to 4 for A; unknown grades rank as F.
func (g Grade) Rank() int {
	return gradeRank[g]
}

// Worse reports whether g is strictly worse than other.
func (g Grade) Worse(other Grade) bool {
	return g.Rank() < other.Rank()
}

// Numeric returns the ISO numeric equivalent (A=4 ... F=0).
func (g Grade) Numeric() float64 {
	return float64(g.Rank())
}

// Metric names. 15415 metrics apply to matrix symbols, 15416 metrics to linear ones.
const (
	MetricSymbolContrast        = "Symbol Contrast"
	MetricModulation            = "Modulation"
	MetricFixedPatternDamage    = "Fixed Pattern Damage"
	MetricAxialNonUniformity    = "Axial Non-uniformity"
	MetricGridNonUniformity     = "Grid Non-uniformity"
	MetricUnusedErrorCorrection = "Unused Error Correction"
	MetricQuietZone             = "Quiet Zone"
	MetricMinReflectance        = "Minimum Reflectance"
	MetricEdgeContrast          = "Edge Contrast"
	MetricDefects               = "Defects"
	MetricDecodability          = "Decodability"
	MetricDecode                = "Decode"
)

// MetricResult is one measured and graded quality parameter.
type MetricResult struct {
	Name string `json:"name"`
	// RawValue is the measured quantity in its natural unit, clamped to [0,1].
	RawValue float64 `json:"raw_value"`
	// Score is the higher-is-better value in [0,1] the grade is derived from.
	Score float64 `json:"score"`
	Grade Grade   `json:"grade"`
	// Pass is true for grades C and better.
	Pass bool `json:"pass"`
	// PassFail marks metrics that only grade A or F.
	PassFail bool `json:"pass_fail,omitempty"`
}

// DecodeResult is the outcome of reading the symbol's payload.
type DecodeResult struct {
	Succeeded bool    `json:"succeeded"`
	Payload   *string `json:"payload"`
	Symbology string  `json:"symbology"`
	Error     string  `json:"error,omitempty"`
	// Corrected and Capacity describe error correction use, where the symbology has it.
	Corrected int `json:"corrected,omitempty"`
	Capacity  int `json:"capacity,omitempty"`
}

// ScanLinePoint is one sample of the reflectance profile.
type ScanLinePoint struct {
	Position float64 `json:"position"`
	Value    float64 `json:"value"`
}

// ImageSize is the captured image's pixel dimensions.
type ImageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Bounds is the pixel rectangle a located symbol covers, quiet zones excluded.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// SymbolReport is the immutable result of one verification run. Two runs over
// the same image and calibration produce byte-identical JSON.
type SymbolReport struct {
	Checksum     string          `json:"checksum"`
	Symbology    string          `json:"symbology"`
	Standard     string          `json:"standard"`
	OverallGrade Grade           `json:"grade"`
	Metrics      []MetricResult  `json:"metrics"`
	Decode       DecodeResult    `json:"decode"`
	DecodedData  *string         `json:"decoded_data"`
	ScanLine     []ScanLinePoint `json:"scan_line"`
	Image        ImageSize       `json:"image"`
	Bounds       Bounds          `json:"bounds"`
	ModuleSize   float64         `json:"module_size"`
	Rotation     int             `json:"rotation"`
	Warnings     []string        `json:"warnings"`
}

// Scores returns metric scores keyed by metric name.
func (r *SymbolReport) Scores() map[string]float64 {
	scores := make(map[string]float64, len(r.Metrics))
	for _, m := range r.Metrics {
		scores[m.Name] = m.Score
	}
	return scores
}

// Metric looks a metric up by name.
func (r *SymbolReport) Metric(name string) (MetricResult, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return MetricResult{}, false
}

// HRIResult compares the human-readable text printed with a linear symbol
// against its decoded payload.
type HRIResult struct {
	Text            string  `json:"text"`
	Expected        string  `json:"expected"`
	EditDistance    int     `json:"edit_distance"`
	MatchScore      float64 `json:"match_score"`
	WordErrorRate   float64 `json:"word_error_rate"`
	Match           bool    `json:"match"`
	ProcessingError string  `json:"processing_error,omitempty"`
}

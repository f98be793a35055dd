package core

import "fmt"

// Stage identifies one generation step of the pipeline. The value doubles as
// the top-level key each stage's reply must carry.
type Stage string

const (
	StageFeatures   Stage = "features"
	StageTestPoints Stage = "test_points"
	StageTestCases  Stage = "test_cases"
)

// Feature is a product capability extracted from the requirements document.
type Feature struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// TestPoint is a single verification concern for one feature.
type TestPoint struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`     // functional/performance/security/...
	Priority       string `json:"priority"` // free-form label, e.g. High/Medium/Low
	Description    string `json:"description"`
	Precondition   string `json:"precondition"`
	ExpectedResult string `json:"expected_result"`
}

// TestStep is one ordered action inside a test case.
type TestStep struct {
	Step     int    `json:"step"`
	Action   string `json:"action"`
	Expected string `json:"expected"`
}

// TestCase is an executable test derived from one test point. CaseID comes
// from the model and is not guaranteed unique; the quality package flags
// duplicates.
type TestCase struct {
	CaseID         string     `json:"case_id"`
	Title          string     `json:"title"`
	Priority       string     `json:"priority"`
	Precondition   string     `json:"precondition"`
	TestSteps      []TestStep `json:"test_steps"`
	TestData       string     `json:"test_data"`
	ExpectedResult string     `json:"expected_result"`
	Postcondition  string     `json:"postcondition"`
}

// Position addresses one test-point slot: the feature index and the test
// point index within that feature, both zero-based. It replaces ad hoc
// "i,j" string keys as the composite map key.
type Position struct {
	Feature   int
	TestPoint int
}

func (p Position) String() string {
	return fmt.Sprintf("%d,%d", p.Feature, p.TestPoint)
}

// ParsePosition decodes the "i,j" form used in exported sessions.
func ParsePosition(s string) (Position, error) {
	var p Position
	if _, err := fmt.Sscanf(s, "%d,%d", &p.Feature, &p.TestPoint); err != nil {
		return Position{}, fmt.Errorf("invalid position %q: %w", s, err)
	}
	return p, nil
}

// Session holds everything one pipeline run produces. Each run owns its
// session; stages replace their slot wholesale rather than mutating records
// in place, and there is no shared state between concurrent sessions.
type Session struct {
	Document     string
	DocumentName string
	Features     []Feature
	TestPoints   map[int][]TestPoint
	TestCases    map[Position][]TestCase
}

// NewSession creates an empty session for the given document text.
func NewSession(document, name string) *Session {
	return &Session{
		Document:     document,
		DocumentName: name,
		TestPoints:   make(map[int][]TestPoint),
		TestCases:    make(map[Position][]TestCase),
	}
}

// Feature returns the feature at idx.
func (s *Session) Feature(idx int) (Feature, error) {
	if idx < 0 || idx >= len(s.Features) {
		return Feature{}, fmt.Errorf("invalid feature index %d (have %d features)", idx, len(s.Features))
	}
	return s.Features[idx], nil
}

// TestPoint returns the test point addressed by pos.
func (s *Session) TestPoint(pos Position) (TestPoint, error) {
	points, ok := s.TestPoints[pos.Feature]
	if !ok {
		return TestPoint{}, fmt.Errorf("no test points generated for feature %d", pos.Feature)
	}
	if pos.TestPoint < 0 || pos.TestPoint >= len(points) {
		return TestPoint{}, fmt.Errorf("invalid test point index %d for feature %d (have %d)", pos.TestPoint, pos.Feature, len(points))
	}
	return points[pos.TestPoint], nil
}

// SetFeatures replaces the feature batch. Downstream slots are keyed by
// feature index, so a new batch invalidates all of them.
func (s *Session) SetFeatures(features []Feature) {
	s.Features = features
	s.TestPoints = make(map[int][]TestPoint)
	s.TestCases = make(map[Position][]TestCase)
}

// SetTestPoints replaces one feature's test points and drops the test cases
// that hang off the old ones.
func (s *Session) SetTestPoints(featureIdx int, points []TestPoint) {
	s.TestPoints[featureIdx] = points
	for pos := range s.TestCases {
		if pos.Feature == featureIdx {
			delete(s.TestCases, pos)
		}
	}
}

// SetTestCases replaces one slot's test cases (last writer wins).
func (s *Session) SetTestCases(pos Position, cases []TestCase) {
	s.TestCases[pos] = cases
}

// PipelineConfig configures generation behavior.
type PipelineConfig struct {
	// MaxFeatures caps how many features the full-pipeline mode expands into
	// test points. 0 means no cap.
	MaxFeatures int `yaml:"max_features"`

	// MaxTestPoints caps how many test points per feature get test cases.
	// 0 means no cap.
	MaxTestPoints int `yaml:"max_test_points"`

	// Per-stage model overrides, passed through to the generator.
	FeatureModel   string `yaml:"feature_model"`
	TestPointModel string `yaml:"test_point_model"`
	TestCaseModel  string `yaml:"test_case_model"`
}

// ModelForStage returns the model override for a stage, or "" for the
// generator's default.
func (c PipelineConfig) ModelForStage(stage Stage) string {
	switch stage {
	case StageFeatures:
		return c.FeatureModel
	case StageTestPoints:
		return c.TestPointModel
	case StageTestCases:
		return c.TestCaseModel
	}
	return ""
}

// DefaultPipelineConfig returns sensible defaults.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{}
}

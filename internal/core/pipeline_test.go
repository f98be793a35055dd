package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type genCall struct {
	model  string
	system string
	user   string
}

type scriptStep struct {
	reply  string
	err    error
	deltas []string
}

// scriptedGen replays a fixed sequence of replies, one per generator call,
// and records every call it receives.
type scriptedGen struct {
	steps []scriptStep
	calls []genCall
	next  int
}

func (g *scriptedGen) take() scriptStep {
	if g.next >= len(g.steps) {
		return scriptStep{err: errors.New("scripted generator exhausted")}
	}
	s := g.steps[g.next]
	g.next++
	return s
}

func (g *scriptedGen) Complete(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	g.calls = append(g.calls, genCall{model: model, system: systemPrompt, user: userPrompt})
	s := g.take()
	return s.reply, s.err
}

func (g *scriptedGen) Stream(ctx context.Context, model, systemPrompt, userPrompt string) (<-chan string, <-chan error) {
	g.calls = append(g.calls, genCall{model: model, system: systemPrompt, user: userPrompt})
	s := g.take()
	deltas := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(deltas)
		for _, d := range s.deltas {
			select {
			case deltas <- d:
			case <-ctx.Done():
				return
			}
		}
		if s.err != nil {
			errs <- s.err
		}
	}()
	return deltas, errs
}

const featuresReply = `{"features": [
  {"id": 1, "name": "Login", "description": "Users can log in"},
  {"id": 2, "name": "Search", "description": "Users can search"}
]}`

const testPointsReply = `{"test_points": [
  {"id": 1, "name": "Valid login", "type": "functional", "priority": "High",
   "description": "Correct credentials succeed", "precondition": "Account exists",
   "expected_result": "User is logged in"}
]}`

const testCasesReply = `{"test_cases": [
  {"case_id": "TC-001", "title": "Login with valid credentials", "priority": "High",
   "precondition": "Account exists",
   "test_steps": [{"step": 1, "action": "Submit credentials", "expected": "Redirect to home"}],
   "test_data": "user / secret", "expected_result": "Session created", "postcondition": "User logged in"}
]}`

func newTestPipeline(gen Generator, cfg PipelineConfig) *Pipeline {
	return NewPipeline(gen, &Library{}, cfg)
}

func TestGenerateFeaturesSuccess(t *testing.T) {
	gen := &scriptedGen{steps: []scriptStep{{reply: "Sure!\n```json\n" + featuresReply + "\n```"}}}
	p := newTestPipeline(gen, PipelineConfig{})
	sess := NewSession("The product lets users log in and search.", "prd.md")

	features, surface, err := p.GenerateFeatures(context.Background(), sess, StageOptions{})
	require.NoError(t, err)
	require.Len(t, features, 2)
	assert.Equal(t, "Login", features[0].Name)
	assert.Equal(t, features, sess.Features)
	assert.Contains(t, surface, "## Generated Features")
	assert.Contains(t, surface, "### 1. Login")

	require.Len(t, gen.calls, 1)
	assert.Contains(t, gen.calls[0].user, "The product lets users log in and search.")
}

func TestGenerateFeaturesSchemaViolations(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		reason string
	}{
		{"wrong key", `{"items": [1]}`, "missing \"features\" field"},
		{"empty array", `{"features": []}`, "no features generated"},
		{"array payload", `[1, 2, 3]`, "not a JSON object"},
		{"records of wrong shape", `{"features": {"id": 1}}`, "not an array of records"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &scriptedGen{steps: []scriptStep{{reply: tt.reply}}}
			p := newTestPipeline(gen, PipelineConfig{})
			sess := NewSession("doc", "prd.md")

			features, surface, err := p.GenerateFeatures(context.Background(), sess, StageOptions{})
			assert.Nil(t, features)
			assert.Empty(t, sess.Features)

			var stageErr *StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, StageFeatures, stageErr.Stage)

			var schemaErr *SchemaViolationError
			require.ErrorAs(t, err, &schemaErr)
			assert.Contains(t, schemaErr.Reason, tt.reason)

			assert.Contains(t, surface, "⚠️ Parse failed")
			assert.Contains(t, surface, "**Raw output:**")
		})
	}
}

func TestStageErrorRawIsBounded(t *testing.T) {
	long := "prefix " + strings.Repeat("x", 2000)
	gen := &scriptedGen{steps: []scriptStep{{reply: long}}}
	p := newTestPipeline(gen, PipelineConfig{})
	sess := NewSession("doc", "prd.md")

	_, _, err := p.GenerateFeatures(context.Background(), sess, StageOptions{})
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.LessOrEqual(t, len(stageErr.Raw), rawPreviewLimit+len("..."))
	assert.True(t, strings.HasPrefix(stageErr.Raw, "prefix "))
}

func TestGenerateFeaturesTransportErrorSurfacedVerbatim(t *testing.T) {
	transportErr := errors.New("connection refused")
	gen := &scriptedGen{steps: []scriptStep{{err: transportErr}}}
	p := newTestPipeline(gen, PipelineConfig{})
	sess := NewSession("doc", "prd.md")

	_, _, err := p.GenerateFeatures(context.Background(), sess, StageOptions{})
	require.ErrorIs(t, err, transportErr)
	assert.Len(t, gen.calls, 1, "transport failures are never retried")
}

func TestGenerateFeaturesFailureClearsStaleBatch(t *testing.T) {
	gen := &scriptedGen{steps: []scriptStep{
		{reply: featuresReply},
		{reply: "no json here"},
	}}
	p := newTestPipeline(gen, PipelineConfig{})
	sess := NewSession("doc", "prd.md")

	_, _, err := p.GenerateFeatures(context.Background(), sess, StageOptions{})
	require.NoError(t, err)
	require.Len(t, sess.Features, 2)

	_, _, err = p.GenerateFeatures(context.Background(), sess, StageOptions{})
	require.Error(t, err)
	assert.Empty(t, sess.Features, "a failed regeneration must not leave the old batch behind")
}

func TestGenerateTestPointsUsesFeatureContext(t *testing.T) {
	gen := &scriptedGen{steps: []scriptStep{{reply: testPointsReply}}}
	p := newTestPipeline(gen, PipelineConfig{})
	sess := NewSession("doc", "prd.md")
	sess.SetFeatures([]Feature{{ID: 1, Name: "Login", Description: "Users can log in"}})

	points, surface, err := p.GenerateTestPoints(context.Background(), sess, 0, StageOptions{})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "Valid login", points[0].Name)
	assert.Equal(t, points, sess.TestPoints[0])
	assert.Contains(t, surface, "## Feature: Login")

	require.Len(t, gen.calls, 1)
	assert.Contains(t, gen.calls[0].user, "Feature: Login")
	assert.Contains(t, gen.calls[0].user, "Users can log in")
}

func TestGenerateTestPointsInvalidIndex(t *testing.T) {
	gen := &scriptedGen{}
	p := newTestPipeline(gen, PipelineConfig{})
	sess := NewSession("doc", "prd.md")

	_, _, err := p.GenerateTestPoints(context.Background(), sess, 3, StageOptions{})
	require.Error(t, err)
	assert.Empty(t, gen.calls, "no generator call for an invalid index")
}

func TestGenerateTestCasesSuccess(t *testing.T) {
	gen := &scriptedGen{steps: []scriptStep{{reply: testCasesReply}}}
	p := newTestPipeline(gen, PipelineConfig{})
	sess := NewSession("doc", "prd.md")
	sess.SetFeatures([]Feature{{ID: 1, Name: "Login"}})
	sess.SetTestPoints(0, []TestPoint{{ID: 1, Name: "Valid login", Type: "functional", Priority: "High"}})

	pos := Position{Feature: 0, TestPoint: 0}
	cases, surface, err := p.GenerateTestCases(context.Background(), sess, pos, StageOptions{})
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "TC-001", cases[0].CaseID)
	assert.Equal(t, cases, sess.TestCases[pos])
	assert.Contains(t, surface, "### Test Point: Valid login")
	assert.Contains(t, gen.calls[0].user, "Test point: Valid login")
}

func TestStageOptionsInstructionAppendedToUserPrompt(t *testing.T) {
	gen := &scriptedGen{steps: []scriptStep{{reply: featuresReply}}}
	p := newTestPipeline(gen, PipelineConfig{})
	sess := NewSession("doc", "prd.md")

	_, _, err := p.GenerateFeatures(context.Background(), sess, StageOptions{Instruction: "focus on security features"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(gen.calls[0].user, "Additional requirement: focus on security features"))
}

func TestPerStageModelSelection(t *testing.T) {
	gen := &scriptedGen{steps: []scriptStep{
		{reply: featuresReply},
		{reply: testPointsReply},
	}}
	cfg := PipelineConfig{FeatureModel: "large-model", TestPointModel: "small-model"}
	p := newTestPipeline(gen, cfg)
	sess := NewSession("doc", "prd.md")

	_, _, err := p.GenerateFeatures(context.Background(), sess, StageOptions{})
	require.NoError(t, err)
	_, _, err = p.GenerateTestPoints(context.Background(), sess, 0, StageOptions{})
	require.NoError(t, err)

	assert.Equal(t, "large-model", gen.calls[0].model)
	assert.Equal(t, "small-model", gen.calls[1].model)
}

func TestStreamingSnapshotsGrowByPrefix(t *testing.T) {
	gen := &scriptedGen{steps: []scriptStep{{deltas: []string{"T", "h", "e"}}}}
	p := newTestPipeline(gen, PipelineConfig{})
	sess := NewSession("doc", "prd.md")

	var snapshots []string
	_, _, err := p.GenerateFeatures(context.Background(), sess, StageOptions{
		OnSnapshot: func(text string) { snapshots = append(snapshots, text) },
	})

	assert.Equal(t, []string{"T", "Th", "The"}, snapshots)
	// "The" is not JSON, so the final parse fails; the snapshots still arrived.
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "The", stageErr.Raw)
}

func TestStreamingParsesOnlyFinalText(t *testing.T) {
	// Every prefix except the last is invalid JSON; only the complete text
	// may be parsed.
	parts := []string{`{"features": [{"id": 1, `, `"name": "Login", `, `"description": "d"}]}`}
	gen := &scriptedGen{steps: []scriptStep{{deltas: parts}}}
	p := newTestPipeline(gen, PipelineConfig{})
	sess := NewSession("doc", "prd.md")

	var snapshots []string
	features, _, err := p.GenerateFeatures(context.Background(), sess, StageOptions{
		OnSnapshot: func(text string) { snapshots = append(snapshots, text) },
	})
	require.NoError(t, err)
	require.Len(t, features, 1)
	require.Len(t, snapshots, 3)
	for i := 1; i < len(snapshots); i++ {
		assert.True(t, strings.HasPrefix(snapshots[i], snapshots[i-1]), "snapshot %d must extend snapshot %d", i, i-1)
	}
}

func TestStreamingCancellationSkipsParsing(t *testing.T) {
	gen := &scriptedGen{steps: []scriptStep{{deltas: []string{"{\"features\"", ": [{\"id\": 1}]}"}}}}
	p := newTestPipeline(gen, PipelineConfig{})
	sess := NewSession("doc", "prd.md")

	ctx, cancel := context.WithCancel(context.Background())
	features, _, err := p.GenerateFeatures(ctx, sess, StageOptions{
		OnSnapshot: func(string) { cancel() },
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, features)
	assert.Empty(t, sess.Features)
}

func TestStreamingTransportErrorAfterPartialOutput(t *testing.T) {
	streamErr := errors.New("stream reset")
	gen := &scriptedGen{steps: []scriptStep{{deltas: []string{"{\"fea"}, err: streamErr}}}
	p := newTestPipeline(gen, PipelineConfig{})
	sess := NewSession("doc", "prd.md")

	_, _, err := p.GenerateFeatures(context.Background(), sess, StageOptions{OnSnapshot: func(string) {}})
	require.ErrorIs(t, err, streamErr)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "{\"fea", stageErr.Raw, "partial output is preserved for the report")
}

func TestRunFullPipeline(t *testing.T) {
	gen := &scriptedGen{steps: []scriptStep{
		{reply: featuresReply},    // 2 features
		{reply: testPointsReply},  // feature 0: 1 point
		{reply: testCasesReply},   // (0,0)
		{reply: testPointsReply},  // feature 1: 1 point
		{reply: testCasesReply},   // (1,0)
	}}
	p := newTestPipeline(gen, PipelineConfig{})
	sess := NewSession("doc", "prd.md")

	var started []string
	report, err := p.Run(context.Background(), sess, RunOptions{
		OnStageStart: func(stage Stage, pos Position) {
			started = append(started, string(stage)+"@"+pos.String())
		},
	})
	require.NoError(t, err)
	assert.Empty(t, report.Failures)

	assert.Len(t, sess.Features, 2)
	assert.Len(t, sess.TestPoints[0], 1)
	assert.Len(t, sess.TestPoints[1], 1)
	assert.Len(t, sess.TestCases[Position{Feature: 0, TestPoint: 0}], 1)
	assert.Len(t, sess.TestCases[Position{Feature: 1, TestPoint: 0}], 1)

	assert.Equal(t, []string{
		"features@-1,-1",
		"test_points@0,-1",
		"test_cases@0,0",
		"test_points@1,-1",
		"test_cases@1,0",
	}, started)
}

func TestRunIsolatesBranchFailures(t *testing.T) {
	gen := &scriptedGen{steps: []scriptStep{
		{reply: featuresReply},     // 2 features
		{reply: "garbage, no json"}, // feature 0 test points fail
		{reply: testPointsReply},   // feature 1: 1 point
		{reply: testCasesReply},    // (1,0)
	}}
	p := newTestPipeline(gen, PipelineConfig{})
	sess := NewSession("doc", "prd.md")

	report, err := p.Run(context.Background(), sess, RunOptions{})
	require.NoError(t, err, "branch failures never fail the run")

	require.Len(t, report.Failures, 1)
	failure := report.Failures[0]
	assert.Equal(t, StageTestPoints, failure.Stage)
	assert.Equal(t, Position{Feature: 0, TestPoint: -1}, failure.Pos)

	var stageErr *StageError
	require.ErrorAs(t, failure.Err, &stageErr)

	assert.NotContains(t, sess.TestPoints, 0)
	assert.Len(t, sess.TestPoints[1], 1)
	assert.Len(t, sess.TestCases[Position{Feature: 1, TestPoint: 0}], 1)
}

func TestRunFailsWhenFeatureStageFails(t *testing.T) {
	gen := &scriptedGen{steps: []scriptStep{{reply: "not json"}}}
	p := newTestPipeline(gen, PipelineConfig{})
	sess := NewSession("doc", "prd.md")

	_, err := p.Run(context.Background(), sess, RunOptions{})
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageFeatures, stageErr.Stage)
	assert.Len(t, gen.calls, 1, "nothing downstream runs without features")
}

func TestRunHonorsCaps(t *testing.T) {
	gen := &scriptedGen{steps: []scriptStep{
		{reply: featuresReply},   // 2 features, cap keeps 1
		{reply: testPointsReply}, // feature 0 only
		{reply: testCasesReply},
	}}
	p := newTestPipeline(gen, PipelineConfig{MaxFeatures: 1, MaxTestPoints: 5})
	sess := NewSession("doc", "prd.md")

	report, err := p.Run(context.Background(), sess, RunOptions{})
	require.NoError(t, err)
	assert.Empty(t, report.Failures)
	assert.Len(t, gen.calls, 3)
	assert.NotContains(t, sess.TestPoints, 1, "capped features get no test points")
}

func TestRunReportsSurfacesThroughCallback(t *testing.T) {
	gen := &scriptedGen{steps: []scriptStep{
		{reply: featuresReply},
		{reply: "broken"},
		{reply: testPointsReply},
		{reply: testCasesReply},
	}}
	p := newTestPipeline(gen, PipelineConfig{})
	sess := NewSession("doc", "prd.md")

	surfaces := map[string]string{}
	_, err := p.Run(context.Background(), sess, RunOptions{
		OnStageDone: func(stage Stage, pos Position, surface string, err error) {
			surfaces[string(stage)+"@"+pos.String()] = surface
		},
	})
	require.NoError(t, err)

	assert.Contains(t, surfaces["features@-1,-1"], "## Generated Features")
	assert.Contains(t, surfaces["test_points@0,-1"], "⚠️ Parse failed")
	assert.Contains(t, surfaces["test_points@1,-1"], "### Test Points")
}

package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/csdY123/Neusoft-TestCaseGen/internal/extract"
)

// Generator produces model completions. Implementations live in internal/llm;
// the interface is defined here so the pipeline does not depend on any
// transport. model selects a per-call override, "" means the generator's
// default. Generators never retry: a transport failure comes back verbatim.
type Generator interface {
	// Complete returns the full reply text in one call.
	Complete(ctx context.Context, model, systemPrompt, userPrompt string) (string, error)

	// Stream returns a channel of reply deltas and a channel for the terminal
	// error. The delta channel is closed when the reply is complete; the error
	// channel delivers at most one error and is then closed.
	Stream(ctx context.Context, model, systemPrompt, userPrompt string) (<-chan string, <-chan error)
}

// StageOptions tunes a single stage invocation.
type StageOptions struct {
	// Instruction is an extra operator requirement appended to the user
	// prompt, used for steering and regeneration.
	Instruction string

	// OnSnapshot, when set, switches the stage to streaming and receives the
	// accumulated reply text after every delta. Each call sees a strict
	// prefix-extension of the previous one.
	OnSnapshot func(text string)
}

// Pipeline runs the three generation stages against one session. It holds no
// session state itself, so one pipeline can serve many sessions.
type Pipeline struct {
	gen     Generator
	prompts *Library
	cfg     PipelineConfig
}

func NewPipeline(gen Generator, prompts *Library, cfg PipelineConfig) *Pipeline {
	if prompts == nil {
		prompts = &Library{}
	}
	return &Pipeline{gen: gen, prompts: prompts, cfg: cfg}
}

// GenerateFeatures runs the feature stage and replaces the session's feature
// batch on success. It returns the parsed features and a markdown rendering;
// on failure the surface string carries the operator-facing error report and
// the session's feature slot is cleared.
func (p *Pipeline) GenerateFeatures(ctx context.Context, sess *Session, opts StageOptions) ([]Feature, string, error) {
	text, err := p.run(ctx, StageFeatures, TemplateFeaturesSystem, TemplateFeaturesUser,
		map[string]string{"prd_text": sess.Document}, opts)
	if err == nil {
		var features []Feature
		err = p.decode(text, "features", &features)
		if err == nil {
			sess.SetFeatures(features)
			return features, RenderFeatures(features), nil
		}
	}
	sess.SetFeatures(nil)
	stageErr := newStageError(StageFeatures, text, err)
	return nil, stageErr.Surface(), stageErr
}

// GenerateTestPoints runs the test point stage for one feature and replaces
// that feature's test points on success.
func (p *Pipeline) GenerateTestPoints(ctx context.Context, sess *Session, featureIdx int, opts StageOptions) ([]TestPoint, string, error) {
	feature, err := sess.Feature(featureIdx)
	if err != nil {
		return nil, "", err
	}
	text, err := p.run(ctx, StageTestPoints, TemplateTestPointsSystem, TemplateTestPointsUser,
		map[string]string{
			"feature_name":        feature.Name,
			"feature_description": feature.Description,
			"prd_text":            sess.Document,
		}, opts)
	if err == nil {
		var points []TestPoint
		err = p.decode(text, "test_points", &points)
		if err == nil {
			sess.SetTestPoints(featureIdx, points)
			return points, RenderTestPoints(feature, points), nil
		}
	}
	delete(sess.TestPoints, featureIdx)
	stageErr := newStageError(StageTestPoints, text, err)
	return nil, stageErr.Surface(), stageErr
}

// GenerateTestCases runs the test case stage for one test point slot and
// replaces that slot's cases on success.
func (p *Pipeline) GenerateTestCases(ctx context.Context, sess *Session, pos Position, opts StageOptions) ([]TestCase, string, error) {
	feature, err := sess.Feature(pos.Feature)
	if err != nil {
		return nil, "", err
	}
	point, err := sess.TestPoint(pos)
	if err != nil {
		return nil, "", err
	}
	text, err := p.run(ctx, StageTestCases, TemplateTestCasesSystem, TemplateTestCasesUser,
		map[string]string{
			"feature_name":               feature.Name,
			"test_point_name":            point.Name,
			"test_point_description":     point.Description,
			"test_point_type":            point.Type,
			"test_point_priority":        point.Priority,
			"test_point_precondition":    point.Precondition,
			"test_point_expected_result": point.ExpectedResult,
			"prd_text":                   sess.Document,
		}, opts)
	if err == nil {
		var cases []TestCase
		err = p.decode(text, "test_cases", &cases)
		if err == nil {
			sess.SetTestCases(pos, cases)
			return cases, RenderTestCases(feature, point, cases), nil
		}
	}
	delete(sess.TestCases, pos)
	stageErr := newStageError(StageTestCases, text, err)
	return nil, stageErr.Surface(), stageErr
}

// run renders the stage prompts and obtains the reply text, streaming when a
// snapshot callback is present. Cancellation aborts the stream and surfaces
// the context error; nothing gets parsed in that case.
func (p *Pipeline) run(ctx context.Context, stage Stage, systemName, userName string, vars map[string]string, opts StageOptions) (string, error) {
	systemPrompt, err := p.prompts.Render(systemName, nil)
	if err != nil {
		return "", err
	}
	userPrompt, err := p.prompts.Render(userName, vars)
	if err != nil {
		return "", err
	}
	if opts.Instruction != "" {
		userPrompt += "\n\nAdditional requirement: " + opts.Instruction
	}

	model := p.cfg.ModelForStage(stage)
	if opts.OnSnapshot == nil {
		return p.gen.Complete(ctx, model, systemPrompt, userPrompt)
	}
	deltas, errs := p.gen.Stream(ctx, model, systemPrompt, userPrompt)
	return collect(ctx, deltas, errs, opts.OnSnapshot)
}

// collect drains a delta stream into the full reply text, reporting each
// accumulated prefix through onSnapshot.
func collect(ctx context.Context, deltas <-chan string, errs <-chan error, onSnapshot func(string)) (string, error) {
	var b strings.Builder
	for deltas != nil || errs != nil {
		// A callback may cancel the context; honor that before racing the
		// producer for the next delta.
		if err := ctx.Err(); err != nil {
			return b.String(), err
		}
		select {
		case <-ctx.Done():
			return b.String(), ctx.Err()
		case d, ok := <-deltas:
			if !ok {
				deltas = nil
				continue
			}
			b.WriteString(d)
			if onSnapshot != nil {
				onSnapshot(b.String())
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return b.String(), err
			}
		}
	}
	return b.String(), nil
}

// decode extracts the JSON payload from reply text and unpacks the stage's
// envelope: a JSON object holding a non-empty array of records under key.
// out must be a pointer to the record slice.
func (p *Pipeline) decode(text, key string, out any) error {
	raw, err := extract.Extract(text)
	if err != nil {
		return err
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return &SchemaViolationError{Key: key, Reason: "payload is not a JSON object"}
	}
	items, ok := envelope[key]
	if !ok {
		return &SchemaViolationError{Key: key, Reason: fmt.Sprintf("missing %q field", key)}
	}
	if err := json.Unmarshal(items, out); err != nil {
		return &SchemaViolationError{Key: key, Reason: fmt.Sprintf("%q is not an array of records: %v", key, err)}
	}
	if emptySlice(items) {
		return &SchemaViolationError{Key: key, Reason: fmt.Sprintf("no %s generated", key)}
	}
	return nil
}

// emptySlice reports whether raw JSON holds null or an empty array.
func emptySlice(raw json.RawMessage) bool {
	var probe []json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return len(probe) == 0
}

// RunOptions configures a full pipeline run. The callbacks are optional. For
// the feature stage Pos carries -1 in both fields; for the test point stage
// Pos.TestPoint is -1.
type RunOptions struct {
	Instruction  string
	OnStageStart func(stage Stage, pos Position)
	OnSnapshot   func(stage Stage, pos Position, text string)
	OnStageDone  func(stage Stage, pos Position, surface string, err error)
}

// BranchFailure records one failed branch of a full run.
type BranchFailure struct {
	Stage Stage
	Pos   Position
	Err   error
}

// RunReport summarizes a full run. Failures holds every branch that failed
// while the rest of the run continued.
type RunReport struct {
	Failures []BranchFailure
}

// Run executes the whole pipeline: features once, then test points for each
// feature, then test cases for each test point. A branch failure is recorded
// and skipped without touching sibling branches; only a feature stage failure
// aborts the run, since nothing downstream can exist without features.
func (p *Pipeline) Run(ctx context.Context, sess *Session, opts RunOptions) (*RunReport, error) {
	report := &RunReport{}

	featurePos := Position{Feature: -1, TestPoint: -1}
	_, _, err := p.runStage(ctx, StageFeatures, featurePos, opts, func(so StageOptions) (int, string, error) {
		f, s, err := p.GenerateFeatures(ctx, sess, so)
		return len(f), s, err
	})
	if err != nil {
		return report, err
	}

	featureCount := capCount(len(sess.Features), p.cfg.MaxFeatures)
	for i := 0; i < featureCount; i++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		pointPos := Position{Feature: i, TestPoint: -1}
		_, _, err := p.runStage(ctx, StageTestPoints, pointPos, opts, func(so StageOptions) (int, string, error) {
			pts, s, err := p.GenerateTestPoints(ctx, sess, i, so)
			return len(pts), s, err
		})
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Failures = append(report.Failures, BranchFailure{Stage: StageTestPoints, Pos: pointPos, Err: err})
			continue
		}

		pointCount := capCount(len(sess.TestPoints[i]), p.cfg.MaxTestPoints)
		for j := 0; j < pointCount; j++ {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			pos := Position{Feature: i, TestPoint: j}
			_, _, err := p.runStage(ctx, StageTestCases, pos, opts, func(so StageOptions) (int, string, error) {
				cs, s, err := p.GenerateTestCases(ctx, sess, pos, so)
				return len(cs), s, err
			})
			if err != nil {
				if ctx.Err() != nil {
					return report, ctx.Err()
				}
				report.Failures = append(report.Failures, BranchFailure{Stage: StageTestCases, Pos: pos, Err: err})
			}
		}
	}

	return report, nil
}

// runStage adapts the run-level callbacks onto one stage invocation.
func (p *Pipeline) runStage(ctx context.Context, stage Stage, pos Position, opts RunOptions, invoke func(StageOptions) (int, string, error)) (int, string, error) {
	if opts.OnStageStart != nil {
		opts.OnStageStart(stage, pos)
	}
	so := StageOptions{Instruction: opts.Instruction}
	if opts.OnSnapshot != nil {
		so.OnSnapshot = func(text string) { opts.OnSnapshot(stage, pos, text) }
	}
	n, surface, err := invoke(so)
	if opts.OnStageDone != nil {
		opts.OnStageDone(stage, pos, surface, err)
	}
	return n, surface, err
}

func capCount(n, limit int) int {
	if limit > 0 && n > limit {
		return limit
	}
	return n
}

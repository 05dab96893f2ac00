package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/HendryAvila/specforge/internal/merge"
	"github.com/HendryAvila/specforge/internal/oracle"
	"github.com/HendryAvila/specforge/internal/spec"
	"github.com/HendryAvila/specforge/internal/stages"
	"github.com/HendryAvila/specforge/internal/store"
	"github.com/google/uuid"
)

// --- States ---

// StageState tracks one stage through the run.
type StageState string

const (
	StagePending    StageState = "pending"
	StageProcessing StageState = "processing"
	StageComplete   StageState = "complete"
	StageFailed     StageState = "failed"
)

// RunState tracks the whole pipeline.
type RunState string

const (
	RunRunning   RunState = "running"
	RunSucceeded RunState = "succeeded"
	RunFailed    RunState = "failed"
)

// --- Configuration ---

// Config is the explicit orchestrator configuration; there is no
// ambient process-wide state.
type Config struct {
	Retry RetryPolicy
	// StopOnValidationFailure halts the run when a stage's validation
	// report fails. Off by default: validation is a heuristic quality
	// signal, not a correctness gate.
	StopOnValidationFailure bool
	// PassThreshold is the fraction of individual validation checks
	// that must pass for the run to count as structurally valid.
	// Deliberately lenient; see stages.OverallPass.
	PassThreshold float64
	// DurationBudget is the runtime the quality scorer treats as full
	// performance credit.
	DurationBudget time.Duration
}

// DefaultConfig returns the standard policy values.
func DefaultConfig() Config {
	return Config{
		Retry:          DefaultRetryPolicy(),
		PassThreshold:  0.30,
		DurationBudget: 2 * time.Minute,
	}
}

// --- Requests and results ---

// Request describes one pipeline run.
type Request struct {
	// Command is the free-text request to turn into a specification.
	Command string
	// SpecID names the existing document to extend; empty creates a
	// fresh specification.
	SpecID string
	// RunID resumes a previous run from its last snapshot when set;
	// empty starts a new run.
	RunID string
	// Deletions is the optional explicit deletion instruction applied
	// by the merge engine. Deletion is never inferred from generation
	// output.
	Deletions *merge.Deletions
}

// StageResult is the per-stage slice of the execution report.
type StageResult struct {
	Stage      stages.Stage    `json:"stage"`
	State      StageState      `json:"state"`
	Output     *stages.Output  `json:"output,omitempty"`
	Insights   stages.Insights `json:"insights"`
	Validation stages.Report   `json:"validation"`
	Retries    int             `json:"retries"`
	Duration   time.Duration   `json:"duration"`
	Error      string          `json:"error,omitempty"`
}

// Result is the execution report. The orchestrator always returns one;
// callers inspect Success instead of catching errors.
type Result struct {
	Success          bool                `json:"success"`
	State            RunState            `json:"state"`
	RunID            string              `json:"run_id"`
	SpecID           string              `json:"spec_id,omitempty"`
	Version          int64               `json:"version,omitempty"`
	Spec             *spec.Specification `json:"spec,omitempty"`
	Stages           []StageResult       `json:"stages"`
	ValidationPassed bool                `json:"validation_passed"`
	Score            int                 `json:"score"`
	Errors           []string            `json:"errors,omitempty"`
	Warnings         []string            `json:"warnings,omitempty"`
	StartedAt        time.Time           `json:"started_at"`
	Duration         time.Duration       `json:"duration"`
}

// snapshot is what gets persisted after every completed stage so a
// crashed run can resume.
type snapshot struct {
	SpecID    string                          `json:"spec_id,omitempty"`
	Command   string                          `json:"command"`
	Completed []stages.Stage                  `json:"completed"`
	Outputs   map[stages.Stage]*stages.Output `json:"outputs"`
}

// --- Orchestrator ---

// Orchestrator drives the six stages in order, each through the retry
// controller, validator, and insight extractor, then reconciles the
// assembled document with the stored one and saves the result.
type Orchestrator struct {
	gen   oracle.Generator
	store store.Store
	sink  Sink
	cfg   Config
}

// New wires an orchestrator. The sink may be nil; events are then
// discarded.
func New(gen oracle.Generator, st store.Store, sink Sink, cfg Config) *Orchestrator {
	if sink == nil {
		sink = NullSink{}
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	if cfg.PassThreshold == 0 {
		cfg.PassThreshold = DefaultConfig().PassThreshold
	}
	return &Orchestrator{gen: gen, store: st, sink: sink, cfg: cfg}
}

func (o *Orchestrator) emit(e Event) {
	o.sink.Emit(e)
}

func (o *Orchestrator) emitRun(status EventStatus, format string, args ...any) {
	o.emit(Event{Status: status, Message: fmt.Sprintf(format, args...), Timestamp: timeNow()})
}

// Run executes the pipeline for one request. It always returns a
// Result; fatal conditions are reported through Result.Errors and the
// Success flag, never as a raised error.
func (o *Orchestrator) Run(ctx context.Context, req Request) *Result {
	started := timeNow()
	res := &Result{
		State:     RunRunning,
		RunID:     req.RunID,
		SpecID:    req.SpecID,
		StartedAt: started,
		Stages:    make([]StageResult, len(stages.Order)),
	}
	if res.RunID == "" {
		res.RunID = uuid.NewString()
	}
	for i, st := range stages.Order {
		res.Stages[i] = StageResult{Stage: st, State: StagePending}
	}
	defer func() { res.Duration = timeNow().Sub(started) }()

	o.emitRun(EventProcessing, "run %s started", res.RunID)

	// Load the existing document, if any. A missing id is first-time
	// creation; any other load failure is fatal, because merging
	// blindly could clobber the stored document.
	var existing *spec.Specification
	var version int64
	if req.SpecID != "" {
		var err error
		existing, version, err = o.store.Get(ctx, req.SpecID)
		if errors.Is(err, store.ErrNotFound) {
			existing, version = nil, 0
		} else if err != nil {
			return o.fail(res, fmt.Sprintf("loading specification %q: %v", req.SpecID, err))
		}
	}

	outputs := map[stages.Stage]*stages.Output{}
	completed := map[stages.Stage]bool{}
	var insights []stages.Insights

	if req.RunID != "" {
		o.restore(ctx, req, res, outputs, completed, &insights)
	}

	halted := false
	for i, st := range stages.Order {
		sr := &res.Stages[i]
		if completed[st] {
			continue
		}

		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("run cancelled before stage %s", st))
			halted = true
			break
		}

		// A stage only starts once every dependency produced usable
		// output. A failed dependency already halted the loop; this
		// guards resumed runs with corrupt or partial snapshots.
		if dep, ok := missingDependency(st, outputs); ok {
			res.Errors = append(res.Errors,
				fmt.Sprintf("stage %s requires output from %s, which produced none", st, dep))
			sr.State = StageFailed
			halted = true
			break
		}

		sr.State = StageProcessing
		stageStart := timeNow()

		bundle := oracle.ContextBundle{
			Command:  req.Command,
			Existing: existing,
			Insights: insights,
			Prior:    outputs,
		}

		var out *stages.Output
		_, retries, err := runWithRetry(ctx, o.cfg.Retry, st, o.emit, func(ctx context.Context) (json.RawMessage, error) {
			raw, genErr := o.gen.Generate(ctx, st, bundle)
			if genErr != nil {
				return nil, genErr
			}
			// Malformed output counts as a failed attempt: the oracle
			// is non-deterministic, so asking again is the remedy.
			decoded, decErr := stages.Decode(st, raw)
			if decErr != nil {
				return nil, decErr
			}
			out = decoded
			return raw, nil
		})
		sr.Retries = retries
		sr.Duration = timeNow().Sub(stageStart)

		if err != nil {
			sr.State = StageFailed
			sr.Error = err.Error()
			res.Errors = append(res.Errors, err.Error())
			halted = true
			break
		}
		if retries > 0 {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("stage %s succeeded after %d retries", st, retries))
		}

		sr.Output = out
		sr.Validation = stages.Validate(out)
		sr.Insights = stages.Extract(out)
		sr.State = StageComplete
		outputs[st] = out
		completed[st] = true
		insights = append(insights, sr.Insights)

		if !sr.Validation.Passed {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("stage %s validation failed: %s", st, reportReasons(sr.Validation)))
			if o.cfg.StopOnValidationFailure {
				res.Errors = append(res.Errors,
					fmt.Sprintf("halting at stage %s: validation failed and stop_on_validation_failure is set", st))
				halted = true
				o.snapshotStage(ctx, res, req, st, completed, outputs)
				break
			}
		}

		o.snapshotStage(ctx, res, req, st, completed, outputs)

		o.emit(Event{
			Stage:     st,
			Status:    EventComplete,
			Message:   sr.Insights.Summary,
			Timestamp: timeNow(),
		})
	}

	// Assemble and reconcile even on failure: the partial document is
	// part of the diagnostics. It is only persisted on success.
	incoming := assembleIncoming(req, existing, outputs)
	merged, mergeWarnings := merge.Merge(existing, incoming, req.Deletions)
	for _, w := range mergeWarnings {
		res.Warnings = append(res.Warnings, fmt.Sprintf("merge %s %q: %s", w.Collection, w.Item, w.Reason))
	}
	if existing != nil {
		merged.ID = existing.ID
	} else if req.SpecID != "" {
		merged.ID = req.SpecID
	}
	if merged.ID == "" {
		merged.ID = uuid.NewString()
	}
	merged.Touch()
	res.SpecID = merged.ID
	res.Spec = merged

	reports := make([]stages.Report, 0, len(res.Stages))
	totalRetries := 0
	for _, sr := range res.Stages {
		totalRetries += sr.Retries
		if sr.State == StageComplete {
			reports = append(reports, sr.Validation)
		}
	}
	res.ValidationPassed = stages.OverallPass(reports, o.cfg.PassThreshold)
	res.Score = Score(ScoreInputs{
		Reports:        reports,
		Spec:           merged,
		Duration:       timeNow().Sub(started),
		Retries:        totalRetries,
		DurationBudget: o.cfg.DurationBudget,
	})

	if halted {
		res.State = RunFailed
		o.emitRun(EventError, "run %s failed: %s", res.RunID, strings.Join(res.Errors, "; "))
		return res
	}

	// The final save is synchronous and must succeed: if it fails the
	// run failed, because the caller has no other way to obtain the
	// result.
	newVersion, err := o.store.Save(ctx, merged.ID, merged, version, runMetadata(res))
	if err != nil {
		return o.fail(res, fmt.Sprintf("saving merged specification %q: %v", merged.ID, err))
	}
	res.Version = newVersion
	res.Success = true
	res.State = RunSucceeded
	o.emitRun(EventComplete, "run %s succeeded: score %d, %d models, %d actions, %d schedules",
		res.RunID, res.Score, len(merged.Models), len(merged.Actions), len(merged.Schedules))
	return res
}

// fail finalizes a result as a structured failure.
func (o *Orchestrator) fail(res *Result, msg string) *Result {
	res.Errors = append(res.Errors, msg)
	res.Success = false
	res.State = RunFailed
	o.emitRun(EventError, "run %s failed: %s", res.RunID, msg)
	return res
}

// restore loads the latest snapshot for a resumed run and replays its
// completed stages into the result. Snapshot problems degrade to a
// fresh run with a warning; they are never fatal.
func (o *Orchestrator) restore(
	ctx context.Context,
	req Request,
	res *Result,
	outputs map[stages.Stage]*stages.Output,
	completed map[stages.Stage]bool,
	insights *[]stages.Insights,
) {
	_, payload, err := o.store.LatestSnapshot(ctx, req.RunID)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("resume: loading snapshot: %v", err))
		return
	}

	var snap snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("resume: decoding snapshot: %v", err))
		return
	}

	for _, st := range snap.Completed {
		out, ok := snap.Outputs[st]
		if !ok || out.Empty() {
			continue
		}
		i := stages.Index(st)
		if i < 0 {
			continue
		}
		outputs[st] = out
		completed[st] = true
		sr := &res.Stages[i]
		sr.State = StageComplete
		sr.Output = out
		sr.Validation = stages.Validate(out)
		sr.Insights = stages.Extract(out)
		*insights = append(*insights, sr.Insights)
	}
	if n := len(snap.Completed); n > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("resumed run %s: %d stages restored from snapshot", req.RunID, n))
	}
}

// snapshotStage persists the accumulated state after a stage. Snapshot
// failures cost resumability, not the run: they surface as warnings.
func (o *Orchestrator) snapshotStage(
	ctx context.Context,
	res *Result,
	req Request,
	st stages.Stage,
	completed map[stages.Stage]bool,
	outputs map[stages.Stage]*stages.Output,
) {
	snap := snapshot{
		SpecID:  req.SpecID,
		Command: req.Command,
		Outputs: outputs,
	}
	for _, s := range stages.Order {
		if completed[s] {
			snap.Completed = append(snap.Completed, s)
		}
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("snapshot after %s: %v", st, err))
		return
	}
	if err := o.store.SaveSnapshot(ctx, res.RunID, string(st), payload); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("snapshot after %s: %v", st, err))
	}
}

// missingDependency reports the first declared dependency of st whose
// output is absent or unusable.
func missingDependency(st stages.Stage, outputs map[stages.Stage]*stages.Output) (stages.Stage, bool) {
	for _, dep := range stages.Dependencies(st) {
		if outputs[dep].Empty() {
			return dep, true
		}
	}
	return "", false
}

// reportReasons joins the failure reasons of a validation report.
func reportReasons(r stages.Report) string {
	var reasons []string
	for _, c := range r.Checks {
		if !c.Passed {
			reasons = append(reasons, c.Reason)
		}
	}
	return strings.Join(reasons, "; ")
}

// assembleIncoming builds the freshly generated specification from the
// stage outputs. Each stage only ever contributed its own collection;
// this is where the slices meet.
func assembleIncoming(req Request, existing *spec.Specification, outputs map[stages.Stage]*stages.Output) *spec.Specification {
	s := &spec.Specification{Metadata: map[string]string{}}

	if o := outputs[stages.StageUnderstanding]; o != nil && o.Understanding != nil {
		u := o.Understanding
		s.Domain = u.Domain
		s.Description = u.Summary
		s.Metadata["analysis"] = u.Summary
		s.Metadata["complexity"] = string(u.Complexity)
	}
	if o := outputs[stages.StageStrategy]; o != nil && o.Strategy != nil {
		s.Metadata["approach"] = o.Strategy.Approach
	}
	if req.Command != "" {
		s.Metadata["last_command"] = req.Command
	}
	if existing == nil {
		s.Name = deriveName(req.Command)
	}

	if o := outputs[stages.StageModels]; o != nil && o.Models != nil {
		s.Models = o.Models.Models
	}
	if o := outputs[stages.StageActions]; o != nil && o.Actions != nil {
		s.Actions = o.Actions.Actions
	}
	if o := outputs[stages.StageSchedules]; o != nil && o.Schedules != nil {
		s.Schedules = o.Schedules.Schedules
	}
	return s
}

// deriveName titles a fresh specification after its command.
func deriveName(command string) string {
	command = strings.TrimSpace(command)
	if command == "" {
		return "Untitled Specification"
	}
	if len(command) > 60 {
		command = strings.TrimSpace(command[:60]) + "…"
	}
	return command
}

// runMetadata is the free-form metadata persisted with the final save.
func runMetadata(res *Result) store.Metadata {
	return store.Metadata{
		"run_id":            res.RunID,
		"score":             fmt.Sprintf("%d", res.Score),
		"validation_passed": fmt.Sprintf("%t", res.ValidationPassed),
	}
}

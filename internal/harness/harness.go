package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/marketledger/internal/engine"
	"github.com/roach88/marketledger/internal/ir"
	"github.com/roach88/marketledger/internal/schema"
	"github.com/roach88/marketledger/internal/store"
	"github.com/roach88/marketledger/internal/testutil"
)

// Harness is the scenario execution engine.
// It drives the real listing engine with a deterministic clock and ids.
type Harness struct {
	engine *engine.Engine
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results:
//   - entries are recorded one second apart from testutil.Epoch
//   - generated ids are LIST-0001, LIST-0002, ...
//
// The returned error is reserved for infrastructure failures; a scenario
// whose expectations are not met returns a Result with Pass=false.
func Run(scenario *Scenario) (*Result, error) {
	clock := testutil.NewDeterministicClock()
	st, err := store.Open(":memory:", store.WithClock(clock.Now))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in scenarios

	opts := []engine.EngineOption{
		engine.WithIDGenerator(testutil.NewSequentialIDGenerator(engine.DefaultIDPrefix)),
		engine.WithLogger(logger),
	}
	if !scenario.SkipValidation {
		validator, err := schema.New()
		if err != nil {
			return nil, fmt.Errorf("failed to compile listing schema: %w", err)
		}
		opts = append(opts, engine.WithValidator(validator))
	}

	h := &Harness{
		engine: engine.New(st, opts...),
		logger: logger,
	}

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Steps {
		outcome, err := h.executeStep(ctx, i, step)
		if err != nil {
			return nil, err
		}
		result.Steps = append(result.Steps, outcome)
		for _, msg := range checkExpect(outcome, step.Expect) {
			result.AddError(msg)
		}
	}

	log, err := st.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	result.Log = log

	for _, msg := range EvaluateAssertions(ctx, h.engine, result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// executeStep runs one step against the engine.
// Ledger errors become part of the outcome; other errors abort the run.
func (h *Harness) executeStep(ctx context.Context, index int, step Step) (StepOutcome, error) {
	outcome := StepOutcome{Index: index, Action: step.Action, EntityID: step.ID}
	caller := engine.Caller{ID: step.As, Admin: step.Admin}

	var (
		ent *ir.Entity
		err error
	)
	switch step.Action {
	case ActionCreate:
		fields, convErr := toPayload(step.Fields)
		if convErr != nil {
			return outcome, fmt.Errorf("steps[%d]: fields: %w", index, convErr)
		}
		ent, err = h.engine.Create(ctx, caller, engine.CreateRequest{ID: step.ID, Fields: fields})

	case ActionUpdate:
		fields, convErr := toPayload(step.Fields)
		if convErr != nil {
			return outcome, fmt.Errorf("steps[%d]: fields: %w", index, convErr)
		}
		ent, err = h.engine.Update(ctx, caller, engine.UpdateRequest{
			ID:              step.ID,
			Fields:          fields,
			ExpectedVersion: step.IfVersion,
		})

	case ActionSell:
		ent, err = h.engine.MarkSold(ctx, caller, engine.SaleRequest{
			ID:        step.ID,
			BuyerID:   step.Buyer,
			Documents: step.Documents,
		})

	case ActionDelist:
		ent, err = h.engine.Delist(ctx, caller, engine.DelistRequest{ID: step.ID, Reason: step.Reason})

	case ActionVerify:
		return h.verifyStep(ctx, index, step, outcome)

	default:
		return outcome, fmt.Errorf("steps[%d]: unknown action %q", index, step.Action)
	}

	if err != nil {
		return outcome, h.recordError(&outcome, err)
	}

	fillOutcome(&outcome, ent)
	h.logger.Info("scenario step completed",
		"step", index,
		"action", step.Action,
		"entity_id", ent.ID,
		"version", ent.Version,
	)
	return outcome, nil
}

// verifyStep verifies a listing, optionally after tampering with its
// projected fields.
func (h *Harness) verifyStep(ctx context.Context, index int, step Step, outcome StepOutcome) (StepOutcome, error) {
	if len(step.Tamper) == 0 {
		res, err := h.engine.Verify(ctx, step.ID)
		if err != nil {
			return outcome, h.recordError(&outcome, err)
		}
		return h.verifyOutcome(ctx, step.ID, outcome, res)
	}

	ent, err := h.engine.Get(ctx, step.ID)
	if err != nil {
		return outcome, h.recordError(&outcome, err)
	}
	tamper, err := toPayload(step.Tamper)
	if err != nil {
		return outcome, fmt.Errorf("steps[%d]: tamper: %w", index, err)
	}
	ent = ent.Clone()
	for k, v := range tamper {
		ent.Fields[k] = v
	}

	res, err := engine.VerifyProjected(ent)
	if err != nil {
		return outcome, h.recordError(&outcome, err)
	}
	fillOutcome(&outcome, ent)
	outcome.Hash = res.ComputedHash
	verified := res.Verified
	outcome.Verified = &verified
	return outcome, nil
}

// verifyOutcome fills a verify step's outcome from the stored listing.
func (h *Harness) verifyOutcome(ctx context.Context, id string, outcome StepOutcome, res ir.VerificationResult) (StepOutcome, error) {
	ent, err := h.engine.Get(ctx, id)
	if err != nil {
		return outcome, h.recordError(&outcome, err)
	}
	fillOutcome(&outcome, ent)
	outcome.Hash = res.ComputedHash
	verified := res.Verified
	outcome.Verified = &verified
	return outcome, nil
}

// recordError stores a ledger error code in outcome. Non-ledger errors are
// returned as infrastructure failures.
func (h *Harness) recordError(outcome *StepOutcome, err error) error {
	code := engine.CodeOf(err)
	if code == "" || code == engine.ErrCodeStorage {
		return fmt.Errorf("steps[%d] %s: %w", outcome.Index, outcome.Action, err)
	}
	outcome.Error = string(code)
	return nil
}

func fillOutcome(outcome *StepOutcome, ent *ir.Entity) {
	outcome.EntityID = ent.ID
	outcome.Status = ent.Status
	outcome.Version = ent.Version
	outcome.Hash = ent.CurrentHash
}

// checkExpect compares an outcome with its expect clause.
func checkExpect(outcome StepOutcome, expect *Expect) []string {
	prefix := fmt.Sprintf("steps[%d] %s", outcome.Index, outcome.Action)

	if expect == nil || expect.Error == "" {
		if outcome.Error != "" {
			return []string{fmt.Sprintf("%s: unexpected error %s", prefix, outcome.Error)}
		}
	} else if outcome.Error != expect.Error {
		got := outcome.Error
		if got == "" {
			got = "success"
		}
		return []string{fmt.Sprintf("%s: expected error %s, got %s", prefix, expect.Error, got)}
	}

	if expect == nil || outcome.Error != "" {
		return nil
	}

	var errs []string
	if expect.Status != "" && string(outcome.Status) != expect.Status {
		errs = append(errs, fmt.Sprintf("%s: expected status %s, got %s", prefix, expect.Status, outcome.Status))
	}
	if expect.Version != 0 && outcome.Version != expect.Version {
		errs = append(errs, fmt.Sprintf("%s: expected version %d, got %d", prefix, expect.Version, outcome.Version))
	}
	if expect.Hash != "" && outcome.Hash != expect.Hash {
		errs = append(errs, fmt.Sprintf("%s: expected hash %s, got %s", prefix, expect.Hash, outcome.Hash))
	}
	if expect.Verified != nil {
		switch {
		case outcome.Verified == nil:
			errs = append(errs, fmt.Sprintf("%s: expected verified=%t, step did not verify", prefix, *expect.Verified))
		case *outcome.Verified != *expect.Verified:
			errs = append(errs, fmt.Sprintf("%s: expected verified=%t, got %t", prefix, *expect.Verified, *outcome.Verified))
		}
	}
	return errs
}

// toPayload converts YAML-parsed fields to a payload.
// Nulls are rejected; a listing field is either present or absent.
func toPayload(fields map[string]interface{}) (ir.Payload, error) {
	for k, v := range fields {
		if v == nil {
			return nil, fmt.Errorf("field %q: null values are not allowed", k)
		}
	}
	return ir.NewPayload(fields)
}

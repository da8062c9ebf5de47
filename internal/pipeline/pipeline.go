// Package pipeline implements the Pipeline Driver (C12): the stage
// scheduler that selects submissions eligible for a stage, invokes the
// per-submission operation, and reports per-stage statistics. It mirrors
// the teacher's internal/scanner/block_scanner.go shape — a bounded
// range of work items processed one at a time with running counters —
// adapted from a block-height range to a status-filtered submission set.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/clanktank/judge-engine/internal/audit"
	"github.com/clanktank/judge-engine/internal/judging"
	"github.com/clanktank/judge-engine/internal/metrics"
	"github.com/clanktank/judge-engine/internal/research"
	"github.com/clanktank/judge-engine/internal/store"
	"github.com/clanktank/judge-engine/internal/synth"
	"github.com/clanktank/judge-engine/pkg/models"
)

// Stats tallies the outcome of a batch run. A non-empty Failures does
// not mean the stage call itself returned an error — per-submission
// failures are isolated and recorded here instead of aborting the rest
// of the batch.
type Stats struct {
	Processed int
	Succeeded int
	Failed    int
	Failures  map[string]string // submission_id -> error
}

func newStats() Stats {
	return Stats{Failures: make(map[string]string)}
}

func (s *Stats) record(stage, submissionID string, err error) {
	s.Processed++
	if err != nil {
		s.Failed++
		s.Failures[submissionID] = err.Error()
		metrics.RecordStage(stage, "failed")
		return
	}
	s.Succeeded++
	metrics.RecordStage(stage, "succeeded")
}

// Driver wires the three LLM-driven pipeline stages together with a
// shared audit log, giving the CLI one place to dispatch
// --submission-id/--all batches to without importing each stage package
// directly.
type Driver struct {
	store    *store.Store
	research *research.Orchestrator
	judging  *judging.Engine
	synth    *synth.Synthesizer
	audit    *audit.Log
}

func New(st *store.Store, ro *research.Orchestrator, je *judging.Engine, sy *synth.Synthesizer, al *audit.Log) *Driver {
	return &Driver{store: st, research: ro, judging: je, synth: sy, audit: al}
}

// ResearchBatch runs the research stage. With a non-empty submissionID it
// processes only that submission (its own schema version is resolved via
// a lookup); with all=true it processes every submitted submission
// across both schema versions, sequentially, isolating failures.
func (d *Driver) ResearchBatch(ctx context.Context, submissionID string, all, force bool) (Stats, error) {
	stats := newStats()
	if submissionID != "" {
		sub, err := d.store.FindSubmission(ctx, submissionID)
		if err != nil {
			return stats, fmt.Errorf("pipeline: failed to resolve submission %s: %w", submissionID, err)
		}
		err = d.research.Run(ctx, sub.SchemaVersion, submissionID, force)
		stats.record("research", submissionID, err)
		if err != nil {
			log.Printf("pipeline: research failed for %s: %v", submissionID, err)
		}
		return stats, nil
	}
	if !all {
		return stats, fmt.Errorf("pipeline: research requires --submission-id or --all")
	}

	subs, err := d.store.ListSubmissions(ctx, store.ListOptions{Statuses: []models.Status{models.StatusSubmitted}})
	if err != nil {
		return stats, fmt.Errorf("pipeline: failed to list submitted submissions: %w", err)
	}
	for _, sub := range subs {
		err := d.research.Run(ctx, sub.SchemaVersion, sub.SubmissionID, force)
		stats.record("research", sub.SubmissionID, err)
		if err != nil {
			log.Printf("pipeline: research failed for %s: %v — continuing with remaining submissions", sub.SubmissionID, err)
		}
	}
	return stats, nil
}

// JudgingBatch runs the four-judge scoring stage over researched
// submissions, same single/all shape as ResearchBatch.
func (d *Driver) JudgingBatch(ctx context.Context, submissionID string, all bool) (Stats, error) {
	stats := newStats()
	if submissionID != "" {
		sub, err := d.store.FindSubmission(ctx, submissionID)
		if err != nil {
			return stats, fmt.Errorf("pipeline: failed to resolve submission %s: %w", submissionID, err)
		}
		err = d.judging.Run(ctx, sub.SchemaVersion, submissionID)
		stats.record("judging", submissionID, err)
		if err != nil {
			log.Printf("pipeline: judging failed for %s: %v", submissionID, err)
		}
		return stats, nil
	}
	if !all {
		return stats, fmt.Errorf("pipeline: judging requires --submission-id or --all")
	}

	subs, err := d.store.ListSubmissions(ctx, store.ListOptions{Statuses: []models.Status{models.StatusResearched}})
	if err != nil {
		return stats, fmt.Errorf("pipeline: failed to list researched submissions: %w", err)
	}
	for _, sub := range subs {
		err := d.judging.Run(ctx, sub.SchemaVersion, sub.SubmissionID)
		stats.record("judging", sub.SubmissionID, err)
		if err != nil {
			log.Printf("pipeline: judging failed for %s: %v — continuing with remaining submissions", sub.SubmissionID, err)
		}
	}
	return stats, nil
}

// Synthesize runs the round-2 comparative pass over every scored
// submission. The Synthesizer computes cohort statistics across the
// whole scored population in one call, so unlike the other two stages
// there is no meaningful single-submission mode: --submission-id is
// accepted by the CLI for a uniform flag surface but has no effect here.
func (d *Driver) Synthesize(ctx context.Context) (Stats, error) {
	stats := newStats()
	before, err := d.store.ListSubmissions(ctx, store.ListOptions{Statuses: []models.Status{models.StatusScored}})
	if err != nil {
		return stats, fmt.Errorf("pipeline: failed to list scored submissions: %w", err)
	}
	if err := d.synth.Run(ctx); err != nil {
		for _, sub := range before {
			stats.record("synthesize", sub.SubmissionID, err)
		}
		return stats, err
	}
	for _, sub := range before {
		stats.record("synthesize", sub.SubmissionID, nil)
	}
	return stats, nil
}

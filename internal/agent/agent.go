package agent

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/shahidattar7777/pharma-doc-agent/internal/generate"
	"github.com/shahidattar7777/pharma-doc-agent/internal/models"
	"github.com/shahidattar7777/pharma-doc-agent/internal/prompt"
	"github.com/shahidattar7777/pharma-doc-agent/internal/retriever"
)

// State is the workflow position of a single question run.
type State string

const (
	StateStart      State = "START"
	StateRetrieving State = "RETRIEVING"
	StateGenerating State = "GENERATING"
	StateDone       State = "DONE"
	StateFailed     State = "FAILED"
)

// Run holds the full state of one retrieve-then-generate pass. Single-turn:
// nothing carries over between runs.
type Run struct {
	ID        uuid.UUID
	State     State
	Question  string
	Retrieved models.RetrievalResult
	Answer    models.Answer
	Err       error
}

// Agent sequences retrieval and generation for one question at a time.
type Agent struct {
	retriever *retriever.Retriever
	generator *generate.Generator
}

func New(r *retriever.Retriever, g *generate.Generator) *Agent {
	return &Agent{retriever: r, generator: g}
}

// Ask drives a run through START → RETRIEVING → GENERATING → DONE. The
// RETRIEVING → GENERATING transition is unconditional: an empty retrieval
// flows into the prompt builder's no-source path instead of blocking.
// Unrecoverable errors move the run to FAILED and are returned typed
// (RetrievalError or GenerationError) with the run for inspection.
func (a *Agent) Ask(ctx context.Context, question string, k int) (*Run, error) {
	run := &Run{
		ID:       uuid.New(),
		State:    StateStart,
		Question: question,
	}

	run.State = StateRetrieving
	log.Debug().Str("run_id", run.ID.String()).Str("state", string(run.State)).Msg("Retrieving")

	retrieved, err := a.retriever.Retrieve(ctx, question, k)
	if err != nil {
		return run.fail(err), err
	}
	run.Retrieved = retrieved
	if retrieved.Empty() {
		log.Warn().Str("run_id", run.ID.String()).Msg("No chunks retrieved, answering via no-source path")
	}

	run.State = StateGenerating
	log.Debug().Str("run_id", run.ID.String()).Str("state", string(run.State)).Msg("Generating")

	p := prompt.Build(question, retrieved)
	answer, err := a.generator.Generate(ctx, p, retrieved)
	if err != nil {
		return run.fail(err), err
	}
	run.Answer = answer

	run.State = StateDone
	log.Debug().Str("run_id", run.ID.String()).Str("state", string(run.State)).Int("citations", len(answer.Citations)).Msg("Done")
	return run, nil
}

func (r *Run) fail(err error) *Run {
	r.State = StateFailed
	r.Err = err
	log.Error().Str("run_id", r.ID.String()).Err(err).Msg("Run failed")
	return r
}

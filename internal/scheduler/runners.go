package scheduler

import (
	"context"

	"rhythm/internal/creative"
	"rhythm/internal/ensemble"
	"rhythm/internal/library"
	"rhythm/internal/probes"
	"rhythm/internal/trackwriter"
)

// TechnicalOutput bundles the technical phase results.
type TechnicalOutput struct {
	Tech  trackwriter.Technical
	Hints probes.Result
}

// TechnicalRunner extracts container facts, tags, probe hints, and BPM.
// Failure is fatal for the track.
type TechnicalRunner interface {
	Run(ctx context.Context, path string) (TechnicalOutput, error)
}

// CreativeRunner obtains the creative description. It never fails; the
// status string carries degradation causes.
type CreativeRunner interface {
	Run(ctx context.Context, in creative.Input) (creative.Facts, string)
}

// InstrumentationRunner classifies instrumentation. It never fails; errors
// fold into the result.
type InstrumentationRunner interface {
	Run(ctx context.Context, path string, suggested []string) ensemble.Result
}

// Persister assembles and writes the merged record: waveform, sidecar JSON,
// store upsert, criteria rebuild. It returns the persisted record.
type Persister interface {
	Persist(ctx context.Context, path string, tech trackwriter.Technical, creativeOut trackwriter.CreativeOutput, instr ensemble.Result, finalInstruments []string) (library.Record, error)
}

// Runners bundles the three phase implementations.
type Runners struct {
	Technical       TechnicalRunner
	Creative        CreativeRunner
	Instrumentation InstrumentationRunner
}

package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rhythm/internal/config"
	"rhythm/internal/creative"
	"rhythm/internal/ensemble"
	"rhythm/internal/library"
	"rhythm/internal/logging"
	"rhythm/internal/trackwriter"
)

type stubTechnical struct {
	err   error
	delay time.Duration
	runs  atomic.Int32
	done  atomic.Int32
}

func (s *stubTechnical) Run(ctx context.Context, path string) (TechnicalOutput, error) {
	s.runs.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return TechnicalOutput{}, ctx.Err()
		}
	}
	defer s.done.Add(1)
	if s.err != nil {
		return TechnicalOutput{}, s.err
	}
	return TechnicalOutput{
		Tech: trackwriter.Technical{
			Facts: library.Technical{DurationSec: 100, BPM: 120, BPMSource: "thirds"},
			Title: "Stub",
		},
	}, nil
}

type stubCreative struct {
	mu        sync.Mutex
	started   []time.Time
	techDone  *stubTechnical
	afterTech atomic.Bool
	delay     time.Duration
}

func (s *stubCreative) Run(ctx context.Context, in creative.Input) (creative.Facts, string) {
	if s.techDone != nil && s.techDone.done.Load() > 0 {
		s.afterTech.Store(true)
	}
	s.mu.Lock()
	s.started = append(s.started, time.Now())
	s.mu.Unlock()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return creative.Defaults(), creative.StatusOK
}

type stubInstrumentation struct {
	techDone      *stubTechnical
	afterTech     atomic.Bool
	creativeFirst atomic.Bool
	creative      *stubCreative
	result        ensemble.Result
}

func (s *stubInstrumentation) Run(ctx context.Context, path string, suggested []string) ensemble.Result {
	if s.techDone != nil && s.techDone.done.Load() > 0 {
		s.afterTech.Store(true)
	}
	if s.creative != nil {
		s.creative.mu.Lock()
		if len(s.creative.started) > 0 {
			s.creativeFirst.Store(true)
		}
		s.creative.mu.Unlock()
	}
	result := s.result
	if result.Instruments == nil {
		result.Instruments = []string{}
		result.Mode = "mix-only"
	}
	return result
}

type stubPersister struct {
	mu    sync.Mutex
	calls int
	err   error
	last  library.Record
}

func (s *stubPersister) Persist(_ context.Context, path string, tech trackwriter.Technical, creativeOut trackwriter.CreativeOutput, instr ensemble.Result, final []string) (library.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	rec := library.Record{
		Key:            path,
		Path:           path,
		Technical:      tech.Facts,
		CreativeStatus: creativeOut.Status,
		Analysis: library.Analysis{
			Instruments:      instr.Instruments,
			FinalInstruments: final,
		},
	}
	s.last = rec
	return rec, s.err
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Workflow.TechWorkers = 2
	cfg.Workflow.CreativeWorkers = 2
	cfg.Workflow.InstrumentationWorkers = 2
	cfg.Workflow.ReadyTimeoutSeconds = 1
	cfg.Workflow.ShutdownGraceSeconds = 5
	return &cfg
}

func newTestScheduler(t *testing.T, cfg *config.Config, runners Runners, persist Persister) *Scheduler {
	t.Helper()
	s := New(cfg, runners, persist, nil, logging.NewNop())
	t.Cleanup(s.Stop)
	return s
}

func TestPartialThenFinal(t *testing.T) {
	tech := &stubTechnical{}
	creativeStub := &stubCreative{techDone: tech}
	instr := &stubInstrumentation{techDone: tech, creative: creativeStub}
	persist := &stubPersister{}

	s := newTestScheduler(t, testConfig(), Runners{tech, creativeStub, instr}, persist)
	s.SignalReady()

	handle := s.Submit(context.Background(), "/Music/Song.mp3")

	select {
	case partial := <-handle.Partial:
		if partial.Technical.BPM != 120 {
			t.Fatalf("unexpected partial: %+v", partial)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no partial result")
	}

	select {
	case final := <-handle.Final:
		if final.Err != nil {
			t.Fatalf("unexpected error: %v", final.Err)
		}
		if final.Record.CreativeStatus != creative.StatusOK {
			t.Fatalf("unexpected record: %+v", final.Record)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no final result")
	}

	if !creativeStub.afterTech.Load() || !instr.afterTech.Load() {
		t.Fatal("background phases ran before technical completed")
	}
	if persist.calls != 1 {
		t.Fatalf("expected exactly one persist, got %d", persist.calls)
	}
}

func TestTechnicalFailureSkipsPersistence(t *testing.T) {
	tech := &stubTechnical{err: errors.New("probe failed")}
	persist := &stubPersister{}
	s := newTestScheduler(t, testConfig(), Runners{tech, &stubCreative{}, &stubInstrumentation{}}, persist)
	s.SignalReady()

	handle := s.Submit(context.Background(), "/Music/Bad.mp3")

	select {
	case final := <-handle.Final:
		if final.Err == nil {
			t.Fatal("expected fatal error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no final result")
	}

	if _, ok := <-handle.Partial; ok {
		t.Fatal("partial must not resolve on technical failure")
	}
	if persist.calls != 0 {
		t.Fatalf("persist must not run, got %d calls", persist.calls)
	}
}

func TestSequentialModeOrdersInstrumentationAfterCreative(t *testing.T) {
	cfg := testConfig()
	cfg.Workflow.PipelineMode = "sequential"

	tech := &stubTechnical{}
	creativeStub := &stubCreative{techDone: tech, delay: 50 * time.Millisecond}
	instr := &stubInstrumentation{techDone: tech, creative: creativeStub}

	s := newTestScheduler(t, cfg, Runners{tech, creativeStub, instr}, &stubPersister{})
	s.SignalReady()

	handle := s.Submit(context.Background(), "/Music/Song.mp3")
	select {
	case <-handle.Final:
	case <-time.After(5 * time.Second):
		t.Fatal("no final result")
	}
	if !instr.creativeFirst.Load() {
		t.Fatal("instrumentation ran before creative in sequential mode")
	}
}

func TestReadinessBuffer(t *testing.T) {
	cfg := testConfig()
	cfg.Workflow.ReadyTimeoutSeconds = 30

	tech := &stubTechnical{}
	s := newTestScheduler(t, cfg, Runners{tech, &stubCreative{}, &stubInstrumentation{}}, &stubPersister{})

	handle := s.Submit(context.Background(), "/Music/Song.mp3")

	time.Sleep(100 * time.Millisecond)
	if tech.runs.Load() != 0 {
		t.Fatal("work started before readiness")
	}

	s.SignalReady()
	select {
	case <-handle.Final:
	case <-time.After(5 * time.Second):
		t.Fatal("no final result after readiness")
	}
}

func TestCancelBeforeDispatch(t *testing.T) {
	cfg := testConfig()
	cfg.Workflow.ReadyTimeoutSeconds = 30

	tech := &stubTechnical{}
	persist := &stubPersister{}
	s := newTestScheduler(t, cfg, Runners{tech, &stubCreative{}, &stubInstrumentation{}}, persist)

	handle := s.Submit(context.Background(), "/Music/Song.mp3")
	handle.Cancel()
	s.SignalReady()

	select {
	case final := <-handle.Final:
		if final.Err == nil {
			t.Fatal("expected cancellation error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no final result")
	}
	if persist.calls != 0 {
		t.Fatal("cancelled track must not persist")
	}
}

func TestProgressEventsPerTrackOrdering(t *testing.T) {
	tech := &stubTechnical{}
	s := newTestScheduler(t, testConfig(), Runners{tech, &stubCreative{}, &stubInstrumentation{}}, &stubPersister{})
	s.SignalReady()

	handle := s.Submit(context.Background(), "/Music/Song.mp3")
	select {
	case <-handle.Final:
	case <-time.After(5 * time.Second):
		t.Fatal("no final result")
	}

	var events []Event
	deadline := time.After(time.Second)
collect:
	for {
		select {
		case event := <-s.Events():
			events = append(events, event)
			if event.Stage == StageMerge && event.Status == StatusComplete {
				break collect
			}
		case <-deadline:
			break collect
		}
	}

	if len(events) == 0 {
		t.Fatal("no events observed")
	}
	if events[0].Stage != StageTechnical || events[0].Status != StatusProcessing {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	last := events[len(events)-1]
	if last.Stage != StageMerge || last.Pct != 100 {
		t.Fatalf("unexpected last event: %+v", last)
	}
}

func TestManyTracksAllComplete(t *testing.T) {
	tech := &stubTechnical{}
	persist := &stubPersister{}
	s := newTestScheduler(t, testConfig(), Runners{tech, &stubCreative{}, &stubInstrumentation{}}, persist)
	s.SignalReady()

	var handles []*Handle
	for i := 0; i < 12; i++ {
		handles = append(handles, s.Submit(context.Background(), "/Music/Song.mp3"))
	}
	for i, handle := range handles {
		select {
		case final := <-handle.Final:
			if final.Err != nil {
				t.Fatalf("track %d failed: %v", i, final.Err)
			}
		case <-time.After(10 * time.Second):
			t.Fatalf("track %d never finished", i)
		}
	}
	if persist.calls != 12 {
		t.Fatalf("expected 12 persists, got %d", persist.calls)
	}
}

func TestPersistErrorSurfacesOnFinal(t *testing.T) {
	persist := &stubPersister{err: errors.New("disk full")}
	s := newTestScheduler(t, testConfig(), Runners{&stubTechnical{}, &stubCreative{}, &stubInstrumentation{}}, persist)
	s.SignalReady()

	handle := s.Submit(context.Background(), "/Music/Song.mp3")
	select {
	case final := <-handle.Final:
		if final.Err == nil {
			t.Fatal("expected persist error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no final result")
	}
}

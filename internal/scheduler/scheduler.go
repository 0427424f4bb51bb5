// Package scheduler coordinates the three analysis phases over bounded
// worker pools. Per-track, Technical strictly happens-before Creative and
// Instrumentation; the merge that persists a record happens-after both.
// Across tracks, phases interleave freely within their pool bounds.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"rhythm/internal/config"
	"rhythm/internal/creative"
	"rhythm/internal/ensemble"
	"rhythm/internal/instruments"
	"rhythm/internal/library"
	"rhythm/internal/logging"
	"rhythm/internal/queue"
	"rhythm/internal/services"
	"rhythm/internal/trackkey"
	"rhythm/internal/trackwriter"
)

// Mode controls whether instrumentation waits for creative per track.
type Mode string

const (
	ModeConcurrent Mode = "concurrent"
	ModeSequential Mode = "sequential"
)

// Scheduler owns the three phase pools and the per-track state machines.
type Scheduler struct {
	mode    Mode
	runners Runners
	persist Persister
	ledger  *queue.Store
	logger  *slog.Logger
	batchID string

	techCh  chan *trackTask
	creatCh chan *trackTask
	instrCh chan *trackTask
	events  chan Event

	readyCh      chan struct{}
	readyOnce    sync.Once
	readyTimeout time.Duration

	pending   chan *trackTask
	runCtx    context.Context
	runCancel context.CancelFunc
	wg        sync.WaitGroup

	shutdownGrace time.Duration

	mu      sync.Mutex
	running bool
}

// New constructs a scheduler from configuration and phase implementations.
// The ledger may be nil; transitions are then not recorded.
func New(cfg *config.Config, runners Runners, persist Persister, ledger *queue.Store, logger *slog.Logger) *Scheduler {
	mode := ModeConcurrent
	if cfg.Workflow.PipelineMode == string(ModeSequential) {
		mode = ModeSequential
	}
	s := &Scheduler{
		mode:          mode,
		runners:       runners,
		persist:       persist,
		ledger:        ledger,
		logger:        logging.NewComponentLogger(logger, "scheduler"),
		batchID:       uuid.NewString(),
		techCh:        make(chan *trackTask),
		creatCh:       make(chan *trackTask),
		instrCh:       make(chan *trackTask),
		events:        make(chan Event, 256),
		readyCh:       make(chan struct{}),
		readyTimeout:  time.Duration(cfg.Workflow.ReadyTimeoutSeconds) * time.Second,
		pending:       make(chan *trackTask, 1024),
		shutdownGrace: time.Duration(cfg.Workflow.ShutdownGraceSeconds) * time.Second,
	}
	s.startPools(cfg)
	return s
}

func (s *Scheduler) startPools(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.runCtx, s.runCancel = context.WithCancel(context.Background())

	for i := 0; i < clampWorkers(cfg.Workflow.TechWorkers); i++ {
		s.wg.Add(1)
		go s.runWorker(s.techCh, s.runTechnical)
	}
	for i := 0; i < clampWorkers(cfg.Workflow.CreativeWorkers); i++ {
		s.wg.Add(1)
		go s.runWorker(s.creatCh, s.runCreative)
	}
	for i := 0; i < clampWorkers(cfg.Workflow.InstrumentationWorkers); i++ {
		s.wg.Add(1)
		go s.runWorker(s.instrCh, s.runInstrumentation)
	}

	// Dispatch buffered submissions once readiness arrives; a watchdog
	// assumes readiness when nobody signals.
	s.wg.Add(1)
	go s.dispatchPending()
	go func() {
		timer := time.NewTimer(s.readyTimeout)
		defer timer.Stop()
		select {
		case <-timer.C:
			s.SignalReady()
		case <-s.runCtx.Done():
		}
	}()
}

func clampWorkers(n int) int {
	if n < config.MinWorkers {
		return config.MinWorkers
	}
	if n > config.MaxWorkers {
		return config.MaxWorkers
	}
	return n
}

// SignalReady releases buffered submissions. Safe to call more than once.
func (s *Scheduler) SignalReady() {
	s.readyOnce.Do(func() { close(s.readyCh) })
}

// Submit enqueues one file for analysis. The returned handle resolves twice:
// a partial record after the technical phase, the final result after merge.
func (s *Scheduler) Submit(ctx context.Context, path string) *Handle {
	taskCtx, cancel := context.WithCancel(ctx)
	task := &trackTask{
		path:      path,
		key:       trackkey.Normalize(path),
		ctx:       taskCtx,
		cancel:    cancel,
		partialCh: make(chan library.Record, 1),
		finalCh:   make(chan Result, 1),
	}
	task.pending.Store(2)

	if s.ledger != nil {
		if item, err := s.ledger.Enqueue(context.Background(), s.batchID, path, task.key); err == nil {
			task.ledgerID = item.ID
		} else {
			s.logger.Debug("ledger enqueue failed", logging.Error(err))
		}
	}

	select {
	case s.pending <- task:
	default:
		// Buffer exhausted: fail the submission rather than block the caller.
		task.finish(Result{Err: services.Wrap(services.ErrValidation, "scheduler", "submit", "submission buffer full", nil)})
	}
	return &Handle{Partial: task.partialCh, Final: task.finalCh, cancel: cancel}
}

func (s *Scheduler) dispatchPending() {
	defer s.wg.Done()
	select {
	case <-s.readyCh:
	case <-s.runCtx.Done():
		return
	}
	for {
		select {
		case task := <-s.pending:
			select {
			case s.techCh <- task:
			case <-task.ctx.Done():
				s.abandon(task, task.ctx.Err())
			case <-s.runCtx.Done():
				s.abandon(task, errors.New("scheduler stopped"))
				return
			}
		case <-s.runCtx.Done():
			s.drainPending()
			return
		}
	}
}

func (s *Scheduler) drainPending() {
	for {
		select {
		case task := <-s.pending:
			s.abandon(task, errors.New("scheduler stopped"))
		default:
			return
		}
	}
}

func (s *Scheduler) abandon(task *trackTask, cause error) {
	s.ledgerStatus(task, queue.StatusCanceled, cause)
	task.finish(Result{Err: services.Wrap(services.ErrTransient, "scheduler", "dispatch", "track not processed", cause)})
}

func (s *Scheduler) runWorker(ch <-chan *trackTask, run func(*trackTask)) {
	defer s.wg.Done()
	for {
		select {
		case task := <-ch:
			if task.ctx.Err() != nil {
				s.abandon(task, task.ctx.Err())
				continue
			}
			run(task)
		case <-s.runCtx.Done():
			return
		}
	}
}

// Stop shuts the scheduler down: dispatch stops at once, then Stop waits up
// to the configured grace period for in-flight work to finish. Work still
// running when the grace period ends is not cancelled; Stop returns without it.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	// Let in-flight work finish within the grace bound. The events channel
	// closes only on a clean drain; a timed-out shutdown leaves it open so
	// straggling workers cannot send on a closed channel.
	timer := time.NewTimer(s.shutdownGrace)
	defer timer.Stop()
	s.runCancel()
	select {
	case <-done:
		close(s.events)
	case <-timer.C:
	}
}

func (s *Scheduler) ledgerStatus(task *trackTask, status queue.Status, cause error) {
	if s.ledger == nil || task.ledgerID == 0 {
		return
	}
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	if err := s.ledger.SetStatus(context.Background(), task.ledgerID, status, message); err != nil {
		s.logger.Debug("ledger status update failed", logging.Error(err))
	}
}

func (s *Scheduler) ledgerPhase(task *trackTask, phase queue.Phase, status queue.PhaseStatus) {
	if s.ledger == nil || task.ledgerID == 0 {
		return
	}
	if err := s.ledger.SetPhase(context.Background(), task.ledgerID, phase, status); err != nil {
		s.logger.Debug("ledger phase update failed", logging.Error(err))
	}
}

func (s *Scheduler) runTechnical(task *trackTask) {
	ctx := services.WithTrackKey(task.ctx, task.key)
	ctx = services.WithPhase(ctx, StageTechnical)
	logger := logging.WithContext(ctx, s.logger)

	s.ledgerStatus(task, queue.StatusTechnical, nil)
	s.ledgerPhase(task, queue.PhaseTechnical, queue.PhaseRunning)
	s.emit(Event{File: task.path, Key: task.key, Stage: StageTechnical, Status: StatusProcessing, Pct: 0, Label: "Analyzing container and tempo"})

	output, err := s.runners.Technical.Run(ctx, task.path)
	if err != nil {
		logger.Error("technical phase failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "technical_failed"),
			logging.String(logging.FieldErrorHint, "verify the file decodes with ffprobe"),
		)
		s.ledgerPhase(task, queue.PhaseTechnical, queue.PhaseError)
		s.ledgerStatus(task, queue.StatusFailed, err)
		s.emit(Event{File: task.path, Key: task.key, Stage: StageTechnical, Status: StatusError, Pct: 100, Label: "Technical analysis failed"})
		task.finish(Result{Err: err})
		return
	}

	task.technical = output
	s.ledgerPhase(task, queue.PhaseTechnical, queue.PhaseDone)
	if s.ledger != nil && task.ledgerID != 0 && output.Tech.Title != "" {
		_ = s.ledger.SetTitle(context.Background(), task.ledgerID, output.Tech.Title)
	}
	s.ledgerStatus(task, queue.StatusAnalyzing, nil)
	s.emit(Event{File: task.path, Key: task.key, Stage: StageTechnical, Status: StatusComplete, Pct: 25, Label: "Technical analysis complete"})

	// Non-blocking completion contract: the submitter sees the partial as
	// soon as technical facts exist.
	partial := library.Record{
		Key:       task.key,
		Path:      task.path,
		File:      filepath.Base(task.path),
		Technical: task.technical.Tech.Facts,
	}
	task.partialCh <- partial

	switch s.mode {
	case ModeSequential:
		s.handOff(task, s.creatCh)
	default:
		// Creative first: inference there is faster, so its suggestions are
		// usually available to any stage that respects them.
		s.handOff(task, s.creatCh)
		s.handOff(task, s.instrCh)
	}
}

func (s *Scheduler) handOff(task *trackTask, ch chan *trackTask) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case ch <- task:
		case <-task.ctx.Done():
			s.phaseDone(task)
		case <-s.runCtx.Done():
			s.phaseDone(task)
		}
	}()
}

func (s *Scheduler) runCreative(task *trackTask) {
	ctx := services.WithPhase(services.WithTrackKey(task.ctx, task.key), StageCreative)

	s.ledgerPhase(task, queue.PhaseCreative, queue.PhaseRunning)
	s.emit(Event{File: task.path, Key: task.key, Stage: StageCreative, Status: StatusProcessing, Pct: 50, Label: "Describing track"})

	input := creative.Input{
		Title: task.technical.Tech.Title,
		BPM:   task.technical.Tech.Facts.BPM,
		Hints: hintList(task),
	}
	facts, status := s.runners.Creative.Run(ctx, input)
	task.setCreative(facts, status)

	if status == creative.StatusOK {
		s.ledgerPhase(task, queue.PhaseCreative, queue.PhaseDone)
	} else {
		s.ledgerPhase(task, queue.PhaseCreative, queue.PhaseSkipped)
	}
	s.emit(Event{File: task.path, Key: task.key, Stage: StageCreative, Status: StatusComplete, Pct: 75, Label: "Creative analysis complete"})

	if s.mode == ModeSequential {
		s.handOff(task, s.instrCh)
	}
	s.phaseDone(task)
}

func (s *Scheduler) runInstrumentation(task *trackTask) {
	ctx := services.WithPhase(services.WithTrackKey(task.ctx, task.key), StageInstrumentation)

	s.ledgerPhase(task, queue.PhaseInstrumentation, queue.PhaseRunning)
	s.emit(Event{File: task.path, Key: task.key, Stage: StageInstrumentation, Status: StatusProcessing, Pct: 50, Label: "Classifying instrumentation"})

	// Suggestions are advisory; in concurrent mode they may or may not have
	// arrived yet.
	suggestions, _ := task.creativeSnapshot()
	result := s.runners.Instrumentation.Run(ctx, task.path, suggestions.SuggestedInstruments)
	task.instr = result

	if result.Err != nil {
		s.ledgerPhase(task, queue.PhaseInstrumentation, queue.PhaseError)
	} else {
		s.ledgerPhase(task, queue.PhaseInstrumentation, queue.PhaseDone)
	}
	s.emit(Event{File: task.path, Key: task.key, Stage: StageInstrumentation, Status: StatusComplete, Pct: 75, Label: "Instrumentation complete"})

	s.phaseDone(task)
}

// phaseDone counts a background phase down and runs the merge when both have
// terminated.
func (s *Scheduler) phaseDone(task *trackTask) {
	if task.pending.Add(-1) != 0 {
		return
	}
	task.mergeOne.Do(func() { s.merge(task) })
}

func (s *Scheduler) merge(task *trackTask) {
	if task.ctx.Err() != nil {
		s.abandon(task, task.ctx.Err())
		return
	}
	ctx := services.WithPhase(services.WithTrackKey(task.ctx, task.key), StageMerge)
	logger := logging.WithContext(ctx, s.logger)

	creativeFacts, status := task.creativeSnapshot()
	ensemble.ElevateElectronicConfidence(task.instr.ElectronicElements, creativeFacts.Genre)

	final := instruments.Finalize(instruments.Sources{
		Ensemble: task.instr.Instruments,
	})

	if status == "" {
		creativeFacts = creative.Defaults()
		status = creative.StatusOffline
	}
	creativeOut := trackwriter.CreativeOutput{Facts: creativeFacts, Status: status}
	persisted, err := s.persist.Persist(ctx, task.path, task.technical.Tech, creativeOut, task.instr, final)
	if err != nil {
		logger.Error("persist failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "persist_failed"),
			logging.String(logging.FieldErrorHint, "check store directory permissions"),
		)
		s.ledgerStatus(task, queue.StatusFailed, err)
		s.emit(Event{File: task.path, Key: task.key, Stage: StageMerge, Status: StatusError, Pct: 100, Label: "Persist failed"})
		task.finish(Result{Record: persisted, Err: err})
		return
	}

	s.ledgerStatus(task, queue.StatusCompleted, nil)
	s.emit(Event{File: task.path, Key: task.key, Stage: StageMerge, Status: StatusComplete, Pct: 100, Label: "Analysis complete"})
	task.finish(Result{Record: persisted})
}

func hintList(task *trackTask) []string {
	hints := task.technical.Hints.Hints
	if len(hints) == 0 {
		return nil
	}
	out := make([]string, 0, len(hints))
	for label := range hints {
		out = append(out, label)
	}
	// Deterministic prompt content.
	sort.Strings(out)
	return out
}

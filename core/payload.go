package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"pkt.systems/opsdeck/internal/logx"
	"pkt.systems/opsdeck/schema"
	"pkt.systems/pslog"
)

// StartRequest describes one payload invocation.
type StartRequest struct {
	Mode     schema.ModeID
	Name     string
	Command  string
	Args     []string
	Resource schema.ResourceClass
	Timeout  time.Duration
	// Category selects the loot subdirectory; Ext the capture extension.
	Category string
	Ext      string
}

// payloadJob is the manager-internal job record. The watcher goroutine is
// the only writer of the terminal phase; all phase access goes through the
// job's own mutex so the first committed transition wins.
type payloadJob struct {
	id       schema.JobID
	mode     schema.ModeID
	name     string
	command  string
	args     []string
	resource schema.ResourceClass
	timeout  time.Duration
	output   string

	cancelOnce sync.Once
	cancelCh   chan struct{}
	done       chan struct{}

	mu       sync.Mutex
	phase    schema.JobPhase
	started  time.Time
	finished time.Time
	exitCode int
	handle   ProcessHandle
}

func (j *payloadJob) phaseNow() schema.JobPhase {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.phase
}

// commitPhase records the first terminal transition and rejects the rest.
func (j *payloadJob) commitPhase(phase schema.JobPhase, exitCode int, now time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.phase.Terminal() {
		return false
	}
	j.phase = phase
	j.exitCode = exitCode
	if phase.Terminal() {
		j.finished = now
	}
	return true
}

func (j *payloadJob) snapshot(now time.Time) schema.JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	snapshot := schema.JobSnapshot{
		ID:         j.id,
		Mode:       j.mode,
		Name:       j.name,
		Command:    j.command,
		Resource:   j.resource,
		Phase:      j.phase,
		Started:    j.started,
		ExitCode:   j.exitCode,
		OutputPath: j.output,
	}
	if !j.started.IsZero() {
		end := now
		if j.phase.Terminal() && !j.finished.IsZero() {
			end = j.finished
		}
		snapshot.Elapsed = end.Sub(j.started)
	}
	return snapshot
}

// PayloadManager owns the lifecycle of external-process jobs: start,
// timeout enforcement, cancellation, and exclusive-resource arbitration.
type PayloadManager struct {
	cfg    schema.ServiceConfig
	runner Runner
	store  *StateStore
	logger pslog.Logger
	ids    jobIDs

	mu        sync.Mutex
	jobs      map[schema.JobID]*payloadJob
	order     []schema.JobID
	resources map[schema.ResourceClass]schema.JobID
}

// NewPayloadManager constructs a payload manager.
func NewPayloadManager(cfg schema.ServiceConfig, runner Runner, store *StateStore, logger pslog.Logger) *PayloadManager {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &PayloadManager{
		cfg:       cfg,
		runner:    runner,
		store:     store,
		logger:    logger,
		jobs:      make(map[schema.JobID]*payloadJob),
		resources: make(map[schema.ResourceClass]schema.JobID),
	}
}

// Start registers and launches a payload job. It returns as soon as the
// process is spawned; completion, failure, timeout, and cancellation are
// reported through the state store only. Fails synchronously with
// schema.ErrResourceBusy when the resource class is held, or a *SpawnError
// when the process cannot be started (no job is registered in that case).
func (m *PayloadManager) Start(ctx context.Context, req StartRequest) (schema.JobID, error) {
	if strings.TrimSpace(req.Command) == "" {
		return "", schema.ErrEmptyCommand
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = m.cfg.DefaultTimeout
	}

	m.mu.Lock()
	if req.Resource != "" {
		if holder, held := m.resources[req.Resource]; held {
			m.mu.Unlock()
			return "", fmt.Errorf("%w: %s held by %s", schema.ErrResourceBusy, req.Resource, holder)
		}
	}
	job := &payloadJob{
		id:       m.ids.next(),
		mode:     req.Mode,
		name:     req.Name,
		command:  req.Command,
		args:     append([]string(nil), req.Args...),
		resource: req.Resource,
		timeout:  timeout,
		phase:    schema.JobPending,
		cancelCh: make(chan struct{}),
		done:     make(chan struct{}),
	}
	job.output = LootPath(m.cfg.LootRoot, req.Category, job.id, time.Now(), req.Ext)
	m.jobs[job.id] = job
	m.order = append(m.order, job.id)
	if req.Resource != "" {
		m.resources[req.Resource] = job.id
	}
	m.mu.Unlock()

	log := logx.WithJob(ctx, job.id).With("command", req.Command, "resource", req.Resource)
	handle, err := m.runner.Start(ctx, StartProcessRequest{
		Command:    req.Command,
		Args:       job.args,
		OutputPath: job.output,
	})
	if err != nil {
		m.unregister(job)
		log.Warn("payload spawn failed", "err", err)
		return "", NewSpawnError(req.Command, err)
	}

	now := time.Now()
	job.mu.Lock()
	job.handle = handle
	job.started = now
	job.phase = schema.JobRunning
	job.mu.Unlock()

	log.Info("payload started", "pid", handle.PID(), "timeout", timeout, "output", job.output)
	m.store.RecordJob(job.snapshot(now))
	m.store.AddAlert(fmt.Sprintf("Starting: %s", job.name), schema.AlertInfo)

	go m.watch(job, handle, log)
	return job.id, nil
}

// unregister removes a job that never spawned, releasing its reservation.
func (m *PayloadManager) unregister(job *payloadJob) {
	m.mu.Lock()
	delete(m.jobs, job.id)
	for i, id := range m.order {
		if id == job.id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	if job.resource != "" && m.resources[job.resource] == job.id {
		delete(m.resources, job.resource)
	}
	m.mu.Unlock()
}

// watch observes one job until it reaches a terminal phase. It is the only
// writer of that phase: a late cancel and a natural exit race through
// commitPhase, and whichever commits first wins.
func (m *PayloadManager) watch(job *payloadJob, handle ProcessHandle, log pslog.Logger) {
	defer close(job.done)
	defer func() { _ = handle.Close() }()

	waitCh := make(chan ProcessResult, 1)
	go func() {
		result, err := handle.Wait(context.Background())
		if err != nil {
			log.Warn("payload wait failed", "err", err)
			result = ProcessResult{ExitCode: -1}
		}
		waitCh <- result
	}()

	timer := time.NewTimer(job.timeout)
	defer timer.Stop()

	var result ProcessResult
	var phase schema.JobPhase
	select {
	case result = <-waitCh:
		if result.ExitCode == 0 {
			phase = schema.JobCompleted
		} else {
			phase = schema.JobFailed
		}
	case <-timer.C:
		result = m.terminate(handle, waitCh, log)
		phase = schema.JobTimedOut
	case <-job.cancelCh:
		result = m.terminate(handle, waitCh, log)
		phase = schema.JobCancelled
	}

	m.finish(job, phase, result, log)
}

// finish commits the terminal phase and releases the job's resource in one
// critical section, so a caller that has observed the terminal phase can
// never race a still-held resource reservation.
func (m *PayloadManager) finish(job *payloadJob, phase schema.JobPhase, result ProcessResult, log pslog.Logger) {
	m.mu.Lock()
	committed := job.commitPhase(phase, result.ExitCode, time.Now())
	var corrupt schema.ResourceClass
	if committed && job.resource != "" {
		holder, held := m.resources[job.resource]
		switch {
		case held && holder != job.id:
			corrupt = job.resource
		case held:
			delete(m.resources, job.resource)
		}
	}
	m.mu.Unlock()
	if corrupt != "" {
		m.logger.Error("resource holder mismatch", "resource", corrupt, "job", job.id)
		m.store.AddAlert(fmt.Sprintf("%s: %s", schema.ErrStateCorruption, corrupt), schema.AlertError)
	}
	if committed {
		m.report(job, phase, result, log)
	}
}

// terminate performs two-phase termination: graceful stop, bounded grace
// period, forced kill. It returns only once the process is confirmed gone.
func (m *PayloadManager) terminate(handle ProcessHandle, waitCh <-chan ProcessResult, log pslog.Logger) ProcessResult {
	ctx := context.Background()
	if err := handle.Signal(ctx, ProcessSignalTERM); err != nil {
		log.Debug("payload term signal failed", "err", err)
	}
	grace := time.NewTimer(m.cfg.CancelGrace)
	defer grace.Stop()
	select {
	case result := <-waitCh:
		return result
	case <-grace.C:
	}
	log.Warn("payload did not exit in grace period, killing")
	if err := handle.Signal(ctx, ProcessSignalKILL); err != nil {
		log.Debug("payload kill signal failed", "err", err)
	}
	return <-waitCh
}

func (m *PayloadManager) report(job *payloadJob, phase schema.JobPhase, result ProcessResult, log pslog.Logger) {
	snapshot := job.snapshot(time.Now())
	m.store.RecordJob(snapshot)
	switch phase {
	case schema.JobCompleted:
		log.Info("payload completed", "elapsed", snapshot.Elapsed)
		m.store.AddAlert(fmt.Sprintf("%s complete", job.name), schema.AlertOK)
	case schema.JobFailed:
		log.Warn("payload failed", "exit_code", result.ExitCode, "signal", result.Signal)
		m.store.AddAlert(fmt.Sprintf("%s failed (exit %d)", job.name, result.ExitCode), schema.AlertError)
	case schema.JobTimedOut:
		log.Warn("payload timed out", "timeout", job.timeout)
		m.store.AddAlert(fmt.Sprintf("%s timeout (%s)", job.name, job.timeout), schema.AlertWarn)
	case schema.JobCancelled:
		log.Info("payload cancelled")
		m.store.AddAlert(fmt.Sprintf("Cancelled: %s", job.name), schema.AlertWarn)
	}
}

// Cancel requests termination of a job. Idempotent: cancelling a terminal
// or already-cancelled job is a no-op. The job transitions to CANCELLED
// only once the process is confirmed gone.
func (m *PayloadManager) Cancel(id schema.JobID) error {
	m.mu.Lock()
	job, ok := m.jobs[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", schema.ErrJobNotFound, id)
	}
	if job.phaseNow().Terminal() {
		return nil
	}
	job.cancelOnce.Do(func() { close(job.cancelCh) })
	return nil
}

// CancelActive cancels the most recent non-terminal job, if any.
func (m *PayloadManager) CancelActive() bool {
	m.mu.Lock()
	var target *payloadJob
	for i := len(m.order) - 1; i >= 0; i-- {
		if job := m.jobs[m.order[i]]; !job.phaseNow().Terminal() {
			target = job
			break
		}
	}
	m.mu.Unlock()
	if target == nil {
		return false
	}
	target.cancelOnce.Do(func() { close(target.cancelCh) })
	return true
}

// CancelAll cancels every non-terminal job and waits for the watchers to
// confirm process exit, bounded by the context.
func (m *PayloadManager) CancelAll(ctx context.Context) {
	m.mu.Lock()
	pending := make([]*payloadJob, 0, len(m.order))
	for _, id := range m.order {
		if job := m.jobs[id]; !job.phaseNow().Terminal() {
			pending = append(pending, job)
		}
	}
	m.mu.Unlock()
	for _, job := range pending {
		job.cancelOnce.Do(func() { close(job.cancelCh) })
	}
	for _, job := range pending {
		select {
		case <-job.done:
		case <-ctx.Done():
			return
		}
	}
}

// Status returns the job's phase and elapsed time. Non-blocking.
func (m *PayloadManager) Status(id schema.JobID) (schema.JobPhase, time.Duration, error) {
	m.mu.Lock()
	job, ok := m.jobs[id]
	m.mu.Unlock()
	if !ok {
		return "", 0, fmt.Errorf("%w: %s", schema.ErrJobNotFound, id)
	}
	snapshot := job.snapshot(time.Now())
	return snapshot.Phase, snapshot.Elapsed, nil
}

// OutputPath returns where the job's captured output is written.
func (m *PayloadManager) OutputPath(id schema.JobID) (string, error) {
	m.mu.Lock()
	job, ok := m.jobs[id]
	m.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", schema.ErrJobNotFound, id)
	}
	return job.output, nil
}

// ActiveJobFor returns the non-terminal job owned by the given mode, if any.
func (m *PayloadManager) ActiveJobFor(mode schema.ModeID) (schema.JobID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.order) - 1; i >= 0; i-- {
		job := m.jobs[m.order[i]]
		if job.mode == mode && !job.phaseNow().Terminal() {
			return job.id, true
		}
	}
	return "", false
}

// Running reports whether any job is in a non-terminal phase.
func (m *PayloadManager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		if !m.jobs[id].phaseNow().Terminal() {
			return true
		}
	}
	return false
}

// killTargets are tools that may be left behind by aborted payloads.
var killTargets = []string{
	"nmap", "responder", "arpspoof", "dnsspoof", "sslstrip",
	"tcpdump", "airodump-ng", "aireplay-ng", "airmon-ng",
	"bettercap", "tshark",
}

// KillTools best-effort terminates known offensive tools outside job
// tracking, for operator cleanup after crashes. The sweep runs on its
// own goroutine; the input path must not block on process waits.
// Completion is reported through the alert feed.
func (m *PayloadManager) KillTools(ctx context.Context) {
	log := pslog.Ctx(ctx)
	go func() {
		for _, tool := range killTargets {
			handle, err := m.runner.Start(ctx, StartProcessRequest{
				Command: "pkill",
				Args:    []string{"-9", "-x", tool},
			})
			if err != nil {
				log.Debug("kill tools spawn failed", "tool", tool, "err", err)
				continue
			}
			_, _ = handle.Wait(ctx)
			_ = handle.Close()
		}
		m.store.AddAlert("All tools killed", schema.AlertOK)
	}()
}

// Package orchestrator owns the captioning session: it starts and stops
// capture, routes transcription results into the transcript, forwards
// captions to the bound surface and runs summaries on request.
//
// All session state lives in a single loop goroutine. Surfaces, capture and
// background work talk to it through an inbox channel.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/GriffinCanCode/livecaption/internal/audio"
	"github.com/GriffinCanCode/livecaption/internal/config"
	"github.com/GriffinCanCode/livecaption/internal/errors"
	"github.com/GriffinCanCode/livecaption/internal/events"
	"github.com/GriffinCanCode/livecaption/internal/orchestrator/capture"
	"github.com/GriffinCanCode/livecaption/internal/orchestrator/summary"
	"github.com/GriffinCanCode/livecaption/internal/orchestrator/transcript"
	"github.com/GriffinCanCode/livecaption/internal/syncx"
	"github.com/GriffinCanCode/livecaption/internal/trace"
)

// Transcriber turns a chunk into text.
type Transcriber interface {
	Transcribe(ctx context.Context, chunk audio.Chunk) (string, error)
}

// Summarizer turns a transcript into a summary. It never fails.
type Summarizer interface {
	Summarize(ctx context.Context, text string) summary.Result
}

// Sink delivers events to one surface and reports whether it was accepted.
type Sink interface {
	Send(ctx context.Context, surfaceID string, evt events.Event) bool
}

// Recorder keeps a side record of delivered captions and summaries.
type Recorder interface {
	RecordSegment(sessionID string, epoch uint64, text string)
	RecordSummary(sessionID string, res summary.Result)
}

// Config tunes the session.
type Config struct {
	Capture      capture.Config
	RestartGrace time.Duration
}

// NewConfig derives the session config from the process config.
func NewConfig(cfg *config.Config) Config {
	return Config{
		Capture: capture.Config{
			SampleRate:      cfg.Capture.SampleRate,
			ChunkSamples:    cfg.Capture.ChunkSamples(),
			MinFlushSamples: cfg.Capture.MinFlushSamples(),
			StatusInterval:  cfg.Capture.StatusInterval,
		},
		RestartGrace: cfg.Session.RestartGrace,
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithRecorder attaches a side recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// Manager is the session orchestrator.
type Manager struct {
	cfg         Config
	worker      *capture.Worker
	transcriber Transcriber
	summarizer  Summarizer
	sink        Sink
	recorder    Recorder

	inbox    chan message
	state    *syncx.RWGuard[Snapshot]
	runCtx   context.Context
	started  chan struct{}
	done     chan struct{}
	sess     *session
	restart  *pendingStart
	restarts uint64
}

type pendingStart struct {
	token   uint64
	surface string
	source  string
}

// New creates a manager reading audio from src. Call Run to start the loop.
func New(src audio.Source, tr Transcriber, sum Summarizer, sink Sink, cfg Config, opts ...Option) *Manager {
	if cfg.RestartGrace < 0 {
		cfg.RestartGrace = 0
	}
	m := &Manager{
		cfg:         cfg,
		transcriber: tr,
		summarizer:  sum,
		sink:        sink,
		inbox:       make(chan message, InboxSize),
		started:     make(chan struct{}),
		done:        make(chan struct{}),
		sess: &session{
			id:         uuid.NewString(),
			state:      Idle,
			transcript: transcript.NewBuffer(),
		},
	}
	for _, o := range opts {
		o(m)
	}
	m.worker = capture.NewWorker(src, cfg.Capture, m.dispatch, m.captureStatus, capture.WithEnded(m.sourceEnded))
	m.state = syncx.NewGuard(m.sess.snapshot())
	return m
}

// Snapshot returns the last published session state.
func (m *Manager) Snapshot() Snapshot {
	return m.state.Get()
}

// Run processes messages until ctx is cancelled. In-flight transcriptions
// and summaries run under ctx and are abandoned when it ends.
func (m *Manager) Run(ctx context.Context) error {
	m.runCtx = ctx
	close(m.started)
	defer close(m.done)

	log := trace.Logger(ctx)
	log.Info("session orchestrator running", "session_id", m.sess.id)

	for {
		select {
		case <-ctx.Done():
			if m.worker.Running() {
				m.worker.Stop(false)
			}
			m.sess.state = Idle
			m.publish()
			log.Info("session orchestrator stopped")
			return nil
		case msg := <-m.inbox:
			m.handle(ctx, msg)
			m.publish()
		}
	}
}

// Handle submits a command from surfaceID and waits for the loop to accept
// it. Start failures are returned; everything else reports through events.
func (m *Manager) Handle(ctx context.Context, surfaceID string, cmd events.Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	if cmd.Type == events.AudioActivity {
		return errors.New(errors.InvalidArgument, "activity signals are not session commands")
	}

	reply := make(chan error, 1)
	msg := commandMsg{ctx: ctx, surface: surfaceID, cmd: cmd, reply: reply}
	select {
	case m.inbox <- msg:
	case <-m.done:
		return errors.New(errors.Cancelled, "orchestrator stopped")
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.Cancelled, "command not accepted")
	}

	select {
	case err := <-reply:
		return err
	case <-m.done:
		return errors.New(errors.Cancelled, "orchestrator stopped")
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.Cancelled, "command not completed")
	}
}

// message is anything the loop consumes.
type message interface{}

type commandMsg struct {
	ctx     context.Context
	surface string
	cmd     events.Command
	reply   chan<- error
}

type resultMsg struct {
	epoch   uint64
	seq     int
	final   bool
	text    string
	err     error
	elapsed time.Duration
}

type statusMsg struct {
	epoch uint64
	text  string
}

type summaryMsg struct {
	sessionID string
	target    string
	segments  int
	result    summary.Result
}

type restartMsg struct {
	token uint64
}

type endedMsg struct {
	epoch uint64
}

func (m *Manager) handle(ctx context.Context, msg message) {
	switch msg := msg.(type) {
	case commandMsg:
		err := m.onCommand(msg)
		m.publish()
		msg.reply <- err
	case resultMsg:
		m.onResult(ctx, msg)
	case statusMsg:
		m.onCaptureStatus(ctx, msg)
	case summaryMsg:
		m.onSummary(ctx, msg)
	case restartMsg:
		m.onRestart(ctx, msg)
	case endedMsg:
		m.onSourceEnded(ctx, msg)
	}
}

func (m *Manager) onCommand(msg commandMsg) error {
	ctx := trace.WithSession(msg.ctx, m.sess.id, m.sess.epoch)
	trace.Logger(ctx).Debug("command received", "type", msg.cmd.Type, "surface", msg.surface)

	switch msg.cmd.Type {
	case events.StartCapture:
		return m.onStart(ctx, msg.surface, msg.cmd.Source)
	case events.StopCapture:
		m.onStop(ctx)
	case events.RequestSummary:
		m.onRequestSummary(ctx, msg.surface)
	case events.ClearTranscript:
		m.sess.resetTranscript()
		m.emit(ctx, m.targetFor(msg.surface), events.NewStatus("", msgCleared, events.Blue))
	}
	return nil
}

func (m *Manager) onStart(ctx context.Context, surface, source string) error {
	if source == "" {
		source = audio.RefDefault
	}

	if m.sess.state == Capturing {
		m.stopCapture(ctx)
		m.scheduleRestart(surface, source)
		return nil
	}
	if m.restart != nil {
		m.restart.surface, m.restart.source = surface, source
		return nil
	}
	return m.startCapture(ctx, surface, source)
}

// scheduleRestart posts the deferred start once the grace period has passed.
func (m *Manager) scheduleRestart(surface, source string) {
	m.restarts++
	p := &pendingStart{token: m.restarts, surface: surface, source: source}
	m.restart = p

	time.AfterFunc(m.cfg.RestartGrace, func() {
		m.post(restartMsg{token: p.token})
	})
}

func (m *Manager) onRestart(ctx context.Context, msg restartMsg) {
	p := m.restart
	if p == nil || p.token != msg.token {
		return
	}
	m.restart = nil
	if err := m.startCapture(ctx, p.surface, p.source); err != nil {
		trace.Logger(ctx).Warn("restart failed", "source", p.source, "error", err)
	}
}

func (m *Manager) startCapture(ctx context.Context, surface, source string) error {
	s := m.sess
	epoch := s.epoch + 1
	if err := m.worker.Start(m.runCtx, source, epoch); err != nil {
		trace.Logger(ctx).Warn("capture failed to start", "source", source, "error", err)
		m.emit(ctx, surface, events.NewStatus("", fmt.Sprintf(msgSourceFailed, errors.Message(err)), events.Red))
		return err
	}

	s.id = uuid.NewString()
	s.epoch = epoch
	s.state = Capturing
	s.source = source
	s.target = surface
	s.recording = true
	s.startedAt = time.Now()
	s.resetTranscript()

	ctx = trace.WithSession(ctx, s.id, s.epoch)
	trace.Logger(ctx).Info("session started", "source", source, "surface", surface)
	m.emit(ctx, s.target, events.New(events.CaptureStarted, "", ""))
	m.emit(ctx, s.target, events.NewStatus("", msgListening, events.Green))
	return nil
}

func (m *Manager) onStop(ctx context.Context) {
	m.restart = nil
	if m.sess.state != Capturing {
		return
	}
	m.stopCapture(ctx)
}

// stopCapture flushes the final chunk, releases the source and returns to
// Idle. Results still in flight keep the current epoch and are accepted
// while the recording flag is set.
func (m *Manager) stopCapture(ctx context.Context) {
	s := m.sess
	st := m.worker.Stop(true)
	s.state = Idle

	trace.Logger(ctx).Info("session stopped", "chunks", st.Chunks, "ingested", st.Ingested, "dropped", st.Dropped)
	m.emit(ctx, s.target, events.New(events.CaptureStopped, "", ""))
	m.emit(ctx, s.target, events.NewStatus("", msgStopped, events.Red))
}

func (m *Manager) onResult(ctx context.Context, r resultMsg) {
	s := m.sess
	ctx = trace.WithSession(ctx, s.id, s.epoch)
	log := trace.Logger(ctx)

	if r.epoch != s.epoch {
		log.Debug("dropping stale result", "result_epoch", r.epoch, "seq", r.seq)
		return
	}
	if s.state != Capturing && !s.recording {
		log.Debug("dropping result outside capture", "seq", r.seq)
		return
	}

	if r.err != nil {
		m.emit(ctx, s.target, events.NewStatus("", fmt.Sprintf(msgTranscribeErr, errors.Message(r.err)), events.Red))
		return
	}

	switch transcript.Classify(r.text) {
	case transcript.Empty:
		return
	case transcript.Status:
		m.emit(ctx, s.target, events.NewStatus("", r.text, events.Blue))
		return
	}

	s.transcript.Append(r.text)
	if m.recorder != nil {
		m.recorder.RecordSegment(s.id, s.epoch, r.text)
	}
	log.Debug("caption appended", "seq", r.seq, "final", r.final, "elapsed", r.elapsed)
	m.emit(ctx, s.target, events.New(events.Transcript, "", r.text))
	m.emit(ctx, s.target, events.NewStatus("", fmt.Sprintf(msgTranscribed, preview(r.text, TranscribedPreviewChars)), events.Green))
}

// onSourceEnded stops a capture whose source closed on its own, so the
// session does not sit in Capturing with nothing feeding it.
func (m *Manager) onSourceEnded(ctx context.Context, msg endedMsg) {
	s := m.sess
	if msg.epoch != s.epoch || s.state != Capturing {
		return
	}
	ctx = trace.WithSession(ctx, s.id, s.epoch)
	trace.Logger(ctx).Warn("audio source ended, stopping capture", "source", s.source)
	m.stopCapture(ctx)
}

func (m *Manager) onCaptureStatus(ctx context.Context, st statusMsg) {
	s := m.sess
	if st.epoch != s.epoch || s.state != Capturing {
		return
	}
	m.emit(ctx, s.target, events.NewStatus("", st.text, events.Blue))
}

func (m *Manager) onRequestSummary(ctx context.Context, surface string) {
	s := m.sess
	target := m.targetFor(surface)

	if s.summaryPending {
		m.emit(ctx, target, events.New(events.SummaryProgress, "", msgGenerating))
		return
	}
	if s.transcript.Empty() {
		m.emit(ctx, target, events.New(events.Summary, "", msgNoAudio))
		return
	}

	snap := s.transcript.Snapshot()
	s.summaryPending = true
	s.summarySegs = snap.Segments
	m.emit(ctx, target, events.New(events.SummaryProgress, "", msgGenerating))

	sessionID := s.id
	runCtx := trace.WithSession(m.runCtx, s.id, s.epoch)
	if tc, ok := trace.FromContext(ctx); ok {
		runCtx = trace.WithContext(runCtx, tc)
	}
	go func() {
		res := m.summarizer.Summarize(runCtx, snap.Text)
		m.post(summaryMsg{sessionID: sessionID, target: target, segments: snap.Segments, result: res})
	}()
}

func (m *Manager) onSummary(ctx context.Context, msg summaryMsg) {
	s := m.sess
	s.summaryPending = false

	if msg.sessionID == s.id {
		s.transcript.Discard(s.summarySegs)
		s.recording = false
	}
	s.summarySegs = 0
	if m.recorder != nil {
		m.recorder.RecordSummary(msg.sessionID, msg.result)
	}

	ctx = trace.WithSession(ctx, msg.sessionID, s.epoch)
	trace.Logger(ctx).Info("summary delivered", "source", msg.result.Source, "segments", msg.segments)
	m.publish()
	m.emit(ctx, msg.target, events.New(events.Summary, msg.sessionID, msg.result.Text))
}

// dispatch transcribes one chunk off the loop and posts the result back.
func (m *Manager) dispatch(chunk audio.Chunk) {
	ctx := m.runCtx
	snap := m.state.Get()
	if snap.Epoch == chunk.Epoch {
		ctx = trace.WithSession(ctx, snap.SessionID, chunk.Epoch)
	}
	ctx, _ = trace.EnsureContext(ctx)

	start := time.Now()
	text, err := m.transcriber.Transcribe(ctx, chunk)
	m.post(resultMsg{
		epoch:   chunk.Epoch,
		seq:     chunk.Seq,
		final:   chunk.Final,
		text:    text,
		err:     err,
		elapsed: time.Since(start),
	})
}

// captureStatus never blocks the capture goroutine. Progress lines are
// dropped while the inbox is full.
func (m *Manager) captureStatus(ctx context.Context, epoch uint64, text string) {
	select {
	case m.inbox <- statusMsg{epoch: epoch, text: text}:
	default:
		trace.Logger(ctx).Debug("capture status dropped", "epoch", epoch, "text", text)
	}
}

func (m *Manager) sourceEnded(epoch uint64) {
	m.post(endedMsg{epoch: epoch})
}

// post hands msg to the loop, giving up once the loop has exited.
func (m *Manager) post(msg message) {
	<-m.started
	select {
	case m.inbox <- msg:
	case <-m.runCtx.Done():
	case <-m.done:
	}
}

func (m *Manager) emit(ctx context.Context, target string, evt events.Event) {
	if target == "" || m.sink == nil {
		return
	}
	if evt.SessionID == "" {
		evt.SessionID = m.sess.id
	}
	m.sink.Send(ctx, target, evt)
}

// targetFor returns the bound surface, or surface when none is bound yet.
func (m *Manager) targetFor(surface string) string {
	if m.sess.target != "" {
		return m.sess.target
	}
	return surface
}

func (m *Manager) publish() {
	m.state.Set(m.sess.snapshot())
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

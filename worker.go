package dualcam

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LEKPCSTEAM/OpenCV-Camera-Capture/utils"
)

// WorkerState tracks a capture worker through its one-way lifecycle.
type WorkerState int32

// The lifecycle states. A worker runs once and is not reused:
// Created → Running → Stopping → Stopped.
const (
	StateCreated WorkerState = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s WorkerState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

const (
	defaultStopTimeout    = 3 * time.Second
	defaultReadRetryDelay = 250 * time.Millisecond
)

var (
	// ErrWorkerStarted is returned by Start on any call after the first.
	ErrWorkerStarted = errors.New("dualcam: worker already started")
	// ErrStopTimeout is returned by Stop when the acquisition goroutine
	// does not confirm termination within the configured bound.
	ErrStopTimeout = errors.New("dualcam: worker stop timed out")
)

// WorkerConfig configures a capture worker.
type WorkerConfig struct {
	// Side labels the camera slot the worker feeds.
	Side Side

	// Open opens the video source on the worker goroutine. A nil Open,
	// or one reporting ErrNoSource, leaves the worker idle until stopped.
	Open OpenFunc

	// PreviewBox bounds the display copy published to the GUI.
	// Defaults to the preview surface size.
	PreviewBox image.Point

	// StopTimeout bounds how long Stop waits for the acquisition
	// goroutine to confirm termination. Defaults to 3s.
	StopTimeout time.Duration

	// ReadRetryDelay spaces out read attempts after a failed read, so a
	// dead device does not spin the loop. Defaults to 250ms.
	ReadRetryDelay time.Duration

	// Log is the worker's logger. When nil, slog.Default() is used.
	Log *slog.Logger
}

// Worker continuously acquires frames from one camera source. The newest
// raw frame is kept in a single atomic slot read by Latest, and a
// display-fitted copy is pushed to the Frames channel with latest-wins
// semantics: when the consumer falls behind, the pending frame is replaced
// by the newer one and counted as dropped. The producer never blocks.
type Worker struct {
	cfg WorkerConfig
	log *slog.Logger

	state  atomic.Int32
	latest atomic.Pointer[Frame]
	frames chan Frame

	read     atomic.Uint64
	dropped  atomic.Uint64
	lastRead atomic.Int64

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started time.Time
}

// WorkerStats is a point-in-time snapshot of a worker's counters.
type WorkerStats struct {
	// FramesRead counts successful source reads.
	FramesRead uint64
	// FramesDropped counts preview frames replaced before the consumer
	// picked them up.
	FramesDropped uint64
	// LastFrameAt is the capture time of the newest frame, zero when the
	// source has not produced anything yet.
	LastFrameAt time.Time
}

// NewWorker returns a worker in the Created state.
func NewWorker(cfg WorkerConfig) *Worker {
	if cfg.PreviewBox.X <= 0 || cfg.PreviewBox.Y <= 0 {
		cfg.PreviewBox = image.Pt(previewWidth, previewHeight)
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = defaultStopTimeout
	}
	if cfg.ReadRetryDelay <= 0 {
		cfg.ReadRetryDelay = defaultReadRetryDelay
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		cfg:    cfg,
		log:    log.With(slog.String("side", string(cfg.Side))),
		frames: make(chan Frame, 1),
		done:   make(chan struct{}),
	}
}

// Start launches the acquisition goroutine. The context bounds the whole
// run; Stop cancels it as well. Starting twice, or after Stop, is an error.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if WorkerState(w.state.Load()) != StateCreated {
		return ErrWorkerStarted
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.started = time.Now()
	w.state.Store(int32(StateRunning))
	go w.run(ctx)

	w.log.Info("capture worker started")
	return nil
}

// Frames is the worker's notification channel toward the GUI: a
// single-producer/single-consumer channel carrying display-fitted copies,
// newest frame wins. It is closed when the acquisition goroutine exits.
func (w *Worker) Frames() <-chan Frame {
	return w.frames
}

// Latest returns the most recent raw frame without blocking. ok is false
// until the source has produced at least one frame.
func (w *Worker) Latest() (Frame, bool) {
	f := w.latest.Load()
	if f == nil {
		return Frame{}, false
	}
	return *f, true
}

// State returns the current lifecycle state.
func (w *Worker) State() WorkerState {
	return WorkerState(w.state.Load())
}

// Stats snapshots the worker's counters.
func (w *Worker) Stats() WorkerStats {
	s := WorkerStats{
		FramesRead:    w.read.Load(),
		FramesDropped: w.dropped.Load(),
	}
	if ns := w.lastRead.Load(); ns > 0 {
		s.LastFrameAt = time.Unix(0, ns)
	}
	return s
}

// Stop asks the acquisition goroutine to exit and waits for confirmation,
// bounded by the configured timeout so an unresponsive device driver cannot
// hang application shutdown. Stop is idempotent and safe on a worker that
// was never started.
func (w *Worker) Stop() error {
	w.mu.Lock()
	switch WorkerState(w.state.Load()) {
	case StateStopped, StateStopping:
		w.mu.Unlock()
		return nil
	case StateCreated:
		w.state.Store(int32(StateStopped))
		close(w.frames)
		close(w.done)
		w.mu.Unlock()
		return nil
	}
	w.state.Store(int32(StateStopping))
	cancel := w.cancel
	started := w.started
	w.mu.Unlock()

	cancel()
	select {
	case <-w.done:
		// The goroutine may have exited on its own context before the
		// Stopping store above landed; settle on Stopped either way.
		w.state.CompareAndSwap(int32(StateStopping), int32(StateStopped))
		w.log.Info("capture worker stopped",
			slog.String("uptime", utils.FormatTime(time.Since(started))),
			slog.Uint64("frames", w.read.Load()),
			slog.Uint64("dropped", w.dropped.Load()))
		return nil
	case <-time.After(w.cfg.StopTimeout):
		w.log.Warn("capture worker did not confirm stop in time",
			slog.Duration("timeout", w.cfg.StopTimeout))
		return ErrStopTimeout
	}
}

// run is the acquisition loop. It owns the source from open to close and is
// the only writer of the raw slot and the frames channel.
func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	defer w.state.Store(int32(StateStopped))
	defer close(w.frames)

	src := w.openSource(ctx)
	if src == nil {
		// Nothing to read from. Stay idle so the preview shows an empty
		// box and capture skips this side, then leave on stop.
		<-ctx.Done()
		return
	}
	defer src.Close()

	for ctx.Err() == nil {
		img, err := src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrSourceClosed) {
				return
			}
			w.log.Debug("frame read failed", slog.Any("error", err))
			sleepCtx(ctx, w.cfg.ReadRetryDelay)
			continue
		}
		w.publish(img)
	}
}

func (w *Worker) openSource(ctx context.Context) Source {
	if w.cfg.Open == nil {
		w.log.Info("no source configured, worker idle")
		return nil
	}
	src, err := w.cfg.Open()
	if err != nil {
		if errors.Is(err, ErrNoSource) {
			w.log.Info("no source configured, worker idle")
		} else {
			w.log.Error("opening source failed, worker idle", slog.Any("error", err))
		}
		return nil
	}
	w.log.Info("source opened")
	return src
}

// publish stores the raw frame in the atomic slot and hands a preview copy
// to the GUI. Both copies are immutable from here on.
func (w *Worker) publish(img image.Image) {
	raw := toNRGBA(img)
	frame := Frame{
		Image:      raw,
		Seq:        w.read.Add(1),
		CapturedAt: time.Now(),
	}
	w.latest.Store(&frame)
	w.lastRead.Store(frame.CapturedAt.UnixNano())

	preview := Frame{
		Image:      fitPreview(raw, w.cfg.PreviewBox),
		Seq:        frame.Seq,
		CapturedAt: frame.CapturedAt,
	}
	// Latest wins: replace the pending frame rather than block or queue.
	for {
		select {
		case w.frames <- preview:
			return
		default:
		}
		select {
		case <-w.frames:
			w.dropped.Add(1)
		default:
		}
	}
}

// sleepCtx sleeps for d or until the context is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

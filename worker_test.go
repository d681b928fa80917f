package dualcam

import (
	"context"
	"image"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimeout = 2 * time.Second

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testImage(w, h int) *image.NRGBA {
	return image.NewNRGBA(image.Rect(0, 0, w, h))
}

// stubSource serves pushed frames and blocks between them, like a camera
// that is waiting for the next exposure.
type stubSource struct {
	frames chan image.Image
	done   chan struct{}
	once   sync.Once
	closed atomic.Bool
}

func newStubSource(imgs ...image.Image) *stubSource {
	s := &stubSource{
		frames: make(chan image.Image, 16),
		done:   make(chan struct{}),
	}
	for _, img := range imgs {
		s.frames <- img
	}
	return s
}

func (s *stubSource) push(img image.Image) {
	s.frames <- img
}

func (s *stubSource) Next(ctx context.Context) (image.Image, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrSourceClosed
	case img := <-s.frames:
		return img, nil
	}
}

func (s *stubSource) Close() error {
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.done)
	})
	return nil
}

// wedgedSource simulates a driver that never returns from a read and
// ignores cancellation. started is closed once a read is underway.
type wedgedSource struct {
	started chan struct{}
	once    sync.Once
}

func (s *wedgedSource) Next(ctx context.Context) (image.Image, error) {
	s.once.Do(func() { close(s.started) })
	select {}
}

func (s *wedgedSource) Close() error { return nil }

// flakySource fails a number of reads before serving one frame.
type flakySource struct {
	failures int
	img      image.Image
}

func (s *flakySource) Next(ctx context.Context) (image.Image, error) {
	if s.failures > 0 {
		s.failures--
		return nil, ErrNoFrame
	}
	if s.img != nil {
		img := s.img
		s.img = nil
		return img, nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *flakySource) Close() error { return nil }

func stubWorker(src Source, side Side) *Worker {
	return NewWorker(WorkerConfig{
		Side: side,
		Open: func() (Source, error) { return src, nil },
		Log:  discardLogger(),
	})
}

func TestWorkerLifecycle(t *testing.T) {
	src := newStubSource(testImage(64, 48))
	w := stubWorker(src, SideLeft)
	assert.Equal(t, StateCreated, w.State())

	require.NoError(t, w.Start(context.Background()))
	assert.Equal(t, StateRunning, w.State())

	select {
	case f, ok := <-w.Frames():
		require.True(t, ok)
		assert.Equal(t, uint64(1), f.Seq)
		assert.Equal(t, image.Pt(64, 48), f.Size())
	case <-time.After(testTimeout):
		t.Fatal("no frame within the deadline")
	}

	require.NoError(t, w.Stop())
	assert.Equal(t, StateStopped, w.State())
	assert.True(t, src.closed.Load(), "stop must release the source")

	_, ok := <-w.Frames()
	assert.False(t, ok, "frames channel must be closed after stop")
}

func TestWorkerStartTwice(t *testing.T) {
	w := stubWorker(newStubSource(), SideLeft)
	require.NoError(t, w.Start(context.Background()))
	assert.ErrorIs(t, w.Start(context.Background()), ErrWorkerStarted)
	require.NoError(t, w.Stop())
	assert.ErrorIs(t, w.Start(context.Background()), ErrWorkerStarted)
}

func TestWorkerLatestWins(t *testing.T) {
	src := newStubSource()
	w := stubWorker(src, SideLeft)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	// Nobody is draining Frames, so each new preview replaces the
	// pending one instead of blocking the producer.
	src.push(testImage(8, 8))
	src.push(testImage(8, 8))
	src.push(testImage(8, 8))
	require.Eventually(t, func() bool {
		s := w.Stats()
		return s.FramesRead == 3 && s.FramesDropped == 2 && len(w.frames) == 1
	}, testTimeout, 5*time.Millisecond)

	latest, ok := w.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(3), latest.Seq, "the slot holds the newest raw frame")

	select {
	case f := <-w.Frames():
		assert.Equal(t, uint64(3), f.Seq, "the consumer sees only the newest preview")
	default:
		t.Fatal("expected a pending preview frame")
	}
}

func TestWorkerPreviewFitted(t *testing.T) {
	src := newStubSource(testImage(1920, 1080))
	w := stubWorker(src, SideRight)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	select {
	case f := <-w.Frames():
		assert.Equal(t, image.Pt(480, 270), f.Size(), "previews are fitted to the surface box")
	case <-time.After(testTimeout):
		t.Fatal("no frame within the deadline")
	}

	latest, ok := w.Latest()
	require.True(t, ok)
	assert.Equal(t, image.Pt(1920, 1080), latest.Size(), "the raw slot keeps full resolution")
}

func TestWorkerReadFailureContinues(t *testing.T) {
	src := &flakySource{failures: 2, img: testImage(8, 8)}
	w := NewWorker(WorkerConfig{
		Side:           SideLeft,
		Open:           func() (Source, error) { return src, nil },
		ReadRetryDelay: time.Millisecond,
		Log:            discardLogger(),
	})
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	select {
	case f := <-w.Frames():
		assert.Equal(t, uint64(1), f.Seq, "failed reads must not be counted")
	case <-time.After(testTimeout):
		t.Fatal("worker gave up after transient read failures")
	}
}

func TestWorkerNoSource(t *testing.T) {
	w := NewWorker(WorkerConfig{
		Side: SideLeft,
		Open: (SourceRef{}).Opener(),
		Log:  discardLogger(),
	})
	require.NoError(t, w.Start(context.Background()))

	_, ok := w.Latest()
	assert.False(t, ok)
	select {
	case f := <-w.Frames():
		t.Fatalf("idle worker published frame %d", f.Seq)
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, w.Stop())
	assert.Equal(t, StateStopped, w.State())
}

func TestWorkerOpenFailure(t *testing.T) {
	w := NewWorker(WorkerConfig{
		Side: SideRight,
		Open: func() (Source, error) { return nil, assert.AnError },
		Log:  discardLogger(),
	})
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop(), "an unopenable source must not wedge shutdown")
}

func TestWorkerStopIdempotent(t *testing.T) {
	w := stubWorker(newStubSource(), SideLeft)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
	assert.Equal(t, StateStopped, w.State())
}

func TestWorkerStopNeverStarted(t *testing.T) {
	w := stubWorker(newStubSource(), SideLeft)
	require.NoError(t, w.Stop())
	assert.Equal(t, StateStopped, w.State())

	_, ok := <-w.Frames()
	assert.False(t, ok, "frames channel must be closed")
}

func TestWorkerStopTimeout(t *testing.T) {
	src := &wedgedSource{started: make(chan struct{})}
	w := NewWorker(WorkerConfig{
		Side:        SideLeft,
		Open:        func() (Source, error) { return src, nil },
		StopTimeout: 50 * time.Millisecond,
		Log:         discardLogger(),
	})
	require.NoError(t, w.Start(context.Background()))

	select {
	case <-src.started:
	case <-time.After(testTimeout):
		t.Fatal("source read never started")
	}

	err := w.Stop()
	assert.ErrorIs(t, err, ErrStopTimeout)
	assert.Equal(t, StateStopping, w.State(), "a wedged worker must not report stopped")
}

func TestWorkerContextCancelStops(t *testing.T) {
	src := newStubSource()
	w := stubWorker(src, SideRight)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()

	require.Eventually(t, func() bool {
		return w.State() == StateStopped
	}, testTimeout, 5*time.Millisecond, "context cancellation must end the run")
	assert.True(t, src.closed.Load())
}

func TestWorkerStopAfterContextCancel(t *testing.T) {
	src := newStubSource()
	w := stubWorker(src, SideLeft)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))

	// Stop races the goroutine tearing itself down on the cancelled
	// context; whichever order the state stores land in, a returned Stop
	// means the worker is stopped.
	cancel()
	require.NoError(t, w.Stop())
	assert.Equal(t, StateStopped, w.State())
	assert.True(t, src.closed.Load())
}

func TestTwoWorkersPublish(t *testing.T) {
	workers := map[Side]*Worker{
		SideLeft:  stubWorker(newStubSource(testImage(32, 24)), SideLeft),
		SideRight: stubWorker(newStubSource(testImage(32, 24)), SideRight),
	}
	for _, w := range workers {
		require.NoError(t, w.Start(context.Background()))
	}
	defer func() {
		for _, w := range workers {
			w.Stop()
		}
	}()

	for side, w := range workers {
		select {
		case f, ok := <-w.Frames():
			require.True(t, ok)
			assert.Equal(t, uint64(1), f.Seq, "side %s", side)
		case <-time.After(testTimeout):
			t.Fatalf("side %s produced no frame", side)
		}
	}
}

func TestWorkerStateString(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("created", StateCreated.String())
	assert.Equal("running", StateRunning.String())
	assert.Equal("stopping", StateStopping.String())
	assert.Equal("stopped", StateStopped.String())
	assert.Equal("unknown", WorkerState(42).String())
}

package dualcam

import (
	"context"
	"log/slog"
	"time"

	"gioui.org/app"
	"gioui.org/font/gofont"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/paint"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
)

type (
	C = layout.Context
	D = layout.Dimensions
)

// Window geometry, fixed like the original utility's.
const (
	windowTitle  = "Dual Camera Viewer"
	windowWidth  = 1000
	windowHeight = 520

	previewWidth  = 480
	previewHeight = 360

	// staleAfter is how long a preview may keep its last frame before the
	// surface flags the feed as gone quiet.
	staleAfter = 2 * time.Second
)

// Options configures the GUI application. The zero value loads the default
// config files and writes below the default results directory.
type Options struct {
	// MaterialsPath and CamerasPath override the configuration file
	// locations.
	MaterialsPath string
	CamerasPath   string

	// ResultsDir overrides the capture output root.
	ResultsDir string

	// Log is the application logger. When nil, slog.Default() is used.
	Log *slog.Logger
}

// Gui owns the window and all UI state: the two preview surfaces, the
// material selector, the capture button and the report dialog. It wires the
// capture workers to the surfaces and manages their lifecycle with the
// window's.
type Gui struct {
	log   *slog.Logger
	theme *material.Theme
	saver *Saver

	workers  map[Side]*Worker
	surfaces map[Side]*previewSurface

	selector   *selector
	captureBtn widget.Clickable
	dialog     dialog
}

// NewGui loads the configuration and prepares the workers and widgets.
// Workers do not start acquiring until Run.
func NewGui(opts Options) *Gui {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	if opts.MaterialsPath == "" {
		opts.MaterialsPath = MaterialsPath
	}
	if opts.CamerasPath == "" {
		opts.CamerasPath = CamerasPath
	}

	loader := &Loader{Log: log}
	materials := loader.Materials(opts.MaterialsPath)
	cameras := loader.Cameras(opts.CamerasPath)

	th := material.NewTheme()
	th.Shaper = text.NewShaper(text.WithCollection(gofont.Collection()))
	th.Palette.ContrastBg = captureButtonColor

	saver := NewSaver(opts.ResultsDir)
	saver.Log = log

	g := &Gui{
		log:      log,
		theme:    th,
		saver:    saver,
		selector: newSelector(materials),
		workers:  make(map[Side]*Worker, 2),
		surfaces: make(map[Side]*previewSurface, 2),
	}
	for _, side := range Sides() {
		ref := cameras.Ref(side)
		if !ref.IsZero() {
			log.Info("camera configured",
				slog.String("side", string(side)), slog.String("source", ref.String()))
		}
		g.workers[side] = NewWorker(WorkerConfig{
			Side: side,
			Open: ref.Opener(),
			Log:  log,
		})
		g.surfaces[side] = &previewSurface{side: side}
	}
	return g
}

// Run starts both capture workers and drives the window event loop until
// the window closes. On close the workers are stopped with a bounded wait
// before the loop returns, so no device handle outlives the window.
func (g *Gui) Run(w *app.Window) error {
	w.Option(
		app.Title(windowTitle),
		app.Size(unit.Dp(windowWidth), unit.Dp(windowHeight)),
		app.MinSize(unit.Dp(windowWidth), unit.Dp(windowHeight)),
		app.MaxSize(unit.Dp(windowWidth), unit.Dp(windowHeight)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer g.stopWorkers()

	for _, side := range Sides() {
		worker := g.workers[side]
		if err := worker.Start(ctx); err != nil {
			return err
		}
		go g.forward(w, worker, g.surfaces[side])
	}

	var ops op.Ops
	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			return e.Err
		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)
			g.update(gtx)
			g.layout(gtx)
			e.Frame(gtx.Ops)
		}
	}
}

// forward feeds published frames into the side's preview surface and wakes
// the window. It exits when the worker's channel closes.
func (g *Gui) forward(w *app.Window, worker *Worker, surface *previewSurface) {
	for frame := range worker.Frames() {
		surface.update(frame)
		w.Invalidate()
	}
}

func (g *Gui) stopWorkers() {
	for _, side := range Sides() {
		if err := g.workers[side].Stop(); err != nil {
			g.log.Warn("stopping worker failed",
				slog.String("side", string(side)), slog.Any("error", err))
		}
	}
}

// update folds the queued input into the UI state. While the dialog is up
// it is the only control taking input.
func (g *Gui) update(gtx C) {
	if g.dialog.visible {
		if g.dialog.ok.Clicked(gtx) {
			g.dialog.visible = false
		}
		return
	}
	if g.captureBtn.Clicked(gtx) {
		g.capture()
	}
	g.selector.update(gtx)
}

// capture snapshots the latest raw frame of each side, writes the stills
// and raises the outcome dialog.
func (g *Gui) capture() {
	frames := make(map[Side]Frame, 2)
	for _, side := range Sides() {
		if f, ok := g.workers[side].Latest(); ok {
			frames[side] = f
		}
	}

	ev := g.saver.Capture(g.selector.Value(), frames)
	if ev.Success() {
		lines := append([]string{"Saved images:"}, ev.Paths()...)
		g.dialog.show(dialogSuccess, "Capture complete", lines)
	} else {
		g.dialog.show(dialogWarning, "No images captured",
			[]string{"No image could be saved. Check the camera connections."})
	}
	g.log.Info("capture finished",
		slog.String("capture", ev.ID.String()),
		slog.String("material", ev.Material),
		slog.Int("saved", len(ev.Saved)),
		slog.Int("skipped", len(ev.Skipped)),
		slog.Int("failed", len(ev.Failed)))
}

func (g *Gui) layout(gtx C) {
	paint.Fill(gtx.Ops, backdropColor)

	content := gtx
	if g.dialog.visible {
		content = gtx.Disabled()
	}
	g.layoutContent(content)

	if g.dialog.visible {
		g.dialog.Layout(gtx, g.theme)
	}

	// The forwarding goroutines redraw on every frame; an extra deferred
	// redraw keeps the stale notice honest after a feed goes quiet.
	if g.hasFrames() {
		gtx.Execute(op.InvalidateCmd{At: gtx.Now.Add(time.Second)})
	}
}

func (g *Gui) hasFrames() bool {
	for _, s := range g.surfaces {
		if s.frame.Load() != nil {
			return true
		}
	}
	return false
}

func (g *Gui) layoutContent(gtx C) D {
	return layout.UniformInset(unit.Dp(10)).Layout(gtx, func(gtx C) D {
		return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
			layout.Flexed(1, func(gtx C) D {
				return layout.Flex{Axis: layout.Horizontal, Alignment: layout.Middle}.Layout(gtx,
					layout.Flexed(1, func(gtx C) D {
						return layout.Center.Layout(gtx, func(gtx C) D {
							return g.surfaces[SideLeft].Layout(gtx, g.theme)
						})
					}),
					layout.Rigid(layout.Spacer{Width: unit.Dp(10)}.Layout),
					layout.Flexed(1, func(gtx C) D {
						return layout.Center.Layout(gtx, func(gtx C) D {
							return g.surfaces[SideRight].Layout(gtx, g.theme)
						})
					}),
				)
			}),
			layout.Rigid(layout.Spacer{Height: unit.Dp(10)}.Layout),
			layout.Rigid(func(gtx C) D {
				return layout.Flex{Axis: layout.Horizontal, Alignment: layout.Middle}.Layout(gtx,
					layout.Flexed(1, func(gtx C) D {
						return g.selector.Layout(gtx, g.theme)
					}),
					layout.Rigid(layout.Spacer{Width: unit.Dp(10)}.Layout),
					layout.Flexed(1, func(gtx C) D {
						btn := material.Button(g.theme, &g.captureBtn, "Capture Image")
						btn.Background = captureButtonColor
						btn.Inset = layout.UniformInset(unit.Dp(10))
						return btn.Layout(gtx)
					}),
				)
			}),
		)
	})
}

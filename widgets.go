package dualcam

import (
	"image"
	"image/color"
	"sync/atomic"

	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"golang.org/x/exp/shiny/materialdesign/icons"

	"github.com/LEKPCSTEAM/OpenCV-Camera-Capture/utils"
)

// dropdownIcon is the selector's caret. The icon data is known good, so the
// error is discarded.
var dropdownIcon, _ = widget.NewIcon(icons.NavigationArrowDropDown)

// Colors matching the original utility's look.
var (
	backdropColor      = color.NRGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 0xff}
	previewBgColor     = color.NRGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff}
	previewBorderColor = color.NRGBA{R: 0xaa, G: 0xaa, B: 0xaa, A: 0xff}
	controlBorderColor = color.NRGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xff}
	selectionColor     = color.NRGBA{R: 0xd0, G: 0xd0, B: 0xd0, A: 0xff}
	captureButtonColor = color.NRGBA{R: 0x4c, G: 0xaf, B: 0x50, A: 0xff}
	warningAccentColor = color.NRGBA{R: 0xf4, G: 0x43, B: 0x36, A: 0xff}
	surfaceColor       = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	placeholderFgColor = color.NRGBA{R: 0x77, G: 0x77, B: 0x77, A: 0xff}
	staleNoticeBgColor = color.NRGBA{R: 0xf4, G: 0x43, B: 0x36, A: 0xdd}
	scrimColor         = color.NRGBA{A: 0x99}
)

// previewSurface renders the newest published frame of one camera side,
// centered in a fixed display box. It holds nothing but the frame currently
// on screen; the forwarding goroutine replaces it and the UI reads it.
type previewSurface struct {
	side  Side
	frame atomic.Pointer[Frame]
}

// update replaces the displayed frame.
func (s *previewSurface) update(f Frame) {
	s.frame.Store(&f)
}

// Layout draws the preview box: a rounded bordered field with the frame
// letterboxed inside it, the side name before the first frame arrives, and
// a notice once the feed stops updating.
func (s *previewSurface) Layout(gtx C, th *material.Theme) D {
	size := image.Pt(gtx.Dp(previewWidth), gtx.Dp(previewHeight))
	gtx.Constraints = layout.Exact(size)

	return widget.Border{
		Color:        previewBorderColor,
		CornerRadius: unit.Dp(10),
		Width:        unit.Dp(2),
	}.Layout(gtx, func(gtx C) D {
		defer clip.UniformRRect(image.Rectangle{Max: size}, gtx.Dp(10)).Push(gtx.Ops).Pop()
		paint.Fill(gtx.Ops, previewBgColor)

		frame := s.frame.Load()
		if frame == nil {
			return layout.Center.Layout(gtx, func(gtx C) D {
				lbl := material.Body1(th, string(s.side)+" camera")
				lbl.Color = placeholderFgColor
				return lbl.Layout(gtx)
			})
		}

		frameImage(frame).Layout(gtx)

		if gtx.Now.Sub(frame.CapturedAt) > staleAfter {
			layout.Inset{Top: unit.Dp(8), Left: unit.Dp(8)}.Layout(gtx, func(gtx C) D {
				return notice(gtx, th, "no signal")
			})
		}
		return D{Size: size}
	})
}

// frameImage wraps a frame for display. Contain scales in both directions,
// so a frame smaller than the box fills it, the way the original viewer
// stretches small feeds.
func frameImage(f *Frame) widget.Image {
	return widget.Image{
		Src:      paint.NewImageOp(f.Image),
		Fit:      widget.Contain,
		Position: layout.Center,
	}
}

// notice draws a small rounded badge with white text.
func notice(gtx C, th *material.Theme, txt string) D {
	m := op.Record(gtx.Ops)
	dims := layout.Inset{
		Top: unit.Dp(4), Bottom: unit.Dp(4),
		Left: unit.Dp(8), Right: unit.Dp(8),
	}.Layout(gtx, func(gtx C) D {
		lbl := material.Body2(th, txt)
		lbl.Color = surfaceColor
		return lbl.Layout(gtx)
	})
	call := m.Stop()

	defer clip.UniformRRect(image.Rectangle{Max: dims.Size}, gtx.Dp(6)).Push(gtx.Ops).Pop()
	paint.Fill(gtx.Ops, staleNoticeBgColor)
	call.Add(gtx.Ops)
	return dims
}

// selector is a minimal dropdown: a clickable field showing the current
// choice and, while open, the option list floated above it. With an empty
// item list the field stays blank and Value returns the empty string.
type selector struct {
	items   []string
	current int
	open    bool
	field   widget.Clickable
	options []widget.Clickable
	list    widget.List
}

func newSelector(items []string) *selector {
	return &selector{
		items:   items,
		options: make([]widget.Clickable, len(items)),
		list:    widget.List{List: layout.List{Axis: layout.Vertical}},
	}
}

// Value returns the selected label.
func (s *selector) Value() string {
	if len(s.items) == 0 || s.current >= len(s.items) {
		return ""
	}
	return s.items[s.current]
}

// update folds the queued clicks into the selector state.
func (s *selector) update(gtx C) {
	if s.field.Clicked(gtx) {
		s.open = !s.open
	}
	for i := range s.options {
		if s.options[i].Clicked(gtx) {
			s.current = i
			s.open = false
		}
	}
}

func (s *selector) Layout(gtx C, th *material.Theme) D {
	dims := widget.Border{
		Color:        controlBorderColor,
		CornerRadius: unit.Dp(6),
		Width:        unit.Dp(1),
	}.Layout(gtx, func(gtx C) D {
		return s.field.Layout(gtx, func(gtx C) D {
			gtx.Constraints.Min.X = gtx.Constraints.Max.X
			defer clip.UniformRRect(image.Rectangle{Max: gtx.Constraints.Min}, gtx.Dp(6)).Push(gtx.Ops).Pop()
			paint.Fill(gtx.Ops, surfaceColor)

			return layout.UniformInset(unit.Dp(10)).Layout(gtx, func(gtx C) D {
				return layout.Flex{Axis: layout.Horizontal, Alignment: layout.Middle}.Layout(gtx,
					layout.Flexed(1, material.Body1(th, s.Value()).Layout),
					layout.Rigid(func(gtx C) D {
						sz := gtx.Dp(20)
						gtx.Constraints.Min = image.Pt(sz, sz)
						return dropdownIcon.Layout(gtx, placeholderFgColor)
					}),
				)
			})
		})
	})

	if s.open && len(s.items) > 0 {
		s.layoutOptions(gtx, th, dims.Size.X)
	}
	return dims
}

// layoutOptions records the option list and defers it above the field, so
// it is drawn over the rest of the frame and never clips at the window's
// bottom edge.
func (s *selector) layoutOptions(gtx C, th *material.Theme, width int) {
	m := op.Record(gtx.Ops)
	gtx.Constraints.Min = image.Pt(width, 0)
	gtx.Constraints.Max.X = width
	gtx.Constraints.Max.Y = utils.Min(gtx.Dp(240), gtx.Constraints.Max.Y)

	dims := widget.Border{
		Color:        controlBorderColor,
		CornerRadius: unit.Dp(6),
		Width:        unit.Dp(1),
	}.Layout(gtx, func(gtx C) D {
		defer clip.UniformRRect(image.Rectangle{Max: gtx.Constraints.Max}, gtx.Dp(6)).Push(gtx.Ops).Pop()
		paint.Fill(gtx.Ops, surfaceColor)

		return material.List(th, &s.list).Layout(gtx, len(s.items), func(gtx C, i int) D {
			return s.options[i].Layout(gtx, func(gtx C) D {
				width := gtx.Constraints.Max.X
				m := op.Record(gtx.Ops)
				dims := layout.UniformInset(unit.Dp(8)).Layout(gtx,
					material.Body1(th, s.items[i]).Layout)
				call := m.Stop()

				if i == s.current {
					paint.FillShape(gtx.Ops, selectionColor,
						clip.Rect{Max: image.Pt(width, dims.Size.Y)}.Op())
				}
				call.Add(gtx.Ops)
				return D{Size: image.Pt(width, dims.Size.Y)}
			})
		})
	})
	listCall := m.Stop()

	m = op.Record(gtx.Ops)
	stack := op.Offset(image.Pt(0, -(dims.Size.Y + gtx.Dp(4)))).Push(gtx.Ops)
	listCall.Add(gtx.Ops)
	stack.Pop()
	op.Defer(gtx.Ops, m.Stop())
}

// dialogKind selects the report dialog's accent.
type dialogKind int

const (
	dialogSuccess dialogKind = iota
	dialogWarning
)

// dialog is the modal capture report. While visible the controls underneath
// are disabled; OK dismisses it.
type dialog struct {
	visible bool
	kind    dialogKind
	title   string
	lines   []string
	ok      widget.Clickable
}

func (d *dialog) show(kind dialogKind, title string, lines []string) {
	d.kind = kind
	d.title = title
	d.lines = lines
	d.visible = true
}

func (d *dialog) Layout(gtx C, th *material.Theme) D {
	paint.FillShape(gtx.Ops, scrimColor, clip.Rect{Max: gtx.Constraints.Max}.Op())

	accent := captureButtonColor
	if d.kind == dialogWarning {
		accent = warningAccentColor
	}

	return layout.Center.Layout(gtx, func(gtx C) D {
		gtx.Constraints.Max.X = utils.Min(gtx.Dp(560), gtx.Constraints.Max.X)
		return widget.Border{
			Color:        controlBorderColor,
			CornerRadius: unit.Dp(8),
			Width:        unit.Dp(1),
		}.Layout(gtx, func(gtx C) D {
			m := op.Record(gtx.Ops)
			dims := layout.UniformInset(unit.Dp(16)).Layout(gtx, func(gtx C) D {
				children := []layout.FlexChild{
					layout.Rigid(func(gtx C) D {
						title := material.H6(th, d.title)
						title.Color = accent
						return title.Layout(gtx)
					}),
					layout.Rigid(layout.Spacer{Height: unit.Dp(8)}.Layout),
				}
				for _, line := range d.lines {
					children = append(children, layout.Rigid(material.Body1(th, line).Layout))
				}
				children = append(children,
					layout.Rigid(layout.Spacer{Height: unit.Dp(14)}.Layout),
					layout.Rigid(func(gtx C) D {
						return layout.E.Layout(gtx, func(gtx C) D {
							btn := material.Button(th, &d.ok, "OK")
							btn.Background = accent
							return btn.Layout(gtx)
						})
					}),
				)
				return layout.Flex{Axis: layout.Vertical}.Layout(gtx, children...)
			})
			call := m.Stop()

			defer clip.UniformRRect(image.Rectangle{Max: dims.Size}, gtx.Dp(8)).Push(gtx.Ops).Pop()
			paint.Fill(gtx.Ops, surfaceColor)
			call.Add(gtx.Ops)
			return dims
		})
	})
}

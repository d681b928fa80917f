/*
Package dualcam implements a two-camera desktop viewer which previews both
video feeds side by side and saves a synchronized still frame from each of
them on user command, named after the selected material label.

Each camera runs on its own capture worker. The worker keeps only the most
recent raw frame, exchanged as an immutable value, and publishes a
display-fitted copy to the GUI over a latest-wins channel, so the preview
never lags behind the feed and a capture never blocks on camera I/O.

The package provides a runnable GUI application:

	package main

	import (
		"gioui.org/app"

		dualcam "github.com/LEKPCSTEAM/OpenCV-Camera-Capture"
	)

	func main() {
		go func() {
			gui := dualcam.NewGui(dualcam.Options{})
			w := new(app.Window)
			if err := gui.Run(w); err != nil {
				// handle the error
			}
		}()
		app.Main()
	}

Captured stills are written under results/<DD_MM_YYYY>/ with one PNG file
per camera side and a <material>_<side>_<timestamp>.png naming scheme.
*/
package dualcam

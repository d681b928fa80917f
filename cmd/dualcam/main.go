package main

import (
	"log"
	"log/slog"
	"os"

	"gioui.org/app"

	dualcam "github.com/LEKPCSTEAM/OpenCV-Camera-Capture"
	"github.com/LEKPCSTEAM/OpenCV-Camera-Capture/utils"
)

// Version indicates the current build version.
var Version string

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	logger.Info("starting dual camera viewer", slog.String("version", version()))

	// The GUI loop runs on its own goroutine; app.Main must own the main
	// OS thread.
	go func() {
		gui := dualcam.NewGui(dualcam.Options{Log: logger})
		w := new(app.Window)
		if err := gui.Run(w); err != nil {
			log.Fatalf(
				utils.DecorateText("Viewer terminated: %v", utils.ErrorMessage),
				utils.DecorateText(err.Error(), utils.DefaultMessage),
			)
		}
		os.Exit(0)
	}()
	app.Main()
}

func version() string {
	if Version == "" {
		return "devel"
	}
	return Version
}

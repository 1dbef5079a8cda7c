// Package launcher hands URIs to the platform's default handler.
package launcher

import (
	"io"

	"github.com/pkg/browser"
	"go.uber.org/zap"
)

// Launcher opens a URI. It reports only success or failure.
type Launcher interface {
	LaunchURI(uri string) bool
}

func init() {
	// xdg-open and friends chatter on stdout; keep it out of the daemon's output.
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

// Default uses xdg-open, open or rundll32 depending on the OS.
type Default struct {
	Logger *zap.Logger

	open func(string) error
}

func New(logger *zap.Logger) *Default {
	return &Default{Logger: logger, open: browser.OpenURL}
}

func (d *Default) LaunchURI(uri string) bool {
	if err := d.open(uri); err != nil {
		d.Logger.Debug("launch_default_handler_failed", zap.String("uri", uri), zap.Error(err))
		return false
	}
	return true
}

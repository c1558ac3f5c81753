// Package area asks the user to draw a capture region with slurp.
package area

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/alkime/screenrec/internal/procgroup"
)

// DefaultPickerBin is the region picker used when none is configured.
const DefaultPickerBin = "slurp"

// ErrPickerNotFound means the picker binary is not installed.
var ErrPickerNotFound = errors.New("slurp not found, install it to use area selection")

// Picker runs an interactive region picker.
type Picker struct {
	Bin    string
	Logger *slog.Logger
}

// NewPicker returns a picker for bin, or slurp when bin is empty.
func NewPicker(bin string, logger *slog.Logger) *Picker {
	if bin == "" {
		bin = DefaultPickerBin
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Picker{Bin: bin, Logger: logger}
}

// Select blocks until the user has drawn a region or cancelled. A drawn
// region is returned verbatim with ok set. A cancelled selection or a picker
// failure reports ok false and no error; only a missing binary is an error.
func (p *Picker) Select(ctx context.Context) (string, bool, error) {
	//nolint:gosec // picker binary comes from local config
	cmd := exec.CommandContext(ctx, p.Bin)
	procgroup.Set(cmd)
	cmd.Cancel = func() error { return procgroup.Kill(cmd) }
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return "", false, fmt.Errorf("%w: %s", ErrPickerNotFound, p.Bin)
		}

		return "", false, fmt.Errorf("failed to run %s: %w", p.Bin, err)
	}

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", false, ctxErr
		}

		p.Logger.Debug("area selection cancelled", "error", err, "stderr", strings.TrimSpace(stderr.String()))

		return "", false, nil
	}

	geometry := strings.TrimSpace(stdout.String())
	if geometry == "" {
		return "", false, nil
	}

	return geometry, true, nil
}

// GeometryStore persists the capture region.
type GeometryStore interface {
	SetGeometry(geometry *string) error
}

// Selector is anything that can produce a region interactively.
type Selector interface {
	Select(ctx context.Context) (string, bool, error)
}

// Choose runs the selector and stores the outcome: a drawn region is saved,
// anything else resets to full screen. It returns the stored geometry.
func Choose(ctx context.Context, sel Selector, store GeometryStore) (*string, error) {
	geometry, ok, err := sel.Select(ctx)
	if err != nil {
		return nil, err
	}

	var stored *string
	if ok {
		stored = &geometry
	}

	if err := store.SetGeometry(stored); err != nil {
		return stored, fmt.Errorf("failed to save area: %w", err)
	}

	return stored, nil
}

// Describe renders a geometry for display.
func Describe(geometry *string) string {
	if geometry == nil || *geometry == "" {
		return "Full Screen"
	}

	return "Area: " + *geometry
}

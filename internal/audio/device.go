// Package audio lists the capture devices wf-recorder can record from.
package audio

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/alkime/screenrec/pkg/collections"
	"github.com/gen2brain/malgo"
)

// Lister enumerates capture devices.
type Lister interface {
	CaptureDevices(ctx context.Context) ([]Info, error)
}

// MalgoLister asks miniaudio for the system's capture devices.
type MalgoLister struct {
	Logger *slog.Logger
}

var _ Lister = (*MalgoLister)(nil)

func NewLister(logger *slog.Logger) *MalgoLister {
	if logger == nil {
		logger = slog.Default()
	}

	return &MalgoLister{Logger: logger}
}

func (l *MalgoLister) CaptureDevices(ctx context.Context) ([]Info, error) {
	// an empty context is enough for enumeration
	devCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		l.Logger.Debug("malgo", "msg", strings.TrimSpace(msg))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer l.uninitializeContext(devCtx)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	captureDevices, err := devCtx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to get capture devices: %w", err)
	}

	return collections.Apply(captureDevices, malgoDeviceInfoToInfo), nil
}

func (l *MalgoLister) uninitializeContext(devCtx *malgo.AllocatedContext) {
	if devCtx == nil {
		return
	}

	if err := devCtx.Uninit(); err != nil {
		l.Logger.Error("failed to uninitialize malgo context", "error", err)
	}
	devCtx.Free()
}

// Format is one native sample format of a device.
type Format struct {
	SampleSizeBytes int
	Channels        int
	SampleRate      int
}

func (f Format) String() string {
	rate := "any rate"
	if f.SampleRate > 0 {
		rate = fmt.Sprintf("%d Hz", f.SampleRate)
	}

	return fmt.Sprintf("%d-bit, %d ch, %s", f.SampleSizeBytes*8, f.Channels, rate)
}

// Info describes a capture device.
type Info struct {
	Name      string
	IsDefault bool
	Formats   []Format
}

func malgoDeviceInfoToInfo(mdi malgo.DeviceInfo) Info {
	formats := make([]Format, int(mdi.FormatCount))
	for i := range formats {
		mf := mdi.Formats[i]
		formats[i] = Format{
			SampleSizeBytes: malgo.SampleSizeInBytes(mf.Format),
			Channels:        int(mf.Channels),
			SampleRate:      int(mf.SampleRate),
		}
	}

	return Info{
		Name:      mdi.Name(),
		IsDefault: mdi.IsDefault != 0,
		Formats:   formats,
	}
}

// Names returns device names with the default device first.
func Names(devices []Info) []string {
	sorted := slices.Clone(devices)
	slices.SortStableFunc(sorted, func(a, b Info) int {
		switch {
		case a.IsDefault == b.IsDefault:
			return 0
		case a.IsDefault:
			return -1
		default:
			return 1
		}
	})

	return collections.Apply(sorted, func(i Info) string { return i.Name })
}

// Find looks a device up by exact name, falling back to a case-insensitive
// substring match when exactly one device matches.
func Find(devices []Info, query string) (Info, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Info{}, false
	}

	for _, d := range devices {
		if d.Name == query {
			return d, true
		}
	}

	needle := strings.ToLower(query)
	found := collections.Filter(devices, func(d Info) bool {
		return strings.Contains(strings.ToLower(d.Name), needle)
	})

	if len(found) == 1 {
		return found[0], true
	}

	return Info{}, false
}

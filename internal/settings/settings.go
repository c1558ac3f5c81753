// Package settings holds the recorder options chosen by the user and
// persists them as a flat JSON object.
package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strconv"
)

// Sentinel errors for key/value edits.
var (
	ErrUnknownKey   = errors.New("unknown settings key")
	ErrInvalidValue = errors.New("invalid settings value")
)

// Settings is the full set of recorder options. JSON names are the
// persisted keys.
type Settings struct {
	OutputDirectory      string
	Framerate            string
	AudioEnabled         bool
	AudioDevice          string
	Codec                string
	PixelFormat          string
	AudioCodec           string
	SampleRate           string
	CustomParams         string
	LiveCSSReload        bool
	Geometry             *string // nil means full screen
	VideoBitrate         string
	AudioBitrate         string
	ContainerFormat      string
	HardwareAcceleration bool
	GPUDevice            string
	Preset               string
	CRF                  string
	BufferSize           string
	Threads              string
	StopShortcut         string

	// unknown keys from disk, compacted, written back untouched
	extra map[string]json.RawMessage
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		OutputDirectory: defaultOutputDirectory(),
		Framerate:       "30",
		AudioEnabled:    true,
		Codec:           "libx264",
		PixelFormat:     "yuv420p",
		AudioCodec:      "aac",
		SampleRate:      "48000",
		ContainerFormat: "mp4",
		Preset:          "medium",
		CRF:             "23",
	}
}

func defaultOutputDirectory() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "Videos"
	}

	return filepath.Join(home, "Videos")
}

type field struct {
	key string
	ptr func(s *Settings) any // *string, *bool or **string
}

// schema lists every known key in display order.
var schema = []field{
	{"output_directory", func(s *Settings) any { return &s.OutputDirectory }},
	{"framerate", func(s *Settings) any { return &s.Framerate }},
	{"audio_enabled", func(s *Settings) any { return &s.AudioEnabled }},
	{"audio_device", func(s *Settings) any { return &s.AudioDevice }},
	{"codec", func(s *Settings) any { return &s.Codec }},
	{"pixel_format", func(s *Settings) any { return &s.PixelFormat }},
	{"audio_codec", func(s *Settings) any { return &s.AudioCodec }},
	{"sample_rate", func(s *Settings) any { return &s.SampleRate }},
	{"custom_params", func(s *Settings) any { return &s.CustomParams }},
	{"live_css_reload", func(s *Settings) any { return &s.LiveCSSReload }},
	{"geometry", func(s *Settings) any { return &s.Geometry }},
	{"video_bitrate", func(s *Settings) any { return &s.VideoBitrate }},
	{"audio_bitrate", func(s *Settings) any { return &s.AudioBitrate }},
	{"container_format", func(s *Settings) any { return &s.ContainerFormat }},
	{"hardware_acceleration", func(s *Settings) any { return &s.HardwareAcceleration }},
	{"gpu_device", func(s *Settings) any { return &s.GPUDevice }},
	{"preset", func(s *Settings) any { return &s.Preset }},
	{"crf", func(s *Settings) any { return &s.CRF }},
	{"buffer_size", func(s *Settings) any { return &s.BufferSize }},
	{"threads", func(s *Settings) any { return &s.Threads }},
	{"stop_shortcut", func(s *Settings) any { return &s.StopShortcut }},
}

// Keys returns every known settings key in display order.
func Keys() []string {
	keys := make([]string, len(schema))
	for i, f := range schema {
		keys[i] = f.key
	}

	return keys
}

func lookup(key string) (field, bool) {
	for _, f := range schema {
		if f.key == key {
			return f, true
		}
	}

	return field{}, false
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	out := s
	if s.Geometry != nil {
		g := *s.Geometry
		out.Geometry = &g
	}

	out.extra = maps.Clone(s.extra)

	return out
}

// Unknown returns the names of preserved keys this version does not know.
func (s Settings) Unknown() []string {
	keys := make([]string, 0, len(s.extra))
	for k := range s.extra {
		keys = append(keys, k)
	}

	return keys
}

// Get renders the value of key as a string. Booleans render as true/false,
// an unset geometry as the empty string.
func (s *Settings) Get(key string) (string, error) {
	f, ok := lookup(key)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	switch p := f.ptr(s).(type) {
	case *string:
		return *p, nil
	case *bool:
		return strconv.FormatBool(*p), nil
	case **string:
		if *p == nil {
			return "", nil
		}

		return **p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
}

// Set assigns a string-typed edit to key. Boolean keys accept anything
// strconv.ParseBool does; geometry is cleared by "" or "null".
func (s *Settings) Set(key, value string) error {
	f, ok := lookup(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	switch p := f.ptr(s).(type) {
	case *string:
		*p = value
	case *bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s expects a boolean, got %q", ErrInvalidValue, key, value)
		}

		*p = b
	case **string:
		if value == "" || value == "null" {
			*p = nil
		} else {
			v := value
			*p = &v
		}
	}

	return nil
}

// MarshalJSON writes every known key plus the preserved unknown keys.
func (s Settings) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(schema)+len(s.extra))
	for k, raw := range s.extra {
		out[k] = raw
	}

	for _, f := range schema {
		out[f.key] = f.ptr(&s)
	}

	return json.Marshal(out)
}

// UnmarshalJSON applies the object in data over the current values. Keys
// whose value has the wrong type keep their current value; the returned
// error then lists them while every other key is still applied.
func (s *Settings) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var errs []error

	for key, value := range raw {
		f, ok := lookup(key)
		if !ok {
			if s.extra == nil {
				s.extra = make(map[string]json.RawMessage)
			}

			var compact bytes.Buffer
			if err := json.Compact(&compact, value); err != nil {
				errs = append(errs, fmt.Errorf("key %q: %w", key, err))
				continue
			}

			s.extra[key] = compact.Bytes()

			continue
		}

		// decode into a scratch copy so a type error leaves the value alone
		scratch := s.Clone()
		if err := json.Unmarshal(value, f.ptr(&scratch)); err != nil {
			errs = append(errs, &KeyTypeError{Key: key, Err: err})
			continue
		}

		s.assign(f, &scratch)
	}

	return errors.Join(errs...)
}

func (s *Settings) assign(f field, from *Settings) {
	switch dst := f.ptr(s).(type) {
	case *string:
		*dst = *(f.ptr(from).(*string)) //nolint:forcetypeassert // same schema entry
	case *bool:
		*dst = *(f.ptr(from).(*bool)) //nolint:forcetypeassert // same schema entry
	case **string:
		*dst = *(f.ptr(from).(**string)) //nolint:forcetypeassert // same schema entry
	}
}

// KeyTypeError reports a persisted value whose JSON type does not match the
// key.
type KeyTypeError struct {
	Key string
	Err error
}

func (e *KeyTypeError) Error() string {
	return fmt.Sprintf("key %q has the wrong type: %v", e.Key, e.Err)
}

func (e *KeyTypeError) Unwrap() error {
	return e.Err
}

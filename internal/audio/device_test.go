package audio_test

import (
	"testing"

	"github.com/alkime/screenrec/internal/audio"
	"github.com/stretchr/testify/assert"
)

var devices = []audio.Info{
	{Name: "Built-in Audio Analog Stereo"},
	{Name: "USB Microphone", IsDefault: true},
	{Name: "Monitor of Built-in Audio Analog Stereo"},
}

func TestNames_DefaultFirst(t *testing.T) {
	assert.Equal(t, []string{
		"USB Microphone",
		"Built-in Audio Analog Stereo",
		"Monitor of Built-in Audio Analog Stereo",
	}, audio.Names(devices))

	assert.Equal(t, "Built-in Audio Analog Stereo", devices[0].Name, "input is not reordered")
}

func TestFind(t *testing.T) {
	tests := []struct {
		query  string
		want   string
		wantOK bool
	}{
		{query: "USB Microphone", want: "USB Microphone", wantOK: true},
		{query: "usb", want: "USB Microphone", wantOK: true},
		{query: "Built-in Audio Analog Stereo", want: "Built-in Audio Analog Stereo", wantOK: true},
		{query: "built-in", wantOK: false}, // ambiguous
		{query: "hdmi", wantOK: false},
		{query: "  ", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, ok := audio.Find(devices, tt.query)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got.Name)
		})
	}
}

func TestFormat_String(t *testing.T) {
	assert.Equal(t, "16-bit, 2 ch, 48000 Hz", audio.Format{SampleSizeBytes: 2, Channels: 2, SampleRate: 48000}.String())
	assert.Equal(t, "32-bit, 1 ch, any rate", audio.Format{SampleSizeBytes: 4, Channels: 1}.String())
}

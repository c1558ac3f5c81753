package command_test

import (
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/alkime/screenrec/internal/command"
	"github.com/alkime/screenrec/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, time.March, 9, 7, 5, 3, 0, time.Local)

// base returns settings with every optional rule switched off.
func base() settings.Settings {
	s := settings.Defaults()
	s.OutputDirectory = "/videos"
	s.AudioEnabled = false
	s.Codec = ""
	s.PixelFormat = ""
	s.Framerate = ""
	s.Preset = ""
	s.CRF = ""

	return s
}

func ptr(s string) *string { return &s }

func countFlag(args []string, flag string) int {
	n := 0
	for _, a := range args {
		if a == flag {
			n++
		}
	}

	return n
}

func TestBuild_Defaults(t *testing.T) {
	s := settings.Defaults()
	s.OutputDirectory = "/home/me/Videos"

	args, out := command.Build(s, fixedNow)

	assert.Equal(t, "/home/me/Videos/Recording_2024-03-09_07-05-03.mp4", out)
	assert.Equal(t, []string{
		"-a",
		"-c", "libx264",
		"-x", "yuv420p",
		"-r", "30",
		"-p", "preset=medium",
		"-p", "crf=23",
		"-f", out,
	}, args)
}

func TestBuild_IsDeterministic(t *testing.T) {
	s := settings.Defaults()
	s.CustomParams = `--foo "bar baz"`
	s.Geometry = ptr("0,0 100x100")

	args1, out1 := command.Build(s, fixedNow)
	args2, out2 := command.Build(s, fixedNow)

	assert.Equal(t, args1, args2)
	assert.Equal(t, out1, out2)
}

func TestBuild_OutputFlagIsLast(t *testing.T) {
	variants := []settings.Settings{base(), settings.Defaults()}

	withParams := settings.Defaults()
	withParams.CustomParams = "-f /tmp/other.mkv --extra"
	variants = append(variants, withParams)

	for _, s := range variants {
		args, out := command.Build(s, fixedNow)

		require.GreaterOrEqual(t, len(args), 2)
		assert.Equal(t, "-f", args[len(args)-2])
		assert.Equal(t, out, args[len(args)-1])
	}
}

func TestBuild_Audio(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		device  string
		want    []string
	}{
		{name: "disabled", enabled: false, device: "mic", want: nil},
		{name: "enabled default device", enabled: true, device: "", want: []string{"-a"}},
		{name: "enabled blank device", enabled: true, device: "   ", want: []string{"-a"}},
		{name: "enabled explicit device", enabled: true, device: " mic0 ", want: []string{"-a", "mic0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			s.AudioEnabled = tt.enabled
			s.AudioDevice = tt.device

			args, _ := command.Build(s, fixedNow)

			assert.Equal(t, tt.want, args[:len(args)-2])
		})
	}
}

func TestBuild_PixelFormat(t *testing.T) {
	tests := []struct {
		codec   string
		wantPix bool
	}{
		{codec: "libx264", wantPix: true},
		{codec: "", wantPix: true},
		{codec: "h264_vaapi", wantPix: false},
		{codec: "hevc_vaapi", wantPix: false},
	}

	for _, tt := range tests {
		t.Run(tt.codec, func(t *testing.T) {
			s := base()
			s.Codec = tt.codec
			s.PixelFormat = "yuv420p"

			args, _ := command.Build(s, fixedNow)

			i := slices.Index(args, "-x")
			if !tt.wantPix {
				assert.Equal(t, -1, i)
				return
			}

			require.NotEqual(t, -1, i)
			assert.Equal(t, "yuv420p", args[i+1])
		})
	}
}

func TestBuild_Framerate(t *testing.T) {
	tests := []struct {
		value string
		want  []string
	}{
		{value: "60", want: []string{"-r", "60"}},
		{value: " 24 ", want: []string{"-r", "24"}},
		{value: "thirty", want: nil},
		{value: "", want: nil},
		{value: "29.97", want: nil},
		{value: "-5", want: nil},
		{value: "+30", want: nil},
		{value: "-0", want: nil},
		{value: "٣٠", want: nil}, // non-ASCII digits
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			s := base()
			s.Framerate = tt.value

			args, _ := command.Build(s, fixedNow)

			assert.Equal(t, tt.want, args[:len(args)-2])
			assert.LessOrEqual(t, countFlag(args, "-r"), 1)
		})
	}
}

func TestBuild_GeometryVerbatim(t *testing.T) {
	s := base()
	s.Geometry = ptr("12,34 567x890")

	args, _ := command.Build(s, fixedNow)
	assert.Equal(t, []string{"-g", "12,34 567x890"}, args[:len(args)-2])

	s.Geometry = ptr("")
	args, _ = command.Build(s, fixedNow)
	assert.Equal(t, 0, countFlag(args, "-g"))

	s.Geometry = nil
	args, _ = command.Build(s, fixedNow)
	assert.Equal(t, 0, countFlag(args, "-g"))
}

func TestBuild_HardwareDevice(t *testing.T) {
	s := base()
	s.GPUDevice = "/dev/dri/renderD128"

	args, _ := command.Build(s, fixedNow)
	assert.Equal(t, 0, countFlag(args, "-d"), "device needs hardware acceleration on")

	s.HardwareAcceleration = true
	args, _ = command.Build(s, fixedNow)
	assert.Equal(t, []string{"-d", "/dev/dri/renderD128"}, args[:len(args)-2])

	s.GPUDevice = " "
	args, _ = command.Build(s, fixedNow)
	assert.Equal(t, 0, countFlag(args, "-d"))
}

func TestBuild_EncoderParams(t *testing.T) {
	tests := []struct {
		codec string
		want  []string
	}{
		{codec: "libx264", want: []string{"-c", "libx264", "-p", "preset=fast", "-p", "crf=18"}},
		{codec: "libx265", want: []string{"-c", "libx265", "-p", "preset=fast", "-p", "crf=18"}},
		{codec: "libx264rgb", want: []string{"-c", "libx264rgb", "-p", "preset=fast", "-p", "crf=18"}},
		{codec: "libvpx", want: []string{"-c", "libvpx"}},
		{codec: "h264_vaapi", want: []string{"-c", "h264_vaapi"}},
	}

	for _, tt := range tests {
		t.Run(tt.codec, func(t *testing.T) {
			s := base()
			s.Codec = tt.codec
			s.Preset = "fast"
			s.CRF = "18"

			args, _ := command.Build(s, fixedNow)
			assert.Equal(t, tt.want, args[:len(args)-2])
		})
	}
}

func TestBuild_RuleOrder(t *testing.T) {
	s := base()
	s.AudioEnabled = true
	s.AudioDevice = "mic"
	s.Codec = "libx264"
	s.PixelFormat = "yuv420p"
	s.Framerate = "60"
	s.Geometry = ptr("0,0 10x10")
	s.VideoBitrate = "5M"
	s.HardwareAcceleration = true
	s.GPUDevice = "/dev/dri/card0"
	s.Preset = "slow"
	s.CRF = "20"
	s.CustomParams = "--no-damage"

	args, out := command.Build(s, fixedNow)

	assert.Equal(t, []string{
		"-a", "mic",
		"-c", "libx264",
		"-x", "yuv420p",
		"-r", "60",
		"-g", "0,0 10x10",
		"-b", "5M",
		"-d", "/dev/dri/card0",
		"-p", "preset=slow",
		"-p", "crf=20",
		"--no-damage",
		"-f", out,
	}, args)
}

func TestOutputPath_Container(t *testing.T) {
	s := base()

	s.ContainerFormat = "mkv"
	assert.Equal(t, filepath.Join("/videos", "Recording_2024-03-09_07-05-03.mkv"), command.OutputPath(s, fixedNow))

	s.ContainerFormat = "  "
	assert.Equal(t, filepath.Join("/videos", "Recording_2024-03-09_07-05-03.mp4"), command.OutputPath(s, fixedNow))

	s.ContainerFormat = " webm "
	assert.Equal(t, filepath.Join("/videos", "Recording_2024-03-09_07-05-03.webm"), command.OutputPath(s, fixedNow))
}

func TestSplitParams(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "  ", want: nil},
		{name: "plain", input: "--overwrite -y", want: []string{"--overwrite", "-y"}},
		{name: "double quotes", input: `-p "tune=film grain"`, want: []string{"-p", "tune=film grain"}},
		{name: "single quotes", input: `--label 'my clip'`, want: []string{"--label", "my clip"}},
		{name: "escaped space", input: `--out my\ file`, want: []string{"--out", "my file"}},
		{name: "unterminated quote falls back", input: `--label "oops x`, want: []string{"--label", `"oops`, "x"}},
		{name: "no variable expansion", input: "--home $HOME", want: []string{"--home", "$HOME"}},
		{name: "separator is literal", input: "--a; rm -rf /", want: []string{"--a;", "rm", "-rf", "/"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, command.SplitParams(tt.input))
		})
	}
}

func TestQuote(t *testing.T) {
	got := command.Quote([]string{"wf-recorder", "-g", "0,0 10x10", "-f", "/tmp/a.mp4", "it's"})
	assert.Equal(t, `wf-recorder -g '0,0 10x10' -f /tmp/a.mp4 'it'\''s'`, got)
}

func TestValidFramerate(t *testing.T) {
	for _, v := range []string{"30", " 60 ", "0", "240"} {
		assert.True(t, command.ValidFramerate(v), v)
	}

	for _, v := range []string{"", "+30", "-0", "29.97", "thirty", "٣٠"} {
		assert.False(t, command.ValidFramerate(v), v)
	}
}

// Package command turns recorder settings into wf-recorder arguments.
package command

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/alkime/screenrec/internal/settings"
	"github.com/mattn/go-shellwords"
)

// TimestampLayout names output files, e.g. Recording_2024-05-01_13-04-59.mp4.
const TimestampLayout = "2006-01-02_15-04-05"

// DefaultContainer is used when no container format is configured.
const DefaultContainer = "mp4"

const (
	flagAudio     = "-a"
	flagCodec     = "-c"
	flagPixFmt    = "-x"
	flagFramerate = "-r"
	flagGeometry  = "-g"
	flagBitrate   = "-b"
	flagDevice    = "-d"
	flagParam     = "-p"
	flagFile      = "-f"

	// codecs containing this use the GPU and pick their own pixel format
	hwCodecMarker = "vaapi"
)

// software encoders that understand preset= and crf= codec params
var softwareEncoders = []string{"libx264", "libx265"}

// Build returns the recorder arguments (without the program name) and the
// output file they write to. It has no side effects: the same settings and
// time always give the same result. The output flag is always last.
func Build(s settings.Settings, now time.Time) ([]string, string) {
	var args []string

	if s.AudioEnabled {
		args = append(args, flagAudio)
		if device := strings.TrimSpace(s.AudioDevice); device != "" {
			args = append(args, device)
		}
	}

	codec := strings.TrimSpace(s.Codec)
	if codec != "" {
		args = append(args, flagCodec, codec)
	}

	if pixFmt := strings.TrimSpace(s.PixelFormat); pixFmt != "" && !strings.Contains(s.Codec, hwCodecMarker) {
		args = append(args, flagPixFmt, pixFmt)
	}

	if fr := strings.TrimSpace(s.Framerate); ValidFramerate(fr) {
		args = append(args, flagFramerate, fr)
	}

	if s.Geometry != nil && *s.Geometry != "" {
		args = append(args, flagGeometry, *s.Geometry)
	}

	if bitrate := strings.TrimSpace(s.VideoBitrate); bitrate != "" {
		args = append(args, flagBitrate, bitrate)
	}

	if s.HardwareAcceleration {
		if dev := strings.TrimSpace(s.GPUDevice); dev != "" {
			args = append(args, flagDevice, dev)
		}
	}

	if isSoftwareEncoder(s.Codec) {
		if preset := strings.TrimSpace(s.Preset); preset != "" {
			args = append(args, flagParam, "preset="+preset)
		}

		if crf := strings.TrimSpace(s.CRF); crf != "" {
			args = append(args, flagParam, "crf="+crf)
		}
	}

	// before the output flag so custom params can never replace the file
	args = append(args, SplitParams(s.CustomParams)...)

	outputPath := OutputPath(s, now)
	args = append(args, flagFile, outputPath)

	return args, outputPath
}

// OutputPath returns the file a recording started at now writes to.
func OutputPath(s settings.Settings, now time.Time) string {
	container := strings.TrimSpace(s.ContainerFormat)
	if container == "" {
		container = DefaultContainer
	}

	filename := "Recording_" + now.Format(TimestampLayout) + "." + container

	return filepath.Join(s.OutputDirectory, filename)
}

// SplitParams splits user-supplied extra arguments with shell quoting rules.
// Nothing is expanded or executed. Input the parser rejects, such as an
// unterminated quote, falls back to plain whitespace splitting.
func SplitParams(params string) []string {
	params = strings.TrimSpace(params)
	if params == "" {
		return nil
	}

	parser := shellwords.NewParser()
	parser.ParseEnv = false
	parser.ParseBacktick = false

	tokens, err := parser.Parse(params)
	if err != nil || parser.Position != -1 {
		return strings.Fields(params)
	}

	return tokens
}

// Quote renders argv for logs and error messages, quoting arguments that
// contain spaces or quotes.
func Quote(argv []string) string {
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		if arg == "" || strings.ContainsAny(arg, " \t\n'\"\\$`") {
			quoted[i] = "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
			continue
		}

		quoted[i] = arg
	}

	return strings.Join(quoted, " ")
}

// ValidFramerate reports whether v is passed on as a framerate: ASCII
// digits only, no sign, after trimming spaces.
func ValidFramerate(v string) bool {
	return isDigits(strings.TrimSpace(v))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

func isSoftwareEncoder(codec string) bool {
	for _, prefix := range softwareEncoders {
		if strings.HasPrefix(codec, prefix) {
			return true
		}
	}

	return false
}

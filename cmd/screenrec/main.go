package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/alkime/screenrec/internal/area"
	"github.com/alkime/screenrec/internal/audio"
	"github.com/alkime/screenrec/internal/config"
	"github.com/alkime/screenrec/internal/history"
	"github.com/alkime/screenrec/internal/logger"
	"github.com/alkime/screenrec/internal/server"
	"github.com/alkime/screenrec/internal/session"
	"github.com/alkime/screenrec/internal/settings"
	"github.com/alkime/screenrec/internal/tui"
	"github.com/alkime/screenrec/pkg/channels"
	tea "github.com/charmbracelet/bubbletea"
)

// CLI defines the screenrec command structure.
type CLI struct {
	ConfigPath string `name:"config" type:"path" default:"${config_path}" help:"Path to config.toml"`

	// Default TUI command (runs when no subcommand given)
	TUI TUICmd `cmd:"" default:"1" help:"Launch the terminal control panel"`

	// Subcommands
	Record   RecordCmd   `cmd:"" help:"Record without the panel until Ctrl-C"`
	Ctl      CtlCmd      `cmd:"" help:"Control a running screenrec over its socket"`
	Area     AreaCmd     `cmd:"" help:"Pick the capture region with slurp"`
	Settings SettingsCmd `cmd:"" help:"Inspect and edit recorder settings"`
	Devices  DevicesCmd  `cmd:"" help:"List audio capture devices"`
	History  HistoryCmd  `cmd:"" help:"Show finished recordings"`
}

// TUICmd is the default command that runs the panel.
type TUICmd struct{}

// Run executes the TUI command.
func (c *TUICmd) Run(cfg *config.Config) error {
	logPath := cfg.LogFile
	if logPath == "" {
		logPath = config.DefaultLogPath()
	}

	// the panel owns the terminal, so logs go to a file
	logFile, err := logger.OpenFile(logPath)
	if err != nil {
		return err
	}
	defer func() { _ = logFile.Close() }()

	log := logger.SetupLogger(cfg, logFile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := newApp(cfg, log)

	events, err := a.subscribe(uiEventBuffer, 0)
	if err != nil {
		return err
	}

	if err := a.start(ctx); err != nil {
		return err
	}

	p := tea.NewProgram(tui.New(tui.Config{
		Ctx:      ctx,
		Cancel:   cancel,
		Recorder: a.controller,
		Settings: a.settings,
		Picker:   area.NewPicker(cfg.PickerBin, log),
		Events:   events,
		Logger:   log,
	}))

	_, runErr := p.Run()

	// a session still live here is stopped gracefully by the controller
	cancel()
	waitErr := a.wait()

	if runErr != nil {
		return fmt.Errorf("failed to run TUI: %w", runErr)
	}

	return waitErr
}

// RecordCmd records headless until interrupted, the duration elapses or the
// recorder exits on its own.
type RecordCmd struct {
	Duration time.Duration `help:"Stop automatically after this long (0 records until Ctrl-C)"`
}

// Run executes the record command.
//
//nolint:funlen // start, follow and report in one place
func (c *RecordCmd) Run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Duration)
		defer cancel()
	}

	a := newApp(cfg, slog.Default())

	events, err := a.subscribe(uiEventBuffer, 0)
	if err != nil {
		return err
	}

	if err := a.start(ctx); err != nil {
		return err
	}

	status, err := a.controller.Start(ctx)
	if err != nil {
		stop()
		_ = a.wait()

		return err
	}

	fmt.Printf("Recording to %s (Ctrl-C to stop)\n", status.OutputPath)

	var outcome error

	ended := false
	for !ended {
		select {
		case <-ctx.Done():
			ended = true
		case ev, ok := <-events:
			if !ok {
				ended = true
				break
			}

			ended, outcome = follow(ev, outcome)
		}
	}

	stop()
	err = a.wait()

	// events is closed once the app has stopped; pick up the final stop
	for _, ev := range channels.ReceiveAll(events, drainIdle, 0) {
		_, outcome = follow(ev, outcome)
	}

	return errors.Join(err, outcome)
}

// errRecordingFailed makes record exit non-zero when the recorder died.
var errRecordingFailed = errors.New("recording ended unexpectedly")

// drainIdle bounds the final drain in case events is never closed.
const drainIdle = 5 * time.Second

// follow reports ev and carries the command's outcome forward.
func follow(ev session.Event, outcome error) (bool, error) {
	ended := report(ev)
	if ev.Kind == session.KindStopped && !ev.Clean {
		outcome = errRecordingFailed
	}

	return ended, outcome
}

// report prints ev and says whether the session is over.
func report(ev session.Event) bool {
	switch ev.Kind {
	case session.KindTick:
		fmt.Printf("\r%s", ev.Elapsed)
	case session.KindPaused:
		if ev.Paused {
			fmt.Print("\rpaused  ")
		}
	case session.KindError:
		fmt.Fprintf(os.Stderr, "\n%s\n", ev.Message)
	case session.KindStopped:
		switch {
		case !ev.Clean:
			fmt.Println("\nRecording ended unexpectedly.")
		case ev.Warning != "":
			fmt.Printf("\n%s\n", ev.Warning)
		default:
			fmt.Printf("\nSaved to %s (%s)\n", ev.OutputPath, session.FormatElapsed(ev.Duration))
		}

		return true
	}

	return false
}

// CtlCmd groups the remote control subcommands.
type CtlCmd struct {
	Start  CtlActionCmd `cmd:"" help:"Start recording"`
	Stop   CtlActionCmd `cmd:"" help:"Stop recording"`
	Pause  CtlActionCmd `cmd:"" help:"Pause or resume recording"`
	Status CtlStatusCmd `cmd:"" help:"Show the recorder state"`
}

// CtlActionCmd sends one command to the running instance.
type CtlActionCmd struct{}

// Run executes a ctl action; the action is the selected command name.
func (c *CtlActionCmd) Run(kctx *kong.Context, cfg *config.Config) error {
	client := server.NewClient(cfg.SocketPath)
	ctx := context.Background()

	var call func(context.Context) (session.Status, error)

	switch kctx.Selected().Name {
	case "start":
		call = client.Start
	case "stop":
		call = client.Stop
	case "pause":
		call = client.TogglePause
	default:
		return fmt.Errorf("unknown ctl action %q", kctx.Selected().Name)
	}

	status, err := call(ctx)
	if err != nil {
		return err
	}

	printStatus(status)

	return nil
}

// CtlStatusCmd prints the state of the running instance.
type CtlStatusCmd struct {
	JSON bool `help:"Print the raw JSON status"`
}

// Run executes the ctl status command.
func (c *CtlStatusCmd) Run(cfg *config.Config) error {
	status, err := server.NewClient(cfg.SocketPath).Status(context.Background())
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(status)
	}

	printStatus(status)

	return nil
}

func printStatus(st session.Status) {
	fmt.Printf("state:   %s\n", st.State)
	if st.State == session.StateIdle {
		return
	}

	fmt.Printf("session: %s\n", st.SessionID)
	fmt.Printf("output:  %s\n", st.OutputPath)
	fmt.Printf("elapsed: %s\n", st.Elapsed)
}

// AreaCmd selects the capture region and saves it.
type AreaCmd struct {
	Full bool `help:"Reset to full screen without running the picker"`
}

// Run executes the area command.
func (c *AreaCmd) Run(cfg *config.Config) error {
	store := settings.Open(cfg.SettingsPath, slog.Default())

	if c.Full {
		if err := store.SetGeometry(nil); err != nil {
			return fmt.Errorf("failed to save area: %w", err)
		}

		fmt.Println(area.Describe(nil))

		return nil
	}

	picker := area.NewPicker(cfg.PickerBin, slog.Default())

	geometry, err := area.Choose(context.Background(), picker, store)
	if err != nil {
		return err
	}

	fmt.Println(area.Describe(geometry))

	return nil
}

// SettingsCmd groups settings subcommands.
type SettingsCmd struct {
	Show  SettingsShowCmd  `cmd:"" default:"1" help:"Print every setting"`
	Get   SettingsGetCmd   `cmd:"" help:"Print one setting"`
	Set   SettingsSetCmd   `cmd:"" help:"Change one setting"`
	Reset SettingsResetCmd `cmd:"" help:"Restore the defaults"`
	Path  SettingsPathCmd  `cmd:"" help:"Print the settings file location"`
}

// SettingsShowCmd prints every setting.
type SettingsShowCmd struct{}

// Run executes the settings show command.
func (c *SettingsShowCmd) Run(cfg *config.Config) error {
	store := settings.Open(cfg.SettingsPath, slog.Default())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, key := range settings.Keys() {
		value, err := store.Get(key)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "%s\t%s\n", key, value)
	}

	return w.Flush()
}

// SettingsGetCmd prints one setting.
type SettingsGetCmd struct {
	Key string `arg:"" help:"Settings key, e.g. framerate"`
}

// Run executes the settings get command.
func (c *SettingsGetCmd) Run(cfg *config.Config) error {
	value, err := settings.Open(cfg.SettingsPath, slog.Default()).Get(c.Key)
	if err != nil {
		return err
	}

	fmt.Println(value)

	return nil
}

// SettingsSetCmd changes one setting.
type SettingsSetCmd struct {
	Key   string `arg:"" help:"Settings key, e.g. framerate"`
	Value string `arg:"" help:"New value; 'null' clears geometry"`
}

// Run executes the settings set command.
func (c *SettingsSetCmd) Run(cfg *config.Config) error {
	store := settings.Open(cfg.SettingsPath, slog.Default())

	if err := store.Set(c.Key, c.Value); err != nil {
		if errors.Is(err, settings.ErrUnknownKey) {
			return fmt.Errorf("%w (known keys: %s)", err, strings.Join(settings.Keys(), ", "))
		}

		return err
	}

	return nil
}

// SettingsResetCmd restores the defaults.
type SettingsResetCmd struct{}

// Run executes the settings reset command.
func (c *SettingsResetCmd) Run(cfg *config.Config) error {
	return settings.Open(cfg.SettingsPath, slog.Default()).RestoreDefaults()
}

// SettingsPathCmd prints the settings file location.
type SettingsPathCmd struct{}

// Run executes the settings path command.
//
//nolint:unparam // error return required by Kong interface
func (c *SettingsPathCmd) Run(cfg *config.Config) error {
	fmt.Println(cfg.SettingsPath)

	return nil
}

// DevicesCmd lists audio capture devices.
type DevicesCmd struct{}

// Run executes the devices command.
func (c *DevicesCmd) Run() error {
	devices, err := audio.NewLister(slog.Default()).CaptureDevices(context.Background())
	if err != nil {
		return fmt.Errorf("failed to enumerate audio devices: %w", err)
	}

	for _, dev := range devices {
		marker := " "
		if dev.IsDefault {
			marker = "*"
		}

		formats := make([]string, 0, len(dev.Formats))
		for _, f := range dev.Formats {
			formats = append(formats, f.String())
		}

		fmt.Printf("%s %s\n", marker, dev.Name)
		if len(formats) > 0 {
			fmt.Printf("    %s\n", strings.Join(formats, "; "))
		}
	}

	return nil
}

// HistoryCmd prints finished recordings, newest first.
type HistoryCmd struct {
	Limit int `short:"n" default:"20" help:"How many recordings to show (0 for all)"`
}

// Run executes the history command.
func (c *HistoryCmd) Run(cfg *config.Config) error {
	store, err := history.Open(cfg.HistoryPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.List(context.Background(), c.Limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tDURATION\tRESULT\tOUTPUT")

	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.StartedAt.Local().Format(time.DateTime),
			session.FormatElapsed(e.Duration),
			result(e),
			e.OutputPath,
		)
	}

	return w.Flush()
}

func result(e history.Entry) string {
	switch {
	case !e.Clean:
		return "failed"
	case e.Forced:
		return "forced"
	case e.Warning != "":
		return "incomplete"
	default:
		return "saved"
	}
}

func main() {
	cli := &CLI{} //nolint:exhaustruct // Kong fills in command fields
	kctx := kong.Parse(cli,
		kong.Name("screenrec"),
		kong.Description("Drive wf-recorder from the terminal."),
		kong.UsageOnError(),
		kong.Vars{"config_path": config.DefaultConfigPath()},
	)

	cfg, err := config.Load(cli.ConfigPath)
	kctx.FatalIfErrorf(err)

	logger.SetupLogger(cfg, os.Stderr)

	err = kctx.Run(cfg)
	kctx.FatalIfErrorf(err)
	os.Exit(0)
}

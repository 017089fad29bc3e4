package tray

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/atotto/clipboard"
	"github.com/getlantern/systray"
	"github.com/rs/zerolog"

	"github.com/petems/dspio/internal/audio"
	"github.com/petems/dspio/internal/config"
	"github.com/petems/dspio/internal/control"
	"github.com/petems/dspio/internal/logging"
)

type UI struct {
	ctrl    *control.Control
	cfg     *config.Config
	devices audio.Registry
	version string
	commit  string
	log     zerolog.Logger

	// Menu items
	mStart    *systray.MenuItem
	mStop     *systray.MenuItem
	mChannels *systray.MenuItem
	mInputs   *systray.MenuItem
	mOutputs  *systray.MenuItem
	mStats    *systray.MenuItem

	// device choices run on the event loop so cfg has a single writer
	choices chan func()
}

// Status update methods for the control to call
func (u *UI) SetStreaming() {
	u.updateStatus("streaming")
	if u.mStart != nil {
		u.mStart.Disable()
		u.mStop.Enable()
	}
}

func (u *UI) SetStopped() {
	u.updateStatus("stopped")
	if u.mStart != nil {
		u.mStart.Enable()
		u.mStop.Disable()
	}
}

func New(cfg *config.Config, devices audio.Registry, version, commit string, log zerolog.Logger) *UI {
	return &UI{
		cfg:     cfg,
		devices: devices,
		version: version,
		commit:  commit,
		log:     log,
		choices: make(chan func()),
	}
}

// SetControl sets the control reference (for circular dependency resolution)
func (u *UI) SetControl(ctrl *control.Control) {
	u.ctrl = ctrl
}

func (u *UI) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		systray.Quit()
	}()
	systray.Run(u.onReady, u.onExit)
	return nil
}

func (u *UI) onReady() {
	u.updateStatus("stopped")
	systray.SetTooltip("Duplex audio streaming")

	u.mStart = systray.AddMenuItem("Start Streaming", "Open the duplex stream")
	u.mStop = systray.AddMenuItem("Stop Streaming", "Stop the running stream")
	u.mStop.Disable()
	systray.AddSeparator()

	u.mChannels = systray.AddMenuItem(channelLabel(u.cfg.Audio.Channels), "Toggle mono/stereo")
	u.mInputs = systray.AddMenuItem("Input Device", "Select capture device")
	u.buildDeviceMenu(u.mInputs, u.devices.Inputs(), u.cfg.Audio.InputDevice, func(idx int) {
		u.cfg.Audio.InputDevice = idx
	})
	u.mOutputs = systray.AddMenuItem("Output Device", "Select playback device")
	u.buildDeviceMenu(u.mOutputs, u.devices.Outputs(), u.cfg.Audio.OutputDevice, func(idx int) {
		u.cfg.Audio.OutputDevice = idx
	})

	systray.AddSeparator()
	u.mStats = systray.AddMenuItem("Copy Stats", "Copy callback timing of the last stream")
	mLogs := systray.AddMenuItem("Open Logs", "View application logs")
	mAbout := systray.AddMenuItem("About", "About dspio")
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	// Event loop
	go u.handleEvents(mLogs, mAbout, mQuit)
}

func (u *UI) handleEvents(mLogs, mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-u.mStart.ClickedCh:
			if err := u.ctrl.OnStart(); err != nil {
				u.updateStatus("error")
			}
		case <-u.mStop.ClickedCh:
			u.ctrl.OnStop()
		case <-u.mChannels.ClickedCh:
			u.toggleChannels()
		case choose := <-u.choices:
			choose()
		case <-u.mStats.ClickedCh:
			u.copyStats()
		case <-mLogs.ClickedCh:
			u.openLogs()
		case <-mAbout.ClickedCh:
			u.showAbout()
		case <-mQuit.ClickedCh:
			ctx, cancel := context.WithTimeout(context.Background(), 2*u.cfg.Stream.PollInterval+time.Second)
			if err := u.ctrl.Shutdown(ctx); err != nil {
				u.log.Error().Err(err).Msg("Shutdown error")
			}
			cancel()
			systray.Quit()
			return
		}
	}
}

func (u *UI) buildDeviceMenu(parent *systray.MenuItem, devices []audio.DeviceInfo, selected int, choose func(int)) {
	if len(devices) == 0 {
		parent.Disable()
		return
	}

	items := make(map[int]*systray.MenuItem)

	for _, dev := range devices {
		item := parent.AddSubMenuItem(fmt.Sprintf("%d: %s", dev.Index, dev.Name), "")
		if dev.Index == selected {
			item.Check()
		}
		items[dev.Index] = item

		go func(idx int, name string, menuItem *systray.MenuItem) {
			for {
				<-menuItem.ClickedCh
				u.choices <- func() {
					if u.ctrl.Streaming() {
						u.log.Warn().Str("device", name).Msg("Cannot change device while streaming")
						return
					}
					// Uncheck all other items
					for i, itm := range items {
						if i != idx {
							itm.Uncheck()
						}
					}
					menuItem.Check()
					choose(idx)
					if err := u.cfg.Save(); err != nil {
						u.log.Error().Err(err).Msg("Failed to save config")
					}
					u.log.Info().Int("index", idx).Str("device", name).Msg("Changed audio device")
				}
			}
		}(dev.Index, dev.Name, item)
	}
}

func (u *UI) toggleChannels() {
	next := 2
	if u.cfg.Audio.Channels == 2 {
		next = 1
	}
	if err := u.ctrl.SetChannels(next); err != nil {
		u.log.Warn().Err(err).Msg("Cannot change channels")
		return
	}
	old := u.cfg.Audio.Channels
	u.cfg.Audio.Channels = next
	u.mChannels.SetTitle(channelLabel(next))
	if err := u.cfg.Save(); err != nil {
		u.log.Error().Err(err).Msg("Failed to save config")
	}
	u.log.Info().Int("from", old).Int("to", next).Msg("Changed channels")
}

func (u *UI) copyStats() {
	s := u.ctrl.Session()
	if s == nil {
		u.log.Info().Msg("No stream has run yet")
		return
	}
	st, err := s.Stats()
	if err != nil {
		u.log.Warn().Err(err).Msg("No timing statistics available (enable stream.capture_duration and stream.auto_timing)")
		return
	}
	if err := clipboard.WriteAll(st.String()); err != nil {
		u.log.Error().Err(err).Msg("Failed to copy stats")
		return
	}
	u.log.Info().EmbedObject(st).Msg("Copied stream statistics")
}

func (u *UI) openLogs() {
	path := logging.Path()
	name, args := openCommand(runtime.GOOS, path)
	if err := exec.Command(name, args...).Start(); err != nil {
		u.log.Error().Err(err).Str("path", path).Msg("Failed to open logs")
		fmt.Println("Logs:", path)
	}
}

// openCommand returns the command that opens path with the desktop's
// default application.
func openCommand(goos, path string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{path}
	case "windows":
		return "cmd", []string{"/c", "start", "", path}
	default:
		return "xdg-open", []string{path}
	}
}

func (u *UI) showAbout() {
	fmt.Printf("dspio %s (%s)\nDuplex audio streaming\n", u.version, u.commit)
}

func (u *UI) onExit() {
	// Cleanup
}

// updateStatus sets the tray title with speaker emoji and status indicator
func (u *UI) updateStatus(status string) {
	systray.SetTitle(fmt.Sprintf("🔊 %s", emojiForStatus(status)))
}

// emojiForStatus returns the appropriate status emoji
func emojiForStatus(status string) string {
	switch status {
	case "streaming":
		return "🔴" // Red - streaming
	case "stopped":
		return "🟢" // Green - ready
	case "error":
		return "⚪️" // White - error
	default:
		return "🟢" // Green - default to ready
	}
}

func channelLabel(channels int) string {
	if channels == 2 {
		return "Channels: Stereo"
	}
	return "Channels: Mono"
}

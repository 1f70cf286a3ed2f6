package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-synth/audio"
	"go-synth/config"
	"go-synth/debug"
	"go-synth/midi"
	"go-synth/sequencer"
	"go-synth/synth"
	"go-synth/theme"
	"go-synth/tui"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the exit code so deferred cleanup always runs.
func run(args []string) int {
	flags := flag.NewFlagSet("go-synth", flag.ContinueOnError)
	file := flags.String("file", "", "MIDI file to play")
	wave := flags.String("wave", "", "waveform: sine, square, saw, triangle")
	debugLog := flags.Bool("debug", false, "write a debug log to ~/.config/go-synth/debug.log")
	headless := flags.Bool("headless", false, "no UI; play -file and exit, or play live input until Ctrl+C")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	// Must run before any component takes its logger
	if *debugLog {
		if err := debug.Enable(); err != nil {
			fmt.Fprintf(os.Stderr, "debug log: %v\n", err)
		}
		defer debug.Disable()
	}
	logger := log.Default().WithPrefix("main")

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("config unusable, using defaults", "err", err)
		cfg = config.DefaultConfig()
	}
	if *wave != "" {
		cfg.Synth.Waveform = *wave
	}
	if *file == "" {
		*file = cfg.UI.LastFile
	}
	patch, err := cfg.Patch()
	if err != nil {
		logger.Error("bad synth settings", "err", err)
		return 1
	}

	dev, err := audio.Open(cfg.Synth.Volume)
	if err != nil {
		logger.Error("no audio output", "err", err)
		return 1
	}
	defer dev.Close()

	reg := synth.NewRegistry(dev, synth.WithTickInterval(cfg.TickInterval()))
	inst := synth.NewInstrument(reg, patch)
	player := sequencer.NewPlayer(sequencer.WithTolerance(cfg.Tolerance()))
	manager := sequencer.NewManager(inst, player)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	running := make(chan struct{})
	go func() {
		manager.Run(ctx)
		close(running)
	}()

	var deviceMgr *midi.DeviceManager
	if cfg.Input.AutoConnect {
		deviceMgr = midi.NewDeviceManager(cfg.Input.PortName)
		go deviceMgr.Run(ctx)
	}

	if *headless {
		err = runHeadless(ctx, manager, deviceMgr, *file)
	} else {
		err = runTUI(manager, deviceMgr, cfg, *file)
	}

	cancel()
	<-running

	if *file != "" && err == nil {
		if !errors.Is(manager.Status().Err, sequencer.ErrMalformedFile) {
			cfg.UI.LastFile = *file
		}
	}
	cfg.SetPatch(inst.Patch())
	if saveErr := cfg.Save(); saveErr != nil {
		logger.Warn("config not saved", "err", saveErr)
	}

	if err != nil {
		logger.Error("exiting", "err", err)
		return 1
	}
	return 0
}

func runTUI(manager *sequencer.Manager, deviceMgr *midi.DeviceManager, cfg *config.Config, file string) error {
	palette, err := theme.LoadOrDefault(cfg.UI.Palette)
	if err != nil {
		log.Warn("palette not loaded, using default", "path", cfg.UI.Palette, "err", err)
	}
	th := theme.New(palette)

	if file != "" {
		if err := manager.PlayFile(file); err != nil {
			log.Error("cannot play file", "file", file, "err", err)
		}
	}

	m := tui.NewModel(manager, deviceMgr, th, file)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func runHeadless(ctx context.Context, manager *sequencer.Manager, deviceMgr *midi.DeviceManager, file string) error {
	if deviceMgr != nil {
		go func() {
			for event := range deviceMgr.Events() {
				if event.Type == midi.DeviceConnected {
					manager.SetMIDIInput(event.Controller)
				}
			}
		}()
	}

	if file == "" {
		log.Info("live input only, Ctrl+C to quit")
		<-ctx.Done()
		return nil
	}

	if err := manager.PlayFile(file); err != nil {
		return err
	}
	manager.Wait()
	return manager.Status().Err
}

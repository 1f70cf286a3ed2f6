package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-synth/audio"
	synthmidi "go-synth/midi"
	"go-synth/sequencer"
	"go-synth/synth"
	"go-synth/widgets"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	var err error
	switch os.Args[1] {
	case "list":
		listPorts()
	case "info":
		err = withFile(showInfo)
	case "play":
		err = withFile(playFile)
	case "poll":
		pollDevices()
	default:
		usage()
	}
	if err != nil {
		log.Fatal(os.Args[1]+" failed", "err", err)
	}
}

func usage() {
	fmt.Println("MIDI Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list         - List all MIDI ports")
	fmt.Println("  info <file>  - Show tempo, timing and tracks of a MIDI file")
	fmt.Println("  play <file>  - Play a MIDI file through the synth, no UI")
	fmt.Println("  poll         - Poll for input changes and print notes")
}

func withFile(fn func(string) error) error {
	if len(os.Args) < 3 {
		usage()
		return fmt.Errorf("missing file argument")
	}
	return fn(os.Args[2])
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	type result struct {
		ins  []string
		outs []drivers.Out
	}
	ch := make(chan result, 1)
	go func() {
		ins := synthmidi.ListInputs(synthmidi.SystemPorts)
		outs := midi.GetOutPorts()
		ch <- result{ins: ins, outs: outs}
	}()

	select {
	case r := <-ch:
		for i, name := range r.ins {
			fmt.Printf("  %d: %s\n", i, name)
		}
		fmt.Println("\n=== MIDI Output Ports ===")
		for i, p := range r.outs {
			fmt.Printf("  %d: %s\n", i, p.String())
		}
	case <-time.After(3 * time.Second):
		fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
	}
}

func showInfo(path string) error {
	song, err := sequencer.LoadFile(path)
	if err != nil {
		return err
	}
	a, err := sequencer.Analyze(song)
	if err != nil {
		return err
	}

	fmt.Printf("File:    %s\n", path)
	fmt.Printf("Timing:  %s\n", song.Timing)
	tempo := fmt.Sprintf("%d us/quarter (%.1f bpm)", a.Tempo, 60e6/float64(a.Tempo))
	if !a.TempoFound {
		tempo += " default"
	}
	fmt.Printf("Tempo:   %s\n", tempo)
	fmt.Printf("Length:  %d ticks, %s\n", a.LengthTicks, a.Length.Round(time.Millisecond))
	fmt.Printf("Notes:   %d\n", a.Notes)
	fmt.Println("Tracks:")
	for i, tr := range song.Tracks {
		var lo, hi uint8 = 127, 0
		notes := 0
		for _, ev := range tr {
			if n, ok := ev.Note(); ok && n.IsOn() {
				notes++
				lo = min(lo, n.Key)
				hi = max(hi, n.Key)
			}
		}
		line := fmt.Sprintf("  %d: %4d events %4d notes", i, len(tr), notes)
		if notes > 0 {
			line += fmt.Sprintf("  %s-%s", widgets.NoteName(lo), widgets.NoteName(hi))
		}
		switch {
		case i == a.Skipped:
			line += "  (tempo track, skipped)"
		case i == a.TempoTrack:
			line += "  (tempo)"
		}
		fmt.Println(line)
	}
	return nil
}

func playFile(path string) error {
	dev, err := audio.Open(0.8)
	if err != nil {
		return err
	}
	defer dev.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	reg := synth.NewRegistry(dev)
	inst := synth.NewInstrument(reg, synth.DefaultPatch)
	go reg.Run(ctx)

	song, err := sequencer.LoadFile(path)
	if err != nil {
		return err
	}

	fmt.Printf("Playing %s (Ctrl+C to stop)\n", path)
	last := -1
	err = sequencer.NewPlayer().Play(ctx, song, func(ev synthmidi.NoteEvent) {
		if err := inst.HandleNote(ev); err != nil {
			log.Warn("note dropped", "key", ev.Key, "err", err)
		}
	}, func(pct float64) {
		if p := int(pct) / 10; p != last {
			last = p
			fmt.Printf("  %3.0f%%  voices=%d players=%d\n", pct, reg.Len(), dev.Active())
		}
	})
	inst.ReleaseAll()
	time.Sleep(synth.SettleMargin)
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func pollDevices() {
	fmt.Println("Polling for input changes every second...")
	fmt.Println("Connect/disconnect a keyboard to test. Ctrl+C to exit.")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	dm := synthmidi.NewDeviceManager("")
	go dm.Run(ctx)

	for event := range dm.Events() {
		stamp := time.Now().Format("15:04:05")
		switch event.Type {
		case synthmidi.DeviceConnected:
			fmt.Printf("[%s] connected: %s\n", stamp, event.ID)
			go printNotes(event.Controller)
		case synthmidi.DeviceDisconnected:
			fmt.Printf("[%s] disconnected: %s\n", stamp, event.ID)
		}
	}
}

func printNotes(c synthmidi.Controller) {
	for ev := range c.NoteEvents() {
		state := "off"
		if ev.IsOn() {
			state = "on "
		}
		fmt.Printf("  %s %s %-4s vel=%d\n", strings.TrimSpace(c.ID()), state, widgets.NoteName(ev.Key), ev.Velocity)
	}
}

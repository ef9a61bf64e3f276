package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-addition/instrument"
	"go-addition/midi"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "detect":
		detect(os.Args[2:])
	case "leds":
		testLEDs(os.Args[2:])
	case "synth":
		sweepSynth(os.Args[2:])
	default:
		usage()
	}
}

func usage() {
	fmt.Println("MIDI Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list    - List all MIDI ports")
	fmt.Println("  detect  - Watch for Launchpad/keyboard hot-plug and print key events")
	fmt.Println("  leds    - Paint the control row and a play-area diagonal")
	fmt.Println("  synth   - Sweep voice 1 across the 16 columns on a MIDI synth")
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	type result struct {
		ins  []drivers.In
		outs []drivers.Out
	}
	ch := make(chan result, 1)
	go func() {
		ins := gomidi.GetInPorts()
		outs := gomidi.GetOutPorts()
		ch <- result{ins: ins, outs: outs}
	}()

	select {
	case r := <-ch:
		for i, p := range r.ins {
			fmt.Printf("  %d: %s\n", i, p.String())
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

func detect(args []string) {
	fs := flag.NewFlagSet("detect", flag.ExitOnError)
	lp := fs.String("launchpad", "Launchpad X LPX MIDI", "launchpad port name")
	kb := fs.String("keyboard", "", "keyboard port name")
	wait := fs.Duration("for", 30*time.Second, "how long to watch")
	fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), *wait)
	defer cancel()

	dm := midi.NewDeviceManager(*lp, *kb)
	go dm.Run(ctx)

	fmt.Printf("Watching for %s...\n", *wait)
	for ev := range dm.Events() {
		switch ev.Type {
		case midi.DeviceConnected:
			fmt.Printf("+ %s (%s)\n", ev.ID, ev.Controller.Type())
			switch c := ev.Controller.(type) {
			case midi.Grid:
				go func() {
					for k := range c.KeyEvents() {
						fmt.Printf("  key %2d %d %d\n", k.X, k.Y, k.Level)
					}
				}()
			case midi.Keyboard:
				go func() {
					for n := range c.NoteEvents() {
						fmt.Printf("  note %d -> %.2fHz\n", n.Note, midi.NoteToFrequency(n.Note))
					}
				}()
			}
		case midi.DeviceDisconnected:
			fmt.Printf("- %s\n", ev.ID)
		}
	}
}

func testLEDs(args []string) {
	fs := flag.NewFlagSet("leds", flag.ExitOnError)
	lp := fs.String("launchpad", "Launchpad X LPX MIDI", "launchpad port name")
	fs.Parse(args)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dm := midi.NewDeviceManager(*lp, "")
	go dm.Run(ctx)

	var grid midi.Grid
	select {
	case ev := <-dm.Events():
		grid, _ = ev.Controller.(midi.Grid)
	case <-time.After(5 * time.Second):
	}
	if grid == nil {
		fmt.Println("No Launchpad found")
		return
	}

	fmt.Println("Lighting voice keys full, gate keys dim, play-area diagonal...")
	var updates []midi.LEDUpdate
	for i := 0; i < instrument.MaxVoices; i++ {
		v, g := instrument.VoiceKey(i), instrument.GateKey(i)
		updates = append(updates,
			midi.LEDUpdate{X: v.X, Y: v.Y, Level: instrument.FullLevel},
			midi.LEDUpdate{X: g.X, Y: g.Y, Level: instrument.DefaultDimLevel},
		)
	}
	for y := 1; y < instrument.GridHeight; y++ {
		updates = append(updates, midi.LEDUpdate{X: y - 1, Y: y, Level: instrument.FullLevel})
	}
	if err := grid.SetLEDBatch(updates); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println("Press Enter to clear...")
	fmt.Scanln()

	var clear []midi.LEDUpdate
	for _, u := range updates {
		clear = append(clear, midi.LEDUpdate{X: u.X, Y: u.Y, Level: instrument.OffLevel})
	}
	grid.SetLEDBatch(clear)

	fmt.Println("Done!")
}

func sweepSynth(args []string) {
	fs := flag.NewFlagSet("synth", flag.ExitOnError)
	port := fs.String("port", "", "synth output port name")
	channel := fs.Uint("channel", 0, "MIDI channel of voice 1")
	fundamental := fs.Float64("fundamental", instrument.DefaultFundamental, "fundamental in Hz")
	fs.Parse(args)

	if *port == "" {
		fmt.Println("-port is required")
		return
	}

	sink, err := midi.OpenSynthSink(*port, uint8(*channel))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer sink.AllOff()

	mapper := instrument.NewMapper(*fundamental)
	sink.Emit(
		instrument.OnOffMsg{Voice: 0, On: true},
		instrument.GateMsg{Voice: 0, Open: true},
	)
	for col := 0; col < instrument.GridWidth; col++ {
		hz := mapper.Frequency(col)
		note, bend := midi.FrequencyToNote(hz)
		fmt.Printf("  col %2d %8.2fHz note %3d bend %+5d\n", col, hz, note, bend)
		sink.Emit(instrument.FrequencyMsg{Voice: 0, Hz: hz})
		time.Sleep(250 * time.Millisecond)
	}
	sink.Emit(
		instrument.GateMsg{Voice: 0, Open: false},
		instrument.OnOffMsg{Voice: 0, On: false},
	)
	fmt.Println("Done!")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"go-addition/config"
	"go-addition/debug"
	"go-addition/host"
	"go-addition/midi"
	"go-addition/oscbridge"
	"go-addition/theme"
	"go-addition/tui"
)

func main() {
	configPath := flag.String("config", "", "config file (.json or .yaml), default ~/.config/go-addition/config.json")
	debugLog := flag.Bool("debug", false, "write debug.log to the config directory")
	headless := flag.Bool("headless", false, "run without the terminal UI")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	switch {
	case *debugLog && *headless:
		// nothing owns the terminal, log straight to stderr
		debug.EnableWriter(os.Stderr)
		defer debug.Disable()
	case *debugLog:
		if dir, err := config.ConfigDir(); err == nil {
			if err := debug.Enable(dir); err != nil {
				fmt.Fprintf(os.Stderr, "debug log: %v\n", err)
			}
		}
		defer debug.Disable()
	}

	// Load theme
	palette, err := theme.LoadOrDefault(cfg.UI.Palette)
	if err != nil {
		debug.Log("error", "palette: %v", err)
	}
	th := theme.New(palette)

	manager := host.NewManager(host.Options{
		Fundamental:   cfg.Voice.Fundamental,
		DimLevel:      cfg.Voice.DimLevel,
		FlashDuration: cfg.FlashDuration(),
		Color:         func(level int) [3]uint8 { return th.Level(level) },
	})

	// Sound outputs
	if cfg.OSC.SynthAddr != "" {
		synth, err := oscbridge.DialSynth(cfg.OSC.SynthAddr, cfg.OSC.SynthAddress)
		if err != nil {
			fatal(err)
		}
		defer synth.Close()
		manager.AddSoundSink(synth)
	}
	var midiSynth *midi.SynthSink
	if cfg.SynthOutput.PortName != "" {
		midiSynth, err = midi.OpenSynthSink(cfg.SynthOutput.PortName, cfg.SynthOutput.BaseChannel)
		if err != nil {
			fatal(err)
		}
		manager.AddSoundSink(midiSynth)
	}

	// OSC input: grid keys and fundamental changes
	server, err := oscbridge.Listen(cfg.OSC.ListenAddr, cfg.Grid.Prefix, cfg.OSC.FundamentalAddress)
	if err != nil {
		fatal(err)
	}
	defer server.Close()
	go func() {
		if err := server.Serve(); err != nil {
			debug.Log("osc", "serve: %v", err)
		}
	}()
	go func() {
		for args := range server.Keys() {
			manager.Raw(args...)
		}
	}()
	go func() {
		for f := range server.Fundamentals() {
			manager.SetFundamental(f)
		}
	}()

	// Grid output
	launchpadName := ""
	switch cfg.Grid.Backend {
	case config.GridMonome:
		grid, err := oscbridge.DialGrid(cfg.Grid.DeviceAddr, cfg.Grid.Prefix)
		if err != nil {
			fatal(err)
		}
		defer grid.Close()
		ip, _, err := net.SplitHostPort(cfg.OSC.ListenAddr)
		if err != nil {
			fatal(err)
		}
		if err := grid.Register(ip, server.Port()); err != nil {
			fatal(err)
		}
		manager.AddLightSink(grid)
	case config.GridLaunchpad:
		launchpadName = cfg.Grid.PortName
	}

	// Create MIDI device manager (handles hot-plug)
	deviceMgr := midi.NewDeviceManager(launchpadName, cfg.Keyboard.PortName)
	devCtx, devCancel := context.WithCancel(context.Background())
	defer devCancel()
	go deviceMgr.Run(devCtx)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		manager.Run(ctx)
		close(done)
	}()

	if *headless {
		runHeadless(manager, deviceMgr)
	} else {
		m := tui.NewModel(manager, deviceMgr, th, string(cfg.Grid.Backend), cfg.UI.FundamentalStep)
		p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
		if _, err := p.Run(); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}

	// Stop the loop first so the grid is cleared while devices are still open
	cancel()
	<-done
	if midiSynth != nil {
		midiSynth.AllOff()
	}
}

func runHeadless(manager *host.Manager, deviceMgr *midi.DeviceManager) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("go-addition running headless, Ctrl+C to quit")

	events := deviceMgr.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			manager.HandleDevice(ev)
		}
	}
}

// loadConfig reads path, or the default config file. On first run the
// defaults are written out so there is a file to edit.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if def, err := config.ConfigPath(); err == nil {
		if _, err := os.Stat(def); os.IsNotExist(err) {
			if err := cfg.Save(); err != nil {
				fmt.Fprintf(os.Stderr, "write default config: %v\n", err)
			}
		}
	}
	return cfg, nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "go-addition: %v\n", err)
	os.Exit(1)
}

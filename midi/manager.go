package midi

import (
	"context"
	"strings"
	"sync"
	"time"

	"go-addition/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// DeviceEvent is emitted when controllers connect/disconnect
type DeviceEvent struct {
	Type       DeviceEventType
	Controller Controller
	ID         string
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

// DeviceManager handles hot-plug detection of the Launchpad grid and the
// fundamental keyboard
type DeviceManager struct {
	launchpadName string // empty disables launchpad detection
	keyboardName  string // empty disables keyboard detection

	controllers map[string]Controller
	mu          sync.RWMutex
	events      chan DeviceEvent
	pollRate    time.Duration
}

// NewDeviceManager creates a new device manager. Port names are matched
// case-insensitively as substrings.
func NewDeviceManager(launchpadName, keyboardName string) *DeviceManager {
	return &DeviceManager{
		launchpadName: strings.ToLower(launchpadName),
		keyboardName:  strings.ToLower(keyboardName),
		controllers:   make(map[string]Controller),
		events:        make(chan DeviceEvent, 16),
		pollRate:      time.Second,
	}
}

// Events returns a channel of device connect/disconnect events
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// Controllers returns a snapshot of connected controllers
func (dm *DeviceManager) Controllers() map[string]Controller {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	copy := make(map[string]Controller, len(dm.controllers))
	for k, v := range dm.controllers {
		copy[k] = v
	}
	return copy
}

// Run starts the polling loop (blocking - run in goroutine)
func (dm *DeviceManager) Run(ctx context.Context) {
	if dm.launchpadName == "" && dm.keyboardName == "" {
		close(dm.events)
		return
	}

	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	// Initial scan
	dm.scan()

	for {
		select {
		case <-ctx.Done():
			dm.closeAll()
			close(dm.events)
			return
		case <-ticker.C:
			dm.scan()
		}
	}
}

func (dm *DeviceManager) scan() {
	// Get current MIDI ports with timeout (CoreMIDI can hang)
	type portsResult struct {
		inPorts  []drivers.In
		outPorts []drivers.Out
	}

	ch := make(chan portsResult, 1)
	go func() {
		inPorts := gomidi.GetInPorts()
		outPorts := gomidi.GetOutPorts()
		ch <- portsResult{inPorts: inPorts, outPorts: outPorts}
	}()

	var inPorts []drivers.In
	var outPorts []drivers.Out

	select {
	case result := <-ch:
		inPorts = result.inPorts
		outPorts = result.outPorts
	case <-time.After(3 * time.Second):
		// CoreMIDI is hung - skip this scan
		debug.Log("midi", "port scan timed out")
		return
	}

	seenIDs := make(map[string]bool)

	for i, inPort := range inPorts {
		id := inPort.String()
		kind := dm.classify(id)
		if kind == ControllerUnknown {
			continue
		}
		seenIDs[id] = true

		dm.mu.RLock()
		_, exists := dm.controllers[id]
		dm.mu.RUnlock()
		if exists {
			continue
		}

		var ctrl Controller
		var err error
		switch kind {
		case ControllerLaunchpad:
			ctrl, err = NewLaunchpadGrid(id, inPorts[i], matchingOut(id, outPorts))
		case ControllerKeyboard:
			ctrl, err = NewKeyboardController(id, inPorts[i])
		}
		if err != nil {
			debug.Log("midi", "connect %s: %v", id, err)
			continue
		}
		debug.Log("midi", "connected %s %s", kind, id)

		dm.mu.Lock()
		dm.controllers[id] = ctrl
		dm.mu.Unlock()

		dm.events <- DeviceEvent{
			Type:       DeviceConnected,
			Controller: ctrl,
			ID:         id,
		}
	}

	// Check for disconnects
	dm.mu.Lock()
	var toRemove []string
	for id := range dm.controllers {
		if !seenIDs[id] {
			toRemove = append(toRemove, id)
		}
	}
	for _, id := range toRemove {
		c := dm.controllers[id]
		c.Close()
		delete(dm.controllers, id)
		debug.Log("midi", "disconnected %s", id)
		dm.events <- DeviceEvent{
			Type: DeviceDisconnected,
			ID:   id,
		}
	}
	dm.mu.Unlock()
}

func (dm *DeviceManager) classify(portName string) ControllerType {
	name := strings.ToLower(portName)
	switch {
	case dm.launchpadName != "" && isLaunchpad(name) && strings.Contains(name, dm.launchpadName):
		return ControllerLaunchpad
	case dm.keyboardName != "" && !isLaunchpad(name) && strings.Contains(name, dm.keyboardName):
		return ControllerKeyboard
	}
	return ControllerUnknown
}

func matchingOut(name string, outPorts []drivers.Out) drivers.Out {
	for j, op := range outPorts {
		if strings.EqualFold(op.String(), name) {
			return outPorts[j]
		}
	}
	return nil
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for _, c := range dm.controllers {
		c.Close()
	}
	dm.controllers = make(map[string]Controller)
}

func isLaunchpad(name string) bool {
	name = strings.ToLower(name)
	return strings.Contains(name, "launchpad") && strings.Contains(name, "midi")
}

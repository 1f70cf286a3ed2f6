package midi

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
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

// PortLister enumerates input ports. Swapped out in tests.
type PortLister func() []drivers.In

// DeviceManager handles hot-plug detection of MIDI keyboards
type DeviceManager struct {
	controllers map[string]Controller
	mu          sync.RWMutex
	events      chan DeviceEvent
	pollRate    time.Duration

	// PortName selects the input port (substring match, case-insensitive).
	// Empty means the first port found.
	portName string
	ports    PortLister
	open     func(id string, in drivers.In) (Controller, error)
	logger   *log.Logger
}

// NewDeviceManager creates a new device manager
func NewDeviceManager(portName string) *DeviceManager {
	return &DeviceManager{
		controllers: make(map[string]Controller),
		events:      make(chan DeviceEvent, 16),
		pollRate:    time.Second,
		portName:    portName,
		ports:       SystemPorts,
		open: func(id string, in drivers.In) (Controller, error) {
			return NewKeyboardController(id, in)
		},
		logger: log.Default().WithPrefix("midi"),
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
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	// Initial scan
	if err := dm.scan(); err != nil {
		dm.logger.Warn("live input disabled until a port appears", "err", err)
	}

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

// scan returns ErrInputUnavailable when no matching port exists.
func (dm *DeviceManager) scan() error {
	// Port enumeration can hang on CoreMIDI
	ch := make(chan []drivers.In, 1)
	go func() {
		ch <- dm.ports()
	}()

	var inPorts []drivers.In
	select {
	case inPorts = <-ch:
	case <-time.After(3 * time.Second):
		return fmt.Errorf("%w: port enumeration timed out", ErrInputUnavailable)
	}

	seenIDs := make(map[string]bool)
	for _, inPort := range inPorts {
		id := inPort.String()
		if !dm.matches(id) {
			continue
		}
		seenIDs[id] = true

		dm.mu.RLock()
		_, exists := dm.controllers[id]
		dm.mu.RUnlock()
		if exists {
			continue
		}
		// One live keyboard is enough when no port is configured
		if dm.portName == "" && dm.count() > 0 {
			continue
		}

		kb, err := dm.open(id, inPort)
		if err != nil {
			dm.logger.Warn("open input failed", "port", id, "err", err)
			continue
		}

		dm.mu.Lock()
		dm.controllers[id] = kb
		dm.mu.Unlock()
		dm.logger.Info("input connected", "port", id)

		dm.events <- DeviceEvent{Type: DeviceConnected, Controller: kb, ID: id}
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
		dm.logger.Info("input disconnected", "port", id)
		dm.events <- DeviceEvent{Type: DeviceDisconnected, ID: id}
	}
	connected := len(dm.controllers)
	dm.mu.Unlock()

	if connected == 0 {
		return ErrInputUnavailable
	}
	return nil
}

func (dm *DeviceManager) count() int {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return len(dm.controllers)
}

func (dm *DeviceManager) matches(id string) bool {
	if dm.portName == "" {
		return true
	}
	return strings.Contains(strings.ToLower(id), strings.ToLower(dm.portName))
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for _, c := range dm.controllers {
		c.Close()
	}
	dm.controllers = make(map[string]Controller)
}

// SystemPorts lists the input ports of the registered driver.
func SystemPorts() []drivers.In {
	return gomidi.GetInPorts()
}

// ListInputs returns the names of the ports found by list.
func ListInputs(list PortLister) []string {
	var names []string
	for _, p := range list() {
		names = append(names, p.String())
	}
	return names
}

package midi

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// fakePort only answers String; scan hands it to the open hook untouched.
type fakePort struct {
	drivers.In
	name string
}

func (p fakePort) String() string { return p.name }

type stubController struct {
	id     string
	events chan NoteEvent
	closed bool
}

func (c *stubController) ID() string { return c.id }
func (c *stubController) Type() ControllerType { return ControllerKeyboard }
func (c *stubController) NoteEvents() <-chan NoteEvent { return c.events }
func (c *stubController) Close() error {
	c.closed = true
	return nil
}

func ports(names ...string) []drivers.In {
	in := make([]drivers.In, 0, len(names))
	for _, n := range names {
		in = append(in, fakePort{name: n})
	}
	return in
}

func drainEvents(dm *DeviceManager) []DeviceEvent {
	var out []DeviceEvent
	for {
		select {
		case ev := <-dm.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestDeviceManagerScan(t *testing.T) {
	type step struct {
		ports        []drivers.In
		connected    []string
		disconnected []string
		unavailable  bool
	}
	cases := []struct {
		name     string
		portName string
		failOpen string
		steps    []step
	}{
		{
			name:     "connects matching ports",
			portName: "keys",
			steps: []step{
				{ports: ports("Keys 1", "IAC Bus", "USB KEYS 2"), connected: []string{"Keys 1", "USB KEYS 2"}},
				{ports: ports("Keys 1", "IAC Bus", "USB KEYS 2")},
			},
		},
		{
			name: "first port only without a name",
			steps: []step{
				{ports: ports("IAC Bus", "Keys 1"), connected: []string{"IAC Bus"}},
				{ports: ports("IAC Bus", "Keys 1")},
			},
		},
		{
			name:     "disconnect",
			portName: "keys",
			steps: []step{
				{ports: ports("Keys 1", "Keys 2"), connected: []string{"Keys 1", "Keys 2"}},
				{ports: ports("Keys 2"), disconnected: []string{"Keys 1"}},
				{ports: nil, disconnected: []string{"Keys 2"}, unavailable: true},
			},
		},
		{
			name:     "no matching port",
			portName: "keystation",
			steps: []step{
				{ports: ports("IAC Bus"), unavailable: true},
				{ports: nil, unavailable: true},
			},
		},
		{
			name:     "failed open is retried",
			portName: "keys",
			failOpen: "Keys 1",
			steps: []step{
				{ports: ports("Keys 1"), unavailable: true},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opened := make(map[string]*stubController)
			dm := NewDeviceManager(tc.portName)
			dm.open = func(id string, in drivers.In) (Controller, error) {
				if id == tc.failOpen {
					return nil, errors.New("port busy")
				}
				c := &stubController{id: id, events: make(chan NoteEvent)}
				opened[id] = c
				return c, nil
			}

			for i, s := range tc.steps {
				dm.ports = func() []drivers.In { return s.ports }
				err := dm.scan()
				if s.unavailable {
					require.ErrorIs(t, err, ErrInputUnavailable, "step %d", i)
				} else {
					require.NoError(t, err, "step %d", i)
				}

				var connected, disconnected []string
				for _, ev := range drainEvents(dm) {
					switch ev.Type {
					case DeviceConnected:
						require.Equal(t, ev.ID, ev.Controller.ID())
						connected = append(connected, ev.ID)
					case DeviceDisconnected:
						require.Nil(t, ev.Controller)
						disconnected = append(disconnected, ev.ID)
					}
				}
				require.Equal(t, s.connected, connected, "step %d", i)
				require.Equal(t, s.disconnected, disconnected, "step %d", i)
				for _, id := range disconnected {
					require.True(t, opened[id].closed)
				}
			}
		})
	}
}

func TestDeviceManagerCloseAll(t *testing.T) {
	dm := NewDeviceManager("")
	var c *stubController
	dm.open = func(id string, in drivers.In) (Controller, error) {
		c = &stubController{id: id, events: make(chan NoteEvent)}
		return c, nil
	}
	dm.ports = func() []drivers.In { return ports("Keys 1") }
	require.NoError(t, dm.scan())
	require.Len(t, dm.Controllers(), 1)

	dm.closeAll()
	require.True(t, c.closed)
	require.Empty(t, dm.Controllers())
}

func TestListInputs(t *testing.T) {
	names := ListInputs(func() []drivers.In { return ports("Keys 1", "IAC Bus") })
	require.Equal(t, []string{"Keys 1", "IAC Bus"}, names)
	require.Empty(t, ListInputs(func() []drivers.In { return nil }))
}

package planner

import (
	"github.com/richxcame/rideplanner/internal/simulation"
	"github.com/richxcame/rideplanner/pkg/websocket"
)

// WebSocket message types sent to clients. Simulation updates use the
// simulation event name as their type.
const (
	MessageTypeSnapshot = "snapshot"
	MessageTypeTrip     = "trip_updated"
	MessageTypeGetState = "get_state"
)

// Broadcaster streams planner and simulation changes to every WebSocket client.
type Broadcaster struct {
	hub   *websocket.Hub
	store *Store
}

// NewBroadcaster wires the hub to the store. New clients receive a full
// snapshot and may ask for another one with a "get_state" message.
func NewBroadcaster(hub *websocket.Hub, store *Store) *Broadcaster {
	b := &Broadcaster{hub: hub, store: store}

	hub.OnRegister(b.sendSnapshot)
	hub.RegisterHandler(MessageTypeGetState, func(client *websocket.Client, _ *websocket.Message) {
		b.sendSnapshot(client)
	})
	store.SetNotifier(b.OnTripUpdate)
	return b
}

// OnSimulationUpdate implements simulation.Listener
func (b *Broadcaster) OnSimulationUpdate(u simulation.Update) {
	b.hub.SendToAll(websocket.NewMessage(u.Event, u.State))
}

// OnTripUpdate sends the changed planner state.
func (b *Broadcaster) OnTripUpdate(s Snapshot) {
	b.hub.SendToAll(websocket.NewMessage(MessageTypeTrip, s))
}

func (b *Broadcaster) sendSnapshot(client *websocket.Client) {
	client.SendMessage(websocket.NewMessage(MessageTypeSnapshot, b.store.Snapshot()))
}

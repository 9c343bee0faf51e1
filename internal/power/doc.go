// Package power keeps the authoritative on/off state of remote power-switchable
// devices.
//
// Two independent inputs drive the state: user commands arriving from the HTTP
// and WebSocket front end, and status reports published by the devices on the
// MQTT bus. Both are funnelled into a single Actor goroutine which is the only
// writer of the device table. Every mutation is followed by a full Snapshot
// published to a Distributor, from which any number of observers read.
//
// # Architecture
//
//	┌────────────┐  SubmitCommand   ┌─────────────────────────┐   Publish   ┌──────────────┐
//	│  HTTP / WS │ ───────────────▶ │          Actor          │ ──────────▶ │ Distributor  │
//	└────────────┘                  │  registry map[id]State  │             │ value+version│
//	                                └─────────────────────────┘             └──────┬───────┘
//	┌────────────┐  StatusUpdate        ▲            │ PublishCommand              │ WaitForChange
//	│ BusAdapter │ ─────────────────────┘            ▼                             ▼
//	│ stat/+/power                          cmd/<id>/power                    observers
//	└────────────┘
//
// # States
//
//   - On, Off: confirmed by the device.
//   - Pending: a command was sent and no status has been reported since.
//
// A device enters the registry only by reporting its status (or by being
// seeded at startup). Commands for unknown devices are rejected.
//
// # Usage
//
//	adapter := power.NewBusAdapter(bus)
//	actor := power.NewActor(adapter, power.Options{QueueSize: 64})
//	actor.SetLogger(log)
//
//	go func() {
//	    if err := actor.Run(ctx); err != nil {
//	        log.Error("power actor stopped", "error", err)
//	    }
//	}()
//
//	actor.SubmitCommand("node-0", power.ActionOn)
//
//	obs := actor.Observe()
//	snap, err := obs.WaitForChange(ctx)
package power

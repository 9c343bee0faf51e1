package power

import (
	"context"
	"fmt"
)

// Bus is the publish/subscribe capability the power core needs.
//
// It is satisfied by the infrastructure MQTT client through a thin adapter in
// main.go. Transport concerns (handshake, keep-alive, reconnection) stay on the
// other side of this interface.
type Bus interface {
	// Publish hands a message to the transport. A nil error means the local
	// handoff succeeded, not that any subscriber received it.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern. Handlers may be
	// invoked from transport goroutines.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error
}

// BusAdapter translates between raw bus messages and the core's typed messages.
// It holds no state beyond the underlying Bus.
type BusAdapter struct {
	bus Bus
}

// NewBusAdapter wraps a Bus.
func NewBusAdapter(bus Bus) *BusAdapter {
	return &BusAdapter{bus: bus}
}

// PublishCommand encodes a command and publishes it to cmd/<id>/power with
// at-least-once delivery, not retained.
func (a *BusAdapter) PublishCommand(cmd Command) error {
	payload, err := EncodeAction(cmd.Action)
	if err != nil {
		return err
	}
	if err := a.bus.Publish(CommandTopic(cmd.DeviceID), payload, QoSAtLeastOnce, false); err != nil {
		return fmt.Errorf("publishing %s to %s: %w", cmd.Action, cmd.DeviceID, err)
	}
	return nil
}

// Statuses subscribes to every device status topic and returns a stream of
// decoded updates.
//
// Messages that do not decode are dropped silently. The stream is fed from the
// transport's handler goroutine, which blocks until the update is taken or ctx
// is done. Updates keep the order the transport delivers them in, so the
// transport must call handlers one at a time. The channel is never closed;
// consumers stop on ctx.
func (a *BusAdapter) Statuses(ctx context.Context) (<-chan StatusUpdate, error) {
	updates := make(chan StatusUpdate)
	err := a.bus.Subscribe(StatusTopicPattern, QoSAtLeastOnce, func(topic string, payload []byte) {
		update, ok := DecodeStatus(topic, payload)
		if !ok {
			return
		}
		select {
		case updates <- update:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return nil, err
	}
	return updates, nil
}

package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementPowerState is the measurement written for every device transition.
const MeasurementPowerState = "power_state"

// PowerStateValue maps a state name to the numeric field value:
// On is 1, Off is 0, Pending is -1. Unknown states map to -1.
func PowerStateValue(state string) int64 {
	switch state {
	case "On":
		return 1
	case "Off":
		return 0
	default:
		return -1
	}
}

// WritePowerState queues one device transition as a power_state point
// tagged with the device, the new state and its source ("command" or
// "status"). It is dropped once the client is closed.
//
//	client.WritePowerState("node-0", "Pending", "command", time.Now())
func (c *Client) WritePowerState(deviceID, state, source string, at time.Time) {
	if !c.isConnected() {
		return
	}

	c.writer.WritePoint(write.NewPoint(MeasurementPowerState,
		map[string]string{"device_id": deviceID, "state": state, "source": source},
		map[string]interface{}{"value": PowerStateValue(state)},
		at,
	))
}

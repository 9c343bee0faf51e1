package power

import (
	"bytes"
	"strings"
)

// Bus topic layout. Fixed by the device firmware; not configurable.
const (
	// StatusTopicPrefix is the first segment of device status topics.
	StatusTopicPrefix = "stat"

	// CommandTopicPrefix is the first segment of device control topics.
	CommandTopicPrefix = "cmd"

	// PowerTopicSuffix is the last segment of both status and control topics.
	PowerTopicSuffix = "power"

	// StatusTopicPattern matches the status topic of every device.
	StatusTopicPattern = StatusTopicPrefix + "/+/" + PowerTopicSuffix

	// CommandTopicPattern matches the control topic of every device.
	CommandTopicPattern = CommandTopicPrefix + "/+/" + PowerTopicSuffix

	// topicSegments is the number of levels in a status or control topic.
	topicSegments = 3
)

// Wire payloads shared by status and control topics.
const (
	PayloadOn  = "ON"
	PayloadOff = "OFF"
)

// QoSAtLeastOnce is the MQTT quality of service used for control messages
// and the status subscription.
const QoSAtLeastOnce byte = 1

// StatusTopic returns the status topic for a device.
//
// Example: stat/node-0/power
func StatusTopic(deviceID string) string {
	return StatusTopicPrefix + "/" + deviceID + "/" + PowerTopicSuffix
}

// CommandTopic returns the control topic for a device.
//
// Example: cmd/node-0/power
func CommandTopic(deviceID string) string {
	return CommandTopicPrefix + "/" + deviceID + "/" + PowerTopicSuffix
}

// DeviceIDFromTopic extracts the device id from a status or control topic
// with the given prefix. ok is false for any other topic shape.
func DeviceIDFromTopic(topic, prefix string) (id string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != topicSegments || parts[0] != prefix || parts[2] != PowerTopicSuffix {
		return "", false
	}
	if parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// DecodeStatus turns a raw bus message into a StatusUpdate.
//
// The topic must be stat/<device-id>/power and the payload, once surrounding
// whitespace is trimmed, exactly "ON" or "OFF". Anything else returns ok=false
// and is meant to be ignored: the bus carries other traffic.
func DecodeStatus(topic string, payload []byte) (StatusUpdate, bool) {
	id, ok := DeviceIDFromTopic(topic, StatusTopicPrefix)
	if !ok {
		return StatusUpdate{}, false
	}
	state, ok := DecodeStatePayload(payload)
	if !ok {
		return StatusUpdate{}, false
	}
	return StatusUpdate{DeviceID: id, State: state}, true
}

// DecodeStatePayload maps "ON"/"OFF" (whitespace-trimmed) to a State.
func DecodeStatePayload(payload []byte) (State, bool) {
	switch string(bytes.TrimSpace(payload)) {
	case PayloadOn:
		return StateOn, true
	case PayloadOff:
		return StateOff, true
	default:
		return "", false
	}
}

// EncodeAction returns the control payload for an action.
func EncodeAction(a Action) ([]byte, error) {
	switch a {
	case ActionOn:
		return []byte(PayloadOn), nil
	case ActionOff:
		return []byte(PayloadOff), nil
	default:
		return nil, ErrInvalidAction
	}
}

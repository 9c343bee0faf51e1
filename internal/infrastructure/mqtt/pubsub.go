package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// maxPayloadSize caps a published payload at 1MB, the common broker limit.
const maxPayloadSize = 1 << 20

// Publish sends payload to topic and waits for the broker to acknowledge it
// at the given QoS.
//
// Device commands go out with retained=false; only presence and simulator
// status announcements are retained.
//
//	err := client.Publish("cmd/node-0/power", []byte("ON"), 1, false)
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if err := c.checkRequest(topic, qos); err != nil {
		return err
	}
	return waitToken(c.client.Publish(topic, qos, retained, payload), ErrPublishFailed)
}

// Subscribe routes messages matching topic (which may hold + and #
// wildcards) to handler. The subscription is remembered and restored after
// every reconnect.
//
// paho delivers messages one at a time in arrival order, and handler runs
// on that delivery path. A slow handler therefore delays every later
// message, which is what keeps status updates in broker order.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	if err := c.checkRequest(topic, qos); err != nil {
		return err
	}

	if err := waitToken(c.client.Subscribe(topic, qos, c.wrapHandler(handler)), ErrSubscribeFailed); err != nil {
		return err
	}

	c.subMu.Lock()
	c.subscriptions[topic] = subscription{qos: qos, handler: handler}
	c.subMu.Unlock()
	return nil
}

// checkRequest validates arguments shared by Publish and Subscribe, then
// the connection state.
func (c *Client) checkRequest(topic string, qos byte) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case qos > maxQoS:
		return ErrInvalidQoS
	case !c.IsConnected():
		return ErrNotConnected
	}
	return nil
}

// waitToken waits up to defaultPublishTimeout for a broker round trip and
// wraps any failure in sentinel.
func waitToken(token pahomqtt.Token, sentinel error) error {
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", sentinel, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return nil
}

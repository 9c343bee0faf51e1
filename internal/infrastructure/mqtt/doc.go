// Package mqtt provides MQTT client connectivity for powerd and powersim.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support, restored on reconnect
//   - Last Will and Testament (LWT) for offline detection
//
// Handlers run one at a time in the order the broker delivered the
// messages, so a device's status updates are applied in publish order.
//
// # Architecture
//
// Devices and the service never talk directly; the broker carries
// status announcements one way and power commands the other.
//
//	device --stat/<id>/power--> broker --> powerd
//	powerd --cmd/<id>/power---> broker --> device
//
// Each client also keeps a retained presence message on
// <service>/system/status, replaced by the broker with an offline LWT if
// the client dies.
//
// # Security Considerations
//
//   - Enable TLS outside development (cfg.Broker.TLS=true)
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, mqtt.ServicePowerd)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe("stat/+/power", 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	client.Publish("cmd/node-0/power", []byte("ON"), 1, false)
package mqtt

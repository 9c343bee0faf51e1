package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-power/internal/power"
)

// publisher is the part of the MQTT client the simulator uses.
type publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger is the logging interface used by the simulator.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// simulator answers commands the way a switch does: by reporting the
// commanded state as its new status.
type simulator struct {
	ctx    context.Context
	pub    publisher
	delay  time.Duration
	logger Logger

	// mu orders wg.Add against wait so no response starts once wait began.
	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

func newSimulator(ctx context.Context, pub publisher, delay time.Duration) *simulator {
	return &simulator{ctx: ctx, pub: pub, delay: delay, logger: noopLogger{}}
}

// nodeID names the i-th simulated device.
func nodeID(i int) string {
	return fmt.Sprintf("node-%d", i)
}

// announce publishes a retained OFF status for each simulated node.
func (s *simulator) announce(nodes int) error {
	for i := 0; i < nodes; i++ {
		id := nodeID(i)
		if err := s.pub.Publish(power.StatusTopic(id), []byte(power.PayloadOff), power.QoSAtLeastOnce, true); err != nil {
			return fmt.Errorf("announcing %s: %w", id, err)
		}
		s.logger.Info("node announced", "device_id", id)
	}
	return nil
}

// handleCommand echoes a command payload to the device's status topic.
// Messages that are not power commands are ignored.
func (s *simulator) handleCommand(topic string, payload []byte) error {
	id, ok := power.DeviceIDFromTopic(topic, power.CommandTopicPrefix)
	if !ok {
		return nil
	}
	state, ok := power.DecodeStatePayload(payload)
	if !ok {
		s.logger.Warn("ignoring command", "device_id", id, "payload", string(payload))
		return nil
	}
	s.logger.Info("command received", "device_id", id, "state", state)

	if s.delay <= 0 {
		return s.report(id, payload)
	}

	s.mu.Lock()
	if s.stopped || s.ctx.Err() != nil {
		s.mu.Unlock()
		return nil
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			if err := s.report(id, payload); err != nil {
				s.logger.Warn("status publish failed", "device_id", id, "error", err)
			}
		case <-s.ctx.Done():
		}
	}()
	return nil
}

func (s *simulator) report(id string, payload []byte) error {
	topic := power.StatusTopic(id)
	if err := s.pub.Publish(topic, payload, power.QoSAtLeastOnce, false); err != nil {
		return fmt.Errorf("publishing status for %s: %w", id, err)
	}
	return nil
}

// wait blocks until delayed responses have been sent or abandoned.
// Commands handled after wait is called are ignored.
func (s *simulator) wait() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.wg.Wait()
}

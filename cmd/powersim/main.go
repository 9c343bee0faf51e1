// powersim stands in for a set of power switch microcontrollers.
//
// On start it announces node-0..node-N as OFF with retained status messages,
// then echoes every command received on cmd/<id>/power back as the device
// status on stat/<id>/power, optionally after a fixed delay.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-power/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-power/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-power/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-power/internal/power"
)

// Version information - set at build time via ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Logging, logging.ServicePowersim, version)
	log.Info("starting powersim",
		"version", version,
		"commit", commit,
		"nodes", cfg.Simulator.Nodes,
	)

	// Several simulators may share a broker; the suffix keeps their
	// sessions apart.
	mqttCfg := cfg.MQTT
	mqttCfg.Broker.ClientID = simulatorClientID(cfg.Simulator.ClientID)

	client, err := mqtt.Connect(mqttCfg, mqtt.ServicePowersim)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	client.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", mqttCfg.Broker.Host, mqttCfg.Broker.Port),
		"client_id", mqttCfg.Broker.ClientID,
	)

	sim := newSimulator(ctx, client, cfg.GetResponseDelay())
	sim.logger = log

	if err := client.Subscribe(power.CommandTopicPattern, power.QoSAtLeastOnce, sim.handleCommand); err != nil {
		return fmt.Errorf("subscribing to commands: %w", err)
	}
	if err := sim.announce(cfg.Simulator.Nodes); err != nil {
		return fmt.Errorf("announcing nodes: %w", err)
	}
	log.Info("simulator ready", "command_topic", power.CommandTopicPattern)

	<-ctx.Done()
	sim.wait()
	log.Info("powersim stopped")
	return nil
}

// getConfigPath returns POWERD_CONFIG if set, otherwise the default path.
// The simulator reads the same file as powerd.
func getConfigPath() string {
	if path := os.Getenv("POWERD_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

func simulatorClientID(base string) string {
	if base == "" {
		base = mqtt.ServicePowersim
	}
	return base + "-" + uuid.NewString()[:8]
}

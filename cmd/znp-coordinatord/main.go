// Command znp-coordinatord is a protocol-only demo daemon: it opens a
// serial port to a ZNP device, resets it, waits for the network state
// to reach STARTED, registers a single application endpoint, opens the
// join window, and serves the mediator's observability surfaces.
// Generalized from the teacher's main.go/zhub.go startup sequence with
// its GPIO/modem/Telegram/SQL glue dropped; this is the ZNP layer
// alone.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"znp/config"
	"znp/httpapi"
	"znp/mqttbridge"
	"znp/transport"
	"znp/znp"
)

func main() {
	configPath := flag.String("config", "", "path to config file (yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLog.Fatal().Err(err).Msg("load config")
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		Level(level).
		With().Timestamp().Logger()

	registry := prometheus.NewRegistry()
	metrics := znp.NewMetrics(registry)

	raw, err := transport.Open(transport.Config{
		Port:        cfg.Serial.Port,
		Baud:        cfg.Serial.Baud,
		ReadTimeout: cfg.Serial.ReadTimeout,
	}, log.With().Str("component", "transport").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("open serial transport")
	}
	defer raw.Close()

	mediator := znp.NewMediator(raw,
		znp.WithLogger(log.With().Str("component", "znp").Logger()),
		znp.WithMetrics(metrics),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := raw.Run(ctx, mediator); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("transport read loop exited")
		}
	}()

	httpServer := httpapi.NewServer(cfg.HTTP.Addr, mediator, registry, log.With().Str("component", "httpapi").Logger())
	httpServer.Start()
	defer httpServer.Stop()

	var bridge *mqttbridge.Bridge
	if cfg.MQTT.Enable {
		bridge, err = mqttbridge.NewBridge(mqttbridge.Config{
			BrokerURL:   cfg.MQTT.BrokerURL,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
		}, log.With().Str("component", "mqttbridge").Logger())
		if err != nil {
			log.Error().Err(err).Msg("mqtt bridge disabled: connect failed")
		} else {
			bridge.Start(mediator)
			defer bridge.Stop()
		}
	}

	if err := startNetwork(mediator, log); err != nil {
		log.Error().Err(err).Msg("network startup failed")
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info().Msg("shutting down")
}

// startNetwork drives the ZNP start-up sequence: reset, wait for
// STARTED across the documented HOLD→INIT→JOINING→STARTED corridor,
// register one demo endpoint, and open the join window briefly.
func startNetwork(mediator *znp.Mediator, log zerolog.Logger) error {
	info, err := mediator.SysReset(0, 10)
	if err != nil {
		return err
	}
	log.Info().Uint8("major", info.MajorRel).Uint8("minor", info.MinorRel).Msg("device reset")

	state, err := mediator.WaitForState(
		[]znp.DeviceState{znp.DeviceStateZbCoord, znp.DeviceStateRouter, znp.DeviceStateEndDevice},
		[]znp.DeviceState{
			znp.DeviceStateHold, znp.DeviceStateInit, znp.DeviceStateNwkDisc,
			znp.DeviceStateNwkJoining, znp.DeviceStateNwkRejoin,
			znp.DeviceStateCoordStarting, znp.DeviceStateZbCoord,
			znp.DeviceStateRouter, znp.DeviceStateEndDevice,
		},
	)
	if err != nil {
		return err
	}
	log.Info().Stringer("state", state).Msg("network started")

	if err := mediator.AfRegister(znp.SimpleDescriptor{
		Endpoint:      1,
		ProfileID:     0x0104,
		DeviceID:      0x0005,
		DeviceVersion: 0,
	}); err != nil {
		return err
	}

	if err := mediator.ZdoMgmtPermitJoin(0xFFFC, 60, 1); err != nil {
		log.Warn().Err(err).Msg("permit join failed")
	}

	return nil
}

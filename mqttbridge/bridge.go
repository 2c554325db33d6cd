// Package mqttbridge republishes a znp.Mediator's events onto MQTT
// topics under a configurable prefix. Generalized from
// lmahmutov-zigbee-go-home's Home-Assistant discovery bridge, stripped
// down to its "one topic per event kind, JSON payload" core: no
// discovery messages, no accumulated per-device state, since caching
// device state is explicitly out of scope for this module.
package mqttbridge

import (
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"znp/znp"
)

// Config holds broker connection settings for the bridge.
type Config struct {
	BrokerURL   string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// Bridge is a stateless subscriber: every event it sees is marshaled
// and published immediately, never retained or diffed against a prior
// value.
type Bridge struct {
	client pahomqtt.Client
	prefix string
	log    zerolog.Logger
	unsubs []func()
}

// NewBridge connects to the broker. The connection is established
// synchronously so callers know at construction time whether the
// broker is reachable.
func NewBridge(cfg Config, log zerolog.Logger) (*Bridge, error) {
	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(cfg.TopicPrefix+"/bridge/state", "offline", 1, true).
		SetOnConnectHandler(func(_ pahomqtt.Client) {
			log.Info().Msg("mqttbridge: connected")
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			log.Warn().Err(err).Msg("mqttbridge: connection lost")
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqttbridge: connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqttbridge: connect: %w", err)
	}

	return &Bridge{client: client, prefix: cfg.TopicPrefix, log: log}, nil
}

// Start subscribes to every event kind the mediator's event router
// exposes and begins publishing.
func (b *Bridge) Start(mediator *znp.Mediator) {
	b.publishBridgeState("online")

	b.unsubs = append(b.unsubs,
		mediator.OnReset(func(v znp.ResetInfo) { b.publishEvent("sys_reset", v) }),
		mediator.OnStateChange(func(v znp.DeviceState) { b.publishEvent("zdo_state_change", v.String()) }),
		mediator.OnEndDeviceAnnounce(func(v znp.EndDeviceAnnounce) { b.publishEvent("zdo_end_device_announce", v) }),
		mediator.OnTrustCenterDevice(func(v znp.TrustCenterDevice) { b.publishEvent("zdo_trust_center_device", v) }),
		mediator.OnPermitJoin(func(v uint8) { b.publishEvent("zdo_permit_join", v) }),
		mediator.OnIncomingMsg(func(v znp.IncomingMsg) { b.publishEvent("af_incoming_msg", v) }),
		mediator.OnBDBCommissioningNotification(func(v znp.BDBCommissioningNotification) {
			b.publishEvent("app_cnf_bdb_commissioning_notification", v)
		}),
	)
}

// Stop unsubscribes, publishes an offline will-replacement, and
// disconnects.
func (b *Bridge) Stop() {
	for _, unsub := range b.unsubs {
		unsub()
	}
	b.publishBridgeState("offline")
	b.client.Disconnect(1000)
}

func (b *Bridge) publishEvent(kind string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		b.log.Error().Err(err).Str("kind", kind).Msg("mqttbridge: marshal event")
		return
	}
	b.publish(b.prefix+"/"+kind, payload)
}

func (b *Bridge) publishBridgeState(state string) {
	b.publish(b.prefix+"/bridge/state", []byte(state))
}

func (b *Bridge) publish(topic string, payload []byte) {
	token := b.client.Publish(topic, 1, false, payload)
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			b.log.Warn().Str("topic", topic).Msg("mqttbridge: publish timeout")
		} else if err := token.Error(); err != nil {
			b.log.Warn().Err(err).Str("topic", topic).Msg("mqttbridge: publish error")
		}
	}()
}

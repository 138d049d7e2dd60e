// internal/messaging/client.go
package messaging

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"waypoint-sequencer/internal/config"
	"waypoint-sequencer/internal/models"
	"waypoint-sequencer/internal/utils"
)

// Client MQTT 클라이언트 인터페이스
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) error
	Subscribe(topic string, qos byte, callback MessageHandler) error
	Disconnect(quiesce uint)
	IsConnected() bool
}

// MessageHandler 메시지 핸들러 타입
type MessageHandler func(client mqtt.Client, msg mqtt.Message)

type subscription struct {
	qos      byte
	callback MessageHandler
}

// MQTTClient keeps a single broker session for the vehicle. Subscriptions
// are remembered and restored after every reconnect, since the session is
// clean and the broker forgets them.
type MQTTClient struct {
	client mqtt.Client

	mu            sync.Mutex
	subscriptions map[string]subscription
}

// NewMQTTClient 브로커에 연결된 클라이언트 생성.
// 같은 구독의 메시지는 paho 기본 설정(OrderMatters)에 따라 순서대로 하나씩 전달된다.
func NewMQTTClient(cfg *config.Config) (*MQTTClient, error) {
	c := &MQTTClient{subscriptions: make(map[string]subscription)}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTTBroker)
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetUsername(cfg.MQTTUsername)
	opts.SetPassword(cfg.MQTTPassword)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(10 * time.Second)
	opts.SetOrderMatters(true)

	opts.SetOnConnectHandler(func(mc mqtt.Client) {
		utils.Logger.Info("MQTT client connected")
		c.restoreSubscriptions(mc)
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		utils.Logger.Errorf("MQTT connection lost: %v", err)
	})

	c.client = mqtt.NewClient(opts)
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return c, nil
}

// Publish 메시지 발행
func (c *MQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) error {
	if !c.client.IsConnected() {
		return fmt.Errorf("MQTT client is not connected")
	}

	utils.Logger.WithField("topic", topic).Debug("📤 MQTT SENDING")

	token := c.client.Publish(topic, qos, retained, payload)
	if token.Wait() && token.Error() != nil {
		utils.Logger.Errorf("❌ MQTT SEND FAILED: %s - %v", topic, token.Error())
		return fmt.Errorf("failed to publish message: %w", token.Error())
	}
	return nil
}

// Subscribe 토픽 구독. 재연결 시 자동으로 다시 구독된다
func (c *MQTTClient) Subscribe(topic string, qos byte, callback MessageHandler) error {
	if !c.client.IsConnected() {
		return fmt.Errorf("MQTT client is not connected")
	}

	token := c.client.Subscribe(topic, qos, mqtt.MessageHandler(callback))
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
	}

	c.mu.Lock()
	c.subscriptions[topic] = subscription{qos: qos, callback: callback}
	c.mu.Unlock()

	utils.Logger.Infof("✅ Subscribed to topic: %s", topic)
	return nil
}

func (c *MQTTClient) restoreSubscriptions(mc mqtt.Client) {
	c.mu.Lock()
	subs := make(map[string]subscription, len(c.subscriptions))
	for topic, sub := range c.subscriptions {
		subs[topic] = sub
	}
	c.mu.Unlock()

	for topic, sub := range subs {
		token := mc.Subscribe(topic, sub.qos, mqtt.MessageHandler(sub.callback))
		if token.Wait() && token.Error() != nil {
			utils.Logger.Errorf("❌ Failed to restore subscription %s: %v", topic, token.Error())
			continue
		}
		utils.Logger.Infof("🔄 Subscription restored: %s", topic)
	}
}

// Disconnect 연결 해제
func (c *MQTTClient) Disconnect(quiesce uint) {
	if c.client.IsConnected() {
		c.client.Disconnect(quiesce)
		utils.Logger.Info("MQTT client disconnected")
	}
}

// IsConnected 연결 상태 확인
func (c *MQTTClient) IsConnected() bool {
	return c.client.IsConnected()
}

// PublishJSON marshals v and publishes it with QoS 1, not retained.
func PublishJSON(c Client, topic string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message for %s: %w", topic, err)
	}
	return c.Publish(topic, 1, false, payload)
}

// StateHandler decodes VDA5050 state messages for fn. Payloads that are not
// valid JSON go to onError and are otherwise dropped.
func StateHandler(fn func(*models.RobotStateMessage), onError func(error)) MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		var state models.RobotStateMessage
		if err := json.Unmarshal(msg.Payload(), &state); err != nil {
			if onError != nil {
				onError(fmt.Errorf("invalid state message on %s: %w", msg.Topic(), err))
			}
			return
		}
		fn(&state)
	}
}

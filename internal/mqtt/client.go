package mqtt

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

// TopicRoot is the first segment of every state topic.
const TopicRoot = "saj"

// Client wraps the paho client with the topic layout used for one inverter.
type Client struct {
	client   mqtt.Client
	deviceID string
	timeout  time.Duration
	logger   *logrus.Logger
}

// NewClient connects to the broker. ws, wss, mqtt and mqtts URLs are
// accepted; credentials may be embedded in the URL. The broker marks the
// inverter offline if this process disappears without saying goodbye.
func NewClient(mqttURL, deviceID string, timeout time.Duration, logger *logrus.Logger) (*Client, error) {
	opts, parsedURL, err := clientOptions(mqttURL, deviceID)
	if err != nil {
		return nil, err
	}

	c := &Client{
		deviceID: deviceID,
		timeout:  timeout,
		logger:   logger,
	}

	opts.SetWill(c.AvailabilityTopic(), "offline", 1, true)

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.WithError(err).Warn("MQTT connection lost")
	})
	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		logger.Debug("MQTT reconnecting...")
	})
	firstConnect := true
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		if firstConnect {
			logger.Debug("MQTT connected")
			firstConnect = false
		} else {
			logger.Info("MQTT reconnected")
		}
	})

	c.client = mqtt.NewClient(opts)
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	logger.WithFields(logrus.Fields{
		"broker":    cleanURL(mqttURL),
		"protocol":  parsedURL.Scheme,
		"client_id": opts.ClientID,
	}).Info("MQTT client connected")

	return c, nil
}

func clientOptions(mqttURL, deviceID string) (*mqtt.ClientOptions, *url.URL, error) {
	parsedURL, err := url.Parse(mqttURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid MQTT URL: %w", err)
	}

	opts := mqtt.NewClientOptions()

	var brokerURL string
	switch parsedURL.Scheme {
	case "ws":
		brokerURL = mqttURL
	case "wss":
		brokerURL = mqttURL
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	case "mqtt":
		brokerURL = strings.Replace(mqttURL, "mqtt://", "tcp://", 1)
	case "mqtts":
		brokerURL = strings.Replace(mqttURL, "mqtts://", "ssl://", 1)
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	default:
		return nil, nil, fmt.Errorf("unsupported protocol scheme: %s (supported: ws, wss, mqtt, mqtts)", parsedURL.Scheme)
	}

	opts.AddBroker(brokerURL)
	opts.SetClientID("saj-hass-" + CleanTopicPart(deviceID))
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(5 * time.Second)
	opts.SetConnectTimeout(5 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	if parsedURL.User != nil {
		opts.SetUsername(parsedURL.User.Username())
		password, _ := parsedURL.User.Password()
		opts.SetPassword(password)
	}
	return opts, parsedURL, nil
}

// Publish publishes a message with QoS 1, bounded by the client timeout.
func (c *Client) Publish(topic string, payload []byte, retained bool) error {
	token := c.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(c.timeout) {
		return fmt.Errorf("publish to topic %s timed out after %s", topic, c.timeout)
	}
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}

	c.logger.WithFields(logrus.Fields{
		"topic":    topic,
		"size":     len(payload),
		"retained": retained,
	}).Debug("Published MQTT message")
	return nil
}

// IsConnected returns true if the client is connected
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Disconnect marks the inverter offline and disconnects.
func (c *Client) Disconnect(quiesce uint) {
	if err := c.PublishAvailability(false); err != nil {
		c.logger.WithError(err).Debug("Failed to publish offline availability on shutdown")
	}
	c.client.Disconnect(quiesce)
	c.logger.Debug("MQTT client disconnected")
}

// DeviceID returns the sanitized device ID used in topics.
func (c *Client) DeviceID() string {
	return CleanTopicPart(c.deviceID)
}

// BaseTopic returns the base topic for this inverter.
func (c *Client) BaseTopic() string {
	return BuildCleanTopic(TopicRoot, c.deviceID)
}

// StateTopic returns the JSON state topic.
func (c *Client) StateTopic() string {
	return c.BaseTopic() + "/state"
}

// AvailabilityTopic returns the availability topic.
func (c *Client) AvailabilityTopic() string {
	return c.BaseTopic() + "/availability"
}

// DiscoveryTopic returns the Home Assistant discovery topic for one entity.
func (c *Client) DiscoveryTopic(prefix, entityType, entityID string) string {
	return fmt.Sprintf("%s/%s/saj_%s/%s/config", prefix, entityType, c.DeviceID(), CleanTopicPart(entityID))
}

// PublishAvailability publishes device availability status
func (c *Client) PublishAvailability(online bool) error {
	status := "offline"
	if online {
		status = "online"
	}
	return c.Publish(c.AvailabilityTopic(), []byte(status), true)
}

// cleanURL removes credentials from URL for logging
func cleanURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return parsed.Redacted()
}

// CleanTopicPart makes one topic segment safe: no spaces, wildcards or
// separators, lower case.
func CleanTopicPart(part string) string {
	clean := strings.ReplaceAll(part, " ", "_")
	clean = strings.ReplaceAll(clean, "+", "plus")
	clean = strings.ReplaceAll(clean, "#", "hash")
	clean = strings.ReplaceAll(clean, "/", "_")
	clean = strings.ReplaceAll(clean, "-", "_")
	return strings.ToLower(clean)
}

// BuildCleanTopic ensures topic follows MQTT standards
func BuildCleanTopic(parts ...string) string {
	cleanParts := make([]string, 0, len(parts))
	for _, part := range parts {
		cleanParts = append(cleanParts, CleanTopicPart(part))
	}
	return strings.Join(cleanParts, "/")
}

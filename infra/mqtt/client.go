package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	coremqtt "github.com/kilianp07/eld/core/mqtt"
	"github.com/kilianp07/eld/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Enabled     bool        `json:"enabled"`
	Broker      string      `json:"broker"`
	ClientID    string      `json:"client_id"`
	Username    string      `json:"username"`
	Password    string      `json:"password"`
	TopicPrefix string      `json:"topic_prefix"`
	QoS         byte        `json:"qos"`
	Retain      bool        `json:"retain"`
	UseTLS      bool        `json:"use_tls"`
	ClientCert  string      `json:"client_cert"`
	ClientKey   string      `json:"client_key"`
	CABundle    string      `json:"ca_bundle"`
	LWTTopic    string      `json:"lwt_topic"`
	LWTPayload  string      `json:"lwt_payload"`
	MaxRetries  int         `json:"max_retries"`
	BackoffMS   int         `json:"backoff_ms"`
	TLSConfig   *tls.Config `json:"-"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.TopicPrefix == "" {
		c.TopicPrefix = "eld/generators"
	}
	if c.ClientID == "" {
		c.ClientID = "eld-dispatch"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Validate checks mandatory fields when publishing is enabled.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return fmt.Errorf("mqtt broker is required")
	}
	if c.QoS > 2 {
		return fmt.Errorf("mqtt qos must be 0, 1 or 2")
	}
	return nil
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// PahoClient publishes generator setpoints using Eclipse Paho.
type PahoClient struct {
	cli        pahoClient
	prefix     string
	qos        byte
	retain     bool
	maxRetries int
	backoff    time.Duration
	logger     logger.Logger
}

var _ coremqtt.Publisher = (*PahoClient)(nil)

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// SetpointMessage is the payload published for each generator.
type SetpointMessage struct {
	MessageID  string  `json:"message_id"`
	RunID      string  `json:"run_id"`
	Generator  string  `json:"generator"`
	Timestamp  int64   `json:"timestamp"`
	SetpointMW float64 `json:"setpoint_mw"`
}

// NewPahoClient connects to the MQTT broker.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_client")
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &PahoClient{
		cli:        c,
		prefix:     strings.TrimSuffix(cfg.TopicPrefix, "/"),
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		logger:     log,
	}, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.QoS, true)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// Topic returns the setpoint topic of a generator.
func (p *PahoClient) Topic(generator string) string {
	return fmt.Sprintf("%s/%s/setpoint", p.prefix, generator)
}

// PublishSetpoints sends one message per generator, in generator id order.
// It stops at the first message that could not be delivered.
func (p *PahoClient) PublishSetpoints(runID string, ts time.Time, setpointsMW map[string]float64) error {
	ids := make([]string, 0, len(setpointsMW))
	for id := range setpointsMW {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		msg := SetpointMessage{
			MessageID:  uuid.NewString(),
			RunID:      runID,
			Generator:  id,
			Timestamp:  ts.UnixMilli(),
			SetpointMW: setpointsMW[id],
		}
		payload, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		if err := p.publish(p.Topic(id), payload); err != nil {
			return fmt.Errorf("publish %s: %w", id, err)
		}
	}
	return nil
}

func (p *PahoClient) publish(topic string, payload []byte) error {
	var err error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, p.qos, p.retain, payload)
		token.Wait()
		if err = token.Error(); err == nil {
			p.logger.Debugf("published %s", topic)
			return nil
		}
		p.logger.Warnf("publish attempt %d on %s failed: %v", attempt+1, topic, err)
		time.Sleep(p.backoff * time.Duration(1<<attempt))
	}
	return err
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}

// Package util holds the broker and metrics helpers used by the integration
// tests of the dispatch service.
package util

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/eld/infra/mqtt"
)

const (
	MosquittoReadyTimeout = 5 * time.Second
	MetricTimeout         = 5 * time.Second

	pollInterval = 50 * time.Millisecond
)

const mosquittoConf = `listener 1883
allow_anonymous true
persistence false
log_dest stdout
`

// Broker is a disposable Mosquitto instance.
type Broker struct {
	URL string
}

// PublisherConfig returns a setpoint publisher configuration pointing at the
// broker with QoS 1 and the given topic prefix.
func (b Broker) PublisherConfig(topicPrefix string) mqtt.Config {
	cfg := mqtt.Config{
		Enabled:     true,
		Broker:      b.URL,
		TopicPrefix: topicPrefix,
		QoS:         1,
	}
	cfg.SetDefaults()
	return cfg
}

// StartMosquitto runs a broker container for the duration of the test. The
// test is skipped when docker is not available.
func StartMosquitto(t testing.TB) Broker {
	t.Helper()
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "mosquitto.conf")
	if err := os.WriteFile(path, []byte(mosquittoConf), 0o644); err != nil {
		t.Fatalf("write mosquitto config: %v", err)
	}
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{{
			HostFilePath:      path,
			ContainerFilePath: "/mosquitto/config/mosquitto.conf",
			FileMode:          0o644,
		}},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("start mosquitto: %v", err)
	}
	t.Cleanup(func() { _ = cont.Terminate(context.Background()) })

	host, err := cont.Host(ctx)
	if err != nil {
		t.Fatalf("mosquitto host: %v", err)
	}
	port, err := cont.MappedPort(ctx, "1883")
	if err != nil {
		t.Fatalf("mosquitto port: %v", err)
	}
	b := Broker{URL: fmt.Sprintf("tcp://%s:%s", host, port.Port())}

	waitCtx, cancel := context.WithTimeout(ctx, MosquittoReadyTimeout)
	defer cancel()
	if err := waitForMQTTReady(waitCtx, b.URL); err != nil {
		t.Fatalf("mosquitto not ready: %v", err)
	}
	return b
}

func waitForMQTTReady(ctx context.Context, broker string) error {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("eld-ready-check")
	for {
		cli := paho.NewClient(opts)
		token := cli.Connect()
		token.Wait()
		if token.Error() == nil {
			cli.Disconnect(100)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// SubscribeSetpoints collects every setpoint published under topicPrefix.
// The subscription is removed when the test ends.
func SubscribeSetpoints(t testing.TB, b Broker, topicPrefix string) <-chan mqtt.SetpointMessage {
	t.Helper()
	msgs := make(chan mqtt.SetpointMessage, 64)
	cli := paho.NewClient(paho.NewClientOptions().AddBroker(b.URL).SetClientID("eld-observer"))
	if tok := cli.Connect(); tok.Wait() && tok.Error() != nil {
		t.Fatalf("connect observer: %v", tok.Error())
	}
	t.Cleanup(func() { cli.Disconnect(100) })

	tok := cli.Subscribe(topicPrefix+"/+/setpoint", 1, func(_ paho.Client, m paho.Message) {
		var sp mqtt.SetpointMessage
		if err := json.Unmarshal(m.Payload(), &sp); err != nil {
			return
		}
		select {
		case msgs <- sp:
		default:
		}
	})
	if tok.Wait() && tok.Error() != nil {
		t.Fatalf("subscribe setpoints: %v", tok.Error())
	}
	return msgs
}

// Series renders a metric name and label pairs the way the Prometheus text
// exposition prints them, e.g. Series("eld_dispatch_rows_total", "outcome",
// "ok"). Labels are sorted by name.
func Series(name string, labelPairs ...string) string {
	if len(labelPairs) < 2 {
		return name
	}
	pairs := make([]string, 0, len(labelPairs)/2)
	for i := 0; i+1 < len(labelPairs); i += 2 {
		pairs = append(pairs, fmt.Sprintf("%s=%q", labelPairs[i], labelPairs[i+1]))
	}
	sort.Strings(pairs)
	return name + "{" + strings.Join(pairs, ",") + "}"
}

// WaitForSeries polls metricsURL until every series is exposed or ctx is
// done.
func WaitForSeries(ctx context.Context, metricsURL string, series ...string) error {
	for {
		body, err := scrape(ctx, metricsURL)
		if err == nil {
			missing := ""
			for _, s := range series {
				if !strings.Contains(body, s) {
					missing = s
					break
				}
			}
			if missing == "" {
				return nil
			}
			err = fmt.Errorf("series %s not exposed", missing)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ctx.Err(), err)
		case <-time.After(pollInterval):
		}
	}
}

func scrape(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read metrics body: %w", err)
	}
	return string(body), nil
}

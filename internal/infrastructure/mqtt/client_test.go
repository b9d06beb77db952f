package mqtt

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/hydrolink/hydrolink-core/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "hydrolink-test",
			TLS:      false,
		},
		Topic:          "telemetry/#",
		QoS:            1,
		ConnectTimeout: 5,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on zero client error = %v, want nil", err)
	}
}

func TestSubscribeValidation(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}
	handler := func(topic string, payload []byte) error { return nil }

	tests := []struct {
		name    string
		topic   string
		qos     byte
		handler MessageHandler
		wantErr error
	}{
		{"empty topic", "", 1, handler, ErrInvalidTopic},
		{"invalid qos", "telemetry/data", 3, handler, ErrInvalidQoS},
		{"nil handler", "telemetry/data", 1, nil, ErrSubscribeFailed},
		{"not connected", "telemetry/data", 1, handler, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Subscribe(tt.topic, tt.qos, tt.handler)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Subscribe() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPublishValidation(t *testing.T) {
	client := &Client{}

	if err := client.Publish("", []byte("x"), 1, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish() empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Publish("t", []byte("x"), 3, false); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Publish() qos=3 error = %v, want ErrInvalidQoS", err)
	}

	oversized := bytes.Repeat([]byte("a"), maxPayloadSize+1)
	if err := client.Publish("t", oversized, 1, false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish() oversized payload error = %v, want ErrPublishFailed", err)
	}
}

func TestUnsubscribeValidation(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}

	if err := client.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe() empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Unsubscribe("telemetry/data"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe() disconnected error = %v, want ErrNotConnected", err)
	}
}

func TestSubscriptionTracking(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}

	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", client.SubscriptionCount())
	}

	client.subMu.Lock()
	client.subscriptions["telemetry/#"] = subscription{topic: "telemetry/#", qos: 1}
	client.subMu.Unlock()

	if !client.HasSubscription("telemetry/#") {
		t.Error("HasSubscription() = false, want true")
	}
	if client.HasSubscription("other/#") {
		t.Error("HasSubscription() = true for untracked topic")
	}
	if client.SubscriptionCount() != 1 {
		t.Errorf("SubscriptionCount() = %d, want 1", client.SubscriptionCount())
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 {
		t.Fatalf("Servers length = %d, want 1", len(opts.Servers))
	}
	if got := opts.Servers[0].String(); got != "tcp://127.0.0.1:1883" {
		t.Errorf("broker URL = %q, want tcp://127.0.0.1:1883", got)
	}
	if opts.ClientID != "hydrolink-test" {
		t.Errorf("ClientID = %q, want hydrolink-test", opts.ClientID)
	}

	cfg.Broker.TLS = true
	opts = buildClientOptions(cfg)
	if got := opts.Servers[0].Scheme; got != "ssl" {
		t.Errorf("scheme with TLS = %q, want ssl", got)
	}
	if opts.TLSConfig == nil {
		t.Error("TLSConfig = nil with TLS enabled")
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig())
	configureLWT(opts, "hydrolink-test")

	if opts.WillTopic != (Topics{}).SystemStatus() {
		t.Errorf("WillTopic = %q, want %q", opts.WillTopic, (Topics{}).SystemStatus())
	}
	if !opts.WillRetained {
		t.Error("WillRetained = false, want true")
	}
	if !bytes.Contains(opts.WillPayload, []byte(`"offline"`)) {
		t.Errorf("WillPayload = %s, want offline status", opts.WillPayload)
	}
}

func TestTopics(t *testing.T) {
	if got := (Topics{}).SystemStatus(); got != "hydrolink/system/status" {
		t.Errorf("SystemStatus() = %q, want hydrolink/system/status", got)
	}
}

func TestConnectTimeoutFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.ConnectTimeout = 1
	cfg.Broker.Host = "203.0.113.1" // TEST-NET, never routable

	start := time.Now()
	_, err := Connect(cfg)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("Connect() expected error for unreachable broker")
	}
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
	// Allow generous slack; the point is the configured 1s bound, not 30s.
	if elapsed > 10*time.Second {
		t.Errorf("Connect() took %v, configured timeout not honoured", elapsed)
	}
}

//go:build integration

package mqtt

import (
	"sync"
	"testing"
	"time"

	"github.com/ipm-pk/fingerprint/internal/infrastructure/config"
)

// Integration tests against a live broker, exercising the wire patterns
// the fingerprint service relies on: wildcard request subscriptions and
// retained state variables. Requires an MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func integrationConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
			TLS:      false,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// TestIntegration_SubscriptionTracking verifies the tracking used for
// reconnection restore: subscriptions survive in the table until
// unsubscribed.
func TestIntegration_SubscriptionTracking(t *testing.T) {
	client, err := Connect(integrationConfig("fingerprint-int-sub-track"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	topics := []string{
		Topics{}.AllServiceRequests(),
		Topics{}.AllEvents(),
		Topics{}.AllStateVariables(),
	}
	handler := func(topic string, payload []byte) error { return nil }

	for _, topic := range topics {
		if err := client.Subscribe(topic, 1, handler); err != nil {
			t.Fatalf("Subscribe(%s) error = %v", topic, err)
		}
	}

	if client.SubscriptionCount() != len(topics) {
		t.Errorf("SubscriptionCount() = %d, want %d", client.SubscriptionCount(), len(topics))
	}
	for _, topic := range topics {
		if !client.HasSubscription(topic) {
			t.Errorf("HasSubscription(%s) = false, want true", topic)
		}
	}

	if err := client.Unsubscribe(topics[0]); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if client.SubscriptionCount() != len(topics)-1 {
		t.Errorf("SubscriptionCount() after unsubscribe = %d, want %d", client.SubscriptionCount(), len(topics)-1)
	}
	if client.HasSubscription(topics[0]) {
		t.Errorf("HasSubscription(%s) = true after unsubscribe", topics[0])
	}
}

// TestIntegration_RequestWildcard verifies a request published to one
// operation topic reaches a subscriber on the wildcard pattern with the
// full topic preserved, the way the protocol server receives calls.
func TestIntegration_RequestWildcard(t *testing.T) {
	pubClient, err := Connect(integrationConfig("fingerprint-int-req-pub"))
	if err != nil {
		t.Fatalf("Connect() publisher error = %v", err)
	}
	defer pubClient.Close()

	subClient, err := Connect(integrationConfig("fingerprint-int-req-sub"))
	if err != nil {
		t.Fatalf("Connect() subscriber error = %v", err)
	}
	defer subClient.Close()

	type delivery struct {
		topic   string
		payload string
	}
	received := make(chan delivery, 1)
	var once sync.Once

	err = subClient.Subscribe(Topics{}.AllServiceRequests(), 1, func(topic string, p []byte) error {
		once.Do(func() {
			received <- delivery{topic: topic, payload: string(p)}
		})
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	requestTopic := Topics{}.ServiceRequest("GetStatus")
	request := `{"request_id":"int-1"}`
	if err := pubClient.PublishString(requestTopic, request, 1, false); err != nil {
		t.Fatalf("PublishString() error = %v", err)
	}

	select {
	case got := <-received:
		if got.topic != requestTopic {
			t.Errorf("topic = %q, want %q", got.topic, requestTopic)
		}
		if got.payload != request {
			t.Errorf("payload = %q, want %q", got.payload, request)
		}
	case <-time.After(5 * time.Second):
		t.Error("Timeout waiting for request")
	}
}

// TestIntegration_RetainedStateVariable verifies a retained state
// variable reaches a subscriber that connects after the publish, which
// is how controllers read the device state without polling.
func TestIntegration_RetainedStateVariable(t *testing.T) {
	pubClient, err := Connect(integrationConfig("fingerprint-int-state-pub"))
	if err != nil {
		t.Fatalf("Connect() publisher error = %v", err)
	}
	defer pubClient.Close()

	topic := Topics{}.StateVariable("RunState")
	if err := pubClient.PublishRetained(topic, []byte("1")); err != nil {
		t.Fatalf("PublishRetained() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	// Late subscriber must still see the value.
	subClient, err := Connect(integrationConfig("fingerprint-int-state-sub"))
	if err != nil {
		t.Fatalf("Connect() subscriber error = %v", err)
	}
	defer subClient.Close()

	received := make(chan string, 1)
	var once sync.Once
	err = subClient.Subscribe(topic, 1, func(_ string, p []byte) error {
		once.Do(func() {
			received <- string(p)
		})
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	select {
	case got := <-received:
		if got != "1" {
			t.Errorf("retained payload = %q, want %q", got, "1")
		}
	case <-time.After(5 * time.Second):
		t.Error("Timeout waiting for retained state variable")
	}

	// Clear the retained value so reruns start clean.
	if err := pubClient.PublishRetained(topic, nil); err != nil {
		t.Fatalf("PublishRetained() clear error = %v", err)
	}
}

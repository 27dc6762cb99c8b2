// Package mqtt provides MQTT client connectivity for the fingerprint service.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// MQTT is the protocol boundary of the service: operation requests arrive
// on request topics, immediate replies and completion events go out on
// response and event topics, and device state variables are published
// retained so late subscribers see the current values.
//
//	Automation clients ↔ MQTT Broker ↔ fingerprintd
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all operation requests
//	err = client.Subscribe(mqtt.Topics{}.AllServiceRequests(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a retained state variable
//	client.Publish(mqtt.Topics{}.StateVariable("RunState"), []byte("1"), 1, true)
package mqtt

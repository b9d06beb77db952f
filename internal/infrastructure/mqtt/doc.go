// Package mqtt provides MQTT client connectivity for Hydrolink Core.
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
// Hydrolink subscribes to the telemetry topic tree published by field
// gateways. Sensor payloads arrive as JSON batches and are handed to the
// ingest layer for repair and normalization; this package only moves bytes.
//
//	Field gateways → MQTT Broker → Hydrolink Core
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all telemetry topics
//	err = client.Subscribe("telemetry/#", 1,
//	    func(topic string, payload []byte) error {
//	        return ingest.Handle(topic, payload)
//	    })
package mqtt

// Package notify is the hand-off point between the coordination core and the
// external notification delivery system. The core publishes promotion and
// degradation events; delivery, retries and templating happen elsewhere.
// In-memory, NATS and Kafka transports are provided.
package notify

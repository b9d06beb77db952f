package mqtt

// TopicPrefixSystem is the base for Hydrolink's own system topics.
// Telemetry topics are broker-defined and come from configuration; the only
// topics this service owns are its status announcements.
const TopicPrefixSystem = "hydrolink/system"

// Topics provides builders for Hydrolink MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
type Topics struct{}

// SystemStatus returns the topic for core online/offline status.
// Used for the Last Will and Testament and graceful shutdown announcements.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

package mqtt

// Default service names used as the system topic root.
const (
	ServicePowerd   = "powerd"
	ServicePowersim = "powersim"
)

// Topics provides builders for the service's own MQTT topics.
// Device power topics (stat/<id>/power, cmd/<id>/power) live in package power.
//
//	topics := mqtt.Topics{Service: "powerd"}
//	topics.SystemStatus() // "powerd/system/status"
type Topics struct {
	Service string
}

func (t Topics) root() string {
	if t.Service == "" {
		return ServicePowerd
	}
	return t.Service
}

// SystemStatus returns the retained online/offline presence topic.
//
// Example: powerd/system/status
func (t Topics) SystemStatus() string {
	return t.root() + "/system/status"
}

package domain

// Reading is one complete telemetry sample for a routing key.
type Reading struct {
	NodeID          string  `json:"node_id"`
	ZoneID          string  `json:"zone_id"`
	CurrentMA       float64 `json:"current_mA"`
	VoltageV        float64 `json:"voltage_V"`
	PowerMW         float64 `json:"power_mW"`
	Status          string  `json:"status,omitempty"`
	SourceTimestamp string  `json:"timestamp,omitempty"`
}

// Key returns the routing key the reading belongs to.
func (r Reading) Key() RoutingKey {
	return RoutingKey{NodeID: r.NodeID, ZoneID: r.ZoneID}
}

// RoutingKey identifies one logical telemetry stream.
type RoutingKey struct {
	NodeID string
	ZoneID string
}

func (k RoutingKey) String() string {
	return k.NodeID + "/" + k.ZoneID
}

// Field names one mutable measurement of a Reading. Scalar-topic
// deployments publish a single field per message.
type Field string

const (
	FieldCurrentMA Field = "current_mA"
	FieldVoltageV  Field = "voltage_V"
	FieldPowerMW   Field = "power_mW"
	FieldStatus    Field = "status"
)

// KnownField reports whether f names a field a scalar topic may carry.
func KnownField(f Field) bool {
	switch f {
	case FieldCurrentMA, FieldVoltageV, FieldPowerMW, FieldStatus:
		return true
	}
	return false
}

// Patch is a single-field update produced by a scalar-mode message.
// Exactly one of Value/Status is meaningful, selected by Field.
type Patch struct {
	Field  Field
	Value  float64
	Status string
}

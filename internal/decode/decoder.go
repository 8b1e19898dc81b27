// Package decode turns raw (topic, payload) pairs into typed updates.
//
// Routing is table-driven: the set of subscribed topics and the mapping
// from each topic to a decode mode live in configuration, so new zones and
// nodes are data changes, not code changes. Two wire shapes are supported:
//
//   - structured: the payload is a JSON object carrying a full reading for
//     the (node_id, zone_id) key named in its body; a successful decode
//     replaces the stored reading in full.
//   - scalar: the topic names a single metric and the payload is one
//     primitive value; a successful decode merges that one field into the
//     reading for the route's fixed key.
package decode

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/zoneflow/zonebridge/internal/domain"
)

// Mode selects the wire shape a route decodes.
type Mode string

const (
	ModeStructured Mode = "structured"
	ModeScalar     Mode = "scalar"
)

// Route maps one topic to its decode behavior. Scalar routes additionally
// name the target field and the fixed routing key the deployment assigns
// to that topic.
type Route struct {
	Topic  string       `yaml:"topic"`
	Mode   Mode         `yaml:"mode"`
	Field  domain.Field `yaml:"field,omitempty"`
	NodeID string       `yaml:"node_id,omitempty"`
	ZoneID string       `yaml:"zone_id,omitempty"`
}

func (r Route) validate() error {
	if r.Topic == "" {
		return errors.New("route topic is required")
	}
	switch r.Mode {
	case ModeStructured:
		return nil
	case ModeScalar:
		if !domain.KnownField(r.Field) {
			return fmt.Errorf("route %q: unknown scalar field %q", r.Topic, r.Field)
		}
		if r.NodeID == "" || r.ZoneID == "" {
			return fmt.Errorf("route %q: scalar routes require node_id and zone_id", r.Topic)
		}
		return nil
	default:
		return fmt.Errorf("route %q: unknown mode %q", r.Topic, r.Mode)
	}
}

// Update is the result of one successful decode. Exactly one of Reading
// and Patch is set: Reading for a full structured replacement, Patch for a
// scalar single-field merge.
type Update struct {
	Key     domain.RoutingKey
	Reading *domain.Reading
	Patch   *domain.Patch
}

// Decoder is a pure topic/payload decoder compiled from a routing table.
type Decoder struct {
	routes map[string]Route
}

// NewDecoder compiles the routing table. Duplicate topics are rejected so a
// topic cannot silently decode under two modes.
func NewDecoder(routes []Route) (*Decoder, error) {
	if len(routes) == 0 {
		return nil, errors.New("at least one route must be configured")
	}
	m := make(map[string]Route, len(routes))
	for _, r := range routes {
		if err := r.validate(); err != nil {
			return nil, err
		}
		if _, dup := m[r.Topic]; dup {
			return nil, fmt.Errorf("duplicate route for topic %q", r.Topic)
		}
		m[r.Topic] = r
	}
	return &Decoder{routes: m}, nil
}

// Topics returns the configured topics in sorted order, for subscription.
func (d *Decoder) Topics() []string {
	out := make([]string, 0, len(d.routes))
	for t := range d.routes {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Decode parses one inbound message. Errors are per-message: the caller
// drops the message and carries on.
func (d *Decoder) Decode(topic string, payload []byte) (Update, error) {
	route, ok := d.routes[topic]
	if !ok {
		return Update{}, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	switch route.Mode {
	case ModeScalar:
		return decodeScalar(route, payload)
	default:
		return decodeStructured(payload)
	}
}

// requiredFields is the structured-mode schema. Every field must be present
// for the message to be accepted.
var requiredFields = []string{"node_id", "zone_id", "timestamp", "current_mA", "voltage_V", "power_mW"}

func decodeStructured(payload []byte) (Update, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Update{}, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}

	var missing []string
	for _, f := range requiredFields {
		if _, ok := raw[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return Update{}, &MissingFieldsError{Fields: missing}
	}

	nodeID, err := stringField(raw, "node_id")
	if err != nil {
		return Update{}, err
	}
	zoneID, err := stringField(raw, "zone_id")
	if err != nil {
		return Update{}, err
	}

	reading := domain.Reading{NodeID: nodeID, ZoneID: zoneID}
	if reading.SourceTimestamp, err = timestampField(raw["timestamp"]); err != nil {
		return Update{}, err
	}
	if reading.CurrentMA, err = numberField(raw, "current_mA"); err != nil {
		return Update{}, err
	}
	if reading.VoltageV, err = numberField(raw, "voltage_V"); err != nil {
		return Update{}, err
	}
	if reading.PowerMW, err = numberField(raw, "power_mW"); err != nil {
		return Update{}, err
	}

	return Update{Key: reading.Key(), Reading: &reading}, nil
}

func decodeScalar(route Route, payload []byte) (Update, error) {
	if !utf8.Valid(payload) {
		return Update{}, fmt.Errorf("%w: payload is not valid UTF-8", ErrInvalidEncoding)
	}
	text := strings.TrimSpace(string(payload))
	if text == "" {
		return Update{}, fmt.Errorf("%w: empty payload", ErrInvalidEncoding)
	}

	key := domain.RoutingKey{NodeID: route.NodeID, ZoneID: route.ZoneID}
	patch := domain.Patch{Field: route.Field}

	if route.Field == domain.FieldStatus {
		patch.Status = text
		return Update{Key: key, Patch: &patch}, nil
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Update{}, fmt.Errorf("%w: %q on field %s", ErrInvalidNumber, text, route.Field)
	}
	patch.Value = v
	return Update{Key: key, Patch: &patch}, nil
}

func stringField(raw map[string]json.RawMessage, name string) (string, error) {
	var s string
	if err := json.Unmarshal(raw[name], &s); err != nil {
		return "", fmt.Errorf("%w: field %s is not a string", ErrInvalidEncoding, name)
	}
	if s == "" {
		// Present-but-empty identifiers cannot form a routing key.
		return "", &MissingFieldsError{Fields: []string{name}}
	}
	return s, nil
}

func numberField(raw map[string]json.RawMessage, name string) (float64, error) {
	var v float64
	if err := json.Unmarshal(raw[name], &v); err != nil {
		return 0, fmt.Errorf("%w: field %s", ErrInvalidNumber, name)
	}
	return v, nil
}

// timestampField accepts either a string or a numeric publisher timestamp;
// it is carried verbatim, never recomputed.
func timestampField(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("%w: field timestamp must be a string or number", ErrInvalidEncoding)
}

package msg

import (
	"encoding/json"
	"fmt"
)

// SensorKind tags a SensorEvent.
type SensorKind int

const (
	// SensorOther is any sensor the scene engine does not consume.
	SensorOther SensorKind = iota
	SensorAcceleration
	SensorGyroUncalibrated
)

func (k SensorKind) String() string {
	switch k {
	case SensorAcceleration:
		return "acceleration"
	case SensorGyroUncalibrated:
		return "gyroUncalibrated"
	default:
		return "other"
	}
}

// SensorEvent is a tagged inertial sample. V is the raw vector; it may be
// empty when the producer had nothing to report.
type SensorEvent struct {
	Kind SensorKind
	V    []float64
}

// Axis returns V[i] and whether it exists.
func (e SensorEvent) Axis(i int) (float64, bool) {
	if i < 0 || i >= len(e.V) {
		return 0, false
	}
	return e.V[i], true
}

// sensorWire is the JSON form: exactly one of the keyed vectors is set.
type sensorWire struct {
	Acceleration     *sensorVector `json:"acceleration,omitempty"`
	GyroUncalibrated *sensorVector `json:"gyroUncalibrated,omitempty"`
}

type sensorVector struct {
	V []float64 `json:"v"`
}

func (e SensorEvent) MarshalJSON() ([]byte, error) {
	var w sensorWire
	switch e.Kind {
	case SensorAcceleration:
		w.Acceleration = &sensorVector{V: e.V}
	case SensorGyroUncalibrated:
		w.GyroUncalibrated = &sensorVector{V: e.V}
	}
	return json.Marshal(w)
}

func (e *SensorEvent) UnmarshalJSON(b []byte) error {
	var w sensorWire
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("unmarshal sensor event: %w", err)
	}
	switch {
	case w.Acceleration != nil && w.GyroUncalibrated != nil:
		return fmt.Errorf("sensor event has more than one kind")
	case w.Acceleration != nil:
		*e = SensorEvent{Kind: SensorAcceleration, V: w.Acceleration.V}
	case w.GyroUncalibrated != nil:
		*e = SensorEvent{Kind: SensorGyroUncalibrated, V: w.GyroUncalibrated.V}
	default:
		*e = SensorEvent{Kind: SensorOther}
	}
	return nil
}

// SensorEvents is a batch of inertial samples.
type SensorEvents []SensorEvent

func (SensorEvents) Topic() Topic { return TopicSensorEvents }

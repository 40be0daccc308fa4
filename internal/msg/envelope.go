package msg

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownTopic is returned for a topic outside AllTopics.
var ErrUnknownTopic = errors.New("unknown topic")

// Envelope wraps a payload with its topic for JSON transport.
type Envelope struct {
	Topic Topic           `json:"topic"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Unmarshal decodes a JSON envelope into a concrete Message.
func Unmarshal(data []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return Decode(env.Topic, env.Data)
}

// Decode decodes the payload of topic t. Empty data yields the topic's
// default payload.
func Decode(t Topic, data json.RawMessage) (Message, error) {
	switch t {
	case TopicModelV2:
		return decodeAs[ModelV2](t, data)
	case TopicControlsState:
		return decodeAs[ControlsState](t, data)
	case TopicLiveCalibration:
		return decodeAs[LiveCalibration](t, data)
	case TopicDeviceState:
		return decodeAs[DeviceState](t, data)
	case TopicRoadCameraState:
		return decodeAs[RoadCameraState](t, data)
	case TopicPandaState:
		return decodeAs[PandaState](t, data)
	case TopicCarParams:
		return decodeAs[CarParams](t, data)
	case TopicDriverMonitoringState:
		return decodeAs[DriverMonitoringState](t, data)
	case TopicSensorEvents:
		return decodeAs[SensorEvents](t, data)
	case TopicCarState:
		return decodeAs[CarState](t, data)
	case TopicRadarState:
		return decodeAs[RadarState](t, data)
	case TopicLiveLocationKalman:
		return decodeAs[LiveLocationKalman](t, data)
	case TopicUbloxGnss:
		return decodeAs[UbloxGnss](t, data)
	case TopicGpsLocationExternal:
		return decodeAs[GpsLocationExternal](t, data)
	case TopicLongitudinalPlan:
		return decodeAs[LongitudinalPlan](t, data)
	case TopicLateralPlan:
		return decodeAs[LateralPlan](t, data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, t)
	}
}

func decodeAs[T Message](t Topic, data json.RawMessage) (Message, error) {
	var v T
	if len(data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", t, err)
	}
	return v, nil
}

// Marshal serializes m into a JSON envelope.
func Marshal(m Message) ([]byte, error) {
	if m == nil {
		return nil, errors.New("marshal nil message")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", m.Topic(), err)
	}
	return json.Marshal(Envelope{Topic: m.Topic(), Data: data})
}

// Package msg defines the topics the scene engine subscribes to, their typed
// payloads and the JSON envelope used to carry them across process
// boundaries.
package msg

// Topic names a stream published by another process.
type Topic string

const (
	TopicModelV2               Topic = "modelV2"
	TopicControlsState         Topic = "controlsState"
	TopicLiveCalibration       Topic = "liveCalibration"
	TopicDeviceState           Topic = "deviceState"
	TopicRoadCameraState       Topic = "roadCameraState"
	TopicPandaState            Topic = "pandaState"
	TopicCarParams             Topic = "carParams"
	TopicDriverMonitoringState Topic = "driverMonitoringState"
	TopicSensorEvents          Topic = "sensorEvents"
	TopicCarState              Topic = "carState"
	TopicRadarState            Topic = "radarState"
	TopicLiveLocationKalman    Topic = "liveLocationKalman"
	TopicUbloxGnss             Topic = "ubloxGnss"
	TopicGpsLocationExternal   Topic = "gpsLocationExternal"
	TopicLongitudinalPlan      Topic = "longitudinalPlan"
	TopicLateralPlan           Topic = "lateralPlan"
)

// AllTopics is the subscription set of the scene aggregator.
var AllTopics = []Topic{
	TopicModelV2,
	TopicControlsState,
	TopicLiveCalibration,
	TopicDeviceState,
	TopicRoadCameraState,
	TopicPandaState,
	TopicCarParams,
	TopicDriverMonitoringState,
	TopicSensorEvents,
	TopicCarState,
	TopicRadarState,
	TopicLiveLocationKalman,
	TopicUbloxGnss,
	TopicGpsLocationExternal,
	TopicLongitudinalPlan,
	TopicLateralPlan,
}

// Message is a decoded topic payload.
type Message interface {
	Topic() Topic
}

// Default returns the zero payload for t, or nil for an unknown topic.
func Default(t Topic) Message {
	switch t {
	case TopicModelV2:
		return ModelV2{}
	case TopicControlsState:
		return ControlsState{}
	case TopicLiveCalibration:
		return LiveCalibration{}
	case TopicDeviceState:
		return DeviceState{}
	case TopicRoadCameraState:
		return RoadCameraState{}
	case TopicPandaState:
		return PandaState{}
	case TopicCarParams:
		return CarParams{}
	case TopicDriverMonitoringState:
		return DriverMonitoringState{}
	case TopicSensorEvents:
		return SensorEvents{}
	case TopicCarState:
		return CarState{}
	case TopicRadarState:
		return RadarState{}
	case TopicLiveLocationKalman:
		return LiveLocationKalman{}
	case TopicUbloxGnss:
		return UbloxGnss{}
	case TopicGpsLocationExternal:
		return GpsLocationExternal{}
	case TopicLongitudinalPlan:
		return LongitudinalPlan{}
	case TopicLateralPlan:
		return LateralPlan{}
	default:
		return nil
	}
}

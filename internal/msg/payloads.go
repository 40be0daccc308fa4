package msg

// TrajectorySize is the number of points in every model curve.
const TrajectorySize = 33

// XYZT is a model curve in calibrated vehicle space, sorted by increasing X.
type XYZT struct {
	X [TrajectorySize]float64 `json:"x"`
	Y [TrajectorySize]float64 `json:"y"`
	Z [TrajectorySize]float64 `json:"z"`
	T [TrajectorySize]float64 `json:"t"`
}

// Lead is one model lead hypothesis. X and Y hold the predicted positions;
// only the first entry is used for markers and horizons.
type Lead struct {
	Prob float64   `json:"prob"`
	X    []float64 `json:"x"`
	Y    []float64 `json:"y"`
}

// ModelV2 is the driving model output.
type ModelV2 struct {
	Position      XYZT       `json:"position"`
	LaneLines     [4]XYZT    `json:"laneLines"`
	LaneLineProbs [4]float64 `json:"laneLineProbs"`
	RoadEdges     [2]XYZT    `json:"roadEdges"`
	RoadEdgeStds  [2]float64 `json:"roadEdgeStds"`
	Leads         []Lead     `json:"leadsV3"`
}

func (ModelV2) Topic() Topic { return TopicModelV2 }

// AlertStatus is the severity of the active controls alert.
type AlertStatus string

const (
	AlertNormal     AlertStatus = "normal"
	AlertUserPrompt AlertStatus = "userPrompt"
	AlertCritical   AlertStatus = "critical"
)

type ControlsState struct {
	Enabled     bool        `json:"enabled"`
	Engageable  bool        `json:"engageable"`
	AlertStatus AlertStatus `json:"alertStatus"`
	VCruise     float64     `json:"vCruise"`
	// AngleError is the lateral PID angle error in degrees.
	AngleError float64 `json:"angleError"`
}

func (ControlsState) Topic() Topic { return TopicControlsState }

type LiveCalibration struct {
	// RpyCalib is roll, pitch, yaw in radians.
	RpyCalib []float64 `json:"rpyCalib"`
}

func (LiveCalibration) Topic() Topic { return TopicLiveCalibration }

type DeviceState struct {
	Started         bool      `json:"started"`
	CPUTempC        []float64 `json:"cpuTempC"`
	CPUUsagePercent []float64 `json:"cpuUsagePercent"`
}

func (DeviceState) Topic() Topic { return TopicDeviceState }

type RoadCameraState struct {
	Gain       float64 `json:"gain"`
	IntegLines int     `json:"integLines"`
}

func (RoadCameraState) Topic() Topic { return TopicRoadCameraState }

// PandaType identifies the vehicle interface board.
type PandaType string

const PandaUnknown PandaType = "unknown"

type PandaState struct {
	PandaType    PandaType `json:"pandaType"`
	IgnitionLine bool      `json:"ignitionLine"`
	IgnitionCan  bool      `json:"ignitionCan"`
}

func (PandaState) Topic() Topic { return TopicPandaState }

type CarParams struct {
	OpenpilotLongitudinalControl bool `json:"openpilotLongitudinalControl"`
}

func (CarParams) Topic() Topic { return TopicCarParams }

type DriverMonitoringState struct {
	IsActiveMode bool `json:"isActiveMode"`
}

func (DriverMonitoringState) Topic() Topic { return TopicDriverMonitoringState }

type CarState struct {
	VEgo                    float64 `json:"vEgo"`
	AEgo                    float64 `json:"aEgo"`
	SteeringAngleDeg        float64 `json:"steeringAngleDeg"`
	SteeringTorqueEps       float64 `json:"steeringTorqueEps"`
	SteeringPressed         bool    `json:"steeringPressed"`
	EngineRPM               float64 `json:"engineRPM"`
	FrictionBrakePercent    float64 `json:"frictionBrakePercent"`
	OnePedalModeActive      bool    `json:"onePedalModeActive"`
	CoastOnePedalModeActive bool    `json:"coastOnePedalModeActive"`
}

func (CarState) Topic() Topic { return TopicCarState }

type RadarLead struct {
	DRel   float64 `json:"dRel"`
	VRel   float64 `json:"vRel"`
	VLead  float64 `json:"vLead"`
	Status bool    `json:"status"`
}

type RadarState struct {
	LeadOne RadarLead `json:"leadOne"`
}

func (RadarState) Topic() Topic { return TopicRadarState }

type LiveLocationKalman struct {
	GpsOK bool `json:"gpsOK"`
}

func (LiveLocationKalman) Topic() Topic { return TopicLiveLocationKalman }

type MeasurementReport struct {
	NumMeas int `json:"numMeas"`
}

// UbloxGnss carries one of several receiver reports; only the measurement
// report is consumed.
type UbloxGnss struct {
	MeasurementReport *MeasurementReport `json:"measurementReport,omitempty"`
}

func (UbloxGnss) Topic() Topic { return TopicUbloxGnss }

type GpsLocationExternal struct {
	Accuracy float64 `json:"accuracy"`
	Altitude float64 `json:"altitude"`
}

func (GpsLocationExternal) Topic() Topic { return TopicGpsLocationExternal }

type LongitudinalPlan struct {
	DesiredFollowDistance float64 `json:"desiredFollowDistance"`
	LeadDistCost          float64 `json:"leadDistCost"`
	LeadAccelCost         float64 `json:"leadAccelCost"`
	StoppingDistance      float64 `json:"stoppingDistance"`
}

func (LongitudinalPlan) Topic() Topic { return TopicLongitudinalPlan }

type LateralPlan struct {
	LaneWidth    float64 `json:"laneWidth"`
	DProb        float64 `json:"dProb"`
	LProb        float64 `json:"lProb"`
	RProb        float64 `json:"rProb"`
	LanelessMode bool    `json:"lanelessMode"`
}

func (LateralPlan) Topic() Topic { return TopicLateralPlan }

package msg

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestUnmarshal_CarState(t *testing.T) {
	line := []byte(`{"topic":"carState","data":{"vEgo":12.5,"aEgo":-0.4,"frictionBrakePercent":30,"onePedalModeActive":true}}`)

	m, err := Unmarshal(line)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	got, ok := m.(CarState)
	if !ok {
		t.Fatalf("got %T, want CarState", m)
	}
	want := CarState{VEgo: 12.5, AEgo: -0.4, FrictionBrakePercent: 30, OnePedalModeActive: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CarState mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarshal_UnknownTopic(t *testing.T) {
	_, err := Unmarshal([]byte(`{"topic":"navInstruction","data":{}}`))
	if !errors.Is(err, ErrUnknownTopic) {
		t.Fatalf("err = %v, want ErrUnknownTopic", err)
	}
}

func TestUnmarshal_Malformed(t *testing.T) {
	for _, line := range []string{
		`not json`,
		`{"topic":"carState","data":{"vEgo":"fast"}}`,
		`{"topic":"sensorEvents","data":[{"acceleration":{"v":[1]},"gyroUncalibrated":{"v":[2]}}]}`,
	} {
		if _, err := Unmarshal([]byte(line)); err == nil {
			t.Errorf("Unmarshal(%s) succeeded, want error", line)
		}
	}
}

func TestUnmarshal_EmptyDataIsDefault(t *testing.T) {
	m, err := Unmarshal([]byte(`{"topic":"pandaState"}`))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(Default(TopicPandaState), m); diff != "" {
		t.Errorf("default mismatch (-want +got):\n%s", diff)
	}
}

func TestSensorEvents_TaggedDecode(t *testing.T) {
	line := []byte(`{"topic":"sensorEvents","data":[
		{"acceleration":{"v":[0.1,0.2,9.8]}},
		{"gyroUncalibrated":{"v":[]}},
		{"magneticUncalibrated":{"v":[1,2,3]}}
	]}`)
	m, err := Unmarshal(line)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	got := m.(SensorEvents)
	want := SensorEvents{
		{Kind: SensorAcceleration, V: []float64{0.1, 0.2, 9.8}},
		{Kind: SensorGyroUncalibrated, V: []float64{}},
		{Kind: SensorOther},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sensor events mismatch (-want +got):\n%s", diff)
	}

	if _, ok := got[1].Axis(1); ok {
		t.Errorf("empty gyro vector reported an axis")
	}
	if v, ok := got[0].Axis(2); !ok || v != 9.8 {
		t.Errorf("Axis(2) = %v, %v; want 9.8, true", v, ok)
	}
}

func TestMarshal_Envelope(t *testing.T) {
	in := SensorEvents{{Kind: SensorGyroUncalibrated, V: []float64{0, 0.5, 0}}}
	b, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(Message(in), out); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDefault_CoversAllTopics(t *testing.T) {
	for _, tp := range AllTopics {
		d := Default(tp)
		if d == nil {
			t.Fatalf("no default for %s", tp)
		}
		if d.Topic() != tp {
			t.Errorf("Default(%s).Topic() = %s", tp, d.Topic())
		}
	}
	if Default("bogus") != nil {
		t.Errorf("Default for unknown topic should be nil")
	}
}

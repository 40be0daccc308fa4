package scene

import "github.com/nikoskalogridis/scenestate/internal/hardware"

// LightEstimate converts road camera exposure into an ambient light level
// in [0, 1]: 1 is bright, 0 is the longest exposure the sensor allows.
func LightEstimate(hw hardware.Type, gain float64, integLines int) float64 {
	maxLines, maxGain := 1904.0, 10.0
	if hw == hardware.EON {
		maxLines, maxGain = 5408, 1
	}
	maxEV := maxLines * maxGain
	if hw == hardware.TICI {
		maxEV /= 6
	}
	ev := gain * float64(integLines)
	l := 1 - ev/maxEV
	switch {
	case l < 0:
		return 0
	case l > 1:
		return 1
	}
	return l
}

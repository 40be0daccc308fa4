package hardware

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultBacklightDir is the panel backlight on comma three class devices.
const DefaultBacklightDir = "/sys/class/backlight/panel0-backlight"

// Framebuffer blanking levels written to bl_power.
const (
	blUnblank   = 0
	blPowerdown = 4
)

// Backlight drives a sysfs backlight class device.
type Backlight struct {
	dir           string
	maxBrightness int
}

// NewBacklight opens the backlight under dir, reading max_brightness.
func NewBacklight(dir string) (*Backlight, error) {
	b, err := os.ReadFile(filepath.Join(dir, "max_brightness"))
	if err != nil {
		return nil, fmt.Errorf("backlight %s: %w", dir, err)
	}
	maxB, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || maxB <= 0 {
		return nil, fmt.Errorf("backlight %s: invalid max_brightness %q", dir, strings.TrimSpace(string(b)))
	}
	return &Backlight{dir: dir, maxBrightness: maxB}, nil
}

// SetBrightness writes percent, clamped to [0, 100], scaled to the device
// range.
func (b *Backlight) SetBrightness(percent int) error {
	percent = min(max(percent, 0), 100)
	return b.write("brightness", percent*b.maxBrightness/100)
}

// SetDisplayPower blanks or unblanks the panel.
func (b *Backlight) SetDisplayPower(on bool) error {
	if on {
		return b.write("bl_power", blUnblank)
	}
	return b.write("bl_power", blPowerdown)
}

func (b *Backlight) write(name string, v int) error {
	p := filepath.Join(b.dir, name)
	if err := os.WriteFile(p, []byte(strconv.Itoa(v)+"\n"), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}

// Nop accepts every request and does nothing. It stands in for the panel on
// a PC.
type Nop struct{}

func (Nop) SetBrightness(int) error    { return nil }
func (Nop) SetDisplayPower(bool) error { return nil }

package device

import "fmt"

// Command is a hardware side effect requested by Device.Update.
type Command interface {
	commandMarker()
	String() string
}

// CmdSetDisplayPower switches the panel on or off.
type CmdSetDisplayPower struct {
	On bool
}

func (CmdSetDisplayPower) commandMarker() {}
func (c CmdSetDisplayPower) String() string {
	return fmt.Sprintf("CmdSetDisplayPower(on=%v)", c.On)
}

// CmdSetBrightness sets the backlight level in percent.
type CmdSetBrightness struct {
	Percent int
}

func (CmdSetBrightness) commandMarker() {}
func (c CmdSetBrightness) String() string {
	return fmt.Sprintf("CmdSetBrightness(percent=%d)", c.Percent)
}

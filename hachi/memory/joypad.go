package memory

import "github.com/hachiemu/hachi/hachi/bit"

// Button is one of the 8 logical inputs, split by hardware into a
// direction group and an action group of four lines each.
type Button uint8

const (
	ButtonRight Button = iota
	ButtonLeft
	ButtonUp
	ButtonDown
	ButtonA
	ButtonB
	ButtonSelect
	ButtonStart
)

func (b Button) String() string {
	names := [...]string{"right", "left", "up", "down", "a", "b", "select", "start"}
	if int(b) < len(names) {
		return names[b]
	}
	return "unknown"
}

// Joypad implements the P1 register. Bits 4-5 select which button group
// the low four bits expose; lines read 0 when pressed. The input
// collaborator may update button state at any time relative to core
// steps; the next P1 read observes the latest state.
type Joypad struct {
	dpad    uint8 // low 4 bits, 1 = released
	actions uint8
	selects uint8 // writable bits 4-5 of P1

	// OnPress is called when any line transitions high-to-low.
	OnPress func()
}

func NewJoypad() *Joypad {
	return &Joypad{dpad: 0x0F, actions: 0x0F, selects: 0x30}
}

// Set updates the state of one button. A press requests the joypad
// interrupt only when the button's group is selected on P1; the
// interrupt line follows the selected lines' falling edge.
func (j *Joypad) Set(button Button, pressed bool) {
	group := &j.dpad
	line := uint8(button)
	selected := j.selects&0x10 == 0
	if button >= ButtonA {
		group = &j.actions
		line = uint8(button - ButtonA)
		selected = j.selects&0x20 == 0
	}

	was := *group
	if pressed {
		*group = bit.Clear(line, *group)
	} else {
		*group = bit.Set(line, *group)
	}

	if selected && was&^*group != 0 && j.OnPress != nil {
		j.OnPress()
	}
}

// AnyPressed reports whether any button is currently held. Used as the
// wake condition for the stop low-power state.
func (j *Joypad) AnyPressed() bool {
	return j.dpad&0x0F != 0x0F || j.actions&0x0F != 0x0F
}

// Read returns P1 with the selected group's lines in the low bits.
// Unused bits 6-7 always read as 1; with no group selected the low bits
// float high.
func (j *Joypad) Read() uint8 {
	result := 0xC0 | j.selects | 0x0F

	if j.selects&0x10 == 0 {
		result &= 0xF0 | j.dpad
	}
	if j.selects&0x20 == 0 {
		result &= 0xF0 | j.actions
	}
	return result
}

// Write stores the group-select bits; all other bits are read-only.
func (j *Joypad) Write(value uint8) {
	j.selects = value & 0x30
}

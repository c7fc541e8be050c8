package input

import "sort"

// Keyboard tracks keyboard focus, the set of pressed keys and the
// modifier state. Focus changes are policy-driven (click-to-focus lives
// in the compositor), never automatic from pointer movement.
type Keyboard struct {
	seat    *Seat
	focus   uint64
	pressed map[uint32]struct{}
	mods    Modifiers

	repeatRate  int32
	repeatDelay int32
}

// Focus returns the keyboard-focused surface id, ok=false when no live
// surface holds focus.
func (k *Keyboard) Focus() (uint64, bool) {
	if !k.seat.alive(k.focus) {
		return 0, false
	}
	return k.focus, true
}

// SetFocus moves keyboard focus to the given surface, emitting leave to
// the old holder and enter (with the currently pressed keys, then the
// modifier state) to the new one. id 0 clears focus. Dead targets force
// focus to none without any enter.
func (k *Keyboard) SetFocus(id uint64) {
	if id == k.focus {
		return
	}

	if k.seat.alive(k.focus) {
		k.seat.sink.KeyboardLeave(k.focus, k.seat.NextSerial())
	}

	if !k.seat.alive(id) {
		k.focus = 0
		return
	}

	k.focus = id
	k.seat.sink.KeyboardEnter(id, k.seat.NextSerial(), k.PressedKeys())
	k.seat.sink.KeyboardModifiers(id, k.seat.NextSerial(), k.mods)
}

// Key delivers a key event to the focused surface and tracks the pressed
// set delivered on future enters.
func (k *Keyboard) Key(time, key uint32, pressed bool) {
	if pressed {
		k.pressed[key] = struct{}{}
	} else {
		delete(k.pressed, key)
	}

	if k.seat.alive(k.focus) {
		k.seat.sink.KeyboardKey(k.focus, k.seat.NextSerial(), time, key, pressed)
	}
}

// SetModifiers updates the modifier state and notifies the focused
// surface when it changed.
func (k *Keyboard) SetModifiers(mods Modifiers) {
	if k.mods == mods {
		return
	}
	k.mods = mods
	if k.seat.alive(k.focus) {
		k.seat.sink.KeyboardModifiers(k.focus, k.seat.NextSerial(), mods)
	}
}

// Modifiers returns the current modifier state.
func (k *Keyboard) Modifiers() Modifiers { return k.mods }

// PressedKeys returns the currently held keys in ascending order.
func (k *Keyboard) PressedKeys() []uint32 {
	keys := make([]uint32, 0, len(k.pressed))
	for key := range k.pressed {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// SetRepeatInfo records the key repeat rate (presses per second) and
// delay (milliseconds before repeat starts) advertised to clients.
func (k *Keyboard) SetRepeatInfo(rate, delay int32) {
	k.repeatRate = rate
	k.repeatDelay = delay
}

// RepeatInfo returns the advertised key repeat settings.
func (k *Keyboard) RepeatInfo() (rate, delay int32) {
	return k.repeatRate, k.repeatDelay
}

package input

import "github.com/waywardwm/wayward/internal/geometry"

// Touch tracks one focus entry per active touch point. A slot's focus is
// pinned by the hit-test at touch-down and held for the whole contact:
// motion is always reported local to the originally touched surface, so a
// gesture can never slide focus onto a neighboring surface.
type Touch struct {
	seat  *Seat
	slots map[int32]uint64
}

// SlotFocus returns the surface pinned to an active slot.
func (t *Touch) SlotFocus(slot int32) (uint64, bool) {
	id, ok := t.slots[slot]
	if !ok || !t.seat.alive(id) {
		return 0, false
	}
	return id, true
}

// ActiveSlots returns the number of touch points currently down.
func (t *Touch) ActiveSlots() int { return len(t.slots) }

// Down establishes a slot: the surface under the point takes the contact
// and keeps it until up or cancel. A touch on empty space leaves the slot
// untracked.
func (t *Touch) Down(time uint32, slot int32, pos geometry.Point) {
	hit, ok := t.seat.stack.SurfaceAt(pos)
	if !ok {
		return
	}
	t.slots[slot] = hit.Surface.ID()
	t.seat.sink.TouchDown(hit.Surface.ID(), t.seat.NextSerial(), time, slot, hit.Local)
}

// Motion reports movement of an active contact, in coordinates local to
// the pinned surface regardless of what the point is currently over.
// Motion for a dead pinned surface is dropped and the slot cleared.
func (t *Touch) Motion(time uint32, slot int32, pos geometry.Point) {
	id, ok := t.slots[slot]
	if !ok {
		return
	}
	target, live := t.seat.registry.Get(id)
	if !live {
		delete(t.slots, slot)
		return
	}
	local := pos.Sub(target.Position())
	t.seat.sink.TouchMotion(id, time, slot, local)
}

// Up ends a contact and releases the slot.
func (t *Touch) Up(time uint32, slot int32) {
	id, ok := t.slots[slot]
	delete(t.slots, slot)
	if !ok || !t.seat.alive(id) {
		return
	}
	t.seat.sink.TouchUp(id, t.seat.NextSerial(), time, slot)
}

// Cancel aborts all active contacts, notifying each pinned surface.
func (t *Touch) Cancel() {
	for slot, id := range t.slots {
		if t.seat.alive(id) {
			t.seat.sink.TouchCancel(id, t.seat.NextSerial(), slot)
		}
		delete(t.slots, slot)
	}
}

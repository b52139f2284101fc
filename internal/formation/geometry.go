package formation

import (
	"math"

	"droneops-formation/internal/geo"
)

// PhaseStep is how far a vehicle's oscillation phase advances each time its
// slot target is computed (radians).
const PhaseStep = 0.1

// Oscillation is the bounded lateral perturbation for a phase:
// sin(phase)/2 * (max-min), always within ±(max-min)/2.
func Oscillation(phase, minOffset, maxOffset float64) float64 {
	return math.Sin(phase) / 2 * (maxOffset - minOffset)
}

// SlotTarget returns the formation position for a slot. Slot 0 sits to the
// right of the reference heading, slot 1 to the left, at
// slot*minOffset + extra + Oscillation(phase) meters. Higher slots are not
// managed and get own back unchanged. The projected point keeps the
// reference altitude.
func SlotTarget(ref geo.Reference, slot int, extra, phase, minOffset, maxOffset float64, own geo.Position) geo.Position {
	dist := float64(slot)*minOffset + extra + Oscillation(phase, minOffset, maxOffset)
	switch slot {
	case 0:
		return geo.Destination(ref.Position, ref.Heading+90, dist)
	case 1:
		return geo.Destination(ref.Position, ref.Heading-90, dist)
	}
	return own
}

package formation

import (
	"context"
	"fmt"
	"math"
	"strings"

	"droneops-formation/internal/geo"
	"droneops-formation/internal/logging"
	"droneops-formation/internal/reference"
	"droneops-formation/internal/vehicle"
)

// Advance runs one control cycle for the current mode. A returned error means
// the cycle was aborted; Mode is left as it was and commands already issued
// during the cycle stand.
func (g *Group) Advance(ctx context.Context) error {
	ref := reference.Snapshot(g.ref)
	for _, v := range g.vehicles {
		g.refresh(v)
	}

	switch g.mode {
	case Idle:
		return g.idle(ctx)
	case Takeoff:
		return g.takeoff(ctx)
	case Alongside:
		return g.keepFormation(ctx, ref, 0)
	case VerticalWeave:
		// Widens the lateral slot distance; altitude is untouched.
		return g.keepFormation(ctx, ref, g.cfg.MaxOffset/2)
	case DescendToAltitude:
		return g.descend(ctx, ref)
	case Land:
		return g.land(ctx, ref)
	}
	return fmt.Errorf("unknown mode %s", g.mode)
}

func (g *Group) idle(ctx context.Context) error {
	for _, v := range g.vehicles {
		if err := v.link.RequestTelemetryStream(ctx, g.cfg.TelemetryRateHz); err != nil {
			return g.commFailure(ctx, v, vehicle.CmdRequestTelemetry, err)
		}
		v.TakeoffIssued = false
	}
	return g.fire(ctx, EventStreamsRequested)
}

func (g *Group) takeoffAlt(v *Vehicle) float64 {
	return g.cfg.TakeoffAlt + takeoffStagger*float64(v.Slot)
}

func (g *Group) takeoff(ctx context.Context) error {
	log := logging.FromContext(ctx)
	for _, v := range g.vehicles {
		if !strings.EqualFold(v.Telemetry.Mode, g.cfg.GuidedMode) {
			if err := v.link.SetMode(ctx, g.cfg.GuidedMode); err != nil {
				return g.commFailure(ctx, v, vehicle.CmdSetMode, err)
			}
		}
		if !v.Telemetry.Armed {
			ok, err := v.link.Arm(ctx, true)
			if err != nil {
				return g.commFailure(ctx, v, vehicle.CmdArm, err)
			}
			if !ok {
				return g.abort(ctx, v, AlertArm, fmt.Errorf("%w: %s", ErrArmRejected, v.ID))
			}
		}

		target := g.takeoffAlt(v)
		below := v.Telemetry.Position.Alt < target-altTolerance
		if below && !v.TakeoffIssued {
			ok, err := v.link.Takeoff(ctx, target)
			if err != nil {
				return g.commFailure(ctx, v, vehicle.CmdTakeoff, err)
			}
			if ok {
				v.TakeoffIssued = true
			} else {
				log.Warn("takeoff not accepted", "vehicle_id", v.ID, "target_alt", target)
			}
		}
		if below {
			continue
		}

		v.Target = v.Telemetry.Position.WithAlt(target)
		v.TargetVelocity = geo.Zero
		if err := v.link.GotoPositionVelocity(ctx, v.Target, v.TargetVelocity); err != nil {
			return g.commFailure(ctx, v, vehicle.CmdGoto, err)
		}
	}

	for _, v := range g.vehicles {
		g.refresh(v)
		if v.Telemetry.Position.Alt >= g.takeoffAlt(v)-altTolerance {
			continue
		}
		if !v.Telemetry.Armed {
			return g.abort(ctx, v, AlertDisarm, fmt.Errorf("%w: %s during takeoff", ErrDisarmed, v.ID))
		}
		log.Debug("waiting for climb", "vehicle_id", v.ID, "alt", v.Telemetry.Position.Alt, "target_alt", g.takeoffAlt(v))
		return nil
	}
	return g.fire(ctx, EventAirborne)
}

// slotTarget computes the formation position for v and advances its phase.
func (g *Group) slotTarget(v *Vehicle, ref geo.Reference, extra float64) geo.Position {
	p := SlotTarget(ref, v.Slot, extra, v.Phase, g.cfg.MinOffset, g.cfg.MaxOffset, v.Telemetry.Position)
	v.Phase += PhaseStep
	return p
}

func (g *Group) keepFormation(ctx context.Context, ref geo.Reference, extra float64) error {
	for _, v := range g.vehicles {
		// Velocity is left as stored; the takeoff hold zeroes it.
		v.Target = g.slotTarget(v, ref, extra)
		if err := v.link.GotoPositionVelocity(ctx, v.Target, v.TargetVelocity); err != nil {
			return g.commFailure(ctx, v, vehicle.CmdGoto, err)
		}
	}
	return nil
}

func (g *Group) descend(ctx context.Context, ref geo.Reference) error {
	if g.cfg.DescendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.DescendTimeout)
		defer cancel()
	}

	for _, v := range g.vehicles {
		v.Target = g.slotTarget(v, ref, 0).WithAlt(g.cfg.TakeoffAlt + float64(v.Slot))
		v.TargetVelocity = geo.Zero
		for i := 0; i < 2; i++ {
			if i > 0 {
				if err := g.sleep(ctx, g.cfg.RetryDelay); err != nil {
					return g.abort(ctx, v, AlertDescendAbort, fmt.Errorf("descend %s: %w", v.ID, err))
				}
			}
			if err := v.link.GotoPositionVelocity(ctx, v.Target, v.TargetVelocity); err != nil {
				return g.commFailure(ctx, v, vehicle.CmdGoto, err)
			}
		}
	}

	for _, v := range g.vehicles {
		for {
			g.refresh(v)
			if !v.Telemetry.Armed || math.Abs(v.Telemetry.Position.Alt-v.Target.Alt) <= altTolerance {
				break
			}
			if err := g.sleep(ctx, g.cfg.RetryDelay); err != nil {
				return g.abort(ctx, v, AlertDescendAbort, fmt.Errorf("descend %s: %w", v.ID, err))
			}
			if err := v.link.GotoPositionVelocity(ctx, v.Target, v.TargetVelocity); err != nil {
				return g.commFailure(ctx, v, vehicle.CmdGoto, err)
			}
		}
	}
	return g.fire(ctx, EventSettled)
}

func (g *Group) land(ctx context.Context, ref geo.Reference) error {
	var active *Vehicle
	for _, v := range g.vehicles {
		if v.Telemetry.Armed {
			active = v
			break
		}
	}
	switch {
	case active == nil:
		if g.active != "" {
			logging.FromContext(ctx).Info("all vehicles down")
		}
		g.active = ""
	case active.ID != g.active:
		logging.FromContext(ctx).Info("landing vehicle", "vehicle_id", active.ID)
		g.active = active.ID
	}

	for _, v := range g.vehicles {
		if v != active {
			v.Target = g.slotTarget(v, ref, 0)
			if err := v.link.GotoPositionVelocity(ctx, v.Target, v.TargetVelocity); err != nil {
				return g.commFailure(ctx, v, vehicle.CmdGoto, err)
			}
			continue
		}

		if err := v.link.SetYaw(ctx, ref.Heading); err != nil {
			return g.commFailure(ctx, v, vehicle.CmdSetYaw, err)
		}
		alt := g.cfg.TakeoffAlt
		if geo.DistanceMeters(v.Telemetry.Position, ref.Position) < touchdownRadius {
			alt = 0
		}
		v.Target = ref.Position.WithAlt(alt)
		v.TargetVelocity = ref.Velocity
		if err := v.link.GotoPositionVelocity(ctx, v.Target, v.TargetVelocity); err != nil {
			return g.commFailure(ctx, v, vehicle.CmdGoto, err)
		}
	}
	return nil
}

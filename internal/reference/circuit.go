package reference

import (
	"context"
	"math"
	"time"

	"droneops-formation/internal/geo"
	"droneops-formation/internal/logging"
)

// Circuit is a deterministic stand-in for a navigation source: the reference
// travels clockwise around a circle at constant speed.
type Circuit struct {
	Center  geo.Position
	RadiusM float64
	Period  time.Duration
}

// At returns the reference state at the given instant.
func (c Circuit) At(now time.Time) geo.Reference {
	period := c.Period
	if period <= 0 {
		period = 120 * time.Second
	}
	radius := c.RadiusM
	if radius <= 0 {
		radius = 200
	}

	phase := float64(now.UnixNano()%period.Nanoseconds()) / float64(period.Nanoseconds())
	bearing := phase * 360
	pos := geo.Destination(c.Center, bearing, radius)

	// Clockwise travel: the track is tangent, 90° right of the radial.
	heading := geo.NormalizeHeading(bearing + 90)
	speed := 2 * math.Pi * radius / period.Seconds()
	return geo.Reference{Position: pos, Heading: heading, Velocity: geo.HeadingVector(heading, speed)}
}

// Pump sends Circuit states to feed every interval until ctx is done. The
// feed's Run loop applies them.
func (c Circuit) Pump(ctx context.Context, feed *Feed, interval time.Duration) error {
	log := logging.FromContext(ctx)
	log.Info("starting reference circuit", "radius_m", c.RadiusM, "period", c.Period)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	now := time.Now()
	for {
		select {
		case feed.Updates() <- c.At(now):
		case <-ctx.Done():
			log.Info("stopping reference circuit")
			return nil
		}
		select {
		case now = <-ticker.C:
		case <-ctx.Done():
			log.Info("stopping reference circuit")
			return nil
		}
	}
}

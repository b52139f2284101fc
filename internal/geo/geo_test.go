package geo

import (
	"math"
	"testing"
)

func TestDestinationDistanceAndBearing(t *testing.T) {
	origin := Position{Lat: 48.2082, Lon: 16.3738, Alt: 12}
	for _, brg := range []float64{0, 45, 90, 180, 270, 359} {
		p := Destination(origin, brg, 250)
		if d := DistanceMeters(origin, p); math.Abs(d-250) > 0.01 {
			t.Errorf("bearing %.0f: distance = %f, want 250", brg, d)
		}
		got := Bearing(origin, p)
		diff := math.Abs(got - brg)
		if diff > 180 {
			diff = 360 - diff
		}
		if diff > 1e-3 {
			t.Errorf("bearing %.0f: got %f", brg, got)
		}
		if p.Alt != origin.Alt {
			t.Errorf("altitude changed: %f", p.Alt)
		}
	}
}

func TestDestinationNegativeDistance(t *testing.T) {
	origin := Position{Lat: 10, Lon: 10}
	p := Destination(origin, 90, -100)
	if b := Bearing(origin, p); math.Abs(b-270) > 1e-3 {
		t.Fatalf("expected reciprocal bearing 270, got %f", b)
	}
}

func TestDestinationZeroDistance(t *testing.T) {
	origin := Position{Lat: 1, Lon: 2, Alt: 3}
	if p := Destination(origin, 123, 0); p != origin {
		t.Fatalf("expected unchanged position, got %+v", p)
	}
}

func TestNormalizeHeading(t *testing.T) {
	cases := map[float64]float64{-90: 270, 0: 0, 360: 0, 450: 90, 725: 5}
	for in, want := range cases {
		if got := NormalizeHeading(in); math.Abs(got-want) > 1e-9 {
			t.Errorf("NormalizeHeading(%f) = %f, want %f", in, got, want)
		}
	}
}

func TestHeadingVector(t *testing.T) {
	v := HeadingVector(90, 10)
	if math.Abs(v.X) > 1e-9 || math.Abs(v.Y-10) > 1e-9 {
		t.Fatalf("unexpected east vector %+v", v)
	}
}

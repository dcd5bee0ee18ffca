package geometry

import (
	"math"
	"testing"
)

func TestWeightKnownValues(t *testing.T) {
	cases := []struct {
		name     string
		lengthMM float64
		diameter float64
		density  float64
		want     float64
		tol      float64
	}{
		{
			// 1 m of 1.75 mm PLA at 1.24 g/cm3.
			name:     "pla_175_one_meter",
			lengthMM: 1000,
			diameter: 1.75,
			density:  1.24,
			want:     2.98257,
			tol:      0.001,
		},
		{
			name:     "pla_285_one_meter",
			lengthMM: 1000,
			diameter: 2.85,
			density:  1.24,
			want:     7.91042,
			tol:      0.001,
		},
		{
			name:     "zero_length",
			lengthMM: 0,
			diameter: 1.75,
			density:  1.24,
			want:     0,
			tol:      1e-12,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Weight(tc.lengthMM, tc.diameter, tc.density)
			if math.Abs(got-tc.want) > tc.tol {
				t.Fatalf("Weight(%v, %v, %v)=%v, want %v", tc.lengthMM, tc.diameter, tc.density, got, tc.want)
			}
		})
	}
}

func TestLengthKnownValues(t *testing.T) {
	// 750 g of 1.75 mm PLA at 1.24 g/cm3 is roughly 251.4 m.
	got := Length(750, 1.75, 1.24)
	if math.Abs(got-251461) > 100 {
		t.Fatalf("Length(750, 1.75, 1.24)=%v mm, want about 251461 mm", got)
	}
}

func TestRoundTrip(t *testing.T) {
	lengths := []float64{1, 10, 333.3, 1000, 250000}
	diameters := []float64{1.75, 2.85, 3.0}
	densities := []float64{0.9, 1.24, 1.45, 4.0}
	for _, l := range lengths {
		for _, d := range diameters {
			for _, rho := range densities {
				w := Weight(l, d, rho)
				back := Length(w, d, rho)
				if math.Abs(back-l) > 1e-9*l {
					t.Fatalf("round trip l=%v d=%v rho=%v: got %v", l, d, rho, back)
				}
			}
		}
	}
}

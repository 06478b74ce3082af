package mediatypes

import (
	"math"
	"testing"
)

func TestFit(t *testing.T) {
	tests := []struct {
		name     string
		src      Dimensions
		longEdge int
		want     Dimensions
	}{
		{
			name:     "Landscape over cap",
			src:      Dimensions{Width: 6000, Height: 4000},
			longEdge: 1920,
			want:     Dimensions{Width: 1920, Height: 1280},
		},
		{
			name:     "Portrait over cap",
			src:      Dimensions{Width: 1080, Height: 3840},
			longEdge: 1920,
			want:     Dimensions{Width: 540, Height: 1920},
		},
		{
			name:     "Already within cap is unchanged",
			src:      Dimensions{Width: 1280, Height: 720},
			longEdge: 1920,
			want:     Dimensions{Width: 1280, Height: 720},
		},
		{
			name:     "Exactly at cap is unchanged",
			src:      Dimensions{Width: 1920, Height: 1080},
			longEdge: 1920,
			want:     Dimensions{Width: 1920, Height: 1080},
		},
		{
			name:     "Square over cap",
			src:      Dimensions{Width: 5000, Height: 5000},
			longEdge: 2048,
			want:     Dimensions{Width: 2048, Height: 2048},
		},
		{
			name:     "Zero source passes through",
			src:      Dimensions{},
			longEdge: 1920,
			want:     Dimensions{},
		},
		{
			name:     "Zero cap passes through",
			src:      Dimensions{Width: 6000, Height: 4000},
			longEdge: 0,
			want:     Dimensions{Width: 6000, Height: 4000},
		},
		{
			name:     "Extreme aspect ratio never rounds to zero",
			src:      Dimensions{Width: 10000, Height: 2},
			longEdge: 100,
			want:     Dimensions{Width: 100, Height: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fit(tt.src, tt.longEdge)
			if got != tt.want {
				t.Errorf("Fit(%v, %d) = %v, want %v", tt.src, tt.longEdge, got, tt.want)
			}
		})
	}
}

func TestFitProperties(t *testing.T) {
	cases := []Dimensions{
		{Width: 6000, Height: 4000},
		{Width: 4000, Height: 6000},
		{Width: 1921, Height: 1080},
		{Width: 3000, Height: 3001},
		{Width: 7680, Height: 4320},
	}
	const cap = 1920

	for _, src := range cases {
		out := Fit(src, cap)

		long := out.Width
		if out.Height > long {
			long = out.Height
		}
		if long != cap {
			t.Errorf("Fit(%v, %d): long edge = %d, want %d", src, cap, long, cap)
		}

		if out.Width > src.Width || out.Height > src.Height {
			t.Errorf("Fit(%v, %d) = %v upscaled", src, cap, out)
		}

		srcRatio := float64(src.Width) / float64(src.Height)
		outRatio := float64(out.Width) / float64(out.Height)
		// Allow rounding error proportional to the output size.
		if math.Abs(srcRatio-outRatio) > srcRatio/float64(cap) {
			t.Errorf("Fit(%v, %d) = %v: aspect ratio %f deviates from %f",
				src, cap, out, outRatio, srcRatio)
		}
	}
}

func TestDimensionsString(t *testing.T) {
	d := Dimensions{Width: 1920, Height: 1080}
	if got := d.String(); got != "1920x1080" {
		t.Errorf("String() = %q, want %q", got, "1920x1080")
	}
}

func TestDimensionsPixels(t *testing.T) {
	d := Dimensions{Width: 5000, Height: 5000}
	if got := d.Pixels(); got != 25_000_000 {
		t.Errorf("Pixels() = %d, want 25000000", got)
	}
}

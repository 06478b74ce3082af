package mediatypes

import "fmt"

// Dimensions holds pixel dimensions of a media frame.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// String formats dimensions as "WxH".
func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// IsZero reports whether either dimension is unset.
func (d Dimensions) IsZero() bool {
	return d.Width <= 0 || d.Height <= 0
}

// Pixels returns the total pixel count.
func (d Dimensions) Pixels() int64 {
	return int64(d.Width) * int64(d.Height)
}

// Fit computes target dimensions preserving aspect ratio with the long
// edge capped at longEdge. It never upscales: if the source already fits,
// it is returned unchanged. Results are rounded to the nearest pixel.
func Fit(src Dimensions, longEdge int) Dimensions {
	if src.IsZero() || longEdge <= 0 {
		return src
	}

	long := src.Width
	if src.Height > long {
		long = src.Height
	}
	if long <= longEdge {
		return src
	}

	scale := float64(longEdge) / float64(long)
	out := Dimensions{
		Width:  int(float64(src.Width)*scale + 0.5),
		Height: int(float64(src.Height)*scale + 0.5),
	}
	if out.Width < 1 {
		out.Width = 1
	}
	if out.Height < 1 {
		out.Height = 1
	}
	return out
}

package vision

import "testing"

func TestGridToPixelMapping(t *testing.T) {
	cases := []struct {
		grid   int
		dim    int
		pixel  int
	}{
		{0, 1920, 0},
		{1000, 1920, 1919}, // clamped to the last addressable pixel
		{500, 1920, 960},
		{500, 1080, 540},
		{1000, 1080, 1079},
		{250, 1000, 250},
		{1, 100, 0}, // rounds down
		{5, 100, 1}, // rounds up from 0.5
	}
	for _, tc := range cases {
		if got := gridToPixel(tc.grid, tc.dim); got != tc.pixel {
			t.Errorf("gridToPixel(%d, %d) = %d, expected %d", tc.grid, tc.dim, got, tc.pixel)
		}
	}
}

func TestToPixelsBothAxes(t *testing.T) {
	p := GridPoint{X: 500, Y: 1000}
	x, y := p.ToPixels(1920, 1080)
	if x != 960 || y != 1079 {
		t.Errorf("ToPixels = (%d, %d), expected (960, 1079)", x, y)
	}
}

func TestClampGrid(t *testing.T) {
	p := GridPoint{X: -50, Y: 4096}.Clamp()
	if p.X != 0 || p.Y != GridMax {
		t.Errorf("Clamp = %+v, expected {0 %d}", p, GridMax)
	}
}

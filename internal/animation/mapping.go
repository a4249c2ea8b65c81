package animation

// Mapping computes a pixel index's coordinates in the user-defined
// space patterns evaluate in. The default is a 1-D line: x = i/N,
// y = z = 0.
type Mapping func(index, count int) (x, y, z float64)

// LineMapping is the default pixel-mapping function.
func LineMapping(index, count int) (x, y, z float64) {
	if count <= 0 {
		return 0, 0, 0
	}
	return float64(index) / float64(count), 0, 0
}

// GridMapping arranges pixels in a width x height serpentine grid,
// commonly used for matrix panels wired as a single strip.
func GridMapping(width, height int) Mapping {
	return func(index, count int) (x, y, z float64) {
		if width <= 0 || height <= 0 {
			return LineMapping(index, count)
		}
		row := index / width
		col := index % width
		if row%2 == 1 {
			col = width - 1 - col
		}
		fx := 0.0
		if width > 1 {
			fx = float64(col) / float64(width-1)
		}
		fy := 0.0
		if height > 1 {
			fy = float64(row) / float64(height-1)
		}
		return fx, fy, 0
	}
}

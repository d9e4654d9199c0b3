package detection

// Box is an axis-aligned bounding box in normalized [0,1] coordinates.
type Box struct {
	XMin, YMin float32
	XMax, YMax float32
}

// Width returns the box width.
func (b Box) Width() float32 {
	return b.XMax - b.XMin
}

// Height returns the box height.
func (b Box) Height() float32 {
	return b.YMax - b.YMin
}

// Area returns the box area. Coordinates are continuous, so no pixel
// correction term is applied; a degenerate box has area zero.
func (b Box) Area() float32 {
	return b.Width() * b.Height()
}

// Decoded is one surviving candidate after regression decoding: a box, its
// face-class score and 5 landmark points as a flat [x0,y0,...,x4,y4] buffer,
// all in normalized coordinates. Ephemeral within one detect call.
type Decoded struct {
	Box       Box
	Score     float32
	Landmarks [10]float32
}

// Point is an integer pixel position.
type Point struct {
	X, Y int
}

// PixelBox is a bounding box in pixel space.
type PixelBox struct {
	X, Y          int
	Width, Height int
}

// Detection is the public result of a detect call: the primary face in
// pixel coordinates plus whether more than one face survived suppression.
type Detection struct {
	Box           PixelBox
	Confidence    float32
	Landmarks     [5]Point
	MultipleFaces bool
}

package model

// Location is a point on the device screen in pixels.
type Location struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is a screen region. The zero Rect means the full screen.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// IsFull reports whether r selects the whole screen.
func (r Rect) IsFull() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether loc lies inside r. A full-screen Rect contains everything.
func (r Rect) Contains(loc Location) bool {
	if r.IsFull() {
		return true
	}
	return loc.X >= float64(r.X) && loc.X < float64(r.X+r.Width) &&
		loc.Y >= float64(r.Y) && loc.Y < float64(r.Y+r.Height)
}

// MatchResult is one template-match observation. Location is only
// meaningful when Found is true.
type MatchResult struct {
	Found      bool     `json:"found"`
	Location   Location `json:"location"`
	Confidence float64  `json:"confidence"`
}

package sim

// Motion is the per-node motion state: either [Free] or [Pinned].
type Motion interface {
	isMotion()
}

// Free nodes are moved by forces with the given velocity.
type Free struct {
	VX, VY float64
}

// Pinned nodes sit at (FX, FY). They exert forces but ignore them.
type Pinned struct {
	FX, FY float64
}

func (Free) isMotion()   {}
func (Pinned) isMotion() {}

// Point is a position in graph space.
type Point struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

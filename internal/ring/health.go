package ring

// Health is an advisory band derived from buffer utilization.
type Health int

const (
	// Healthy means the consumer is keeping up (utilization below 50%).
	Healthy Health = iota
	// Lagging means the consumer is falling behind (50% to 80%).
	Lagging
	// NearDrop means pushes are close to failing (above 80%).
	NearDrop
)

// Band thresholds.
const (
	LaggingThreshold  = 0.5
	NearDropThreshold = 0.8
)

// Band maps a utilization ratio to a health band.
func Band(util float64) Health {
	switch {
	case util > NearDropThreshold:
		return NearDrop
	case util >= LaggingThreshold:
		return Lagging
	default:
		return Healthy
	}
}

// String returns the band name.
func (h Health) String() string {
	switch h {
	case Healthy:
		return "healthy"
	case Lagging:
		return "lagging"
	case NearDrop:
		return "near_drop"
	default:
		return "unknown"
	}
}

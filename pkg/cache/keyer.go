package cache

// Keyer builds cache keys. Implementations must be deterministic.
type Keyer interface {
	// LayoutKey is the key for a placement computed from a DOT graph.
	LayoutKey(dotHash string) string
}

// DefaultKeyer is the standard key layout.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// LayoutKey hashes dotHash with the placement format version.
func (DefaultKeyer) LayoutKey(dotHash string) string {
	return hashKey("layout", placementVersion, dotHash)
}

// placementVersion changes whenever the cached placement encoding does.
const placementVersion = 1

package cache

// ScopedKeyer wraps a Keyer with a prefix so several deployments can share a
// Redis instance.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "plant-7:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// LayoutKey generates a prefixed key for layout caching.
func (k *ScopedKeyer) LayoutKey(dotHash string) string {
	return k.prefix + k.inner.LayoutKey(dotHash)
}

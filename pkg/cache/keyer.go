package cache

// Keyer builds cache keys for each kind of cached value.
type Keyer interface {
	// RecordsKey returns the key for the records fetched from a source,
	// identified by the source's own key.
	RecordsKey(sourceKey string) string

	// ArtifactKey returns the key for one rendered output of a layout.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// ArtifactKeyOpts are the render options that change an artifact's bytes.
type ArtifactKeyOpts struct {
	Format string  `json:"format"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DefaultKeyer hashes key components under a type prefix.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard Keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) RecordsKey(sourceKey string) string {
	return hashKey("records", sourceKey)
}

func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}

// KeyType returns the prefix of a key built by DefaultKeyer, such as
// "records" or "artifact". Metrics use it as a label.
func KeyType(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == ':' {
			key = key[:i]
			break
		}
	}
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == ':' {
			return key[i+1:]
		}
	}
	return key
}

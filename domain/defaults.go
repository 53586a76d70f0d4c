package domain

// Sketch defaults.
const (
	// DefaultSketchType is the signature family used when none is configured.
	DefaultSketchType = "minhash"

	// DefaultNumPerm is the signature length L.
	DefaultNumPerm = 128

	// DefaultMasterSeed seeds the generator every family seed is drawn from.
	DefaultMasterSeed uint64 = 1
)

// Banding defaults.
const (
	// DefaultThreshold is the similarity at which pairs should start to
	// become candidates.
	DefaultThreshold = 0.5

	// DefaultFPWeight and DefaultFNWeight weigh the two error areas equally.
	DefaultFPWeight = 0.5
	DefaultFNWeight = 0.5

	// DefaultMinimumR1 lets the optimizer consider single-row bands.
	DefaultMinimumR1 = 1
)

// Optimizer defaults.
const (
	// DefaultCachePath is where computed band parameters are kept between runs.
	DefaultCachePath = ".simdup/params.json"

	// DefaultExactLength restricts the search to parameters that consume
	// every signature slot.
	DefaultExactLength = true
)

// DefaultIncludePatterns selects record files when a directory is given.
var DefaultIncludePatterns = []string{"**/*.json"}

package gainmap

// UltraHDRMetadata is gainmap metadata as stored in an UltraHDR container.
// Boosts and HDR capacities are linear ratios, Gamma is the encoding gamma
// (the sample is raised to 1/Gamma when decoding).
type UltraHDRMetadata struct {
	Version         string
	MaxContentBoost [3]float32
	MinContentBoost [3]float32
	Gamma           [3]float32
	OffsetSDR       [3]float32
	OffsetHDR       [3]float32
	HDRCapacityMin  float32
	HDRCapacityMax  float32
	UseBaseCG       bool
}

type rgb struct {
	r, g, b float32
}

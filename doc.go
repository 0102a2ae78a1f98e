// Package gainmap renders UltraHDR-style images (an SDR base image plus a gainmap)
// on an OpenGL context, blending between the SDR and HDR renditions according to
// the HDR/SDR brightness ratio currently reported by the display.
//
// The package owns the numerical part of the pipeline: parametric transfer
// functions (evaluate, scale by a brightness gain, invert), the blend weight
// derived from the display ratio, and the shader program parameterised with
// them. Decoding of the UltraHDR JPEG/R container is included so that a
// Source can be built directly from file bytes.
//
// Source and destination are assumed to share one color gamut; no gamut
// conversion is performed.
package gainmap

package gainmap

import (
	"fmt"
	"math"
)

// continuityTolerance is the largest gap allowed between the linear and the
// power segment at the threshold D.
const continuityTolerance = 1.0 / 512

// TransferFunction is a 7-parameter piecewise curve, as used by ICC
// parametricCurveType 4:
//
//	y = C*x + F          for |x| < D
//	y = (A*x + B)^G + E  otherwise
//
// Negative inputs are handled by odd-symmetric extension.
type TransferFunction struct {
	G, A, B, C, D, E, F float32
}

// Well-known transfer functions, all mapping encoded values to linear light.
var (
	SRGB = TransferFunction{
		G: 2.4,
		A: 1 / 1.055,
		B: 0.055 / 1.055,
		C: 1 / 12.92,
		D: 0.04045,
	}
	Linear        = TransferFunction{G: 1, A: 1}
	Gamma22       = TransferFunction{G: 2.2, A: 1}
	AdobeRGBGamma = TransferFunction{G: 563.0 / 256.0, A: 1}
)

var namedTransfers = map[string]TransferFunction{
	"srgb":     SRGB,
	"linear":   Linear,
	"gamma22":  Gamma22,
	"adobergb": AdobeRGBGamma,
}

// TransferByName returns a well-known transfer function: srgb, linear, gamma22 or adobergb.
func TransferByName(name string) (TransferFunction, error) {
	tf, ok := namedTransfers[name]
	if !ok {
		return TransferFunction{}, fmt.Errorf("unknown transfer function %q", name)
	}
	return tf, nil
}

// Eval applies the curve to x.
func (tf TransferFunction) Eval(x float32) float32 {
	sign := float32(1)
	if x < 0 {
		sign = -1
		x = -x
	}
	if x < tf.D {
		return sign * (tf.C*x + tf.F)
	}
	return sign * (powf(tf.A*x+tf.B, tf.G) + tf.E)
}

// ApplyGain returns a curve whose output is gain times the output of tf,
// that is a gain-fold change of peak brightness.
func (tf TransferFunction) ApplyGain(gain float32) TransferFunction {
	k := powf(gain, 1/tf.G)
	return TransferFunction{
		G: tf.G,
		A: tf.A * k,
		B: tf.B * k,
		C: tf.C * gain,
		D: tf.D,
		E: tf.E * gain,
		F: tf.F * gain,
	}
}

// Validate checks that the power segment is real and monotonic.
func (tf TransferFunction) Validate() error {
	for _, v := range tf.Uniform() {
		if !isFinite(v) {
			return fmt.Errorf("%w: non-finite parameter", ErrMalformedCurve)
		}
	}
	if tf.G <= 0 {
		return fmt.Errorf("%w: exponent %g", ErrMalformedCurve, tf.G)
	}
	if tf.A < 0 {
		return fmt.Errorf("%w: a=%g", ErrNegativeSlope, tf.A)
	}
	if tf.A*tf.D+tf.B < 0 {
		return fmt.Errorf("%w: a*d+b=%g", ErrNegativeSlope, tf.A*tf.D+tf.B)
	}
	return nil
}

// Invert returns the functional inverse of tf in the same piecewise form.
//
// ErrMalformedCurve is returned for a curve whose segments disagree at D,
// ErrNegativeSlope for a curve that is not monotonic.
// The result maps tf.Eval(1) back to exactly 1.
func (tf TransferFunction) Invert() (TransferFunction, error) {
	if err := tf.Validate(); err != nil {
		return TransferFunction{}, err
	}

	// Both segments evaluated at D must land on the same point, which becomes
	// the threshold of the inverse.
	dl := tf.C*tf.D + tf.F
	dr := powf(tf.A*tf.D+tf.B, tf.G) + tf.E
	if math.Abs(float64(dl-dr)) > continuityTolerance {
		return TransferFunction{}, fmt.Errorf("%w: segments differ by %g at d=%g", ErrMalformedCurve, dl-dr, tf.D)
	}

	inv := TransferFunction{D: dl}

	// A zero threshold collapses the linear segment, c and f stay 0.
	if inv.D > 0 {
		inv.C = 1 / tf.C
		inv.F = -tf.F / tf.C
	}

	//      y = (ax + b)^g + e
	//  =>  x = (ky - ke)^(1/g) - b/a,  k = a^-g
	k := powf(tf.A, -tf.G)
	inv.G = 1 / tf.G
	inv.A = k
	inv.B = -k * tf.E
	inv.E = -tf.B / tf.A

	if !(inv.A >= 0) || !isFinite(inv.A) {
		return TransferFunction{}, fmt.Errorf("%w: inverse a=%g", ErrNegativeSlope, inv.A)
	}
	if inv.A*inv.D+inv.B < 0 {
		inv.B = -inv.A * inv.D
	}

	s := tf.Eval(1)
	if !isFinite(s) {
		return TransferFunction{}, fmt.Errorf("%w: non-finite value at 1", ErrMalformedCurve)
	}
	sign := float32(1)
	if s < 0 {
		sign = -1
		s = -s
	}
	if s < inv.D {
		inv.F = 1 - sign*inv.C*s
	} else {
		inv.E = 1 - sign*powf(inv.A*s+inv.B, inv.G)
	}

	for _, v := range inv.Uniform() {
		if !isFinite(v) {
			return TransferFunction{}, fmt.Errorf("%w: non-finite inverse", ErrMalformedCurve)
		}
	}

	return inv, nil
}

// Uniform returns the parameters in shader order: G, A, B, C, D, E, F.
func (tf TransferFunction) Uniform() [7]float32 {
	return [7]float32{tf.G, tf.A, tf.B, tf.C, tf.D, tf.E, tf.F}
}

// DestinationTransfer builds the linear-light to display-code curve for the
// given HDR/SDR ratio from a reference (encoded to linear) curve.
func DestinationTransfer(ref TransferFunction, hdrSdrRatio float32) (TransferFunction, error) {
	return ref.ApplyGain(hdrSdrRatio).Invert()
}

package forecast

import "math"

// maxRootModulus bounds the spectral radius of the AR companion matrix.
// Fits above it are shrunk toward zero until every root is inside.
const maxRootModulus = 0.95

// stationary reports whether every root of 1 - phi_1 z - ... - phi_p z^p
// lies outside the unit circle (Levinson step-down / Schur-Cohn test)
func stationary(phi []float64) bool {
	a := append([]float64(nil), phi...)
	for k := len(a); k > 0; k-- {
		kappa := a[k-1]
		if math.IsNaN(kappa) || math.Abs(kappa) >= 1 {
			return false
		}
		denom := 1 - kappa*kappa
		prev := make([]float64, k-1)
		for j := 0; j < k-1; j++ {
			prev[j] = (a[j] + kappa*a[k-2-j]) / denom
		}
		a = prev
	}
	return true
}

// scaleRoots returns phi_i * c^i, whose companion eigenvalues are c times those of phi
func scaleRoots(phi []float64, c float64) []float64 {
	out := make([]float64, len(phi))
	pow := 1.0
	for i, v := range phi {
		pow *= c
		out[i] = v * pow
	}
	return out
}

// withinRadius reports whether the companion spectral radius of phi is below r
func withinRadius(phi []float64, r float64) bool {
	return stationary(scaleRoots(phi, 1/r))
}

// stabilize shrinks an AR fit so its spectral radius is at most maxRootModulus.
// The second result reports whether the coefficients were changed.
func stabilize(phi []float64) ([]float64, bool) {
	if withinRadius(phi, maxRootModulus) {
		return phi, false
	}

	lo, hi := 0.0, 1.0
	for i := 0; i < 60; i++ {
		mid := (lo + hi) / 2
		if withinRadius(scaleRoots(phi, mid), maxRootModulus) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return scaleRoots(phi, lo), true
}

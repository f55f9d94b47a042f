// Package ldpc implements the LDPC(174,91) forward error correction used by
// the FT8 digital mode: belief-propagation decoding over the fixed Tanner
// graph, the CRC-14 that protects the payload, and the GF(2) matrix algebra
// needed to construct systematic codewords.
//
// Decoder input is 174 log-likelihoods, codeword[i] = log(P(bit=0)/P(bit=1)),
// as produced by a symbol demodulator. The first 91 bits of a decoded
// codeword are the systematic plain text. The sum-product algorithm follows
// Sarah Johnson's Iterative Error Correction book; the code first appeared in
// ft8mon by Robert Morris, AB1HL.
package ldpc

import (
	"fmt"
	"math"
)

// Check counts how many of the 83 parity checks a hard-decision codeword
// satisfies. 83 means total success. codeword must hold CodewordBits bits.
func Check(codeword []uint8) int {
	score := 0

	for j := 0; j < NumChecks; j++ {
		x := uint8(0)
		for ii1 := 0; ii1 < MaxCheckDegree; ii1++ {
			i1 := int(ldpcNm[j][ii1]) - 1
			if i1 >= 0 {
				x ^= codeword[i1]
			}
		}
		if x == 0 {
			score++
		}
	}
	return score
}

// DecodeProbability runs sum-product decoding in the probability domain.
// llr is 174 log-likelihoods of zero, maxIters bounds the message-passing
// rounds. Returns the hard-decision codeword and the number of parity checks
// it satisfies; 83 means success, anything less is the best guess seen.
func DecodeProbability(llr []float32, maxIters int) ([]uint8, int, error) {
	if len(llr) != CodewordBits {
		return nil, 0, fmt.Errorf("ldpc: llr length %d, want %d", len(llr), CodewordBits)
	}

	// m[j][i]: bit i's P(zero) as told to check j, from checks other than j.
	// e[j][i]: check j's estimate of P(bit i = zero) from the other bits in j.
	var m [NumChecks][CodewordBits]float32
	var e [NumChecks][CodewordBits]float32
	var codeword [CodewordBits]float32

	// p = e**x / (1 + e**x) is P(zero), not P(one).
	for i := 0; i < CodewordBits; i++ {
		ex := math.Exp(float64(llr[i]))
		codeword[i] = float32(ex / (1.0 + ex))
	}

	for i := 0; i < CodewordBits; i++ {
		for j := 0; j < NumChecks; j++ {
			m[j][i] = codeword[i]
		}
	}

	bestScore := -1
	var bestCW [CodewordBits]uint8
	cw := make([]uint8, CodewordBits)

	for iter := 0; iter < maxIters; iter++ {
		for j := 0; j < NumChecks; j++ {
			for ii1 := 0; ii1 < MaxCheckDegree; ii1++ {
				i1 := int(ldpcNm[j][ii1]) - 1
				if i1 < 0 {
					continue
				}
				a := float32(1.0)
				for ii2 := 0; ii2 < MaxCheckDegree; ii2++ {
					i2 := int(ldpcNm[j][ii2]) - 1
					if i2 >= 0 && i2 != i1 {
						// 1.0 to -1.0, for definitely zero to definitely one.
						a *= 1.0 - 2.0*(1.0-m[j][i2])
					}
				}
				// so e[j][i1] is 0.0 .. 1.0 meaning bit i1 is one .. zero.
				e[j][i1] = 0.5 + 0.5*a
			}
		}

		for i := 0; i < CodewordBits; i++ {
			q0 := codeword[i]
			q1 := 1.0 - q0
			for j := 0; j < VarDegree; j++ {
				j2 := int(ldpcMn[i][j]) - 1
				q0 *= e[j2][i]
				q1 *= 1.0 - e[j2][i]
			}
			var p float32
			if q0 == 0.0 {
				p = 1.0
			} else {
				p = 1.0 / (1.0 + (q1 / q0))
			}
			if p <= 0.5 {
				cw[i] = 1
			} else {
				cw[i] = 0
			}
		}
		score := Check(cw)
		if score == NumChecks {
			return cw, score, nil
		}

		if score > bestScore {
			copy(bestCW[:], cw)
			bestScore = score
		}

		for i := 0; i < CodewordBits; i++ {
			for ji1 := 0; ji1 < VarDegree; ji1++ {
				j1 := int(ldpcMn[i][ji1]) - 1
				q0 := codeword[i]
				q1 := 1.0 - q0
				for ji2 := 0; ji2 < VarDegree; ji2++ {
					j2 := int(ldpcMn[i][ji2]) - 1
					if j1 != j2 {
						q0 *= e[j2][i]
						q1 *= 1.0 - e[j2][i]
					}
				}
				var p float32
				if q0 == 0.0 {
					p = 1.0
				} else {
					p = 1.0 / (1.0 + (q1 / q0))
				}
				m[j1][i] = p
			}
		}
	}

	// decode didn't work, return best guess.
	copy(cw, bestCW[:])
	return cw, bestScore, nil
}

// DecodeLog runs sum-product decoding in the log-likelihood domain, the
// numerically preferred formulation (sums instead of products, no underflow).
// Same contract as DecodeProbability; the two agree whenever both converge.
func DecodeLog(llr []float32, maxIters int) ([]uint8, int, error) {
	if len(llr) != CodewordBits {
		return nil, 0, fmt.Errorf("ldpc: llr length %d, want %d", len(llr), CodewordBits)
	}

	var m [NumChecks][CodewordBits]float32
	var e [NumChecks][CodewordBits]float32

	for i := 0; i < CodewordBits; i++ {
		for j := 0; j < NumChecks; j++ {
			m[j][i] = llr[i]
		}
	}

	bestScore := -1
	var bestCW [CodewordBits]uint8
	cw := make([]uint8, CodewordBits)

	for iter := 0; iter < maxIters; iter++ {
		for j := 0; j < NumChecks; j++ {
			for ii1 := 0; ii1 < MaxCheckDegree; ii1++ {
				i1 := int(ldpcNm[j][ii1]) - 1
				if i1 < 0 {
					continue
				}
				a := float32(1.0)
				for ii2 := 0; ii2 < MaxCheckDegree; ii2++ {
					i2 := int(ldpcNm[j][ii2]) - 1
					if i2 >= 0 && i2 != i1 {
						a *= fastTanh(m[j][i2] / 2.0)
					}
				}
				var tmp float32
				if a >= 0.999 {
					tmp = 7.6
				} else if a <= -0.999 {
					tmp = -7.6
				} else {
					tmp = float32(math.Log(float64((1 + a) / (1 - a))))
				}
				e[j][i1] = tmp
			}
		}

		for i := 0; i < CodewordBits; i++ {
			l := llr[i]
			for j := 0; j < VarDegree; j++ {
				l += e[int(ldpcMn[i][j])-1][i]
			}
			if l <= 0.0 {
				cw[i] = 1
			} else {
				cw[i] = 0
			}
		}
		score := Check(cw)
		if score == NumChecks {
			return cw, score, nil
		}

		if score > bestScore {
			copy(bestCW[:], cw)
			bestScore = score
		}

		for i := 0; i < CodewordBits; i++ {
			for ji1 := 0; ji1 < VarDegree; ji1++ {
				j1 := int(ldpcMn[i][ji1]) - 1
				l := llr[i]
				for ji2 := 0; ji2 < VarDegree; ji2++ {
					j2 := int(ldpcMn[i][ji2]) - 1
					if j1 != j2 {
						l += e[j2][i]
					}
				}
				m[j1][i] = l
			}
		}
	}

	// decode didn't work, return best guess.
	copy(cw, bestCW[:])
	return cw, bestScore, nil
}

// fastTanh is a rational polynomial approximation of tanh, saturating to
// +/-0.999 beyond |x| > 7.6 so that the atanh in the check update cannot
// produce infinities. Thank you Douglas Bagnall,
// https://math.stackexchange.com/a/446411
func fastTanh(x float32) float32 {
	if x < -7.6 {
		return -0.999
	}
	if x > 7.6 {
		return 0.999
	}
	x2 := x * x
	a := x * (135135.0 + x2*(17325.0+x2*(378.0+x2)))
	b := 135135.0 + x2*(62370.0+x2*(3150.0+x2*28.0))
	return a / b
}

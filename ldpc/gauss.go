package ldpc

/*
 * Systematic generator construction for LDPC(174,91)
 * Gauss-Jordan elimination over GF(2), from ft8mon by Robert Morris, AB1HL
 */

import (
	"fmt"
	"sync"
)

// WorkMatrix is the Gauss-Jordan working buffer: the 174 rows of a 174x91
// code matrix in the left half, the right half initially zero and reserved
// for the lazily-built identity block that becomes the inverse.
type WorkMatrix [CodewordBits][2 * MessageBits]uint8

// RowOrder records which original row occupies each position of a WorkMatrix.
// It has an entry per matrix row because pivot search swaps rows from the
// whole matrix, not just the first 91.
type RowOrder [CodewordBits]int

// BuildGenerator row-reduces m in place so that its left half carries an
// identity in the first 91 rows and its upper-right quarter carries the
// 91x91 inverse of whatever originally occupied the upper-left quarter.
// which is swapped in parallel with the rows, so which[0..90] ends up naming
// the original rows chosen as pivots. Returns false if no pivot can be found
// for some column, i.e. the matrix is not invertible; for the real code
// tables that indicates corrupted constants, not a runtime condition.
func BuildGenerator(m *WorkMatrix, which *RowOrder) bool {
	for row := 0; row < MessageBits; row++ {
		if m[row][row] != 1 {
			for row1 := row + 1; row1 < CodewordBits; row1++ {
				if m[row1][row] == 1 {
					m[row], m[row1] = m[row1], m[row]
					which[row], which[row1] = which[row1], which[row]
					break
				}
			}
		}
		if m[row][row] != 1 {
			// could not invert
			return false
		}
		// lazy creation of the identity matrix in the upper-right quarter
		m[row][MessageBits+row] ^= 1
		// now eliminate
		for row1 := 0; row1 < CodewordBits; row1++ {
			if row1 == row {
				continue
			}
			if m[row1][row] != 0 {
				for col := 0; col < 2*MessageBits; col++ {
					m[row1][col] ^= m[row][col]
				}
			}
		}
	}

	return true
}

var (
	genOnce sync.Once
	genRows [NumChecks][MessageBits]uint8
)

// generatorRows expands the packed hex generator table once.
func generatorRows() *[NumChecks][MessageBits]uint8 {
	genOnce.Do(func() {
		for j, row := range ldpcGenerator {
			for k := 0; k < MessageBits; k++ {
				nibble := hexNibble(row[k/4])
				if nibble&(1<<(3-k%4)) != 0 {
					genRows[j][k] = 1
				}
			}
		}
	})
	return &genRows
}

func hexNibble(c byte) uint8 {
	if c >= 'a' {
		return c - 'a' + 10
	}
	return c - '0'
}

// SystematicGenerator returns the full 174x91 generator: identity rows for
// the 91 systematic positions, then one parity row per check. Multiplying it
// by a 91-bit message (mod 2) yields the complete codeword. The returned
// matrix is a fresh copy the caller may mutate.
func SystematicGenerator() *[CodewordBits][MessageBits]uint8 {
	gen := generatorRows()
	var g [CodewordBits][MessageBits]uint8
	for i := 0; i < MessageBits; i++ {
		g[i][i] = 1
	}
	for j := 0; j < NumChecks; j++ {
		g[MessageBits+j] = gen[j]
	}
	return &g
}

// NewGeneratorWork assembles a Gauss-Jordan working buffer from the
// systematic generator with its rows permuted by order (one entry per
// codeword bit; nil means natural order). Feeding the result to
// BuildGenerator yields, in the upper-right quarter, the matrix that
// recovers the 91 message bits from the codeword bits named by the final
// row order. This is the re-encoding step of ordered-statistics decoding.
func NewGeneratorWork(order []int) (*WorkMatrix, *RowOrder, error) {
	if order != nil && len(order) != CodewordBits {
		return nil, nil, fmt.Errorf("ldpc: row order length %d, want %d", len(order), CodewordBits)
	}

	gsys := SystematicGenerator()
	m := new(WorkMatrix)
	which := new(RowOrder)
	for i := 0; i < CodewordBits; i++ {
		src := i
		if order != nil {
			src = order[i]
		}
		if src < 0 || src >= CodewordBits {
			return nil, nil, fmt.Errorf("ldpc: row order entry %d out of range", src)
		}
		copy(m[i][:MessageBits], gsys[src][:])
		which[i] = src
	}
	return m, which, nil
}

// Encode builds the 174-bit codeword for a 91-bit systematic message: the
// message itself followed by the 83 parity bits from the generator table.
func Encode(msg []uint8) ([]uint8, error) {
	if len(msg) != MessageBits {
		return nil, fmt.Errorf("ldpc: message length %d, want %d", len(msg), MessageBits)
	}

	gen := generatorRows()
	cw := make([]uint8, CodewordBits)
	copy(cw, msg)
	for j := 0; j < NumChecks; j++ {
		x := uint8(0)
		for k := 0; k < MessageBits; k++ {
			x ^= gen[j][k] & msg[k]
		}
		cw[MessageBits+j] = x
	}
	return cw, nil
}

// EncodePayload appends the CRC to a 77-bit payload and encodes the result.
func EncodePayload(payload []uint8) ([]uint8, error) {
	msg, err := AppendCRC(payload)
	if err != nil {
		return nil, err
	}
	return Encode(msg)
}

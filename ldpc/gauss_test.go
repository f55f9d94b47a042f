package ldpc

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorFirstRow(t *testing.T) {
	// Known WSJT-X constant; a mismatch means the tables are corrupted.
	assert.Equal(t, "8329ce11bf31eaf509f27fc", ldpcGenerator[0])
}

func TestEncodeProducesValidCodewords(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		msg := randomMessage(rng)
		cw, err := Encode(msg)
		require.NoError(t, err)
		assert.Equal(t, NumChecks, Check(cw))
		assert.Equal(t, msg, cw[:MessageBits], "code must be systematic")
	}
}

func TestEncodeLengthValidation(t *testing.T) {
	_, err := Encode(make([]uint8, 90))
	assert.Error(t, err)
}

func TestBuildGeneratorNaturalOrder(t *testing.T) {
	m, which, err := NewGeneratorWork(nil)
	require.NoError(t, err)
	require.True(t, BuildGenerator(m, which))

	// The systematic rows already form an identity, so no swaps happen and
	// the inverse is the identity too.
	for r := 0; r < MessageBits; r++ {
		assert.Equal(t, r, which[r])
		for c := 0; c < MessageBits; c++ {
			want := uint8(0)
			if r == c {
				want = 1
			}
			assert.Equal(t, want, m[r][c])
			assert.Equal(t, want, m[r][MessageBits+c])
		}
	}
}

func TestBuildGeneratorScrambledOrder(t *testing.T) {
	// Permute the generator rows so elimination has to pivot-swap, then
	// verify the inverse really recovers the message from the codeword bits
	// the final row order selects.
	rng := rand.New(rand.NewSource(3))
	order := rng.Perm(CodewordBits)

	m, which, err := NewGeneratorWork(order)
	require.NoError(t, err)
	require.True(t, BuildGenerator(m, which))

	msg := randomMessage(rng)
	cw, err := Encode(msg)
	require.NoError(t, err)

	for k := 0; k < MessageBits; k++ {
		x := uint8(0)
		for r := 0; r < MessageBits; r++ {
			if m[k][MessageBits+r] != 0 {
				x ^= cw[which[r]]
			}
		}
		assert.Equal(t, msg[k], x, "message bit %d", k)
	}
}

func TestBuildGeneratorSingular(t *testing.T) {
	// Identical rows everywhere: rank 1, no pivot for column 1.
	gsys := SystematicGenerator()
	m := new(WorkMatrix)
	which := new(RowOrder)
	for i := 0; i < CodewordBits; i++ {
		copy(m[i][:MessageBits], gsys[0][:])
		which[i] = i
	}
	assert.False(t, BuildGenerator(m, which))
}

func TestNewGeneratorWorkValidation(t *testing.T) {
	_, _, err := NewGeneratorWork(make([]int, 10))
	assert.Error(t, err)

	bad := make([]int, CodewordBits)
	bad[0] = CodewordBits
	_, _, err = NewGeneratorWork(bad)
	assert.Error(t, err)
}

func TestSystematicGeneratorIsFreshCopy(t *testing.T) {
	a := SystematicGenerator()
	a[0][0] = 0
	b := SystematicGenerator()
	assert.Equal(t, uint8(1), b[0][0])
}

package ldpc

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomBits(rng *rand.Rand, n int) []uint8 {
	bits := make([]uint8, n)
	for i := range bits {
		bits[i] = uint8(rng.Intn(2))
	}
	return bits
}

func TestCRC14Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	msg := randomBits(rng, PayloadBits)
	assert.Equal(t, CRC14(msg), CRC14(msg))
	assert.Len(t, CRC14(msg), CRCBits)
}

func TestCRC14ZeroResidual(t *testing.T) {
	// Standard self-check: remainder of message-plus-checksum is zero.
	rng := rand.New(rand.NewSource(6))
	for trial := 0; trial < 10; trial++ {
		msg := randomBits(rng, PayloadBits)
		extended := append(append([]uint8{}, msg...), CRC14(msg)...)
		assert.Equal(t, make([]uint8, CRCBits), CRC14(extended))
	}
}

func TestCRC14MatchesPackedForm(t *testing.T) {
	// The bit-serial and byte-packed computations are the same division.
	rng := rand.New(rand.NewSource(8))
	msg := randomBits(rng, PayloadBits)

	bits := CRC14(msg)
	want := uint16(0)
	for _, b := range bits {
		want = want<<1 | uint16(b)
	}

	got := ComputeCRC(PackBits(msg, PayloadBits), PayloadBits)
	assert.Equal(t, want, got)
}

func TestAppendCheckRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	payload := randomBits(rng, PayloadBits)

	msg, err := AppendCRC(payload)
	require.NoError(t, err)
	require.Len(t, msg, MessageBits)

	ok, err := CheckCRC(msg)
	require.NoError(t, err)
	assert.True(t, ok)

	msg[3] ^= 1
	ok, err = CheckCRC(msg)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCRCLengthValidation(t *testing.T) {
	_, err := AppendCRC(make([]uint8, 10))
	assert.Error(t, err)
	_, err = CheckCRC(make([]uint8, 10))
	assert.Error(t, err)
}

func TestPackUnpackBits(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	bits := randomBits(rng, MessageBits)
	assert.Equal(t, bits, UnpackBits(PackBits(bits, MessageBits), MessageBits))
}

func TestEncodePayloadDecodesWithValidCRC(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	payload := randomBits(rng, PayloadBits)

	cw, err := EncodePayload(payload)
	require.NoError(t, err)
	assert.Equal(t, NumChecks, Check(cw))

	got, score, err := DecodeLog(strongLLR(cw), 30)
	require.NoError(t, err)
	require.Equal(t, NumChecks, score)

	ok, err := CheckCRC(got[:MessageBits])
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, payload, got[:PayloadBits])
}

package gf256

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeReferenceVector(t *testing.T) {
	// "123456" in a 10x10 symbol.
	got := Encode([]byte{142, 164, 186}, 5)
	if diff := cmp.Diff([]byte{114, 25, 5, 88, 102}, got); diff != "" {
		t.Errorf("check codewords mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldArithmetic(t *testing.T) {
	assert.Equal(t, byte(1), Exp(0))
	assert.Equal(t, byte(0x2D), Exp(8)) // α^8 = x^5+x^3+x^2+1
	assert.Equal(t, Exp(0), Exp(255))
	for a := 1; a < 256; a++ {
		assert.Equal(t, byte(1), Mul(byte(a), inverse(byte(a))))
		assert.Equal(t, byte(a), Div(Mul(byte(a), 7), 7))
	}
	assert.Equal(t, byte(0), Mul(0, 9))
}

func TestDecodeCorrectsUpToHalfTheCheckSymbols(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		data := make([]byte, 3+rng.Intn(40))
		rng.Read(data)
		n := []int{5, 7, 10, 12, 14, 18, 20, 24, 28}[rng.Intn(9)]
		clean := append(append([]byte(nil), data...), Encode(data, n)...)

		received := append([]byte(nil), clean...)
		errs := rng.Intn(n/2 + 1)
		for _, p := range rng.Perm(len(received))[:errs] {
			received[p] ^= byte(1 + rng.Intn(255))
		}

		corrected, err := Decode(received, n)
		require.NoError(t, err, "trial %d", trial)
		assert.Equal(t, errs, corrected, "trial %d", trial)
		assert.Equal(t, clean, received, "trial %d", trial)
	}
}

func TestDecodeCleanBlock(t *testing.T) {
	data := []byte("clean")
	block := append(append([]byte(nil), data...), Encode(data, 7)...)
	corrected, err := Decode(block, 7)
	require.NoError(t, err)
	assert.Zero(t, corrected)
}

func TestDecodeReportsOverload(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	block := append(append([]byte(nil), data...), Encode(data, 10)...)
	for i := 0; i < 9; i++ {
		block[i] ^= 0x5a
	}
	_, err := Decode(block, 10)
	assert.ErrorIs(t, err, ErrTooManyErrors)
}

package ean13

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckDigit(t *testing.T) {
	tests := []struct {
		in   string
		want byte
	}{
		{"400638133393", '1'},
		{"590123412345", '7'},
		{"978020137962", '4'},
	}
	for _, tt := range tests {
		got, err := CheckDigit(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestEncodeStructure(t *testing.T) {
	modules, number, err := Encode("590123412345")
	require.NoError(t, err)
	assert.Equal(t, "5901234123457", number)
	assert.Len(t, modules, Modules)

	widths := ElementWidths(modules)
	assert.Len(t, widths, 59)
	for _, i := range []int{0, 1, 2, 27, 28, 29, 30, 31, 56, 57, 58} {
		assert.Equal(t, 1, widths[i], "guard element %d", i)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, n := range []string{"4006381333931", "5901234123457", "9780201379624", "0000000000000"} {
		modules, _, err := Encode(n)
		require.NoError(t, err)

		got, err := Decode(modules)
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
}

func TestDecodeReversed(t *testing.T) {
	modules, _, err := Encode("4006381333931")
	require.NoError(t, err)
	rev := make([]bool, len(modules))
	for i, m := range modules {
		rev[len(modules)-1-i] = m
	}

	got, err := Decode(rev)
	require.NoError(t, err)
	assert.Equal(t, "4006381333931", got)
}

func TestEncodeErrors(t *testing.T) {
	_, _, err := Encode("12345")
	assert.ErrorIs(t, err, ErrLength)
	_, _, err = Encode("59012341234A")
	assert.ErrorIs(t, err, ErrDigit)
	_, _, err = Encode("5901234123450")
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestDecodeErrors(t *testing.T) {
	modules, _, err := Encode("5901234123457")
	require.NoError(t, err)

	damaged := append([]bool(nil), modules...)
	damaged[1] = true
	_, err = Decode(damaged)
	assert.Error(t, err)

	// Flip one module of the last right-hand digit: "1000100" (7) becomes
	// "1010100", which is not a code.
	damaged = append([]bool(nil), modules...)
	damaged[87] = !damaged[87]
	_, err = Decode(damaged)
	assert.Error(t, err)

	_, err = Decode(modules[:90])
	assert.Error(t, err)
}

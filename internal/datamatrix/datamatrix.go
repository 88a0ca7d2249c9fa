// Package datamatrix encodes and decodes square, single-region ECC200 Data
// Matrix symbols (10×10 through 26×26) with ASCII encodation.
package datamatrix

import (
	"errors"
	"fmt"

	"github.com/Suryanandx/2d-code-verifier/internal/gf256"
)

// Size describes one supported symbol size.
type Size struct {
	Modules int
	Data    int
	ECC     int
}

var sizes = []Size{
	{10, 3, 5},
	{12, 5, 7},
	{14, 8, 10},
	{16, 12, 12},
	{18, 18, 14},
	{20, 22, 18},
	{22, 30, 20},
	{24, 36, 24},
	{26, 44, 28},
}

var (
	ErrUnsupportedSize = errors.New("datamatrix: unsupported symbol size")
	ErrTooLong         = errors.New("datamatrix: payload does not fit the largest supported symbol")
	ErrFinder          = errors.New("datamatrix: finder pattern mismatch")
)

// SizeFor returns the size entry for an n×n symbol.
func SizeFor(n int) (Size, bool) {
	for _, s := range sizes {
		if s.Modules == n {
			return s, true
		}
	}
	return Size{}, false
}

// FinderModule reports whether upright module (r, c) of an n×n symbol
// belongs to the finder or timing pattern, and if so whether it is dark.
// Row 0 is the top (timing) row; column 0 is the solid left leg.
func FinderModule(n, r, c int) (dark, fixed bool) {
	switch {
	case c == 0 || r == n-1:
		return true, true
	case r == 0:
		return c%2 == 0, true
	case c == n-1:
		return r%2 == 1, true
	default:
		return false, false
	}
}

// Encode builds the smallest symbol holding payload and returns its modules
// (true = dark), row-major, upright.
func Encode(payload string) ([][]bool, error) {
	data := encodeASCII([]byte(payload))
	var size Size
	found := false
	for _, s := range sizes {
		if s.Data >= len(data) {
			size, found = s, true
			break
		}
	}
	if !found {
		return nil, ErrTooLong
	}
	return EncodeCodewords(pad(data, size.Data), size.Modules)
}

// EncodeCodewords places exactly Data codewords (already padded) into an
// n×n symbol, appending the Reed–Solomon check codewords.
func EncodeCodewords(data []byte, n int) ([][]bool, error) {
	size, ok := SizeFor(n)
	if !ok {
		return nil, ErrUnsupportedSize
	}
	if len(data) != size.Data {
		return nil, fmt.Errorf("datamatrix: %d data codewords for a %dx%d symbol, want %d", len(data), n, n, size.Data)
	}
	codewords := append(append([]byte(nil), data...), gf256.Encode(data, size.ECC)...)

	modules := make([][]bool, n)
	for r := range modules {
		modules[r] = make([]bool, n)
		for c := range modules[r] {
			modules[r][c], _ = FinderModule(n, r, c)
		}
	}
	l := layoutFor(n-2, n-2)
	for k, cw := range codewords {
		for b, p := range l.bits[k] {
			modules[p.row+1][p.col+1] = cw&(0x80>>b) != 0
		}
	}
	for _, p := range l.dark {
		modules[p.row+1][p.col+1] = true
	}
	return modules, nil
}

// Result is a decoded symbol.
type Result struct {
	Payload string
	// Corrected is the number of codewords repaired by error correction.
	Corrected int
	// Capacity is the number of codeword errors the symbol can correct.
	Capacity int
}

// Decode reads an upright module matrix.
func Decode(modules [][]bool) (Result, error) {
	n := len(modules)
	size, ok := SizeFor(n)
	if !ok {
		return Result{}, ErrUnsupportedSize
	}
	for r := range modules {
		if len(modules[r]) != n {
			return Result{}, ErrUnsupportedSize
		}
	}
	if FinderDamage(modules) > 0.25 {
		return Result{}, ErrFinder
	}

	l := layoutFor(n-2, n-2)
	codewords := make([]byte, len(l.bits))
	for k, bits := range l.bits {
		var cw byte
		for b, p := range bits {
			if modules[p.row+1][p.col+1] {
				cw |= 0x80 >> b
			}
		}
		codewords[k] = cw
	}

	corrected, err := gf256.Decode(codewords, size.ECC)
	res := Result{Corrected: corrected, Capacity: size.ECC / 2}
	if err != nil {
		return res, fmt.Errorf("datamatrix: error correction failed: %w", err)
	}
	payload, err := decodeASCII(codewords[:size.Data])
	if err != nil {
		return res, err
	}
	res.Payload = payload
	return res, nil
}

// FinderDamage returns the fraction of finder and timing modules that do not
// match the expected pattern.
func FinderDamage(modules [][]bool) float64 {
	n := len(modules)
	var total, bad int
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			want, fixed := FinderModule(n, r, c)
			if !fixed {
				continue
			}
			total++
			if modules[r][c] != want {
				bad++
			}
		}
	}
	if total == 0 {
		return 1
	}
	return float64(bad) / float64(total)
}

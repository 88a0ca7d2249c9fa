// Package gf256 implements Reed–Solomon coding over GF(2^8) as used by ECC200:
// primitive polynomial x^8+x^5+x^3+x^2+1 (0x12D), generator roots α^1..α^n.
package gf256

import "errors"

const primitive = 0x12D

var (
	expTable [512]byte
	logTable [256]int
)

// ErrTooManyErrors is returned when a block has more errors than its check
// symbols can correct.
var ErrTooManyErrors = errors.New("gf256: too many errors")

func init() {
	x := 1
	for i := 0; i < 255; i++ {
		expTable[i] = byte(x)
		logTable[x] = i
		x <<= 1
		if x&0x100 != 0 {
			x ^= primitive
		}
	}
	for i := 255; i < len(expTable); i++ {
		expTable[i] = expTable[i-255]
	}
}

// Exp returns α^n.
func Exp(n int) byte {
	n %= 255
	if n < 0 {
		n += 255
	}
	return expTable[n]
}

// Mul multiplies two field elements.
func Mul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return expTable[logTable[a]+logTable[b]]
}

// Div divides a by a non-zero b.
func Div(a, b byte) byte {
	if b == 0 {
		panic("gf256: division by zero")
	}
	if a == 0 {
		return 0
	}
	return expTable[logTable[a]+255-logTable[b]]
}

func inverse(a byte) byte {
	return expTable[255-logTable[a]]
}

// Generator returns the coefficients of ∏(x-α^i), i=1..n, highest degree first.
func Generator(n int) []byte {
	g := []byte{1}
	for i := 1; i <= n; i++ {
		next := make([]byte, len(g)+1)
		root := Exp(i)
		for j, c := range g {
			next[j] ^= c
			next[j+1] ^= Mul(c, root)
		}
		g = next
	}
	return g
}

// Encode returns the n check symbols for data.
func Encode(data []byte, n int) []byte {
	gen := Generator(n)
	msg := make([]byte, len(data)+n)
	copy(msg, data)
	for i := range data {
		coef := msg[i]
		if coef == 0 {
			continue
		}
		for j := 1; j < len(gen); j++ {
			msg[i+j] ^= Mul(gen[j], coef)
		}
	}
	return msg[len(data):]
}

// syndromes evaluates the received block at α^1..α^n.
func syndromes(block []byte, n int) ([]byte, bool) {
	s := make([]byte, n)
	clean := true
	for j := 0; j < n; j++ {
		x := Exp(j + 1)
		var v byte
		for _, c := range block {
			v = Mul(v, x) ^ c
		}
		s[j] = v
		if v != 0 {
			clean = false
		}
	}
	return s, clean
}

// Decode corrects block (data followed by n check symbols) in place and
// returns the number of symbols corrected.
func Decode(block []byte, n int) (int, error) {
	s, clean := syndromes(block, n)
	if clean {
		return 0, nil
	}

	locator := berlekampMassey(s)
	errs := len(locator) - 1
	if 2*errs > n {
		return 0, ErrTooManyErrors
	}

	// Chien search: coefficient index i carries x^(len-1-i).
	size := len(block)
	var positions []int
	var roots []byte
	for p := 0; p < size; p++ {
		xinv := Exp(-p)
		if evalLow(locator, xinv) == 0 {
			positions = append(positions, size-1-p)
			roots = append(roots, Exp(p))
		}
	}
	if len(positions) != errs {
		return 0, ErrTooManyErrors
	}

	omega := mulLow(s, locator)
	if len(omega) > n {
		omega = omega[:n]
	}
	deriv := derivative(locator)
	for k, pos := range positions {
		xinv := inverse(roots[k])
		den := evalLow(deriv, xinv)
		if den == 0 {
			return 0, ErrTooManyErrors
		}
		block[pos] ^= Div(evalLow(omega, xinv), den)
	}

	if _, ok := syndromes(block, n); !ok {
		return 0, ErrTooManyErrors
	}
	return errs, nil
}

// berlekampMassey returns the error locator polynomial, lowest degree first.
func berlekampMassey(s []byte) []byte {
	c := []byte{1}
	b := []byte{1}
	l, m := 0, 1
	bScale := byte(1)
	for k := range s {
		d := s[k]
		for i := 1; i <= l && i < len(c); i++ {
			d ^= Mul(c[i], s[k-i])
		}
		if d == 0 {
			m++
			continue
		}
		coef := Div(d, bScale)
		next := make([]byte, max(len(c), len(b)+m))
		copy(next, c)
		for i, v := range b {
			next[i+m] ^= Mul(coef, v)
		}
		if 2*l <= k {
			b = c
			l = k + 1 - l
			bScale = d
			m = 1
		} else {
			m++
		}
		c = next
	}
	for len(c) > 1 && c[len(c)-1] == 0 {
		c = c[:len(c)-1]
	}
	if len(c)-1 != l {
		// Degree below l means the locator cannot describe the error pattern.
		out := make([]byte, l+1)
		copy(out, c)
		return out
	}
	return c
}

func evalLow(p []byte, x byte) byte {
	var v byte
	for i := len(p) - 1; i >= 0; i-- {
		v = Mul(v, x) ^ p[i]
	}
	return v
}

func mulLow(a, b []byte) []byte {
	out := make([]byte, len(a)+len(b)-1)
	for i, x := range a {
		if x == 0 {
			continue
		}
		for j, y := range b {
			out[i+j] ^= Mul(x, y)
		}
	}
	return out
}

// derivative is the formal derivative in characteristic 2: odd terms survive.
func derivative(p []byte) []byte {
	if len(p) < 2 {
		return []byte{0}
	}
	out := make([]byte, len(p)-1)
	for i := 1; i < len(p); i += 2 {
		out[i-1] = p[i]
	}
	return out
}

// Package ean13 encodes and decodes EAN-13 module patterns.
package ean13

import (
	"errors"
	"fmt"
	"strings"
)

// Modules is the width of an EAN-13 symbol without quiet zones.
const Modules = 95

// Quiet zone minimums, in modules.
const (
	QuietLeft  = 11
	QuietRight = 7
)

var lCodes = [10]string{
	"0001101", "0011001", "0010011", "0111101", "0100011",
	"0110001", "0101111", "0111011", "0110111", "0001011",
}

// parity selects L or G codes for the left half from the leading digit.
var parity = [10]string{
	"LLLLLL", "LLGLGG", "LLGGLG", "LLGGGL", "LGLLGG",
	"LGGLLG", "LGGGLL", "LGLGLG", "LGLGGL", "LGGLGL",
}

var (
	gCodes [10]string
	rCodes [10]string
)

func init() {
	for d, l := range lCodes {
		var r strings.Builder
		for _, b := range l {
			if b == '0' {
				r.WriteByte('1')
			} else {
				r.WriteByte('0')
			}
		}
		rCodes[d] = r.String()
		g := []byte(rCodes[d])
		for i, j := 0, len(g)-1; i < j; i, j = i+1, j-1 {
			g[i], g[j] = g[j], g[i]
		}
		gCodes[d] = string(g)
	}
}

var (
	ErrLength   = errors.New("ean13: need 12 or 13 digits")
	ErrDigit    = errors.New("ean13: non-digit character")
	ErrChecksum = errors.New("ean13: check digit mismatch")
	ErrGuard    = errors.New("ean13: guard pattern mismatch")
	ErrPattern  = errors.New("ean13: unrecognised digit pattern")
)

// CheckDigit computes the check digit for the first 12 digits.
func CheckDigit(digits string) (byte, error) {
	if len(digits) < 12 {
		return 0, ErrLength
	}
	sum := 0
	for i := 0; i < 12; i++ {
		c := digits[i]
		if c < '0' || c > '9' {
			return 0, ErrDigit
		}
		d := int(c - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return byte('0' + (10-sum%10)%10), nil
}

// Encode returns the 95 modules (true = bar) for a 12 or 13 digit number.
// A 12 digit number gets its check digit appended.
func Encode(number string) ([]bool, string, error) {
	if len(number) != 12 && len(number) != 13 {
		return nil, "", ErrLength
	}
	check, err := CheckDigit(number)
	if err != nil {
		return nil, "", err
	}
	if len(number) == 12 {
		number += string(check)
	} else if number[12] != check {
		return nil, "", ErrChecksum
	}

	var sb strings.Builder
	sb.WriteString("101")
	par := parity[number[0]-'0']
	for i := 1; i <= 6; i++ {
		d := number[i] - '0'
		if par[i-1] == 'G' {
			sb.WriteString(gCodes[d])
		} else {
			sb.WriteString(lCodes[d])
		}
	}
	sb.WriteString("01010")
	for i := 7; i <= 12; i++ {
		sb.WriteString(rCodes[number[i]-'0'])
	}
	sb.WriteString("101")

	modules := make([]bool, 0, Modules)
	for _, b := range sb.String() {
		modules = append(modules, b == '1')
	}
	return modules, number, nil
}

// Decode reads 95 modules. Symbols scanned right to left are detected by the
// parity of the left half and reversed.
func Decode(modules []bool) (string, error) {
	if len(modules) != Modules {
		return "", fmt.Errorf("ean13: %d modules, want %d", len(modules), Modules)
	}
	number, err := decodeForward(modules)
	if err == nil {
		return number, nil
	}
	rev := make([]bool, len(modules))
	for i, m := range modules {
		rev[len(modules)-1-i] = m
	}
	if number, rerr := decodeForward(rev); rerr == nil {
		return number, nil
	}
	return "", err
}

func decodeForward(modules []bool) (string, error) {
	bits := make([]byte, len(modules))
	for i, m := range modules {
		bits[i] = '0'
		if m {
			bits[i] = '1'
		}
	}
	s := string(bits)
	if s[:3] != "101" || s[45:50] != "01010" || s[92:] != "101" {
		return "", ErrGuard
	}

	var digits [13]byte
	var par strings.Builder
	for i := 0; i < 6; i++ {
		code := s[3+7*i : 10+7*i]
		d, kind := lookupLeft(code)
		if d < 0 {
			return "", ErrPattern
		}
		digits[i+1] = byte('0' + d)
		par.WriteByte(kind)
	}
	lead := -1
	for d, p := range parity {
		if p == par.String() {
			lead = d
			break
		}
	}
	if lead < 0 {
		return "", ErrPattern
	}
	digits[0] = byte('0' + lead)
	for i := 0; i < 6; i++ {
		code := s[50+7*i : 57+7*i]
		d := indexOf(rCodes[:], code)
		if d < 0 {
			return "", ErrPattern
		}
		digits[i+7] = byte('0' + d)
	}

	number := string(digits[:])
	check, _ := CheckDigit(number)
	if number[12] != check {
		return "", ErrChecksum
	}
	return number, nil
}

func lookupLeft(code string) (int, byte) {
	if d := indexOf(lCodes[:], code); d >= 0 {
		return d, 'L'
	}
	if d := indexOf(gCodes[:], code); d >= 0 {
		return d, 'G'
	}
	return -1, 0
}

func indexOf(codes []string, code string) int {
	for i, c := range codes {
		if c == code {
			return i
		}
	}
	return -1
}

// ElementWidths converts modules to run widths, starting with the first bar.
func ElementWidths(modules []bool) []int {
	var widths []int
	for i := 0; i < len(modules); {
		j := i
		for j < len(modules) && modules[j] == modules[i] {
			j++
		}
		widths = append(widths, j-i)
		i = j
	}
	return widths
}

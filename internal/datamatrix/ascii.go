package datamatrix

import (
	"fmt"
	"strings"
)

const (
	cwPad        = 129
	cwDigitBase  = 130
	cwC40Latch   = 230
	cwBase256    = 231
	cwFNC1       = 232
	cwStructured = 233
	cwReader     = 234
	cwUpperShift = 235
	cwMacro05    = 236
	cwMacro06    = 237
	cwANSIX12    = 238
	cwTextLatch  = 239
	cwEDIFACT    = 240
	cwECI        = 241

	macroHeader05 = "[)>\x1e05\x1d"
	macroHeader06 = "[)>\x1e06\x1d"
	macroTrailer  = "\x1e\x04"
)

// UnsupportedEncodationError reports a latch to an encodation this decoder
// does not implement.
type UnsupportedEncodationError struct {
	Codeword byte
}

func (e *UnsupportedEncodationError) Error() string {
	return fmt.Sprintf("datamatrix: unsupported encodation codeword %d", e.Codeword)
}

// encodeASCII encodes data in ASCII encodation, packing digit pairs.
func encodeASCII(data []byte) []byte {
	out := make([]byte, 0, len(data)+1)
	for i := 0; i < len(data); i++ {
		c := data[i]
		switch {
		case isDigit(c) && i+1 < len(data) && isDigit(data[i+1]):
			out = append(out, cwDigitBase+(c-'0')*10+(data[i+1]-'0'))
			i++
		case c >= 128:
			out = append(out, cwUpperShift, c-128+1)
		default:
			out = append(out, c+1)
		}
	}
	return out
}

// pad fills data up to capacity: one plain pad codeword, then randomised pads.
func pad(data []byte, capacity int) []byte {
	out := append([]byte(nil), data...)
	if len(out) < capacity {
		out = append(out, cwPad)
	}
	for len(out) < capacity {
		out = append(out, randomisedPad(len(out)+1))
	}
	return out
}

// randomisedPad is the 253-state pad for the codeword at 1-based position pos.
func randomisedPad(pos int) byte {
	v := cwPad + ((149*pos)%253 + 1)
	if v > 254 {
		v -= 254
	}
	return byte(v)
}

func decodeASCII(codewords []byte) (string, error) {
	var sb strings.Builder
	var trailer string
	upper := false
	for i := 0; i < len(codewords); i++ {
		cw := codewords[i]
		switch {
		case cw == 0:
			return "", fmt.Errorf("datamatrix: invalid codeword 0 at %d", i)
		case cw <= 128:
			c := cw - 1
			if upper {
				c += 128
				upper = false
			}
			sb.WriteByte(c)
		case cw == cwPad:
			sb.WriteString(trailer)
			return sb.String(), nil
		case cw < cwC40Latch:
			fmt.Fprintf(&sb, "%02d", cw-cwDigitBase)
		case cw == cwFNC1:
			if i > 0 {
				sb.WriteByte(0x1d)
			}
		case cw == cwUpperShift:
			upper = true
		case cw == cwMacro05 && i == 0:
			sb.WriteString(macroHeader05)
			trailer = macroTrailer
		case cw == cwMacro06 && i == 0:
			sb.WriteString(macroHeader06)
			trailer = macroTrailer
		case cw == cwReader:
		default:
			return "", &UnsupportedEncodationError{Codeword: cw}
		}
	}
	sb.WriteString(trailer)
	return sb.String(), nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

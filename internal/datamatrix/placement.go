package datamatrix

import "sync"

// bitPosition is a module of the mapping matrix carrying one codeword bit.
type bitPosition struct {
	row, col int
}

// layout is the codeword placement for one mapping matrix size.
type layout struct {
	nrow, ncol int
	// bits[k][b] is where bit b (0 = most significant) of codeword k sits.
	bits [][8]bitPosition
	// dark lists the filler modules that are always dark.
	dark []bitPosition
}

var (
	layoutsMu sync.Mutex
	layouts   = map[int]*layout{}
)

// layoutFor returns the cached placement for an nrow×ncol mapping matrix.
func layoutFor(nrow, ncol int) *layout {
	key := nrow<<16 | ncol
	layoutsMu.Lock()
	defer layoutsMu.Unlock()
	if l, ok := layouts[key]; ok {
		return l
	}
	l := place(nrow, ncol)
	layouts[key] = l
	return l
}

// place runs the ECC200 diagonal placement. Each cell records 10*codeword+bit
// (codewords and bits 1-based); 1 marks a dark filler module.
func place(nrow, ncol int) *layout {
	cells := make([]int, nrow*ncol)

	module := func(row, col, chr, bit int) {
		if row < 0 {
			row += nrow
			col += 4 - ((nrow + 4) % 8)
		}
		if col < 0 {
			col += ncol
			row += 4 - ((ncol + 4) % 8)
		}
		cells[row*ncol+col] = 10*chr + bit
	}
	utah := func(row, col, chr int) {
		module(row-2, col-2, chr, 1)
		module(row-2, col-1, chr, 2)
		module(row-1, col-2, chr, 3)
		module(row-1, col-1, chr, 4)
		module(row-1, col, chr, 5)
		module(row, col-2, chr, 6)
		module(row, col-1, chr, 7)
		module(row, col, chr, 8)
	}
	corner := func(chr int, pos [8][2]int) {
		for i, p := range pos {
			module(p[0], p[1], chr, i+1)
		}
	}

	chr, row, col := 1, 4, 0
	for {
		if row == nrow && col == 0 {
			corner(chr, [8][2]int{{nrow - 1, 0}, {nrow - 1, 1}, {nrow - 1, 2}, {0, ncol - 2}, {0, ncol - 1}, {1, ncol - 1}, {2, ncol - 1}, {3, ncol - 1}})
			chr++
		}
		if row == nrow-2 && col == 0 && ncol%4 != 0 {
			corner(chr, [8][2]int{{nrow - 3, 0}, {nrow - 2, 0}, {nrow - 1, 0}, {0, ncol - 4}, {0, ncol - 3}, {0, ncol - 2}, {0, ncol - 1}, {1, ncol - 1}})
			chr++
		}
		if row == nrow-2 && col == 0 && ncol%8 == 4 {
			corner(chr, [8][2]int{{nrow - 3, 0}, {nrow - 2, 0}, {nrow - 1, 0}, {0, ncol - 2}, {0, ncol - 1}, {1, ncol - 1}, {2, ncol - 1}, {3, ncol - 1}})
			chr++
		}
		if row == nrow+4 && col == 2 && ncol%8 == 0 {
			corner(chr, [8][2]int{{nrow - 1, 0}, {nrow - 1, ncol - 1}, {0, ncol - 3}, {0, ncol - 2}, {0, ncol - 1}, {1, ncol - 3}, {1, ncol - 2}, {1, ncol - 1}})
			chr++
		}
		// Sweep up and to the right.
		for {
			if row < nrow && col >= 0 && cells[row*ncol+col] == 0 {
				utah(row, col, chr)
				chr++
			}
			row -= 2
			col += 2
			if row < 0 || col >= ncol {
				break
			}
		}
		row++
		col += 3
		// Sweep down and to the left.
		for {
			if row >= 0 && col < ncol && cells[row*ncol+col] == 0 {
				utah(row, col, chr)
				chr++
			}
			row += 2
			col -= 2
			if row >= nrow || col < 0 {
				break
			}
		}
		row += 3
		col++
		if row >= nrow && col >= ncol {
			break
		}
	}
	if cells[nrow*ncol-1] == 0 {
		cells[nrow*ncol-1] = 1
		cells[nrow*ncol-ncol-2] = 1
	}

	l := &layout{nrow: nrow, ncol: ncol, bits: make([][8]bitPosition, chr-1)}
	for i, v := range cells {
		p := bitPosition{row: i / ncol, col: i % ncol}
		switch {
		case v == 1:
			l.dark = append(l.dark, p)
		case v >= 10:
			l.bits[v/10-1][v%10-1] = p
		}
	}
	return l
}

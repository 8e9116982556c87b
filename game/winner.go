package game

// WinResult describes a completed line: the symbol that owns it and the
// flat cell indices of the line in scan order.
type WinResult struct {
	Winner Cell
	Line   []int
}

// Evaluate scans the board for a full line of one symbol. Rows are
// checked first (left to right), then columns (top to bottom), then the
// main diagonal, then the anti-diagonal; the first complete line wins.
// A legal game has at most one winning line, so the order only matters
// for malformed boards. Returns nil when no line is complete; a full
// board with no line is the caller's draw case.
func Evaluate(b *Board) *WinResult {
	n := b.Size()

	for r := 0; r < n; r++ {
		if res := checkLine(b, r*n, 1, n); res != nil {
			return res
		}
	}

	for c := 0; c < n; c++ {
		if res := checkLine(b, c, n, n); res != nil {
			return res
		}
	}

	if res := checkLine(b, 0, n+1, n); res != nil {
		return res
	}

	return checkLine(b, n-1, n-1, n)
}

// checkLine walks n cells from a flat start index with a fixed stride
// and reports a win if all of them hold the same symbol.
func checkLine(b *Board, start, stride, n int) *WinResult {
	first := b.at(start)
	if first == Empty {
		return nil
	}
	line := make([]int, 0, n)
	line = append(line, start)
	for i := 1; i < n; i++ {
		idx := start + i*stride
		if b.at(idx) != first {
			return nil
		}
		line = append(line, idx)
	}
	return &WinResult{Winner: first, Line: line}
}

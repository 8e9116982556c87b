package game

// Cell is the content of a single board cell: empty or one of the two
// player symbols. The string values are the wire representation.
type Cell string

const (
	Empty   Cell = ""
	SymbolX Cell = "X"
	SymbolO Cell = "O"
)

// Allowed board dimensions.
const (
	MinBoardSize = 3
	MaxBoardSize = 7
)

// ValidSize reports whether n is an allowed board dimension.
func ValidSize(n int) bool {
	return n >= MinBoardSize && n <= MaxBoardSize
}

// Board is a size×size grid stored flat, row major. The flat index of
// (row, col) is row*size + col, which is also the index scheme used for
// winning lines on the wire.
type Board struct {
	size  int
	cells []Cell
}

// NewBoard returns an empty size×size board.
func NewBoard(size int) *Board {
	return &Board{
		size:  size,
		cells: make([]Cell, size*size),
	}
}

// Size returns the board dimension.
func (b *Board) Size() int {
	return b.size
}

// InBounds reports whether (row, col) addresses a cell.
func (b *Board) InBounds(row, col int) bool {
	return row >= 0 && row < b.size && col >= 0 && col < b.size
}

// At returns the cell at (row, col). Caller must check bounds first.
func (b *Board) At(row, col int) Cell {
	return b.cells[row*b.size+col]
}

func (b *Board) set(row, col int, v Cell) {
	b.cells[row*b.size+col] = v
}

// at returns the cell at a flat index.
func (b *Board) at(idx int) Cell {
	return b.cells[idx]
}

// Full reports whether every cell holds a symbol.
func (b *Board) Full() bool {
	for _, c := range b.cells {
		if c == Empty {
			return false
		}
	}
	return true
}

// Rows returns a copy of the grid as rows of cells.
func (b *Board) Rows() [][]Cell {
	rows := make([][]Cell, b.size)
	for r := 0; r < b.size; r++ {
		row := make([]Cell, b.size)
		copy(row, b.cells[r*b.size:(r+1)*b.size])
		rows[r] = row
	}
	return rows
}

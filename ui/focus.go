package ui

// FocusGrid tracks the focused cell of a rows x cols grid of inputs. Rows
// may have different lengths; moving onto a shorter row clamps the column.
type FocusGrid struct {
	widths []int
	row    int
	col    int
}

// NewFocusGrid builds a grid whose row i has widths[i] cells.
func NewFocusGrid(widths ...int) *FocusGrid {
	g := &FocusGrid{}
	g.Resize(widths...)
	return g
}

// Resize changes the shape, keeping the focus inside it.
func (g *FocusGrid) Resize(widths ...int) {
	g.widths = append(g.widths[:0], widths...)
	g.clamp()
}

func (g *FocusGrid) Pos() (row, col int) { return g.row, g.col }

func (g *FocusGrid) Rows() int { return len(g.widths) }

func (g *FocusGrid) Width(row int) int {
	if row < 0 || row >= len(g.widths) {
		return 0
	}
	return g.widths[row]
}

func (g *FocusGrid) Focused(row, col int) bool { return g.row == row && g.col == col }

// Set moves to (row, col), clamped.
func (g *FocusGrid) Set(row, col int) {
	g.row, g.col = row, col
	g.clamp()
}

// Next moves right, wrapping to the first cell of the following non-empty
// row, and from the last cell back to the first.
func (g *FocusGrid) Next() {
	if g.empty() {
		return
	}
	if g.col+1 < g.widths[g.row] {
		g.col++
		return
	}
	for i := 1; i <= len(g.widths); i++ {
		r := (g.row + i) % len(g.widths)
		if g.widths[r] > 0 {
			g.row, g.col = r, 0
			return
		}
	}
}

// Prev is the reverse of Next.
func (g *FocusGrid) Prev() {
	if g.empty() {
		return
	}
	if g.col > 0 {
		g.col--
		return
	}
	for i := 1; i <= len(g.widths); i++ {
		r := (g.row - i + len(g.widths)) % len(g.widths)
		if g.widths[r] > 0 {
			g.row, g.col = r, g.widths[r]-1
			return
		}
	}
}

func (g *FocusGrid) Up()    { g.moveRow(-1) }
func (g *FocusGrid) Down()  { g.moveRow(1) }
func (g *FocusGrid) Left()  { g.Set(g.row, g.col-1) }
func (g *FocusGrid) Right() { g.Set(g.row, g.col+1) }

// moveRow skips empty rows and stops at the edges.
func (g *FocusGrid) moveRow(d int) {
	for r := g.row + d; r >= 0 && r < len(g.widths); r += d {
		if g.widths[r] > 0 {
			g.Set(r, g.col)
			return
		}
	}
}

func (g *FocusGrid) empty() bool {
	for _, w := range g.widths {
		if w > 0 {
			return false
		}
	}
	return true
}

func (g *FocusGrid) clamp() {
	if len(g.widths) == 0 {
		g.row, g.col = 0, 0
		return
	}
	if g.row < 0 {
		g.row = 0
	}
	if g.row >= len(g.widths) {
		g.row = len(g.widths) - 1
	}
	if g.col >= g.widths[g.row] {
		g.col = g.widths[g.row] - 1
	}
	if g.col < 0 {
		g.col = 0
	}
}

package gameoflife

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// Renderer draws generations to a terminal. Pair it with WithRenderer.
type Renderer struct {
	out    *termenv.Output
	width  int
	height int
	cell   string
}

// NewRenderer builds a terminal renderer for a width x height board.
func NewRenderer(w io.Writer, width, height int) *Renderer {
	out := termenv.NewOutput(w)
	cell := out.String("██").Foreground(out.Color("10")).String()
	return &Renderer{out: out, width: width, height: height, cell: cell}
}

// Render draws one settled generation.
func (r *Renderer) Render(grid []bool, gen uint64) {
	var sb strings.Builder
	for y := 0; y < r.height; y++ {
		for x := 0; x < r.width; x++ {
			if grid[y*r.width+x] {
				sb.WriteString(r.cell)
			} else {
				sb.WriteString("··")
			}
		}
		sb.WriteByte('\n')
	}
	r.out.ClearScreen()
	fmt.Fprintf(r.out, "generation %d\n%s", gen, sb.String())
}

// Package render draws normalized layouts as ASCII maps.
package render

import (
	"strings"

	"github.com/gookit/color"

	"github.com/lawnchairsociety/roomgen/internal/layout"
)

const glyphs = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Styles used when color output is enabled
var (
	ColorWall   = color.Style{color.FgGray}
	ColorDoor   = color.Style{color.FgYellow, color.OpBold}
	ColorCorner = color.Style{color.FgGray}
	ColorRoom   = color.Style{color.FgCyan}
	ColorLegend = color.Style{color.FgGray, color.OpBold}
)

// Options controls the drawing
type Options struct {
	Color  bool
	Legend bool
}

type cell struct {
	r     rune
	style color.Style
}

// ASCII draws every block as a 2x2 tile: the room glyph at the center, one
// character per side ('-' or '|' for walls, '+' for doors, space for open)
// and '#' at corners. The smallest occupied X and Y map to the top-left tile.
func ASCII(rooms []layout.RoomData, opts Options) string {
	first := true
	var minX, minY, maxX, maxY int
	for _, room := range rooms {
		for _, b := range room.Blocks {
			if first {
				minX, minY, maxX, maxY = b.X, b.Y, b.X, b.Y
				first = false
				continue
			}
			minX, maxX = min(minX, b.X), max(maxX, b.X)
			minY, maxY = min(minY, b.Y), max(maxY, b.Y)
		}
	}
	if first {
		return ""
	}

	width, height := 2*(maxX-minX)+3, 2*(maxY-minY)+3
	canvas := make([][]cell, height)
	for row := range canvas {
		canvas[row] = make([]cell, width)
		for col := range canvas[row] {
			canvas[row][col] = cell{r: ' '}
		}
	}

	for i, room := range rooms {
		glyph := rune(glyphs[i%len(glyphs)])
		for _, b := range room.Blocks {
			row, col := 2*(b.Y-minY)+1, 2*(b.X-minX)+1
			canvas[row][col] = cell{glyph, ColorRoom}
			for _, d := range [][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}} {
				canvas[row+d[0]][col+d[1]] = cell{'#', ColorCorner}
			}
			canvas[row-1][col] = side(b.UpSide, '-')
			canvas[row+1][col] = side(b.DownSide, '-')
			canvas[row][col-1] = side(b.LeftSide, '|')
			canvas[row][col+1] = side(b.RightSide, '|')
		}
	}

	var out strings.Builder
	for _, line := range canvas {
		var text strings.Builder
		for _, c := range line {
			if opts.Color && c.r != ' ' {
				text.WriteString(c.style.Sprint(string(c.r)))
			} else {
				text.WriteRune(c.r)
			}
		}
		out.WriteString(strings.TrimRight(text.String(), " "))
		out.WriteString("\n")
	}

	if opts.Legend {
		legend := "# corner  -| wall  + door  a-z room"
		if opts.Color {
			legend = ColorLegend.Sprint(legend)
		}
		out.WriteString(legend + "\n")
	}
	return out.String()
}

func side(state layout.SideState, wall rune) cell {
	switch state {
	case layout.Door:
		return cell{'+', ColorDoor}
	case layout.Open:
		return cell{' ', nil}
	default:
		return cell{wall, ColorWall}
	}
}

package charts

import (
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/types"
)

var (
	negativeColor = drawing.ColorFromHex("3b4cc0")
	neutralColor  = drawing.ColorFromHex("f7f7f7")
	positiveColor = drawing.ColorFromHex("b40426")
	missingColor  = drawing.ColorFromHex("bdbdbd")
)

// HeatmapView is a correlation matrix laid out for an HTML table.
type HeatmapView struct {
	Columns []string
	Rows    []HeatmapRow
}

type HeatmapRow struct {
	Label string
	Cells []HeatmapCell
}

type HeatmapCell struct {
	Text       string
	Title      string
	Background string
	Foreground string
}

// Heatmap colours each coefficient on a blue-white-red scale over [-1, 1].
func Heatmap(m types.Matrix) HeatmapView {
	view := HeatmapView{Columns: m.Columns, Rows: make([]HeatmapRow, len(m.Values))}
	for i, values := range m.Values {
		row := HeatmapRow{Label: m.Columns[i], Cells: make([]HeatmapCell, len(values))}
		for j, v := range values {
			bg := CellColor(v)
			cell := HeatmapCell{
				Background: hex(bg),
				Foreground: hex(textColor(bg)),
				Title:      fmt.Sprintf("%s / %s", m.Columns[i], m.Columns[j]),
			}
			if math.IsNaN(v) {
				cell.Text = "n/a"
			} else {
				cell.Text = fmt.Sprintf("%.2f", v)
			}
			row.Cells[j] = cell
		}
		view.Rows[i] = row
	}
	return view
}

// CellColor maps a coefficient to the diverging scale. NaN is grey.
func CellColor(v float64) drawing.Color {
	if math.IsNaN(v) {
		return missingColor
	}
	v = math.Max(-1, math.Min(1, v))
	if v < 0 {
		return lerp(neutralColor, negativeColor, -v)
	}
	return lerp(neutralColor, positiveColor, v)
}

func lerp(a, b drawing.Color, t float64) drawing.Color {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return drawing.Color{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

// textColor picks black or white for contrast against bg.
func textColor(bg drawing.Color) drawing.Color {
	luma := 0.299*float64(bg.R) + 0.587*float64(bg.G) + 0.114*float64(bg.B)
	if luma < 140 {
		return drawing.ColorWhite
	}
	return drawing.ColorBlack
}

func hex(c drawing.Color) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Package render draws a design result as PNG images.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/wiless/arraysim"
)

// FloorStep rounds the lower diagram limit down to a multiple of this many dB.
const FloorStep = 25.0

// DefaultFloorDb is the lower diagram limit unless a null goes deeper.
const DefaultFloorDb = -50.0

var (
	Width  = vg.Points(800)
	Height = vg.Points(450)
)

var (
	adaptiveColor  = color.RGBA{B: 200, A: 255}
	baselineColor  = color.RGBA{R: 120, G: 120, B: 120, A: 255}
	interferenceCl = color.RGBA{R: 220, A: 255}
)

// ErrNoClutter is returned by ClutterPNG and ScatterPNG for results without beamformer
// diagnostics.
var ErrNoClutter = errors.New("render: result has no clutter traces")

// Floor returns the lower limit of the dB axis: the deepest interference
// null rounded down to a multiple of FloorStep, never above DefaultFloorDb.
func Floor(res *arraysim.Result) float64 {
	floor := DefaultFloorDb
	for _, ind := range res.InterferenceIndex {
		v := FloorStep * math.Floor(res.DiagramDb[ind]/FloorStep)
		if v < floor {
			floor = v
		}
	}
	return floor
}

// DiagramPNG plots the diagram in dB against angle: the design solid, the
// baseline dashed and the interference directions marked.
func DiagramPNG(res *arraysim.Result) ([]byte, error) {
	if res == nil || len(res.DiagramDb) == 0 {
		return nil, fmt.Errorf("render: empty diagram")
	}
	floor := Floor(res)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s, N=%d", res.Kind, res.Config.Elements)
	p.X.Label.Text = "Angle, deg"
	p.Y.Label.Text = "Gain, dB"
	p.Add(plotter.NewGrid())

	if res.BaselineDb != nil {
		base, err := plotter.NewLine(xys(res.ThetaDeg, res.BaselineDb, floor))
		if err != nil {
			return nil, fmt.Errorf("render: baseline: %v", err)
		}
		base.Color = baselineColor
		base.LineStyle.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
		p.Add(base)
		p.Legend.Add("antenna", base)
	}

	line, err := plotter.NewLine(xys(res.ThetaDeg, res.DiagramDb, floor))
	if err != nil {
		return nil, fmt.Errorf("render: diagram: %v", err)
	}
	line.Color = adaptiveColor
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add(string(res.Kind), line)

	if len(res.InterferenceIndex) > 0 {
		pts := make(plotter.XYs, len(res.InterferenceIndex))
		for i, ind := range res.InterferenceIndex {
			pts[i].X = res.ThetaDeg[ind]
			pts[i].Y = math.Max(res.DiagramDb[ind], floor)
		}
		marks, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("render: interference: %v", err)
		}
		marks.GlyphStyle.Color = interferenceCl
		marks.GlyphStyle.Shape = draw.CrossGlyph{}
		marks.GlyphStyle.Radius = vg.Points(4)
		p.Add(marks)
		p.Legend.Add("interference", marks)
	}

	p.X.Min, p.X.Max = -90, 90
	p.Y.Min, p.Y.Max = floor, 0
	p.Legend.Top = true

	w, err := p.WriterTo(Width, Height, "png")
	if err != nil {
		return nil, fmt.Errorf("render: %v", err)
	}
	buf := new(bytes.Buffer)
	if _, err := w.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("render: %v", err)
	}
	return buf.Bytes(), nil
}

// ClutterPNG plots the real part of every interference trace against the
// phase axis, two plots per row.
func ClutterPNG(res *arraysim.Result) ([]byte, error) {
	if res == nil || res.Clutter == nil || len(res.Clutter.Traces) == 0 {
		return nil, ErrNoClutter
	}
	cl := res.Clutter
	const cols = 2
	rows := (len(cl.Traces) + cols - 1) / cols

	plots := make([][]*plot.Plot, rows)
	for j := range plots {
		plots[j] = make([]*plot.Plot, cols)
	}
	for i, trace := range cl.Traces {
		p := plot.New()
		p.Title.Text = fmt.Sprintf("%.1f deg, %s", res.ThetaDeg[res.InterferenceIndex[i]], cl.Waveforms[i])
		p.X.Label.Text = "Phase, rad"
		pts := make(plotter.XYs, len(trace))
		for s, v := range trace {
			pts[s].X = cl.Phase[s]
			pts[s].Y = real(v)
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("render: trace %d: %v", i, err)
		}
		line.Color = adaptiveColor
		p.Add(plotter.NewGrid(), line)
		plots[i/cols][i%cols] = p
	}

	return tiled(plots, Width, vg.Length(rows)*Height/2)
}

// MaxScatter bounds the elements drawn by ScatterPNG.
const MaxScatter = 9

// ScatterElements returns the element range [lo,hi) drawn by ScatterPNG:
// at most MaxScatter elements centered on the middle element n/2.
func ScatterElements(n int) (lo, hi int) {
	lo = max(0, n/2-MaxScatter/2)
	hi = min(n, lo+MaxScatter)
	return lo, hi
}

// ScatterPNG draws the scatter matrix of the real received samples of the
// elements around the array centre, with histograms on the diagonal.
func ScatterPNG(res *arraysim.Result) ([]byte, error) {
	if res == nil || res.Clutter == nil || res.Clutter.Samples == nil {
		return nil, ErrNoClutter
	}
	x := res.Clutter.Samples
	samples, n := x.Dims()
	lo, hi := ScatterElements(n)
	k := hi - lo

	values := make([]plotter.Values, k)
	for i := range values {
		values[i] = make(plotter.Values, samples)
		for s := range values[i] {
			values[i][s] = real(x.At(s, lo+i))
		}
	}

	plots := make([][]*plot.Plot, k)
	for row := range plots {
		plots[row] = make([]*plot.Plot, k)
		for col := range plots[row] {
			p := plot.New()
			if row == k-1 {
				p.X.Label.Text = strconv.Itoa(lo + col - n/2)
			}
			if col == 0 {
				p.Y.Label.Text = strconv.Itoa(lo + row - n/2)
			}
			if row == col {
				h, err := plotter.NewHist(values[col], 16)
				if err != nil {
					return nil, fmt.Errorf("render: element %d: %v", lo+col, err)
				}
				h.FillColor = baselineColor
				p.Add(h)
			} else {
				pts := make(plotter.XYs, samples)
				for s := range pts {
					pts[s].X = values[col][s]
					pts[s].Y = values[row][s]
				}
				sc, err := plotter.NewScatter(pts)
				if err != nil {
					return nil, fmt.Errorf("render: elements %d/%d: %v", lo+col, lo+row, err)
				}
				sc.GlyphStyle.Color = adaptiveColor
				sc.GlyphStyle.Radius = vg.Points(1)
				p.Add(plotter.NewGrid(), sc)
			}
			plots[row][col] = p
		}
	}
	return tiled(plots, Width, Width)
}

// tiled draws plots on a rows x cols grid and encodes it as PNG.
func tiled(plots [][]*plot.Plot, w, h vg.Length) ([]byte, error) {
	img := vgimg.New(w, h)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: len(plots),
		Cols: len(plots[0]),
		PadX: vg.Millimeter,
		PadY: vg.Millimeter,
	}
	canvases := plot.Align(plots, tiles, dc)
	for j := range plots {
		for i, p := range plots[j] {
			if p != nil {
				p.Draw(canvases[j][i])
			}
		}
	}

	buf := new(bytes.Buffer)
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("render: %v", err)
	}
	return buf.Bytes(), nil
}

// xys pairs angles with dB values clipped at floor.
func xys(theta, db []float64, floor float64) plotter.XYs {
	pts := make(plotter.XYs, len(db))
	for i := range db {
		pts[i].X = theta[i]
		pts[i].Y = math.Max(db[i], floor)
	}
	return pts
}

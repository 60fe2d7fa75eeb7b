package report

import (
	"bytes"
	"context"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var chainBreakColor = color.RGBA{R: 0xE0, A: 0xFF}

// PlotInput carries everything the results figure needs. PAE may be nil,
// in which case only the confidence panel is drawn.
type PlotInput struct {
	PLDDT           []float64
	PAE             [][]float64
	MaxPAE          float64
	ChainBoundaries []int
}

// WritePlot renders the per-residue confidence line and, when available,
// the aligned-error heatmap with chain boundaries marked, side by side in
// one PNG.
func (r *Reporter) WritePlot(ctx context.Context, in PlotInput) error {
	panels := []*plot.Plot{}

	confidence, err := plddtPlot(in.PLDDT)
	if err != nil {
		return fmt.Errorf("confidence panel: %w", err)
	}
	panels = append(panels, confidence)

	if len(in.PAE) > 0 {
		pae, err := paePlot(in.PAE, in.MaxPAE, in.ChainBoundaries)
		if err != nil {
			return fmt.Errorf("aligned-error panel: %w", err)
		}
		panels = append(panels, pae)
	}

	img := vgimg.New(vg.Length(len(panels))*6*vg.Inch, 4.5*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{Rows: 1, Cols: len(panels), PadX: vg.Millimeter * 4}
	for i, p := range panels {
		p.Draw(tiles.At(dc, i, 0))
	}

	var buf bytes.Buffer
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(&buf); err != nil {
		return fmt.Errorf("encode plot: %w", err)
	}
	if err := r.store.Write(ctx, PlotName, buf.Bytes()); err != nil {
		return fmt.Errorf("write plot: %w", err)
	}
	r.log.Info("wrote plot", "uri", r.store.URI(PlotName), "panels", len(panels))
	return nil
}

func plddtPlot(plddt []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Predicted LDDT"
	p.X.Label.Text = "Residue"
	p.Y.Label.Text = "pLDDT"
	p.Y.Min, p.Y.Max = 0, 100

	xys := make(plotter.XYs, len(plddt))
	for i, v := range plddt {
		xys[i].X = float64(i)
		xys[i].Y = v
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, err
	}
	p.Add(line)
	return p, nil
}

func paePlot(pae [][]float64, maxPAE float64, boundaries []int) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Predicted Aligned Error"
	p.X.Label.Text = "Scored residue"
	p.Y.Label.Text = "Aligned residue"

	heat := plotter.NewHeatMap(&paeGrid{values: pae}, palette.Heat(96, 1))
	heat.Min, heat.Max = 0, maxPAE
	p.Add(heat)

	n := float64(len(pae))
	for _, b := range boundaries {
		for _, pts := range []plotter.XYs{
			{{X: 0, Y: float64(b)}, {X: n, Y: float64(b)}},
			{{X: float64(b), Y: 0}, {X: float64(b), Y: n}},
		} {
			line, err := plotter.NewLine(pts)
			if err != nil {
				return nil, err
			}
			line.Color = chainBreakColor
			p.Add(line)
		}
	}
	return p, nil
}

// paeGrid adapts the aligned-error matrix to the heatmap grid interface.
type paeGrid struct {
	values [][]float64
}

func (g *paeGrid) Dims() (int, int) {
	if len(g.values) == 0 {
		return 0, 0
	}
	return len(g.values[0]), len(g.values)
}

func (g *paeGrid) Z(c, r int) float64 { return g.values[r][c] }
func (g *paeGrid) X(c int) float64    { return float64(c) }
func (g *paeGrid) Y(r int) float64    { return float64(r) }

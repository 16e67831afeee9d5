package report

import (
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/ordboost/pkg/errors"
)

var classColors = []color.RGBA{
	{R: 31, G: 119, B: 180, A: 255},
	{R: 255, G: 127, B: 14, A: 255},
	{R: 44, G: 160, B: 44, A: 255},
	{R: 214, G: 39, B: 40, A: 255},
	{R: 148, G: 103, B: 189, A: 255},
	{R: 140, G: 86, B: 75, A: 255},
}

// PredictionPlot builds a scatter of raw predictions by row index, one series
// per actual class, with a dashed horizontal line at every class code. NaN
// predictions are left out.
func PredictionPlot(raw []float64, actual []int, classes []string) (*plot.Plot, error) {
	if len(raw) != len(actual) {
		return nil, errors.NewDimensionError("PredictionPlot", len(actual), len(raw), 0)
	}
	if len(classes) == 0 {
		return nil, errors.NewValidationError("classes", "at least one class is required", classes)
	}

	p := plot.New()
	p.Title.Text = "Raw predictions"
	p.X.Label.Text = "Row"
	p.Y.Label.Text = "Prediction"

	for code, name := range classes {
		c := classColors[code%len(classColors)]

		pts := make(plotter.XYs, 0)
		for i, a := range actual {
			if a == code && !math.IsNaN(raw[i]) {
				pts = append(pts, plotter.XY{X: float64(i), Y: raw[i]})
			}
		}
		if len(pts) > 0 {
			s, err := plotter.NewScatter(pts)
			if err != nil {
				return nil, errors.Wrapf(err, "scatter for class %s", name)
			}
			s.Color = c
			s.Shape = draw.CircleGlyph{}
			s.Radius = vg.Points(2)
			p.Add(s)
			p.Legend.Add(name, s)
		}

		l, err := plotter.NewLine(plotter.XYs{
			{X: 0, Y: float64(code)},
			{X: float64(max(len(raw)-1, 1)), Y: float64(code)},
		})
		if err != nil {
			return nil, errors.Wrapf(err, "class line %d", code)
		}
		l.Color = c
		l.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(l)
	}
	return p, nil
}

// PlotPredictions renders PredictionPlot to a PNG file at path.
func PlotPredictions(path string, raw []float64, actual []int, classes []string) error {
	p, err := PredictionPlot(raw, actual, classes)
	if err != nil {
		return err
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save plot %s", path)
	}
	return nil
}

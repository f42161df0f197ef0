// Package parsertest writes synthetic input files in the layout produced by
// the upstream pipeline, for tests of the loaders and the report.
package parsertest

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/sbinet/npyio"

	"github.com/user/ec_plotter_go/internal/parser"
)

// Fixture describes one threshold's worth of synthetic inputs. X and Y are
// row-major [scenarios x models].
type Fixture struct {
	Ensemble   string
	Threshold  string
	Scenarios  int
	Models     int
	X, Y       []float64
	Obs        []float64
	XFit, YFit []float64
	CombinedX  []float64
	CombinedY  []float64
	XObs       float64
	DXObs      float64
}

// NewFixture returns a well-formed fixture with a linear x/y relationship.
func NewFixture(threshold string, scenarios, models int) Fixture {
	n := scenarios * models
	f := Fixture{
		Ensemble:  "cmip5",
		Threshold: threshold,
		Scenarios: scenarios,
		Models:    models,
		X:         make([]float64, n),
		Y:         make([]float64, n),
		Obs:       make([]float64, n),
		XObs:      -310,
		DXObs:     25,
	}
	for i := 0; i < n; i++ {
		x := -600 + 20*float64(i)
		f.X[i] = x
		f.Y[i] = 0.9*x - 15 + 8*math.Sin(float64(i))
		f.Obs[i] = -320 + 4*float64(i%5)
	}
	f.CombinedX = append([]float64(nil), f.X...)
	f.CombinedY = append([]float64(nil), f.Y...)
	for i := 0; i <= 10; i++ {
		x := -750 + 75*float64(i)
		f.XFit = append(f.XFit, x)
		f.YFit = append(f.YFit, 0.9*x-15)
	}
	return f
}

// Write stores the fixture under dir and returns the file set.
func (f Fixture) Write(t testing.TB, dir string) parser.ThresholdFiles {
	t.Helper()
	files := parser.NewThresholdFiles(dir, f.Ensemble, f.Threshold)
	writeRows(t, files.X, f.X, f.Models)
	writeRows(t, files.Y, f.Y, f.Models)
	writeRows(t, files.ObsConstraint, f.Obs, 1)
	writeRows(t, files.XFit, f.XFit, 1)
	writeRows(t, files.YFit, f.YFit, 1)
	writeRows(t, files.CombinedX, f.CombinedX, 1)
	writeRows(t, files.CombinedY, f.CombinedY, 1)
	writeRows(t, files.XObs, []float64{f.XObs}, 1)
	writeRows(t, files.DXObs, []float64{f.DXObs}, 1)
	return files
}

// WriteCSV writes values as rows of perRow comma separated numbers, the
// way numpy.savetxt does.
func WriteCSV(t testing.TB, path string, values []float64, perRow int) {
	t.Helper()
	writeRows(t, path, values, perRow)
}

func writeRows(t testing.TB, path string, values []float64, perRow int) {
	t.Helper()
	var sb strings.Builder
	for i, v := range values {
		if i > 0 {
			if i%perRow == 0 {
				sb.WriteByte('\n')
			} else {
				sb.WriteByte(',')
			}
		}
		if math.IsNaN(v) {
			sb.WriteString("nan")
		} else {
			sb.WriteString(strconv.FormatFloat(v, 'e', 18, 64))
		}
	}
	sb.WriteByte('\n')
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteObservations stores a small set of observational .npy inputs in dir.
func WriteObservations(t testing.TB, dir string, cells int) {
	t.Helper()
	temp := make([]float64, cells)
	rh := make([]float64, cells)
	mask := make([]bool, cells)
	for i := 0; i < cells; i++ {
		temp[i] = 270 + float64(i%30)
		rh[i] = 0.2 + 0.01*float64(i%50)
		mask[i] = i%7 == 0
	}
	writeNpy(t, filepath.Join(dir, parser.PolyRelationshipFile), []float64{0.002, -0.5, 3})
	writeNpy(t, filepath.Join(dir, parser.TemperatureDataFile), temp)
	writeNpy(t, filepath.Join(dir, parser.TemperatureMaskFile), mask)
	writeNpy(t, filepath.Join(dir, parser.RespirationDataFile), rh)
	writeNpy(t, filepath.Join(dir, parser.RespirationMaskFile), mask)
}

// WriteNpy stores val with npyio.Write.
func WriteNpy(t testing.TB, path string, val any) {
	t.Helper()
	writeNpy(t, path, val)
}

func writeNpy(t testing.TB, path string, val any) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := npyio.Write(f, val); err != nil {
		t.Fatalf("npy write %s: %v", path, err)
	}
}

package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ThresholdFiles names the per-threshold inputs produced by the upstream
// pipeline for one ensemble.
type ThresholdFiles struct {
	X, Y, ObsConstraint  string
	XFit, YFit           string
	CombinedX, CombinedY string
	XObs, DXObs          string
}

// NewThresholdFiles returns the file paths for threshold t in dir. t is the
// formatted threshold, e.g. "2" or "0.5".
func NewThresholdFiles(dir, ensemble, t string) ThresholdFiles {
	p := func(name string) string { return filepath.Join(dir, name) }
	return ThresholdFiles{
		X:             p(fmt.Sprintf("x_%s_degree_warming_%s.csv", t, ensemble)),
		Y:             p(fmt.Sprintf("y_%s_degree_warming_%s.csv", t, ensemble)),
		ObsConstraint: p(fmt.Sprintf("obs_constraint_%s_degree_warming_%s.csv", t, ensemble)),
		XFit:          p(fmt.Sprintf("EC_xfit_%sdegreewarming_%s.csv", t, ensemble)),
		YFit:          p(fmt.Sprintf("EC_yfit_%sdegreewarming_%s.csv", t, ensemble)),
		CombinedX:     p(fmt.Sprintf("combined_x_%s_degree_warming_%s.csv", t, ensemble)),
		CombinedY:     p(fmt.Sprintf("combined_y_%s_degree_warming_%s.csv", t, ensemble)),
		XObs:          p(fmt.Sprintf("x_obs_%s_degree_warming_%s.csv", t, ensemble)),
		DXObs:         p(fmt.Sprintf("dx_obs_%s_degree_warming_%s.csv", t, ensemble)),
	}
}

// ReadNumericCSV reads a comma delimited file of numbers. Blank lines and
// lines starting with '#' are skipped; "nan" and "inf" are accepted. All rows
// must have the same number of fields.
func ReadNumericCSV(path string) ([][]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	rows, err := parseNumericCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

func parseNumericCSV(r io.Reader) ([][]float64, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.Comment = '#'
	reader.FieldsPerRecord = -1 // checked below so the error names the row

	var rows [][]float64
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV data: %w", err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		row := make([]float64, len(record))
		for i, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d, column %d: invalid number %q", line, i+1, field)
			}
			row[i] = v
		}
		if len(rows) > 0 && len(row) != len(rows[0]) {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", line, len(row), len(rows[0]))
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, errors.New("no numeric data")
	}
	return rows, nil
}

// ReadVector reads a CSV file as a flat vector, in row-major order.
func ReadVector(path string) ([]float64, error) {
	rows, err := ReadNumericCSV(path)
	if err != nil {
		return nil, err
	}
	var out []float64
	for _, row := range rows {
		out = append(out, row...)
	}
	return out, nil
}

// ReadScalar reads a CSV file that must hold exactly one number.
func ReadScalar(path string) (float64, error) {
	v, err := ReadVector(path)
	if err != nil {
		return 0, err
	}
	if len(v) != 1 {
		return 0, &ShapeError{File: path, Want: "()", Got: fmt.Sprintf("(%d,)", len(v))}
	}
	return v[0], nil
}

// ReadTable reads a rows x cols CSV file into a dense matrix.
func ReadTable(path string, rows, cols int) (*mat.Dense, error) {
	data, err := ReadNumericCSV(path)
	if err != nil {
		return nil, err
	}
	// A single-row table may be stored one value per line.
	if rows == 1 && len(data) == cols && len(data[0]) == 1 {
		data = [][]float64{flatten(data)}
	}
	if len(data) != rows || len(data[0]) != cols {
		return nil, &ShapeError{
			File: path,
			Want: fmt.Sprintf("(%d, %d)", rows, cols),
			Got:  fmt.Sprintf("(%d, %d)", len(data), len(data[0])),
		}
	}
	return mat.NewDense(rows, cols, flatten(data)), nil
}

func flatten(rows [][]float64) []float64 {
	var out []float64
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}

// LoadThresholdInputs reads every per-threshold input for an ensemble of
// nScenarios x nModels runs. Any missing, malformed or mis-shaped file is an
// error; no partial result is returned.
func LoadThresholdInputs(dir, ensemble string, threshold float64, nScenarios, nModels int) (*ThresholdInputs, error) {
	t := strconv.FormatFloat(threshold, 'f', -1, 64)
	files := NewThresholdFiles(dir, ensemble, t)
	in := &ThresholdInputs{Threshold: threshold}

	var err error
	if in.X, err = ReadTable(files.X, nScenarios, nModels); err != nil {
		return nil, err
	}
	if in.Y, err = ReadTable(files.Y, nScenarios, nModels); err != nil {
		return nil, err
	}
	if in.ObsConstraint, err = ReadVector(files.ObsConstraint); err != nil {
		return nil, err
	}
	if len(in.ObsConstraint) != nScenarios*nModels {
		return nil, &ShapeError{
			File: files.ObsConstraint,
			Want: fmt.Sprintf("(%d,)", nScenarios*nModels),
			Got:  fmt.Sprintf("(%d,)", len(in.ObsConstraint)),
		}
	}

	if in.Fit.X, err = ReadVector(files.XFit); err != nil {
		return nil, err
	}
	if in.Fit.Y, err = ReadVector(files.YFit); err != nil {
		return nil, err
	}
	if len(in.Fit.X) != len(in.Fit.Y) {
		return nil, &ShapeError{
			File: files.YFit,
			Want: fmt.Sprintf("(%d,)", len(in.Fit.X)),
			Got:  fmt.Sprintf("(%d,)", len(in.Fit.Y)),
		}
	}

	if in.CombinedX, err = ReadVector(files.CombinedX); err != nil {
		return nil, err
	}
	if in.CombinedY, err = ReadVector(files.CombinedY); err != nil {
		return nil, err
	}
	if len(in.CombinedX) != len(in.CombinedY) {
		return nil, &ShapeError{
			File: files.CombinedY,
			Want: fmt.Sprintf("(%d,)", len(in.CombinedX)),
			Got:  fmt.Sprintf("(%d,)", len(in.CombinedY)),
		}
	}
	if in.XObs, err = ReadScalar(files.XObs); err != nil {
		return nil, err
	}
	if in.DXObs, err = ReadScalar(files.DXObs); err != nil {
		return nil, err
	}

	in.Files = []string{
		files.X, files.Y, files.ObsConstraint, files.XFit, files.YFit,
		files.CombinedX, files.CombinedY, files.XObs, files.DXObs,
	}
	return in, nil
}

package parser

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sbinet/npyio"
)

// Names of the observational inputs under the variables directory.
const (
	PolyRelationshipFile = "poly_relationship_obs.npy"
	TemperatureDataFile  = "observational_temperature_data.npy"
	TemperatureMaskFile  = "observational_temperature_mask.npy"
	RespirationDataFile  = "observational_rh_data.npy"
	RespirationMaskFile  = "observational_rh_mask.npy"
)

// ReadNpyFloat64 reads a float64 NumPy array and its shape.
func ReadNpyFloat64(path string) ([]float64, []int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open npy file: %w", err)
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: failed to read npy header: %w", path, err)
	}
	var data []float64
	if err := r.Read(&data); err != nil {
		return nil, nil, fmt.Errorf("%s: failed to read npy data: %w", path, err)
	}
	return data, append([]int(nil), r.Header.Descr.Shape...), nil
}

// ReadNpyBool reads a boolean NumPy array and its shape.
func ReadNpyBool(path string) ([]bool, []int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open npy file: %w", err)
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: failed to read npy header: %w", path, err)
	}
	var data []bool
	if err := r.Read(&data); err != nil {
		return nil, nil, fmt.Errorf("%s: failed to read npy data: %w", path, err)
	}
	return data, append([]int(nil), r.Header.Descr.Shape...), nil
}

// ReadMaskedField combines a data array and its mask. A scalar mask (numpy's
// nomask saved as a 0-d array) applies to every cell.
func ReadMaskedField(name, dataPath, maskPath string) (MaskedField, error) {
	data, shape, err := ReadNpyFloat64(dataPath)
	if err != nil {
		return MaskedField{}, err
	}
	mask, maskShape, err := ReadNpyBool(maskPath)
	if err != nil {
		return MaskedField{}, err
	}

	if len(maskShape) == 0 && len(mask) == 1 {
		full := make([]bool, len(data))
		for i := range full {
			full[i] = mask[0]
		}
		mask = full
		maskShape = shape
	}
	if len(mask) != len(data) || !sameShape(shape, maskShape) {
		return MaskedField{}, &ShapeError{File: maskPath, Want: fmt.Sprint(shape), Got: fmt.Sprint(maskShape)}
	}
	return MaskedField{Name: name, Shape: shape, Data: data, Mask: mask}, nil
}

// LoadObservations reads the observational inputs from dir.
func LoadObservations(dir string) (*Observations, error) {
	coeffs, _, err := ReadNpyFloat64(filepath.Join(dir, PolyRelationshipFile))
	if err != nil {
		return nil, err
	}
	if len(coeffs) == 0 {
		return nil, fmt.Errorf("%s: no polynomial coefficients", PolyRelationshipFile)
	}
	temp, err := ReadMaskedField("temperature",
		filepath.Join(dir, TemperatureDataFile), filepath.Join(dir, TemperatureMaskFile))
	if err != nil {
		return nil, err
	}
	rh, err := ReadMaskedField("rh",
		filepath.Join(dir, RespirationDataFile), filepath.Join(dir, RespirationMaskFile))
	if err != nil {
		return nil, err
	}
	return &Observations{PolyCoeffs: coeffs, Temperature: temp, Respiration: rh}, nil
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

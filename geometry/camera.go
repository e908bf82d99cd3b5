package geometry

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// ErrNoCamera is when a camera model or its parameters are not available.
var ErrNoCamera = errors.New("camera model parameters are not available")

// NewInvalidCameraError is used when a camera model fails validation.
func NewInvalidCameraError(msg string) error {
	return errors.Wrapf(ErrNoCamera, msg)
}

// Camera pairs a projection type with the intrinsic parameter vector the
// projection kernels consume. The vector layout is documented on the
// ProjectionType constants.
type Camera struct {
	Type       ProjectionType `json:"projection_type"`
	Parameters []float64      `json:"parameters"`
}

// NewCamera returns a camera after validating the parameter vector against
// the projection type.
func NewCamera(projType ProjectionType, parameters []float64) (*Camera, error) {
	camera := &Camera{Type: projType, Parameters: parameters}
	if err := camera.CheckValid(); err != nil {
		return nil, err
	}
	return camera, nil
}

// CheckValid checks if the fields for Camera have valid inputs.
func (c *Camera) CheckValid() error {
	if c == nil {
		return NewInvalidCameraError("camera model does not exist")
	}
	m, ok := models[c.Type]
	if !ok {
		return errors.Errorf("do not know how to parse %q projection model", c.Type)
	}
	if len(c.Parameters) != m.paramCount {
		return NewInvalidCameraError(
			fmt.Sprintf("%s camera expects %d parameters, got %d", c.Type, m.paramCount, len(c.Parameters)))
	}
	var err error
	if idx, ok := focalIndex(c.Type); ok && c.Parameters[idx] <= 0 {
		err = multierr.Append(err, NewInvalidCameraError(
			fmt.Sprintf("invalid focal length %#v", c.Parameters[idx])))
	}
	if c.Type == Dual && (c.Parameters[0] < 0 || c.Parameters[0] > 1) {
		err = multierr.Append(err, NewInvalidCameraError(
			fmt.Sprintf("invalid transition %#v, must be in [0,1]", c.Parameters[0])))
	}
	if c.Type == Brown || c.Type == FisheyeOpenCV || c.Type == Fisheye62 || c.Type == Fisheye624 {
		if c.Parameters[1] <= 0 {
			err = multierr.Append(err, NewInvalidCameraError(
				fmt.Sprintf("invalid aspect ratio %#v", c.Parameters[1])))
		}
	}
	return err
}

// focalIndex returns the position of the focal length in the parameter
// vector, if the model has one.
func focalIndex(projType ProjectionType) (int, bool) {
	switch projType {
	case Dual:
		return 1, true
	case Spherical:
		return 0, false
	default:
		return 0, true
	}
}

// NewCameraFromJSONFile reads a camera model from a JSON file and validates it.
func NewCameraFromJSONFile(jsonPath string) (*Camera, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening JSON file")
	}
	defer utils.UncheckedErrorFunc(jsonFile.Close)
	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading JSON data")
	}
	camera := &Camera{}
	if err := json.Unmarshal(byteValue, camera); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}
	if err := camera.CheckValid(); err != nil {
		return nil, err
	}
	return camera, nil
}

// Project maps a camera frame point to a normalized image point.
func (c *Camera) Project(point r3.Vector) r2.Point {
	return Project(c.Type, c.Parameters, point)
}

// Bearing returns the unit direction in the camera frame whose projection
// is obs.
func (c *Camera) Bearing(obs r2.Point) r3.Vector {
	return Bearing(c.Type, c.Parameters, obs)
}

// Bearings converts a batch of observations to unit directions, the form
// the triangulation solvers consume.
func (c *Camera) Bearings(obs []r2.Point) []r3.Vector {
	out := make([]r3.Vector, len(obs))
	for i, o := range obs {
		out[i] = c.Bearing(o)
	}
	return out
}

package models

import (
	"errors"
	"fmt"

	"github.com/RobotXiaoFeng/acado/internal/ocp"
)

var ErrUnknownModel = errors.New("models: unknown model")

// ByName builds one of the bundled benchmark problems.
func ByName(name string) (*ocp.Problem, error) {
	switch name {
	case "rocket":
		return NewRocket().Problem(), nil
	case "double_integrator":
		return NewDoubleIntegrator().Problem(), nil
	case "pendulum":
		return NewPendulum().Problem(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
}

func Names() []string {
	return []string{"rocket", "double_integrator", "pendulum"}
}

// Package calc implements the local math agent: square roots and factorials.
// It needs no upstream, which makes it the reference handler for the runtime
// contract tests.
package calc

import (
	"context"
	"math"
	"math/big"

	"github.com/cockroachdb/errors"

	"github.com/prxs-ai/agentkit/agent"
)

// maxSafeInteger is the largest integer float64 represents exactly. Larger
// factorials are returned as decimal strings.
const maxSafeInteger = int64(1) << 53

// Params is the compute input. Number accepts JSON numbers and numeric
// strings.
type Params struct {
	Number    any    `json:"number"`
	Operation string `json:"operation" validate:"required"`
}

// Handler serves sqrt and factorial operations.
type Handler struct {
	card *agent.ServiceCard
	spec agent.ParamSpec
}

var _ agent.Handler = (*Handler)(nil)

// New returns the calc handler with its static service card.
func New() (*Handler, error) {
	spec, err := agent.SpecOf(Params{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to build param spec")
	}
	return &Handler{
		card: &agent.ServiceCard{
			Name:        "MathOracle-v1",
			Description: "Calculates square roots and factorial.",
			Inputs:      spec.Names(),
			CostPerOp:   0.5,
			Version:     "1.0.0",
			Tags:        []string{"math", "sqrt", "factorial", "calculator"},
		},
		spec: spec,
	}, nil
}

func (h *Handler) Describe() *agent.ServiceCard { return h.card }

func (h *Handler) Spec() agent.ParamSpec { return h.spec }

func (h *Handler) Compute(_ context.Context, params agent.Values) (any, error) {
	var p Params
	if err := agent.Decode(params, &p); err != nil {
		return nil, err
	}
	if p.Number == nil {
		return nil, errors.New("number is required")
	}

	val, err := agent.AsFloat(p.Number)
	if err != nil {
		return nil, err
	}

	switch p.Operation {
	case "sqrt":
		if val < 0 {
			return nil, errors.New("math domain error")
		}
		return math.Sqrt(val), nil
	case "factorial":
		return factorial(val)
	default:
		return nil, errors.New("Unknown operation")
	}
}

func factorial(val float64) (any, error) {
	if val < 0 {
		return nil, errors.New("factorial is not defined for negative values")
	}
	if val != math.Trunc(val) {
		return nil, errors.New("factorial requires an integer")
	}

	n := int64(val)
	product := new(big.Int).MulRange(1, n)
	if product.IsInt64() {
		if v := product.Int64(); v <= maxSafeInteger {
			return v, nil
		}
	}
	return product.String(), nil
}

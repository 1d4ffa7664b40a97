package calc_test

import (
	"context"
	"testing"

	"github.com/prxs-ai/agentkit/agent"
	"github.com/prxs-ai/agentkit/agents/calc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(t *testing.T) *calc.Handler {
	t.Helper()
	h, err := calc.New()
	require.NoError(t, err)
	return h
}

func Test_Card(t *testing.T) {
	h := newHandler(t)

	card := h.Describe()
	assert.Equal(t, "MathOracle-v1", card.Name)
	assert.Equal(t, []string{"number", "operation"}, card.Inputs)
	assert.Contains(t, card.Tags, "factorial")
}

func Test_Sqrt(t *testing.T) {
	h := newHandler(t)
	ctx := context.Background()

	res, err := h.Compute(ctx, agent.Values{"number": float64(16), "operation": "sqrt"})
	require.NoError(t, err)
	assert.Equal(t, float64(4), res)

	// numeric strings are accepted
	res, err = h.Compute(ctx, agent.Values{"number": "9", "operation": "sqrt"})
	require.NoError(t, err)
	assert.Equal(t, float64(3), res)

	_, err = h.Compute(ctx, agent.Values{"number": float64(-1), "operation": "sqrt"})
	require.Error(t, err)
	assert.Equal(t, "math domain error", err.Error())
}

func Test_Factorial(t *testing.T) {
	h := newHandler(t)
	ctx := context.Background()

	res, err := h.Compute(ctx, agent.Values{"number": float64(5), "operation": "factorial"})
	require.NoError(t, err)
	assert.Equal(t, int64(120), res)

	res, err = h.Compute(ctx, agent.Values{"number": float64(0), "operation": "factorial"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res)

	// beyond float64-safe integers the result is a decimal string
	res, err = h.Compute(ctx, agent.Values{"number": float64(25), "operation": "factorial"})
	require.NoError(t, err)
	assert.Equal(t, "15511210043330985984000000", res)

	_, err = h.Compute(ctx, agent.Values{"number": float64(-3), "operation": "factorial"})
	require.Error(t, err)
	assert.Equal(t, "factorial is not defined for negative values", err.Error())

	_, err = h.Compute(ctx, agent.Values{"number": 2.5, "operation": "factorial"})
	require.Error(t, err)
	assert.Equal(t, "factorial requires an integer", err.Error())
}

func Test_Errors(t *testing.T) {
	h := newHandler(t)
	ctx := context.Background()

	_, err := h.Compute(ctx, agent.Values{"number": float64(2), "operation": "cube"})
	require.Error(t, err)
	assert.Equal(t, "Unknown operation", err.Error())

	_, err = h.Compute(ctx, agent.Values{"number": float64(2)})
	require.Error(t, err)
	assert.Equal(t, "operation is required", err.Error())

	_, err = h.Compute(ctx, agent.Values{"operation": "sqrt"})
	require.Error(t, err)
	assert.Equal(t, "number is required", err.Error())

	_, err = h.Compute(ctx, agent.Values{"number": "abc", "operation": "sqrt"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a number")
}

package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserverFunc(t *testing.T) {
	var got OperationContext
	obs := ObserverFunc(func(ctx OperationContext) { got = ctx })

	obs.ObserveOperation(OperationContext{Component: "dispatcher", Operation: "member", Duration: time.Second})

	assert.Equal(t, "dispatcher", got.Component)
	assert.Equal(t, "member", got.Operation)
	assert.Equal(t, time.Second, got.Duration)
}

func TestMultiSkipsNil(t *testing.T) {
	assert.Nil(t, Multi())
	assert.Nil(t, Multi(nil, nil))

	var calls int
	single := ObserverFunc(func(OperationContext) { calls++ })
	obs := Multi(nil, single)
	require.NotNil(t, obs)

	obs.ObserveOperation(OperationContext{})
	assert.Equal(t, 1, calls)
}

func TestMultiCallsEveryObserverInOrder(t *testing.T) {
	var order []string
	first := ObserverFunc(func(ctx OperationContext) { order = append(order, "first:"+ctx.Operation) })
	second := ObserverFunc(func(ctx OperationContext) { order = append(order, "second:"+ctx.Operation) })

	Multi(first, nil, second).ObserveOperation(OperationContext{Operation: "batch", Error: errors.New("boom")})

	assert.Equal(t, []string{"first:batch", "second:batch"}, order)
}

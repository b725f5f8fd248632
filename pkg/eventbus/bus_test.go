package eventbus

import (
	"math"
	"testing"

	"github.com/Koyo-os/form-builder/internal/entity"
	"github.com/Koyo-os/form-builder/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newBus() (*Bus, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return New(&logger.Logger{Logger: zap.New(core)}), logs
}

func TestBus_PublishDeliversByType(t *testing.T) {
	bus, _ := newBus()

	var got []entity.Event
	bus.Subscribe(entity.EventFormSaved, func(e entity.Event) { got = append(got, e) })
	bus.Subscribe(entity.EventFormDeleted, func(e entity.Event) { t.Fatal("wrong type delivered") })

	require.NoError(t, bus.Publish(entity.FormRef{FormID: "f1"}, entity.EventFormSaved))

	require.Len(t, got, 1)
	assert.Equal(t, entity.EventFormSaved, got[0].Type)
	assert.NotEmpty(t, got[0].ID)
	assert.NoError(t, got[0].Validate())

	var ref entity.FormRef
	require.NoError(t, got[0].Decode(&ref))
	assert.Equal(t, "f1", ref.FormID)
}

func TestBus_OrderAndSubscribeAll(t *testing.T) {
	bus, _ := newBus()

	var order []string
	bus.SubscribeAll(func(entity.Event) { order = append(order, "all") })
	bus.Subscribe("x", func(entity.Event) { order = append(order, "first") })
	bus.Subscribe("x", func(entity.Event) { order = append(order, "second") })

	require.NoError(t, bus.Publish(struct{}{}, "x"))

	assert.Equal(t, []string{"first", "second", "all"}, order)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus, _ := newBus()

	calls := 0
	unsubscribe := bus.Subscribe("x", func(entity.Event) { calls++ })
	other := 0
	bus.Subscribe("x", func(entity.Event) { other++ })

	require.NoError(t, bus.Publish(nil, "x"))
	unsubscribe()
	unsubscribe()
	require.NoError(t, bus.Publish(nil, "x"))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, other)
}

func TestBus_PanickingHandlerIsLogged(t *testing.T) {
	bus, logs := newBus()

	delivered := false
	bus.Subscribe("x", func(entity.Event) { panic("boom") })
	bus.Subscribe("x", func(entity.Event) { delivered = true })

	require.NoError(t, bus.Publish(nil, "x"))

	assert.True(t, delivered)
	assert.Equal(t, 1, logs.FilterMessage("event handler panicked").Len())
}

func TestBus_Clear(t *testing.T) {
	bus, _ := newBus()

	calls := 0
	count := func(entity.Event) { calls++ }
	bus.Subscribe("x", count)
	bus.Subscribe("y", count)
	bus.SubscribeAll(count)

	bus.Clear("x")
	require.NoError(t, bus.Publish(nil, "x"))
	assert.Equal(t, 1, calls)

	bus.Clear("")
	require.NoError(t, bus.Publish(nil, "y"))
	assert.Equal(t, 1, calls)
}

func TestBus_PublishEncodeError(t *testing.T) {
	bus, logs := newBus()

	bus.SubscribeAll(func(entity.Event) { t.Fatal("undecodable payload delivered") })

	assert.Error(t, bus.Publish(math.Inf(1), "x"))
	assert.Equal(t, 1, logs.FilterMessage("error encode event payload").Len())
}

package bridge_test

import (
	"sync"
	"testing"

	"github.com/aretw0/canopy/pkg/bridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLane_FIFO(t *testing.T) {
	lane := bridge.NewLane(16)

	var mu sync.Mutex
	var order []int
	for i := 0; i < 10; i++ {
		i := i
		require.NoError(t, lane.Submit(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}
	lane.Close()

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestLane_Full(t *testing.T) {
	lane := bridge.NewLane(1)
	block := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, lane.Submit(func() { close(started); <-block }))
	<-started
	require.NoError(t, lane.Submit(func() {}), "one job may queue behind the running one")
	assert.ErrorIs(t, lane.Submit(func() {}), bridge.ErrLaneFull)

	close(block)
	lane.Close()
	assert.ErrorIs(t, lane.Submit(func() {}), bridge.ErrLaneClosed)
}

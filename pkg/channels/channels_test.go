package channels_test

import (
	"testing"
	"time"

	"github.com/alkime/screenrec/pkg/channels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendNonBlock(t *testing.T) {
	ch := make(chan string, 1)

	require.NoError(t, channels.SendNonBlock(ch, "started"))
	require.ErrorIs(t, channels.SendNonBlock(ch, "tick"), channels.ErrChannelFull)
	assert.Equal(t, "started", <-ch)

	require.ErrorIs(t, channels.SendNonBlock(make(chan string), "x"), channels.ErrChannelFull,
		"unbuffered with no reader")

	closed := make(chan string, 1)
	close(closed)
	require.ErrorIs(t, channels.SendNonBlock(closed, "x"), channels.ErrChannelClosed)
}

func TestSendWithTimeout(t *testing.T) {
	ch := make(chan int)

	go func() {
		time.Sleep(10 * time.Millisecond)
		<-ch
	}()
	require.NoError(t, channels.SendWithTimeout(ch, 1, time.Second))

	start := time.Now()
	err := channels.SendWithTimeout(ch, 2, 20*time.Millisecond)
	require.ErrorIs(t, err, channels.ErrChannelTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	closed := make(chan int)
	close(closed)
	require.ErrorIs(t, channels.SendWithTimeout(closed, 3, time.Second), channels.ErrChannelClosed)
}

func TestReceiveAll(t *testing.T) {
	t.Run("until closed", func(t *testing.T) {
		ch := make(chan int, 3)
		ch <- 1
		ch <- 2
		close(ch)

		assert.Equal(t, []int{1, 2}, channels.ReceiveAll(ch, time.Second, 0))
	})

	t.Run("until idle", func(t *testing.T) {
		ch := make(chan int, 3)
		ch <- 1

		start := time.Now()
		assert.Equal(t, []int{1}, channels.ReceiveAll(ch, 20*time.Millisecond, 0))
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("until limit", func(t *testing.T) {
		ch := make(chan int, 5)
		for i := range 5 {
			ch <- i
		}

		assert.Equal(t, []int{0, 1, 2}, channels.ReceiveAll(ch, time.Second, 3))
		assert.Len(t, ch, 2)
	})

	t.Run("nothing arrives", func(t *testing.T) {
		assert.Empty(t, channels.ReceiveAll(make(chan int), 10*time.Millisecond, 0))
	})
}

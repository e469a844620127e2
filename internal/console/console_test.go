package console

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_WriteAndClear(t *testing.T) {
	b := NewBuffer(0)
	b.WriteLine("A")
	b.WriteLine("B")

	assert.Equal(t, []string{"A", "B"}, b.Lines())
	assert.Equal(t, 2, b.Len())

	b.Clear()
	assert.Empty(t, b.Lines())
}

func TestBuffer_KeepsMostRecentLines(t *testing.T) {
	b := NewBuffer(3)
	for i := range 5 {
		b.WriteLine(fmt.Sprint(i))
	}
	assert.Equal(t, []string{"2", "3", "4"}, b.Lines())
}

func TestBuffer_LinesIsSnapshot(t *testing.T) {
	b := NewBuffer(10)
	b.WriteLine("x")
	lines := b.Lines()
	lines[0] = "changed"
	assert.Equal(t, []string{"x"}, b.Lines())
}

func TestBuffer_Subscribe(t *testing.T) {
	b := NewBuffer(10)
	events, unsubscribe := b.Subscribe(8)

	b.WriteLine("hello")
	b.Clear()

	first := <-events
	assert.Equal(t, EventLine, first.Type)
	assert.Equal(t, "hello", first.Line)
	second := <-events
	assert.Equal(t, EventClear, second.Type)
	assert.Greater(t, second.Seq, first.Seq)

	require.Equal(t, 1, b.SubscriberCount())
	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, b.SubscriberCount())
	_, ok := <-events
	assert.False(t, ok)
}

func TestBuffer_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBuffer(10)
	_, unsubscribe := b.Subscribe(1)
	defer unsubscribe()

	for range 5 {
		b.WriteLine("line")
	}
	assert.Equal(t, 5, b.Len())
}

func TestBuffer_ConcurrentReaders(t *testing.T) {
	b := NewBuffer(100)
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				_ = b.Lines()
			}
		}()
	}
	for i := range 50 {
		b.WriteLine(fmt.Sprint(i))
	}
	wg.Wait()
	assert.Equal(t, 50, b.Len())
}

func TestWriterAndTee(t *testing.T) {
	var out bytes.Buffer
	buf := NewBuffer(10)
	tee := NewTee(NewWriter(&out), nil, buf)

	tee.WriteLine("one")
	Printf(tee, "two %d", 2)
	tee.Clear()

	assert.Equal(t, "one\ntwo 2\n", out.String())
	assert.Empty(t, buf.Lines())
	assert.Len(t, tee, 2)
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() {
		Discard.WriteLine("x")
		Discard.Clear()
	})
}

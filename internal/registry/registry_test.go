package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	h := make(Client, 1)

	r.Register("u1", h)

	got, ok := r.Lookup("u1")
	require.True(t, ok)
	assert.Equal(t, h, got)

	_, ok = r.Lookup("u2")
	assert.False(t, ok)
}

func TestRegisterSupersedes(t *testing.T) {
	r := New()
	h1 := make(Client, 1)
	h2 := make(Client, 1)

	r.Register("u1", h1)
	r.Register("u1", h2)

	got, ok := r.Lookup("u1")
	require.True(t, ok)
	assert.Equal(t, h2, got, "lookup after re-register must return the new handle")
	assert.Equal(t, 1, r.Len())

	// The superseded handle is closed so its owner's pump can terminate.
	_, open := <-h1
	assert.False(t, open, "superseded handle should be closed")
}

func TestUnregisterIgnoresStaleHandle(t *testing.T) {
	r := New()
	h1 := make(Client, 1)
	h2 := make(Client, 1)

	r.Register("u1", h1)
	r.Register("u1", h2)

	// The old connection disconnecting must not evict the new one.
	r.Unregister("u1", h1)

	got, ok := r.Lookup("u1")
	require.True(t, ok)
	assert.Equal(t, h2, got)
}

func TestUnregisterRemovesOwnEntry(t *testing.T) {
	r := New()
	h := make(Client, 1)

	r.Register("u1", h)
	r.Unregister("u1", h)

	_, ok := r.Lookup("u1")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())

	_, open := <-h
	assert.False(t, open, "unregistered handle should be closed")

	// Absent entry: silent no-op.
	r.Unregister("u1", h)
}

func TestSendDelivers(t *testing.T) {
	r := New()
	h := make(Client, 1)
	r.Register("u1", h)

	err := r.Send("u1", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), <-h)
}

func TestSendUnreachable(t *testing.T) {
	r := New()

	err := r.Send("ghost", []byte("hello"))
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestSendDropsWhenBufferFull(t *testing.T) {
	r := New()
	h := make(Client, 1)
	r.Register("u1", h)

	require.NoError(t, r.Send("u1", []byte("one")))
	// Buffer is full now; the second send must neither block nor error.
	require.NoError(t, r.Send("u1", []byte("two")))

	assert.Equal(t, []byte("one"), <-h)
	select {
	case payload := <-h:
		t.Fatalf("expected second frame to be dropped, got %q", payload)
	default:
	}
}

func TestReplyDeliversToCurrentHandle(t *testing.T) {
	r := New()
	h := make(Client, 1)
	r.Register("u1", h)

	require.NoError(t, r.Reply("u1", h, []byte("pong")))
	assert.Equal(t, []byte("pong"), <-h)
}

func TestReplySkipsSupersededHandle(t *testing.T) {
	r := New()
	h1 := make(Client, 1)
	r.Register("u1", h1)

	h2 := make(Client, 1)
	r.Register("u1", h2)

	// h1 is closed now; a reply through the registry must notice the
	// supersession instead of sending on the closed channel.
	err := r.Reply("u1", h1, []byte("late"))
	assert.ErrorIs(t, err, ErrUnreachable)

	select {
	case payload := <-h2:
		t.Fatalf("reply leaked to the new handle: %q", payload)
	default:
	}
}

func TestReplySkipsRemovedHandle(t *testing.T) {
	r := New()
	h := make(Client, 1)
	r.Register("u1", h)
	r.Unregister("u1", h)

	err := r.Reply("u1", h, []byte("late"))
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestReplyRacesWithReconnect(t *testing.T) {
	r := New()
	h1 := make(Client, 1)
	r.Register("u1", h1)

	// A burst of error replies on the first handle while reconnects keep
	// superseding the entry; every reply must either deliver to the current
	// handle or be skipped, never touch a closed channel.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			_ = r.Reply("u1", h1, []byte("err"))
		}
	}()

	for i := 0; i < 100; i++ {
		r.Register("u1", make(Client, 1))
	}
	<-done
}

func TestConcurrentRegisterDistinctUsers(t *testing.T) {
	r := New()

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Register(fmt.Sprintf("user-%d", i), make(Client, 1))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n, r.Len())
	for i := 0; i < n; i++ {
		_, ok := r.Lookup(fmt.Sprintf("user-%d", i))
		assert.True(t, ok)
	}
}

func TestConcurrentRegisterSameUser(t *testing.T) {
	r := New()

	const n = 32
	handles := make([]Client, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		handles[i] = make(Client, 1)
		wg.Add(1)
		go func(h Client) {
			defer wg.Done()
			r.Register("u1", h)
		}(handles[i])
	}
	wg.Wait()

	// Last writer wins: exactly one entry, pointing at one of the handles.
	require.Equal(t, 1, r.Len())
	winner, ok := r.Lookup("u1")
	require.True(t, ok)

	found := false
	for _, h := range handles {
		if h == winner {
			found = true
			break
		}
	}
	assert.True(t, found, "winning handle must be one of the registered ones")
}

func TestClose(t *testing.T) {
	r := New()
	h1 := make(Client, 1)
	h2 := make(Client, 1)
	r.Register("u1", h1)
	r.Register("u2", h2)

	r.Close()

	assert.Equal(t, 0, r.Len())
	_, open := <-h1
	assert.False(t, open)
	_, open = <-h2
	assert.False(t, open)
}

package keymutex

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyMutexSerializesSameKey(t *testing.T) {
	km := New()
	var counter int

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("thread-1")
			counter++
			km.Unlock("thread-1")
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestKeyMutexIndependentKeys(t *testing.T) {
	km := New()
	km.Lock("a")

	done := make(chan struct{})
	go func() {
		km.Lock("b")
		km.Unlock("b")
		close(done)
	}()

	<-done // must not deadlock while "a" is held
	km.Unlock("a")
}

func TestKeyMutexReleasesEntries(t *testing.T) {
	km := New()
	km.Lock("x")
	km.Unlock("x")

	km.mu.Lock()
	defer km.mu.Unlock()
	assert.Empty(t, km.entries)
}

func TestKeyMutexUnlockUnheldPanics(t *testing.T) {
	km := New()
	assert.Panics(t, func() { km.Unlock("never-locked") })
}

package seasonlock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLockSerializesSameSeason(t *testing.T) {
	k := New()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock(7)
			counter++
			unlock()
		}()
	}
	wg.Wait()

	require.Equal(t, 50, counter)
}

func TestLockEntriesAreReclaimed(t *testing.T) {
	k := New()

	unlock := k.Lock(1)
	unlock()
	unlock2 := k.Lock(2)
	unlock2()

	k.mu.Lock()
	defer k.mu.Unlock()
	require.Empty(t, k.locks)
}

func TestIndependentSeasonsDoNotBlock(t *testing.T) {
	k := New()

	unlockA := k.Lock(1)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := k.Lock(2)
		unlockB()
		close(done)
	}()

	<-done // would deadlock if season 2 waited on season 1
}

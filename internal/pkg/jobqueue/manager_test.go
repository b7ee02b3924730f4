package jobqueue

import (
	"testing"
	"time"
)

func TestArchiveWorkerStopsAfterChannelSwap(t *testing.T) {
	m := &Manager{queue: NewQueue(1)}
	m.archiveTicker = time.NewTicker(time.Hour)
	defer m.archiveTicker.Stop()

	stop := make(chan struct{})
	m.stopCh = stop
	m.wg.Add(1)
	go m.archiveWorker(stop)

	// A restart recreates the channel field; the running worker must still
	// see the close on the channel it was started with.
	m.stopCh = make(chan struct{})
	close(stop)

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("archive worker did not stop")
	}
}

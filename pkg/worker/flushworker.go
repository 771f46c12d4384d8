package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"envelope-service/pkg/metrics"
)

// OutcomeWriter receives drained outcome counts.
type OutcomeWriter interface {
	WriteOutcomeCounts(ctx context.Context, snap metrics.Snapshot) error
}

// FlushWorker periodically drains the recorder into the telemetry sink.
type FlushWorker struct {
	recorder *metrics.Recorder
	sink     OutcomeWriter
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
	running  bool
	runLock  sync.Mutex
}

func NewFlushWorker(recorder *metrics.Recorder, sink OutcomeWriter, interval time.Duration) *FlushWorker {
	return &FlushWorker{
		recorder: recorder,
		sink:     sink,
		interval: interval,
	}
}

func (w *FlushWorker) Start() {
	w.runLock.Lock()
	if w.running {
		w.runLock.Unlock()
		log.Println("[FlushWorker] Already running")
		return
	}
	w.running = true
	stopCh := make(chan struct{})
	w.stopCh = stopCh
	w.runLock.Unlock()

	log.Printf("[FlushWorker] Starting with %s interval\n", w.interval)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		// Flush immediately on start
		w.flush()

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				w.flush()
			}
		}
	}()
}

// Stop ends the loop and flushes whatever was counted since the last tick.
func (w *FlushWorker) Stop() {
	w.runLock.Lock()
	if !w.running {
		w.runLock.Unlock()
		return
	}
	w.running = false
	stopCh := w.stopCh
	w.runLock.Unlock()

	log.Println("[FlushWorker] Stopping...")
	close(stopCh)
	w.wg.Wait()
	w.flush()

	log.Println("[FlushWorker] Stopped")
}

func (w *FlushWorker) flush() {
	snap := w.recorder.Drain()
	if snap.Empty() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := w.sink.WriteOutcomeCounts(ctx, snap); err != nil {
		log.Printf("[FlushWorker] Write failed: %v\n", err)
		return
	}

	var total int64
	for _, n := range snap.Counts {
		total += n
	}
	log.Printf("[FlushWorker] Flushed %d responses\n", total+snap.Other)
}

// Package loadtest provides load testing utilities for the backup store.
//
// The daemon, the CLI inspection commands, and the dashboard can all hit
// the backup database at once; this package simulates that concurrent
// access pattern and reports read latency percentiles.
package loadtest

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/formstep/mediasync/internal/backup"
)

// TestStore wraps a backup store prepared for load testing.
type TestStore struct {
	Store *backup.Store
}

// LatencyStats captures performance metrics from load tests.
type LatencyStats struct {
	Min        time.Duration
	Max        time.Duration
	Mean       time.Duration
	P50        time.Duration
	P95        time.Duration
	P99        time.Duration
	TotalReads int
	Errors     int
}

// CreateTestStore opens a backup database at dbPath and seeds it with a
// fresh record so reads have something to return.
func CreateTestStore(dbPath string) (*TestStore, error) {
	store, err := backup.Open(dbPath, log.New(io.Discard, "", 0))
	if err != nil {
		return nil, fmt.Errorf("failed to open backup store: %w", err)
	}

	store.WriteBackup("https://cdn.example.com/seed.jpg", "loadtest")

	return &TestStore{Store: store}, nil
}

// Close closes the underlying store.
func (ts *TestStore) Close() error {
	if ts.Store != nil {
		return ts.Store.Close()
	}
	return nil
}

// RunConcurrentReads simulates numReaders concurrent clients each
// performing readsPerReader backup reads, and aggregates latencies.
func (ts *TestStore) RunConcurrentReads(numReaders, readsPerReader int) (*LatencyStats, error) {
	var wg sync.WaitGroup
	resultsChan := make(chan []time.Duration, numReaders)
	errorsChan := make(chan error, numReaders)

	for i := 0; i < numReaders; i++ {
		wg.Add(1)
		go func(readerID int) {
			defer wg.Done()

			durations := make([]time.Duration, 0, readsPerReader)
			for j := 0; j < readsPerReader; j++ {
				start := time.Now()
				img, ok := ts.Store.ReadBackup()
				durations = append(durations, time.Since(start))

				if !ok || img == "" {
					errorsChan <- fmt.Errorf("reader %d read %d returned no record", readerID, j)
					return
				}
			}
			resultsChan <- durations
		}(i)
	}

	wg.Wait()
	close(resultsChan)
	close(errorsChan)

	var errorCount int
	for range errorsChan {
		errorCount++
	}

	var allDurations []time.Duration
	for durations := range resultsChan {
		allDurations = append(allDurations, durations...)
	}
	if len(allDurations) == 0 {
		return nil, fmt.Errorf("no successful reads completed")
	}

	stats := computeLatencyStats(allDurations)
	stats.Errors = errorCount
	return stats, nil
}

// VerifyConcurrentAccess runs mixed readers and one writer for the given
// duration, checking that every successful read returns a well-formed
// value. WAL mode should make this safe; this verifies it.
func (ts *TestStore) VerifyConcurrentAccess(numReaders int, duration time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var wg sync.WaitGroup
	errorsChan := make(chan error, numReaders+1)

	// One writer rewriting the record continuously.
	wg.Add(1)
	go func() {
		defer wg.Done()
		i := 0
		for ctx.Err() == nil {
			ts.Store.WriteBackup(fmt.Sprintf("https://cdn.example.com/img-%d.jpg", i), "loadtest")
			i++
			time.Sleep(time.Millisecond)
		}
	}()

	for i := 0; i < numReaders; i++ {
		wg.Add(1)
		go func(readerID int) {
			defer wg.Done()
			for ctx.Err() == nil {
				img, ok := ts.Store.ReadBackup()
				if ok && img == "" {
					errorsChan <- fmt.Errorf("reader %d got ok with empty value", readerID)
					return
				}
				time.Sleep(time.Millisecond)
			}
		}(i)
	}

	wg.Wait()
	close(errorsChan)

	for err := range errorsChan {
		if err != nil {
			return err
		}
	}
	return nil
}

func computeLatencyStats(durations []time.Duration) *LatencyStats {
	if len(durations) == 0 {
		return &LatencyStats{}
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}

	return &LatencyStats{
		Min:        sorted[0],
		Max:        sorted[len(sorted)-1],
		Mean:       sum / time.Duration(len(sorted)),
		P50:        sorted[len(sorted)*50/100],
		P95:        sorted[len(sorted)*95/100],
		P99:        sorted[len(sorted)*99/100],
		TotalReads: len(sorted),
	}
}

// PrintStats formats and prints latency statistics.
func (s *LatencyStats) PrintStats() {
	fmt.Printf("Backup read latency:\n")
	fmt.Printf("  Total Reads: %d\n", s.TotalReads)
	fmt.Printf("  Errors:      %d\n", s.Errors)
	fmt.Printf("  Min:         %v\n", s.Min)
	fmt.Printf("  P50:         %v\n", s.P50)
	fmt.Printf("  Mean:        %v\n", s.Mean)
	fmt.Printf("  P95:         %v\n", s.P95)
	fmt.Printf("  P99:         %v\n", s.P99)
	fmt.Printf("  Max:         %v\n", s.Max)
}

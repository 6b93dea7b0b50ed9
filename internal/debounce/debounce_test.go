package debounce_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tablab/tablab/internal/debounce"
)

func TestOnlyLatestInputValidated(t *testing.T) {
	var calls atomic.Int32
	results := make(chan debounce.Result[string], 4)

	d := debounce.New(20*time.Millisecond, func(_ context.Context, input string) (string, error) {
		calls.Add(1)
		return input, nil
	}, results)

	d.Set("h")
	d.Set("ho")
	d.Set("hou")
	seq := d.Set("housing")

	select {
	case res := <-results:
		require.Equal(t, seq, res.Seq)
		require.Equal(t, "housing", res.Value)
		require.NoError(t, res.Err)
	case <-time.After(time.Second):
		t.Fatal("no result delivered")
	}

	require.Equal(t, int32(1), calls.Load())
}

func TestStaleResultCarriesOldSequence(t *testing.T) {
	results := make(chan debounce.Result[string], 4)
	release := make(chan struct{})

	d := debounce.New(5*time.Millisecond, func(_ context.Context, input string) (string, error) {
		if input == "slow" {
			<-release
		}
		return input, nil
	}, results)

	slowSeq := d.Set("slow")

	// Wait for the slow validation to start, then supersede it.
	time.Sleep(30 * time.Millisecond)
	fastSeq := d.Set("fast")
	require.Greater(t, fastSeq, slowSeq)

	res := <-results
	require.Equal(t, fastSeq, res.Seq)
	require.Equal(t, "fast", res.Value)

	// The superseded validation was cancelled and never reports.
	close(release)
	select {
	case res := <-results:
		t.Fatalf("unexpected result for stale input: %+v", res)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFlushSkipsWindow(t *testing.T) {
	results := make(chan debounce.Result[string], 1)

	d := debounce.New(time.Hour, func(_ context.Context, input string) (string, error) {
		return input, nil
	}, results)

	d.Set("immediate")
	seq := d.Flush()

	select {
	case res := <-results:
		require.Equal(t, seq, res.Seq)
		require.Equal(t, "immediate", res.Value)
	case <-time.After(time.Second):
		t.Fatal("flush did not validate")
	}
}

func TestCancelSuppressesResult(t *testing.T) {
	results := make(chan debounce.Result[string], 1)

	d := debounce.New(10*time.Millisecond, func(_ context.Context, input string) (string, error) {
		return input, nil
	}, results)

	d.Set("doomed")
	d.Cancel()

	select {
	case res := <-results:
		t.Fatalf("unexpected result after cancel: %+v", res)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLatestTracksSets(t *testing.T) {
	results := make(chan debounce.Result[string], 1)
	d := debounce.New(time.Hour, func(_ context.Context, input string) (string, error) {
		return input, nil
	}, results)

	require.Zero(t, d.Latest())
	first := d.Set("a")
	second := d.Set("b")
	require.Equal(t, first+1, second)
	require.Equal(t, second, d.Latest())
}

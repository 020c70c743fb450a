package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/tathienbao/tna/internal/source"
	"github.com/tathienbao/tna/internal/store"
	"github.com/tathienbao/tna/internal/types"
)

// blockingResolver holds Open until released.
type blockingResolver struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingResolver) Open(ctx context.Context, _ string) (source.RowReader, error) {
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return source.NewCSVReader(strings.NewReader(history(3))), nil
}

func TestEngine_Failure_SourceUnavailable(t *testing.T) {
	eng, resolver := createTestEngine(t, history(3), 2)
	resolver.err = fmt.Errorf("%w: disk gone", types.ErrResourceUnavailable)

	_, err := eng.Run(context.Background())
	if !errors.Is(err, types.ErrResourceUnavailable) {
		t.Fatalf("err = %v, want ErrResourceUnavailable", err)
	}
	if eng.Ready() {
		t.Error("engine should not be ready after failed run")
	}
	if eng.LastResult() != nil {
		t.Error("failed run should not be recorded")
	}
}

func TestEngine_Failure_ParseError(t *testing.T) {
	data := "date,open,high,low,close,adj close,volume\n" +
		"2021-03-02,1,2,0,1,1,100\n" +
		"2021-03-01,1,2,0,oops,1,100\n"
	eng, _ := createTestEngine(t, data, 2)

	_, err := eng.Run(context.Background())
	if !errors.Is(err, types.ErrParseFailure) {
		t.Fatalf("err = %v, want ErrParseFailure", err)
	}
	if !eng.Store().Empty() {
		t.Error("store should be empty after a failed load")
	}
}

func TestEngine_Failure_RetryAfterParseError(t *testing.T) {
	eng, resolver := createTestEngine(t, "date,open,high,low,close,adj close,volume\n2021-03-01,x,1,1,1,1,1\n", 1)

	if _, err := eng.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	resolver.mu.Lock()
	resolver.data = history(4)
	resolver.mu.Unlock()

	res, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if res.Days != 4 {
		t.Errorf("days = %d, want 4", res.Days)
	}
}

func TestEngine_Failure_InvalidPeriod(t *testing.T) {
	eng, resolver := createTestEngine(t, history(3), 2, 0)

	_, err := eng.Run(context.Background())
	if !errors.Is(err, types.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
	if resolver.Opens() != 0 {
		t.Errorf("opens = %d, want 0", resolver.Opens())
	}
}

func TestEngine_Failure_NilStore(t *testing.T) {
	eng := NewEngine(Config{Location: location, Periods: []int{2}}, nil, &mockResolver{}, nil)

	if _, err := eng.Run(context.Background()); !errors.Is(err, types.ErrMissingArgument) {
		t.Fatalf("err = %v, want ErrMissingArgument", err)
	}
	if _, err := eng.Reload(context.Background()); !errors.Is(err, types.ErrMissingArgument) {
		t.Fatalf("reload err = %v, want ErrMissingArgument", err)
	}
}

func TestEngine_Failure_NilResolver(t *testing.T) {
	eng := NewEngine(Config{Location: location, Periods: []int{2}}, store.New(store.Config{}, nil), nil, nil)

	if _, err := eng.Run(context.Background()); !errors.Is(err, types.ErrMissingArgument) {
		t.Fatalf("err = %v, want ErrMissingArgument", err)
	}
}

func TestEngine_Failure_ContextCancelled(t *testing.T) {
	eng, _ := createTestEngine(t, history(5), 2, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if eng.Ready() {
		t.Error("cancelled run should not mark the engine ready")
	}
}

func TestEngine_Failure_ConcurrentRun(t *testing.T) {
	resolver := &blockingResolver{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	eng := NewEngine(Config{Location: location, Periods: []int{2}}, store.New(store.Config{}, nil), resolver, nil)

	done := make(chan error, 1)
	go func() {
		_, err := eng.Run(context.Background())
		done <- err
	}()

	<-resolver.started

	if !eng.IsRunning() {
		t.Error("engine should be running")
	}
	if _, err := eng.Run(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("second run err = %v, want ErrRunInProgress", err)
	}
	if _, err := eng.Reload(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("reload err = %v, want ErrRunInProgress", err)
	}

	close(resolver.release)

	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
	if eng.IsRunning() {
		t.Error("engine should not be running after completion")
	}
}

package store

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_OnlyLastTaskRuns(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)

	var first, second atomic.Int32
	d.Schedule(func() { first.Add(1) })
	d.Schedule(func() { second.Add(1) })

	time.Sleep(100 * time.Millisecond)

	if first.Load() != 0 {
		t.Error("置き換えられたタスクは実行されてはならない")
	}
	if second.Load() != 1 {
		t.Errorf("最後のタスクの実行回数 = %d, want 1", second.Load())
	}
}

func TestDebouncer_TaskRunsAfterDelay(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	done := make(chan struct{})
	d.Schedule(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("遅延経過後にタスクが実行されるべき")
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)

	var ran atomic.Int32
	d.Schedule(func() { ran.Add(1) })
	d.Cancel()

	time.Sleep(100 * time.Millisecond)

	if ran.Load() != 0 {
		t.Error("取り消されたタスクは実行されてはならない")
	}
}

func TestDebouncer_CancelWithoutSchedule(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	// 未予約でのCancelはパニックしないこと
	d.Cancel()
}

func TestNewDebouncer_DefaultDelay(t *testing.T) {
	d := NewDebouncer(0)
	if d.delay != 400*time.Millisecond {
		t.Errorf("delay = %v, want %v", d.delay, 400*time.Millisecond)
	}
}

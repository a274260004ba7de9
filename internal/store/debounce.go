package store

import (
	"sync"
	"time"
)

// Debouncer は検索入力のようなバースト的なイベントを1つの遅延タスクへ集約する。
// Scheduleのたびに前回のタスクは取り消され、最後の呼び出しだけが
// 遅延経過後に実行される（superseding）。
type Debouncer struct {
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer はDebouncerの新しいインスタンスを生成する。
// delayが0以下の場合はデフォルト値400msを使用する。
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = 400 * time.Millisecond
	}
	return &Debouncer{delay: delay}
}

// Schedule はfnを遅延実行として予約する。保留中のタスクがあれば置き換える。
func (d *Debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Cancel は保留中のタスクを取り消す。ビューの破棄時に必ず呼ぶこと。
// 既に実行済み・未予約の場合は何もしない。
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

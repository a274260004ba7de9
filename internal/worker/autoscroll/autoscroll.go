// Package autoscroll はギャラリーの自動送りタイマーを提供する。
// 低優先度の独立したタイマータスクであり、ストア状態への依存は
// 現在のアイテム数の読み取りのみ。コンポーネント破棄時には
// コンテキストのキャンセルで必ず停止させること。
package autoscroll

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ItemCounter は自動送りの対象コレクションのアイテム数を提供するインターフェース。
// store.ListSyncStoreが実装する。
type ItemCounter interface {
	ItemCount() int
}

// Scroller はギャラリーの横スクロール位置を一定間隔で自動的に進める。
// アイテム数がしきい値以下の間は何もせず、規定回数進めるか
// ユーザー操作を検知した時点で自動送りを終了する。
type Scroller struct {
	counter     ItemCounter
	logger      *slog.Logger
	interval    time.Duration
	threshold   int
	maxAdvances int

	mu       sync.Mutex
	offset   int
	advances int
	stopped  bool
}

// NewScroller はScrollerの新しいインスタンスを生成する。
// intervalが0以下の場合は1秒、thresholdが0以下の場合は4、
// maxAdvancesが0以下の場合は2を使用する。
func NewScroller(counter ItemCounter, logger *slog.Logger, interval time.Duration, threshold, maxAdvances int) *Scroller {
	if interval <= 0 {
		interval = time.Second
	}
	if threshold <= 0 {
		threshold = 4
	}
	if maxAdvances <= 0 {
		maxAdvances = 2
	}
	return &Scroller{
		counter:     counter,
		logger:      logger,
		interval:    interval,
		threshold:   threshold,
		maxAdvances: maxAdvances,
	}
}

// Start はティッカーで自動送りループを起動する。
// コンテキストのキャンセル、規定回数の到達、ユーザー操作のいずれかで終了する。
// 破棄後のコンポーネントに作用しないよう、呼び出し側はビューの破棄時に
// 必ずコンテキストをキャンセルすること。
func (s *Scroller) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("自動送りタイマーを開始しました",
		slog.Duration("interval", s.interval),
		slog.Int("max_advances", s.maxAdvances),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("自動送りタイマーを停止しました")
			return
		case <-ticker.C:
			if !s.tick() {
				return
			}
		}
	}
}

// tick は1回分の自動送りを試みる。継続する場合はtrueを返す。
func (s *Scroller) tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}

	// アイテムが少ない間は送らないが、増えるまで待機は続ける
	if s.counter.ItemCount() <= s.threshold {
		return true
	}

	s.offset++
	s.advances++
	if s.advances >= s.maxAdvances {
		s.stopped = true
		return false
	}
	return true
}

// MarkInteraction はユーザー操作を通知し、以後の自動送りを止める。
func (s *Scroller) MarkInteraction() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

// Offset は現在のスクロール位置を返す。描画層が読み取る。
func (s *Scroller) Offset() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset
}

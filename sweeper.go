package community_chat

import (
	"context"
	"log"
	"time"

	"github.com/lusotown/community-chat/service"
)

// runTypingSweeper 周期清扫过期的输入指示器行。读取侧的 30 秒窗口
// 已经保证展示正确，这里只是控制表的体积。
func runTypingSweeper(ctx context.Context, ps *service.PresenceService, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := ps.SweepStaleTyping(retention)
			if err != nil {
				log.Printf("typing sweep: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("typing sweep: removed %d stale rows", n)
			}
		}
	}
}

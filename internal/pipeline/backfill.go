package pipeline

import (
	"context"
	"fmt"

	"social-feed-go/internal/model"
	"social-feed-go/pkg/log"
)

// BackfillStore 按主键分批遍历帖子。
type BackfillStore interface {
	FindAfterID(ctx context.Context, afterID uint, limit int) ([]model.Post, error)
	Count(ctx context.Context) (int64, error)
}

// BackfillStats 汇总一次全量重算的结果。
type BackfillStats struct {
	Scanned  int
	Embedded int
	Failed   int
}

// Backfill 遍历所有帖子并重算过期的向量，单个帖子失败不会中断遍历。
// onProgress 在每个帖子处理后被调用，参数为已处理的数量。
func (p *Processor) Backfill(ctx context.Context, store BackfillStore, batchSize int, force bool, onProgress func(scanned int)) (BackfillStats, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	var stats BackfillStats
	var lastID uint
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		posts, err := store.FindAfterID(ctx, lastID, batchSize)
		if err != nil {
			return stats, fmt.Errorf("读取帖子批次失败, afterID: %d: %w", lastID, err)
		}
		if len(posts) == 0 {
			break
		}

		for i := range posts {
			embedded, err := p.Embed(ctx, &posts[i], force)
			switch {
			case err != nil:
				stats.Failed++
			case embedded:
				stats.Embedded++
			}
			stats.Scanned++
			if onProgress != nil {
				onProgress(stats.Scanned)
			}
		}
		lastID = posts[len(posts)-1].ID
		if len(posts) < batchSize {
			break
		}
	}

	log.Infof("[Processor] 全量向量重算完成, 扫描: %d, 重算: %d, 失败: %d", stats.Scanned, stats.Embedded, stats.Failed)
	return stats, nil
}

package services

import (
	"time"

	"secondcycle_go/config"
	"secondcycle_go/middleware"
	"secondcycle_go/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SweeperService 发布过期清理任务
// 定时把 APPROVED 且已过期的发布转为 HIDDEN
type SweeperService struct {
	db       *gorm.DB
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewSweeperService 创建过期清理任务实例
func NewSweeperService(interval time.Duration) *SweeperService {
	return &SweeperService{
		db:       config.DB,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start 启动定时任务
// 单次失败只记日志，下个周期自然重试（谓词幂等，无需清理半成品状态）
func (ss *SweeperService) Start() {
	go func() {
		defer close(ss.done)

		ticker := time.NewTicker(ss.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				count, err := ss.SweepOnce(time.Now())
				if err != nil {
					middleware.ErrorLogger("listing sweep failed", zap.Error(err))
					continue
				}
				if count > 0 {
					middleware.InfoLogger("hidden expired listings", zap.Int64("count", count))
				}
			case <-ss.stop:
				return
			}
		}
	}()
}

// Stop 停止定时任务并等待退出
func (ss *SweeperService) Stop() {
	close(ss.stop)
	<-ss.done
}

// SweepOnce 执行一次清理
// 单条条件批量更新，状态+过期时间一起做谓词，
// 不走先读后写，避免清理和审核/续期之间的竞争
func (ss *SweeperService) SweepOnce(now time.Time) (int64, error) {
	result := ss.db.Model(&models.Listing{}).
		Where("status = ? AND expires_at < ?", models.ListingApproved, now).
		Updates(map[string]interface{}{
			"status":     models.ListingHidden,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}

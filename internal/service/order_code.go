package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/phacogen-next/internal/cache"
	"github.com/phacogen-next/internal/constants"
	"github.com/phacogen-next/internal/logger"
	"github.com/phacogen-next/internal/repository"
)

const orderCodeSequenceTTL = 48 * time.Hour

// OrderCodeGenerator 生成每日递增的采样单编号，格式 TM-ddmmyy-NNN
type OrderCodeGenerator struct {
	prefix    string
	loc       *time.Location
	orderRepo repository.SampleOrderRepository
	seqRepo   repository.OrderSequenceRepository
	useRedis  func() bool
	now       func() time.Time
}

// NewOrderCodeGenerator 创建编号生成器
func NewOrderCodeGenerator(prefix string, loc *time.Location, orderRepo repository.SampleOrderRepository, seqRepo repository.OrderSequenceRepository) *OrderCodeGenerator {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = constants.DefaultOrderCodePrefix
	}
	if loc == nil {
		loc = time.Local
	}
	return &OrderCodeGenerator{
		prefix:    prefix,
		loc:       loc,
		orderRepo: orderRepo,
		seqRepo:   seqRepo,
		useRedis:  cache.Enabled,
		now:       time.Now,
	}
}

// Next 返回当天下一个编号
func (g *OrderCodeGenerator) Next(ctx context.Context) (string, error) {
	day := g.now().In(g.loc).Format(constants.OrderCodeDateLayout)
	dayPrefix := g.dayPrefix(day)

	if g.useRedis != nil && g.useRedis() {
		seq, err := g.nextFromRedis(ctx, day, dayPrefix)
		if err == nil {
			return formatOrderCode(dayPrefix, seq), nil
		}
		logger.Warnw("sample_order_code_redis_failed", "day", day, "error", err)
	}

	seq, err := g.seqRepo.Next(ctx, day, func(ctx context.Context) (int, error) {
		return g.currentMax(ctx, dayPrefix)
	})
	if err != nil {
		return "", fmt.Errorf("next order code sequence: %w", err)
	}
	return formatOrderCode(dayPrefix, seq), nil
}

// Resync 唯一索引冲突后以库中最大编号重置计数器
func (g *OrderCodeGenerator) Resync(ctx context.Context) {
	if g.useRedis == nil || !g.useRedis() {
		return
	}
	day := g.now().In(g.loc).Format(constants.OrderCodeDateLayout)
	if err := cache.Del(ctx, orderCodeSequenceKey(day)); err != nil {
		logger.Warnw("sample_order_code_resync_failed", "day", day, "error", err)
	}
}

func (g *OrderCodeGenerator) nextFromRedis(ctx context.Context, day, dayPrefix string) (int, error) {
	key := orderCodeSequenceKey(day)
	exists, err := cache.Exists(ctx, key)
	if err != nil {
		return 0, err
	}
	seed := 0
	if !exists {
		if seed, err = g.currentMax(ctx, dayPrefix); err != nil {
			return 0, err
		}
	}
	value, err := cache.NextDailySequence(ctx, key, seed, orderCodeSequenceTTL)
	if err != nil {
		return 0, err
	}
	return int(value), nil
}

func (g *OrderCodeGenerator) currentMax(ctx context.Context, dayPrefix string) (int, error) {
	code, err := g.orderRepo.MaxCodeWithPrefix(ctx, dayPrefix)
	if err != nil {
		return 0, err
	}
	return parseOrderCodeSequence(code, dayPrefix), nil
}

func (g *OrderCodeGenerator) dayPrefix(day string) string {
	return g.prefix + "-" + day + "-"
}

func orderCodeSequenceKey(day string) string {
	return "sample_order:code_seq:" + day
}

func formatOrderCode(dayPrefix string, seq int) string {
	return fmt.Sprintf("%s%03d", dayPrefix, seq)
}

// parseOrderCodeSequence 解析编号末尾序号，无法解析返回 0
func parseOrderCodeSequence(code, dayPrefix string) int {
	if code == "" || !strings.HasPrefix(code, dayPrefix) {
		return 0
	}
	seq, err := strconv.Atoi(strings.TrimPrefix(code, dayPrefix))
	if err != nil || seq < 0 {
		return 0
	}
	return seq
}

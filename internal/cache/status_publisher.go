// internal/cache/status_publisher.go
package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	rediskeys "waypoint-sequencer/internal/common/redis"
	"waypoint-sequencer/internal/interfaces"
	"waypoint-sequencer/internal/mission"
	"waypoint-sequencer/internal/utils"
)

// StatusPublisher mirrors mission snapshots into a Redis hash.
// MissionUpdated never blocks: a single pending slot keeps only the newest
// snapshot and Run writes it out.
type StatusPublisher struct {
	cache   interfaces.CacheService
	logger  interfaces.Logger
	ttl     time.Duration
	changes *utils.StatusCache
	limiter *utils.RateLimiter
	pending chan mission.Status

	mu       sync.Mutex
	versions map[string]uint64
}

// NewStatusPublisher 상태 발행기 생성. minInterval 은 피드백만 바뀐 스냅샷의 최소 간격
func NewStatusPublisher(cache interfaces.CacheService, logger interfaces.Logger, ttl, minInterval time.Duration) *StatusPublisher {
	return &StatusPublisher{
		cache:   cache,
		logger:  logger,
		ttl:     ttl,
		changes: utils.NewStatusCache(10 * time.Second),
		limiter: utils.NewRateLimiter(minInterval),
		pending: make(chan mission.Status, 1),

		versions: make(map[string]uint64),
	}
}

var _ mission.StatusSink = (*StatusPublisher)(nil)

// MissionUpdated queues the snapshot, replacing one not yet written.
// A snapshot older than one already seen for the same mission is dropped.
func (p *StatusPublisher) MissionUpdated(s mission.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s.Version != 0 {
		if s.Version <= p.versions[s.MissionID] {
			return
		}
		p.versions[s.MissionID] = s.Version
	}

	sig := signature(s)
	if !p.changes.ShouldUpdate(s.MissionID, sig) && !p.limiter.Allow(s.MissionID) {
		return
	}
	p.changes.Update(s.MissionID, sig)

	for {
		select {
		case p.pending <- s:
			return
		default:
		}
		select {
		case <-p.pending:
		default:
		}
	}
}

// Run writes queued snapshots until ctx is done, then flushes the last one.
func (p *StatusPublisher) Run(ctx context.Context) error {
	for {
		select {
		case s := <-p.pending:
			p.write(ctx, s)
		case <-ctx.Done():
			select {
			case s := <-p.pending:
				flushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				p.write(flushCtx, s)
				cancel()
			default:
			}
			return nil
		}
	}
}

func (p *StatusPublisher) write(ctx context.Context, s mission.Status) {
	if err := p.Write(ctx, s); err != nil {
		p.logger.Warnf("Failed to cache mission status %s: %v", s.MissionID, err)
	}
}

// Write stores the snapshot synchronously.
func (p *StatusPublisher) Write(ctx context.Context, s mission.Status) error {
	key := rediskeys.MissionStatus(s.MissionID)
	if err := p.cache.HSet(ctx, key, StatusFields(s)); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if p.ttl > 0 {
		if err := p.cache.Expire(ctx, key, p.ttl); err != nil {
			return fmt.Errorf("failed to set ttl on %s: %w", key, err)
		}
	}
	if err := p.cache.HSet(ctx, rediskeys.CurrentMissionKey, map[string]interface{}{
		"mission_id": s.MissionID,
		"state":      s.State,
	}); err != nil {
		return fmt.Errorf("failed to write %s: %w", rediskeys.CurrentMissionKey, err)
	}
	return nil
}

// Read 저장된 미션 상태 해시 조회
func (p *StatusPublisher) Read(ctx context.Context, missionID string) (map[string]string, error) {
	return p.cache.HGetAll(ctx, rediskeys.MissionStatus(missionID))
}

// StatusFields flattens a snapshot into hash fields.
func StatusFields(s mission.Status) map[string]interface{} {
	fields := map[string]interface{}{
		"mission_id":       s.MissionID,
		"version":          s.Version,
		"state":            s.State,
		"outcome":          string(s.Outcome),
		"frame":            s.Frame,
		"goal_total":       s.GoalTotal,
		"goal_count":       s.GoalCount,
		"cursor":           s.Cursor,
		"skipped":          s.Skipped,
		"cancel_requested": strconv.FormatBool(s.CancelRequested),
		"last_result":      s.LastResult,
		"reason":           s.Reason,
		"updated_at":       time.Now().Format(time.RFC3339),
	}
	if s.Progress != nil {
		fields["goal_index"] = s.Progress.GoalIndex
		fields["x"] = strconv.FormatFloat(s.Progress.X, 'f', 3, 64)
		fields["y"] = strconv.FormatFloat(s.Progress.Y, 'f', 3, 64)
		fields["distance_remaining"] = strconv.FormatFloat(s.Progress.DistanceRemaining, 'f', 3, 64)
	}
	return fields
}

func signature(s mission.Status) string {
	return fmt.Sprintf("%s|%d|%d|%t|%s", s.State, s.GoalCount, s.Cursor, s.CancelRequested, s.LastResult)
}

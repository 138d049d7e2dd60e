package utils

import (
	"sync"
	"time"
)

// StatusCache 상태 변경 감지를 위한 캐시
type StatusCache struct {
	mu        sync.RWMutex
	statusMap map[string]*StatusEntry
	heartbeat time.Duration
}

// StatusEntry 캐시 엔트리
type StatusEntry struct {
	Status      string
	LastSent    time.Time
	UpdateCount int
}

// NewStatusCache 새 상태 캐시 생성. heartbeat 가 지나면 같은 상태라도 다시 보낸다
func NewStatusCache(heartbeat time.Duration) *StatusCache {
	return &StatusCache{
		statusMap: make(map[string]*StatusEntry),
		heartbeat: heartbeat,
	}
}

// ShouldUpdate 상태 업데이트 필요 여부 확인
func (c *StatusCache) ShouldUpdate(key string, newStatus string) bool {
	c.mu.RLock()
	entry, exists := c.statusMap[key]
	c.mu.RUnlock()

	// 첫 상태
	if !exists {
		return true
	}

	// 상태가 변경된 경우
	if entry.Status != newStatus {
		return true
	}

	// 하트비트
	return c.heartbeat > 0 && time.Since(entry.LastSent) > c.heartbeat
}

// Update 상태 업데이트
func (c *StatusCache) Update(key string, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.statusMap[key]; exists {
		entry.Status = status
		entry.LastSent = time.Now()
		entry.UpdateCount++
		return
	}
	c.statusMap[key] = &StatusEntry{Status: status, LastSent: time.Now(), UpdateCount: 1}
}

// Get 캐시된 상태 조회
func (c *StatusCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if entry, exists := c.statusMap[key]; exists {
		return entry.Status, true
	}
	return "", false
}

// Remove 키 삭제
func (c *StatusCache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.statusMap, key)
}

// RateLimiter 전송 속도 제한
type RateLimiter struct {
	mu          sync.Mutex
	lastSent    map[string]time.Time
	minInterval time.Duration
}

// NewRateLimiter 새 속도 제한기 생성
func NewRateLimiter(minInterval time.Duration) *RateLimiter {
	return &RateLimiter{
		lastSent:    make(map[string]time.Time),
		minInterval: minInterval,
	}
}

// Allow 전송 허용 여부
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if lastTime, exists := r.lastSent[key]; exists && now.Sub(lastTime) < r.minInterval {
		return false
	}
	r.lastSent[key] = now
	return true
}

// Reset 속도 제한 초기화
func (r *RateLimiter) Reset(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.lastSent, key)
}

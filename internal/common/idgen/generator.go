// internal/common/idgen/generator.go
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Generator ID 생성기
type Generator struct {
	prefix string
}

// NewGenerator 새 ID 생성기 생성
func NewGenerator(prefix ...string) *Generator {
	var p string
	if len(prefix) > 0 {
		p = prefix[0]
	}
	return &Generator{prefix: p}
}

// OrderID 오더 ID 생성 (32자리 hex)
func (g *Generator) OrderID() string {
	return g.generateHex(16)
}

// NodeID 노드 ID 생성 (32자리 hex)
func (g *Generator) NodeID() string {
	return g.generateHex(16)
}

// ActionID 액션 ID 생성 (32자리 hex)
func (g *Generator) ActionID() string {
	return g.generateHex(16)
}

// MissionID 짧은 미션 ID (uuid 앞 8자리)
func (g *Generator) MissionID() string {
	id := uuid.New().String()[:8]
	if g.prefix != "" {
		return g.prefix + "_" + id
	}
	return id
}

func (g *Generator) generateHex(byteCount int) string {
	randomBytes := make([]byte, byteCount)
	if _, err := rand.Read(randomBytes); err != nil {
		// 랜덤 생성 실패 시 타임스탬프 기반 fallback
		return fmt.Sprintf("fallback_%d", time.Now().UnixNano())
	}

	hexStr := hex.EncodeToString(randomBytes)
	if g.prefix != "" {
		return g.prefix + "_" + hexStr
	}
	return hexStr
}

// Default 기본 생성기
var Default = NewGenerator()

func OrderID() string   { return Default.OrderID() }
func NodeID() string    { return Default.NodeID() }
func ActionID() string  { return Default.ActionID() }
func MissionID() string { return Default.MissionID() }

// IsValidOrderID 오더 ID 유효성 검사
func IsValidOrderID(id string) bool {
	if len(id) != 32 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}

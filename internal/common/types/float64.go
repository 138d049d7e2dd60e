// internal/common/types/float64.go
package types

import (
	"strconv"
	"strings"
)

// Float64 항상 소수점을 포함하는 float64 (JSON 마샬링용).
// 일부 로봇 펌웨어는 정수 리터럴을 좌표로 받지 않는다.
type Float64 float64

// MarshalJSON 최소 자릿수로 출력하되 소수점은 반드시 포함
func (f Float64) MarshalJSON() ([]byte, error) {
	s := strconv.FormatFloat(float64(f), 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return []byte(s), nil
}

// UnmarshalJSON JSON 언마샬링
func (f *Float64) UnmarshalJSON(data []byte) error {
	val, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*f = Float64(val)
	return nil
}

// Float64Value float64 값 반환
func (f Float64) Float64Value() float64 {
	return float64(f)
}

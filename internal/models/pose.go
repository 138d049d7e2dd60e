// internal/models/pose.go
package models

import "math"

// Point 3차원 위치
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Quaternion 방향 (x, y, z, w)
type Quaternion struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
	W float64 `json:"w" yaml:"w"`
}

// Pose 위치 + 방향. 시퀀스에 들어간 뒤에는 변경하지 않는다.
type Pose struct {
	Position    Point      `json:"position" yaml:"position"`
	Orientation Quaternion `json:"orientation" yaml:"orientation"`
}

// PoseArray 기준 좌표계와 함께 묶인 포즈 목록
type PoseArray struct {
	Frame string `json:"frame"`
	Poses []Pose `json:"poses"`
}

// NewPoseFromYaw 평면 yaw 각도(rad)로 포즈 생성
func NewPoseFromYaw(x, y, z, yaw float64) Pose {
	return Pose{
		Position:    Point{X: x, Y: y, Z: z},
		Orientation: QuaternionFromYaw(yaw),
	}
}

// QuaternionFromYaw z축 회전만 있는 쿼터니언
func QuaternionFromYaw(yaw float64) Quaternion {
	return Quaternion{Z: math.Sin(yaw / 2), W: math.Cos(yaw / 2)}
}

// Yaw 쿼터니언에서 z축 회전각(rad) 추출
func (q Quaternion) Yaw() float64 {
	sinyCosp := 2 * (q.W*q.Z + q.X*q.Y)
	cosyCosp := 1 - 2*(q.Y*q.Y+q.Z*q.Z)
	return math.Atan2(sinyCosp, cosyCosp)
}

// Norm 쿼터니언 크기
func (q Quaternion) Norm() float64 {
	return math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
}

// IsFinite 모든 성분이 유한한지 확인
func (p Pose) IsFinite() bool {
	for _, v := range []float64{
		p.Position.X, p.Position.Y, p.Position.Z,
		p.Orientation.X, p.Orientation.Y, p.Orientation.Z, p.Orientation.W,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Yaw 포즈의 평면 heading
func (p Pose) Yaw() float64 {
	return p.Orientation.Yaw()
}

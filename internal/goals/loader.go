package goals

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"waypoint-sequencer/internal/models"
)

// waypointFile is the on-disk layout:
//
//	frame: map
//	waypoints:
//	  - {x: 1.0, y: 2.0, yaw: 1.57}
//	  - position: {x: 3.0, y: 0.5, z: 0}
//	    orientation: {x: 0, y: 0, z: 0.7071, w: 0.7071}
type waypointFile struct {
	Frame     string         `yaml:"frame"`
	Waypoints []waypointSpec `yaml:"waypoints"`
}

type waypointSpec struct {
	X           *float64           `yaml:"x"`
	Y           *float64           `yaml:"y"`
	Z           float64            `yaml:"z"`
	Yaw         float64            `yaml:"yaw"`
	Position    *models.Point      `yaml:"position"`
	Orientation *models.Quaternion `yaml:"orientation"`
}

func (w waypointSpec) pose() (models.Pose, error) {
	var pos models.Point
	switch {
	case w.Position != nil:
		pos = *w.Position
	case w.X != nil && w.Y != nil:
		pos = models.Point{X: *w.X, Y: *w.Y, Z: w.Z}
	default:
		return models.Pose{}, fmt.Errorf("%w: missing position", ErrInvalidPose)
	}

	orientation := models.QuaternionFromYaw(w.Yaw)
	if w.Orientation != nil {
		orientation = *w.Orientation
	}
	return models.Pose{Position: pos, Orientation: orientation}, nil
}

// LoadFile YAML 웨이포인트 파일을 읽어 저장소 생성
func LoadFile(path, frame string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read waypoints file: %w", err)
	}
	return Parse(data, frame)
}

// Parse YAML 문서를 파싱한다. 파일에 frame 이 있으면 설정값과 같아야 한다.
func Parse(data []byte, frame string) (*Store, error) {
	var doc waypointFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse waypoints: %w", err)
	}
	if doc.Frame != "" && frame != "" && doc.Frame != frame {
		return nil, fmt.Errorf("waypoints are expressed in %q but the mission frame is %q", doc.Frame, frame)
	}
	if frame == "" {
		frame = doc.Frame
	}

	poses := make([]models.Pose, 0, len(doc.Waypoints))
	for i, w := range doc.Waypoints {
		p, err := w.pose()
		if err != nil {
			return nil, fmt.Errorf("waypoint %d: %w", i, err)
		}
		poses = append(poses, p)
	}
	return NewStore(frame, poses...)
}

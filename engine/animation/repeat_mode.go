package animation

import (
	"fmt"
	"strings"
)

// RepeatMode is the policy applied when playback time runs past a clip's end.
type RepeatMode int

const (
	// Loop wraps time back into the clip. It is the default.
	Loop RepeatMode = iota

	// PlayOnce resets the pose to the clip start once time passes the end.
	PlayOnce

	// PlayOnceHold clamps time to the clip end and holds the final pose.
	PlayOnceHold
)

func (m RepeatMode) String() string {
	switch m {
	case Loop:
		return "loop"
	case PlayOnce:
		return "once"
	case PlayOnceHold:
		return "hold"
	default:
		return fmt.Sprintf("RepeatMode(%d)", int(m))
	}
}

// ParseRepeatMode converts a config or flag value into a RepeatMode.
// Accepted values are "loop", "once" and "hold", case-insensitively.
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "loop", "":
		return Loop, nil
	case "once", "playonce":
		return PlayOnce, nil
	case "hold", "playoncehold":
		return PlayOnceHold, nil
	default:
		return Loop, fmt.Errorf("%w: %q", ErrRepeatMode, s)
	}
}

// UnmarshalText lets RepeatMode be decoded directly from environment variables and YAML.
func (m *RepeatMode) UnmarshalText(text []byte) error {
	v, err := ParseRepeatMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MarshalText is the inverse of UnmarshalText.
func (m RepeatMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Package posestore persists the manual pose overlay of animation updaters across runs.
//
// Overrides are stored as YAML under the "poses" object of a gdata manager, one property per
// saved name. Without a manager the store keeps everything in memory.
package posestore

import (
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/quasilyte/gdata/v2"
	"gopkg.in/yaml.v3"
)

const posesObject = "poses"

var (
	// ErrClipMismatch is returned when a saved overlay belongs to a different clip than the
	// updater it is loaded into.
	ErrClipMismatch = errors.New("posestore: overlay saved for a different clip")
)

// poseOverride is one stored keyframe orientation. Rotation is x, y, z, w.
type poseOverride struct {
	Bone     int        `yaml:"bone"`
	Frame    int        `yaml:"frame"`
	Rotation [4]float32 `yaml:"rotation"`
}

type poseRecord struct {
	Clip      string         `yaml:"clip"`
	Overrides []poseOverride `yaml:"overrides"`
}

// Store saves and restores pose overlays.
type Store struct {
	mu      sync.Mutex
	manager *gdata.Manager // may be nil: in-memory mode
	memory  map[string][]byte
}

// NewStore wraps a gdata manager. A nil manager keeps overlays in memory for the life of
// the Store.
//
// Parameters:
//   - manager: the gdata manager, or nil
//
// Returns:
//   - *Store: the store
func NewStore(manager *gdata.Manager) *Store {
	return &Store{
		manager: manager,
		memory:  make(map[string][]byte),
	}
}

// Open opens the per-user data directory of appName and returns a Store backed by it.
//
// Parameters:
//   - appName: the application name that scopes the data directory
//
// Returns:
//   - *Store: the store
//   - error: error if the data directory cannot be opened
func Open(appName string) (*Store, error) {
	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		return nil, fmt.Errorf("failed to open pose store %q: %w", appName, err)
	}
	return NewStore(m), nil
}

// Persistent reports whether the store writes to disk.
func (s *Store) Persistent() bool {
	return s.manager != nil
}

// Save stores the updater's current pose overrides under name, replacing any earlier entry.
//
// Parameters:
//   - name: the entry name
//   - u: the updater whose PoseOverrides are saved
//
// Returns:
//   - error: error if encoding or writing fails
func (s *Store) Save(name string, u animation.Updater) error {
	overrides := u.PoseOverrides()
	rec := poseRecord{
		Clip:      u.Clip().Name,
		Overrides: make([]poseOverride, 0, len(overrides)),
	}
	for k, q := range overrides {
		rec.Overrides = append(rec.Overrides, poseOverride{Bone: k.Bone, Frame: k.Frame, Rotation: common.QuatToXYZW(q)})
	}
	slices.SortFunc(rec.Overrides, func(a, b poseOverride) int {
		if a.Bone != b.Bone {
			return a.Bone - b.Bone
		}
		return a.Frame - b.Frame
	})

	data, err := yaml.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("failed to marshal pose %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.manager == nil {
		s.memory[name] = data
		return nil
	}
	if err := s.manager.SaveObjectProp(posesObject, name, data); err != nil {
		return fmt.Errorf("failed to save pose %q: %w", name, err)
	}
	log.Printf("[PoseStore] saved %d overrides for clip %q as %q", len(rec.Overrides), rec.Clip, name)
	return nil
}

// Load reapplies the overrides stored under name to u through SetPoseOverride.
// A missing entry is not an error and applies nothing.
//
// Parameters:
//   - name: the entry name
//   - u: the updater to apply the overrides to
//
// Returns:
//   - int: the number of overrides applied
//   - error: ErrClipMismatch, or an error if reading, decoding or applying fails
func (s *Store) Load(name string, u animation.Updater) (int, error) {
	data, ok, err := s.read(name)
	if err != nil || !ok {
		return 0, err
	}

	var rec poseRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return 0, fmt.Errorf("failed to unmarshal pose %q: %w", name, err)
	}
	if rec.Clip != u.Clip().Name {
		return 0, fmt.Errorf("%w: %q holds %q, updater plays %q", ErrClipMismatch, name, rec.Clip, u.Clip().Name)
	}

	for i, o := range rec.Overrides {
		key := animation.PoseKey{Bone: o.Bone, Frame: o.Frame}
		if err := u.SetPoseOverride(key, common.QuatFromXYZW(o.Rotation)); err != nil {
			return i, fmt.Errorf("pose %q override %d: %w", name, i, err)
		}
	}
	return len(rec.Overrides), nil
}

// Exists reports whether an entry is stored under name.
func (s *Store) Exists(name string) bool {
	_, ok, _ := s.read(name)
	return ok
}

func (s *Store) read(name string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.manager == nil {
		data, ok := s.memory[name]
		return data, ok, nil
	}
	if !s.manager.ObjectPropExists(posesObject, name) {
		return nil, false, nil
	}
	data, err := s.manager.LoadObjectProp(posesObject, name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load pose %q: %w", name, err)
	}
	return data, true, nil
}

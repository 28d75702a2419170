package director

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ivlev/simslides/internal/keyframe"
)

// Home is the cursor value of the camera's initial pose.
const Home = -1

// ErrOutOfRange is returned by At for an index outside the store.
var ErrOutOfRange = errors.New("keyframe index out of range")

// Direction of a single cursor step.
type Direction int

const (
	Next Direction = iota
	Previous
)

// Store holds the keyframes of a presentation in presentation order and the
// cursor pointing at the current one. The cursor is either Home or a valid
// index. Keyframes are only added by Load; the cursor may be moved from any
// goroutine.
type Store struct {
	mu        sync.RWMutex
	keyframes []keyframe.Keyframe
	cursor    int
	logger    *zap.SugaredLogger
}

// NewStore returns an empty store with the cursor at Home.
func NewStore(logger *zap.SugaredLogger) *Store {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Store{cursor: Home, logger: logger}
}

// Load parses descs and appends them in order. A description that fails to
// parse is logged and skipped; the rest still load. It returns how many
// keyframes were added and the combined errors of the skipped ones.
func (s *Store) Load(descs []keyframe.Description) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs error
	loaded := 0
	for i, d := range descs {
		k, err := keyframe.Parse(d)
		if err != nil {
			s.logger.Errorw("skipping keyframe", "position", i, "type", d.Type, "error", err)
			errs = multierr.Append(errs, errors.Wrapf(err, "keyframe %d", i))
			continue
		}
		s.logger.Debugw("keyframe loaded",
			"index", len(s.keyframes),
			"type", k.Type.String(),
			"slide", k.Slide,
			"visual", k.Visual,
			"eye_offset", k.EyeOffset.String(),
			"cam_pose", k.CamPose.String(),
			"log_seek", k.LogSeek,
			"text", k.Text,
		)
		s.keyframes = append(s.keyframes, k)
		loaded++
	}
	return loaded, errs
}

// Count is the number of loaded keyframes.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keyframes)
}

// At returns the keyframe at index i.
func (s *Store) At(i int) (keyframe.Keyframe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.keyframes) {
		return keyframe.Keyframe{}, errors.Wrapf(ErrOutOfRange, "index %d of %d", i, len(s.keyframes))
	}
	return s.keyframes[i], nil
}

// Keyframes returns a copy of all keyframes.
func (s *Store) Keyframes() []keyframe.Keyframe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]keyframe.Keyframe, len(s.keyframes))
	copy(out, s.keyframes)
	return out
}

// Cursor returns the current index, or Home.
func (s *Store) Cursor() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

// SetCursor jumps to i. Values past the last keyframe select the last one.
// Only the upper bound is clamped: Home is a legal target, and anything
// below it is treated as Home.
func (s *Store) SetCursor(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i > len(s.keyframes)-1 {
		i = len(s.keyframes) - 1
	}
	if i < Home {
		i = Home
	}
	s.cursor = i
}

// Advance moves one step without wrapping. Stepping past either end is a
// no-op so that held-down keys are harmless.
func (s *Store) Advance(dir Direction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch dir {
	case Next:
		if s.cursor+1 < len(s.keyframes) {
			s.cursor++
		}
	case Previous:
		if s.cursor >= 1 {
			s.cursor--
		}
	}
}

// Home moves the cursor to the initial camera pose.
func (s *Store) Home() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = Home
}

// current returns the cursor and, unless it is Home, its keyframe.
func (s *Store) current() (int, keyframe.Keyframe, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cursor < 0 || s.cursor >= len(s.keyframes) {
		return s.cursor, keyframe.Keyframe{}, false
	}
	return s.cursor, s.keyframes[s.cursor], true
}

// StackRun returns the keyframe indices of the stack containing i: the
// longest run of adjacent Stack keyframes around i whose slide numbers are
// consecutive. A keyframe that is not part of a stack is a run of one.
func (s *Store) StackRun(i int) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return stackRun(s.keyframes, i)
}

func stackRun(kfs []keyframe.Keyframe, i int) []int {
	if i < 0 || i >= len(kfs) {
		return nil
	}
	if kfs[i].Type != keyframe.Stack {
		return []int{i}
	}

	front := i
	for front > 0 &&
		kfs[front-1].Type == keyframe.Stack &&
		kfs[front].Slide-1 == kfs[front-1].Slide {
		front--
	}

	back := i
	for back+1 < len(kfs) &&
		kfs[back+1].Type == keyframe.Stack &&
		kfs[back].Slide+1 == kfs[back+1].Slide {
		back++
	}

	run := make([]int, 0, back-front+1)
	for j := front; j <= back; j++ {
		run = append(run, j)
	}
	return run
}

package sequence

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjeanneret/FocusRail/internal/logic/speed"
)

// memoryState keeps the last written snapshot.
type memoryState struct {
	snap    *Snapshot
	writes  int
	readErr error
	failErr error
}

func (m *memoryState) Read(maxPoints int) (Snapshot, error) {
	if m.readErr != nil {
		return Snapshot{}, m.readErr
	}
	if m.snap == nil {
		return Snapshot{}, fs.ErrNotExist
	}
	return Snapshot{Cursor: m.snap.Cursor, Points: append([]Point(nil), m.snap.Points...)}, nil
}

func (m *memoryState) Write(s Snapshot) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.writes++
	m.snap = &s
	return nil
}

func TestWrapNext_Property(t *testing.T) {
	for length := 1; length <= 7; length++ {
		s := NewStore(10, 5, nil)
		for i := 0; i < length; i++ {
			require.NoError(t, s.Append(Point{Steps: i}))
		}
		for cursor := 1; cursor <= length; cursor++ {
			assert.Equal(t, (cursor%length)+1, s.WrapNext(cursor), "length=%d cursor=%d", length, cursor)
		}
		assert.Equal(t, 1, s.WrapNext(length))
	}
}

func TestWrapNext_Degenerate(t *testing.T) {
	s := NewStore(10, 5, nil)
	assert.Equal(t, 0, s.WrapNext(0), "empty sequence")

	require.NoError(t, s.Append(Point{}))
	require.NoError(t, s.Append(Point{}))
	assert.Equal(t, 1, s.WrapNext(0), "unset cursor starts at 1")
	assert.Equal(t, 1, s.WrapNext(9), "stale cursor wraps to 1")
	assert.Equal(t, 1, s.WrapNext(-3))
}

func TestAppend_Monotonic(t *testing.T) {
	s := NewStore(3, 5, nil)
	points := []Point{
		{Steps: 0, SpeedIndex: 0, DistanceMm: 1000},
		{Steps: 50, SpeedIndex: 2, DistanceMm: 800},
		{Steps: 120, SpeedIndex: 4, DistanceMm: 600},
	}
	for i, p := range points {
		require.NoError(t, s.Append(p))
		assert.Equal(t, i+1, s.Len())
		got, ok := s.At(i + 1)
		require.True(t, ok)
		assert.Equal(t, p, got)
	}

	err := s.Append(Point{Steps: 999})
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, points, s.Points())
}

func TestAppend_FillsDefaultCapacity(t *testing.T) {
	s := NewStore(0, 1, nil)
	require.Equal(t, DefaultCapacity, s.Cap())
	for i := 0; i < DefaultCapacity; i++ {
		require.NoError(t, s.Append(Point{Steps: i}))
	}
	assert.ErrorIs(t, s.Append(Point{}), ErrCapacityExceeded)
	assert.Equal(t, DefaultCapacity, s.Len())
}

func TestAppend_RejectsUnknownSpeed(t *testing.T) {
	s := NewStore(3, 2, nil)
	assert.ErrorIs(t, s.Append(Point{SpeedIndex: 2}), speed.ErrIndexOutOfRange)
	assert.Zero(t, s.Len())
}

func TestAt_BoundsChecked(t *testing.T) {
	s := NewStore(3, 5, nil)
	require.NoError(t, s.Append(Point{Steps: 7}))
	s.Reset()

	_, ok := s.At(1)
	assert.False(t, ok, "stale point must not be readable after reset")
	_, ok = s.At(0)
	assert.False(t, ok)
	assert.Empty(t, s.Points())
}

func TestAdvanceAndSeekEnd(t *testing.T) {
	s := NewStore(5, 5, nil)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Append(Point{Steps: i * 10}))
	}
	s.SeekEnd()
	assert.Equal(t, 3, s.Cursor())
	assert.Equal(t, 1, s.Advance())
	assert.Equal(t, 2, s.Advance())
	assert.Equal(t, 3, s.Advance())
	assert.Equal(t, 1, s.Advance())
}

func TestSelectSpeed(t *testing.T) {
	s := NewStore(5, 3, nil)
	require.NoError(t, s.SelectSpeed(2))
	assert.Equal(t, 2, s.SelectedSpeed())
	assert.ErrorIs(t, s.SelectSpeed(3), speed.ErrIndexOutOfRange)
	assert.Equal(t, 2, s.SelectedSpeed())
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	mem := &memoryState{}
	s := NewStore(10, 5, mem)
	for i := 0; i < 4; i++ {
		require.NoError(t, s.Append(Point{Steps: i * -25, SpeedIndex: i, DistanceMm: 400 + i}))
	}
	s.SeekEnd()
	s.Advance()
	require.NoError(t, s.Save())

	fresh := NewStore(10, 5, mem)
	require.NoError(t, fresh.Load())
	assert.Equal(t, s.Cursor(), fresh.Cursor())
	assert.Equal(t, s.Len(), fresh.Len())
	assert.Equal(t, s.Points(), fresh.Points())
}

func TestLoad_MissingStateKeepsDefaults(t *testing.T) {
	s := NewStore(10, 5, &memoryState{})
	require.NoError(t, s.Load())
	assert.Zero(t, s.Len())
	assert.Zero(t, s.Cursor())
}

func TestLoad_ReadFailure(t *testing.T) {
	s := NewStore(10, 5, &memoryState{readErr: errors.New("disk gone")})
	err := s.Load()
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Zero(t, s.Len())
}

func TestSave_WriteFailure(t *testing.T) {
	s := NewStore(10, 5, &memoryState{failErr: errors.New("read-only")})
	assert.ErrorIs(t, s.Save(), ErrPersistence)
}

func TestLoad_ClampsPersistedState(t *testing.T) {
	cases := []struct {
		name       string
		snap       Snapshot
		wantLen    int
		wantCursor int
		wantSpeeds []int
	}{
		{
			name:       "cursor_past_end",
			snap:       Snapshot{Cursor: 9, Points: []Point{{}, {}}},
			wantLen:    2,
			wantCursor: 2,
			wantSpeeds: []int{0, 0},
		},
		{
			name:       "cursor_zero",
			snap:       Snapshot{Cursor: 0, Points: []Point{{SpeedIndex: 1}}},
			wantLen:    1,
			wantCursor: 1,
			wantSpeeds: []int{1},
		},
		{
			name:       "empty_with_cursor",
			snap:       Snapshot{Cursor: 4},
			wantLen:    0,
			wantCursor: 0,
		},
		{
			name:       "more_points_than_capacity",
			snap:       Snapshot{Cursor: 5, Points: make([]Point, 5)},
			wantLen:    3,
			wantCursor: 3,
			wantSpeeds: []int{0, 0, 0},
		},
		{
			name:       "unknown_speed",
			snap:       Snapshot{Cursor: 1, Points: []Point{{SpeedIndex: 9}, {SpeedIndex: -1}, {SpeedIndex: 4}}},
			wantLen:    3,
			wantCursor: 1,
			wantSpeeds: []int{0, 0, 4},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewStore(3, 5, &memoryState{snap: &tc.snap})
			require.NoError(t, s.Load())
			assert.Equal(t, tc.wantLen, s.Len())
			assert.Equal(t, tc.wantCursor, s.Cursor())
			var speeds []int
			for _, p := range s.Points() {
				speeds = append(speeds, p.SpeedIndex)
			}
			assert.Equal(t, tc.wantSpeeds, speeds)
		})
	}
}

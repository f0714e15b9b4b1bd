package status

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/orator/internal/platform"
	"github.com/keshon/orator/internal/platform/platformtest"
	"github.com/keshon/orator/internal/storage/filestore"
)

var fallback = Status{Name: "with commands", Type: platform.ActivityPlaying}

func newManager(t *testing.T, opts Options) (*Manager, *platformtest.Session) {
	t.Helper()
	store, err := filestore.Open(filepath.Join(t.TempDir(), "data.json"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sess := platformtest.New("bot")
	opts.Default = fallback
	opts.Log = zerolog.Nop()
	m := New(store, sess, opts)
	t.Cleanup(m.Stop)
	return m, sess
}

func add(t *testing.T, m *Manager, names ...string) {
	t.Helper()
	for _, n := range names {
		_, err := m.AddStatus(context.Background(), Status{Name: n})
		require.NoError(t, err)
	}
}

func TestParse(t *testing.T) {
	st, err := Parse("Overwatch|0")
	require.NoError(t, err)
	assert.Equal(t, Status{Name: "Overwatch", Type: platform.ActivityPlaying}, st)

	st, err = Parse("lofi beats|2")
	require.NoError(t, err)
	assert.Equal(t, platform.ActivityListening, st.Type)

	st, err = Parse("Tetris")
	require.NoError(t, err)
	assert.Equal(t, platform.ActivityPlaying, st.Type)

	for _, bad := range []string{"", "|0", "Overwatch|x", "Overwatch|42"} {
		_, err := Parse(bad)
		assert.ErrorIs(t, err, ErrInvalidStatus, bad)
	}
}

func TestSetStatus_Concrete(t *testing.T) {
	ctx := context.Background()
	m, sess := newManager(t, Options{})

	require.NoError(t, m.SetStatus(ctx, &Status{Name: "Overwatch"}))
	assert.Equal(t, "Overwatch", m.Current().Name)
	p, _ := sess.LastPresence()
	assert.Equal(t, "Overwatch", p.Name)

	assert.ErrorIs(t, m.SetStatus(ctx, &Status{Name: ""}), ErrInvalidStatus)
	assert.ErrorIs(t, m.SetStatus(ctx, &Status{Name: "x", Type: 99}), ErrInvalidStatus)
	assert.Equal(t, "Overwatch", m.Current().Name)
}

func TestSetStatus_ManualIsNoop(t *testing.T) {
	ctx := context.Background()
	m, sess := newManager(t, Options{Mode: ModeManual})
	add(t, m, "a", "b")

	require.NoError(t, m.SetStatus(ctx, nil))
	assert.Empty(t, sess.PresenceHistory())
}

func TestSetStatus_Rotation(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, Options{Mode: ModeRotation})
	add(t, m, "a", "b", "c")

	var seen []string
	for i := 0; i < 4; i++ {
		require.NoError(t, m.SetStatus(ctx, nil))
		seen = append(seen, m.Current().Name)
	}
	assert.Equal(t, []string{"a", "b", "c", "a"}, seen)
}

func TestSetStatus_RandomExcludesCurrent(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, Options{Mode: ModeRandom, Intn: func(int) int { return 0 }})
	add(t, m, "a", "b", "c")

	require.NoError(t, m.SetStatus(ctx, &Status{Name: "a"}))
	require.NoError(t, m.SetStatus(ctx, nil))
	assert.Equal(t, "b", m.Current().Name)
	require.NoError(t, m.SetStatus(ctx, nil))
	assert.Equal(t, "a", m.Current().Name)
}

func TestSetStatus_EmptyStoreUsesDefault(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, Options{Mode: ModeRandom})

	require.NoError(t, m.SetStatus(ctx, nil))
	assert.Equal(t, fallback, m.Current())
}

func TestAddStatus_RejectsDuplicates(t *testing.T) {
	m, _ := newManager(t, Options{})
	add(t, m, "Overwatch")

	_, err := m.AddStatus(context.Background(), Status{Name: "overwatch"})
	assert.ErrorIs(t, err, ErrDuplicate)
	_, err = m.AddStatus(context.Background(), Status{})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestDeleteStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("active in rotation selects another", func(t *testing.T) {
		m, _ := newManager(t, Options{Mode: ModeRotation})
		add(t, m, "a", "b")
		require.NoError(t, m.SetStatus(ctx, &Status{Name: "a"}))

		require.NoError(t, m.DeleteStatus(ctx, "A"))
		assert.Equal(t, "b", m.Current().Name)
	})

	t.Run("active in manual falls back to default", func(t *testing.T) {
		m, _ := newManager(t, Options{Mode: ModeManual})
		add(t, m, "a", "b")
		require.NoError(t, m.SetStatus(ctx, &Status{Name: "a"}))

		require.NoError(t, m.DeleteStatus(ctx, "a"))
		assert.Equal(t, fallback, m.Current())
	})

	t.Run("last one falls back to default", func(t *testing.T) {
		m, _ := newManager(t, Options{Mode: ModeRotation})
		add(t, m, "a")
		require.NoError(t, m.SetStatus(ctx, &Status{Name: "b"}))

		require.NoError(t, m.DeleteStatus(ctx, "a"))
		assert.Equal(t, fallback, m.Current())
	})

	t.Run("inactive keeps current", func(t *testing.T) {
		m, _ := newManager(t, Options{Mode: ModeRotation})
		add(t, m, "a", "b")
		require.NoError(t, m.SetStatus(ctx, &Status{Name: "a"}))

		require.NoError(t, m.DeleteStatus(ctx, "b"))
		assert.Equal(t, "a", m.Current().Name)
	})

	t.Run("unknown", func(t *testing.T) {
		m, _ := newManager(t, Options{})
		assert.ErrorIs(t, m.DeleteStatus(ctx, "nope"), ErrUnknown)
	})
}

func TestTimer_RunsOnlyWithSeveralCandidates(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, Options{Mode: ModeRotation, Interval: time.Hour})
	require.NoError(t, m.Start(ctx))
	assert.False(t, m.TimerRunning())

	add(t, m, "a")
	assert.False(t, m.TimerRunning())

	add(t, m, "b")
	assert.True(t, m.TimerRunning())

	require.NoError(t, m.DeleteStatus(ctx, "b"))
	assert.False(t, m.TimerRunning())

	add(t, m, "c")
	assert.True(t, m.TimerRunning())
	require.NoError(t, m.SetMode(ctx, ModeManual))
	assert.False(t, m.TimerRunning())

	assert.ErrorIs(t, m.SetMode(ctx, "sideways"), ErrInvalidMode)
}

func TestTimer_RotatesOnTick(t *testing.T) {
	ctx := context.Background()
	m, sess := newManager(t, Options{Mode: ModeRotation, Interval: 10 * time.Millisecond})
	add(t, m, "a", "b")
	require.NoError(t, m.Start(ctx))

	assert.Eventually(t, func() bool {
		return len(sess.PresenceHistory()) >= 3
	}, time.Second, 5*time.Millisecond)
}

package archive

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildfunctions/evogp/pkg/gp"
	"github.com/wildfunctions/evogp/pkg/pool"
	"github.com/wildfunctions/evogp/pkg/symreg"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenRequiresDir(t *testing.T) {
	_, err := Open(Options{})
	assert.Error(t, err)
}

func TestRuns(t *testing.T) {
	s := openMemory(t)
	first := &Run{Target: "poly3", Pool: "moderate", Strategy: "simple", Seed: 1, StartedAt: time.Unix(100, 0).UTC()}
	second := &Run{Target: "quartic", Pool: "conservative", Strategy: "hillclimb", Seed: 2, StartedAt: time.Unix(50, 0).UTC()}
	require.NoError(t, s.PutRun(first))
	require.NoError(t, s.PutRun(second))
	assert.NotEqual(t, uuid.Nil, first.ID)

	got, err := s.GetRun(first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "poly3", got.Target)
	assert.Equal(t, "simple", got.Strategy)
	assert.Equal(t, int64(1), got.Seed)
	assert.True(t, first.StartedAt.Equal(got.StartedAt))

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)

	_, err = s.GetRun(uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordsRoundTrip(t *testing.T) {
	s := openMemory(t)
	p, err := pool.Get("moderate")
	require.NoError(t, err)
	pset, err := p.Build(1)
	require.NoError(t, err)

	run := &Run{Target: "poly3"}
	require.NoError(t, s.PutRun(run))

	rng := rand.New(rand.NewSource(42))
	trees := map[int]*gp.Tree{}
	for _, gen := range []int{10, 2, 0} {
		tree, err := gp.GenHalfAndHalf(rng, pset, 1, 4, pool.Float)
		require.NoError(t, err)
		doc, err := pset.Serialize(tree)
		require.NoError(t, err)
		trees[gen] = tree
		require.NoError(t, s.Put(&Record{
			RunID:      run.ID,
			Generation: gen,
			Fitness:    symreg.Fitness{Combined: -float64(gen), MSE: float64(gen), Size: tree.Size()},
			Expression: pset.Format(tree),
			Tree:       doc,
		}))
	}

	recs, err := s.List(run.ID)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for i, gen := range []int{0, 2, 10} {
		rec := recs[i]
		assert.Equal(t, gen, rec.Generation)
		restored, err := Restore(pset, rec)
		require.NoError(t, err)
		assert.True(t, restored.IsSubtreeEffectivelySame(trees[gen]))
		assert.Equal(t, pset.Format(trees[gen]), rec.Expression)
	}

	best, err := s.Best(run.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, best.Generation)

	other, err := s.List(uuid.New())
	require.NoError(t, err)
	assert.Empty(t, other)
	_, err = s.Best(uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutValidation(t *testing.T) {
	s := openMemory(t)
	assert.Error(t, s.Put(&Record{Generation: 1}))
	assert.Error(t, s.Put(&Record{RunID: uuid.New(), Fitness: symreg.WorstFitness()}))
}

func TestDeleteRun(t *testing.T) {
	s := openMemory(t)
	keep := &Run{Target: "a"}
	drop := &Run{Target: "b"}
	require.NoError(t, s.PutRun(keep))
	require.NoError(t, s.PutRun(drop))
	for gen := range 3 {
		require.NoError(t, s.Put(&Record{RunID: keep.ID, Generation: gen}))
		require.NoError(t, s.Put(&Record{RunID: drop.ID, Generation: gen}))
	}

	require.NoError(t, s.DeleteRun(drop.ID))
	_, err := s.GetRun(drop.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	recs, err := s.List(drop.ID)
	require.NoError(t, err)
	assert.Empty(t, recs)

	recs, err = s.List(keep.ID)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

package revision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashfox/gateway/project"
)

func sample(name string) *project.Snapshot {
	return &project.Snapshot{
		ID:   "p1",
		Name: name,
		Bones: []project.Bone{
			{ID: "b1", Name: "root", Pivot: [3]float64{0, 0, 0}, Visibility: true},
		},
	}
}

func TestHashPurity(t *testing.T) {
	s := sample("alpha")
	h1 := Hash(s)
	h2 := Hash(s.Clone())
	assert.Equal(t, h1, h2, "hash(clone(s)) must equal hash(s)")
}

func TestHashMutateThenUndo(t *testing.T) {
	s := sample("alpha")
	before := Hash(s)

	s.Name = "beta"
	require.NotEqual(t, before, Hash(s))

	s.Name = "alpha"
	assert.Equal(t, before, Hash(s), "hash(mutate-then-undo(s)) must equal hash(s)")
}

func TestStoreCapacityBound(t *testing.T) {
	st := New(5)
	for i := 0; i < 10; i++ {
		st.Track(sample(string(rune('a' + i))))
	}
	assert.LessOrEqual(t, st.Len(), 5)
}

func TestStoreFIFOEviction(t *testing.T) {
	st := New(2)
	r1 := st.Track(sample("one"))
	_ = st.Track(sample("two"))
	st.Track(sample("three"))

	assert.Nil(t, st.Get(r1), "oldest revision should have been evicted")
}

func TestStoreGetReturnsClone(t *testing.T) {
	st := New(5)
	s := sample("alpha")
	rev := st.Track(s)

	got := st.Get(rev)
	require.NotNil(t, got)
	got.Name = "mutated"

	again := st.Get(rev)
	require.NotNil(t, again)
	assert.Equal(t, "alpha", again.Name, "mutating a returned snapshot must not affect the cached copy")
}

func TestStoreGetUnknownRevision(t *testing.T) {
	st := New(5)
	assert.Nil(t, st.Get("does-not-exist"))
}

package realtime

import (
	"testing"

	"github.com/mcdev12/prophecy/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_ReplaceDropsPreviousEntries(t *testing.T) {
	c := NewCache[models.Round]()
	c.Upsert(models.Round{ID: "r1"})
	c.Upsert(models.Round{ID: "r2"})

	c.Replace([]models.Round{{ID: "r3", Title: "Fresh"}})

	require.Equal(t, 1, c.Len())
	r, ok := c.Get("r3")
	require.True(t, ok)
	assert.Equal(t, "Fresh", r.Title)
	_, ok = c.Get("r1")
	assert.False(t, ok)
}

func TestCache_Delete(t *testing.T) {
	c := NewCache[models.Rating]()
	c.Upsert(models.Rating{ID: "x", Value: 5})

	assert.True(t, c.Delete("x"))
	assert.False(t, c.Delete("x"))
	assert.Zero(t, c.Len())
}

func TestStore_InstallSetsIdentity(t *testing.T) {
	store := NewStore()
	assert.Nil(t, store.Self())

	store.Install(sampleSnapshot())

	require.NotNil(t, store.Self())
	assert.Equal(t, "u1", store.Self().ID)
	assert.Equal(t, map[models.Kind]int{
		models.KindUser:     1,
		models.KindRound:    1,
		models.KindProphecy: 0,
		models.KindRating:   0,
		models.KindBadge:    0,
	}, store.Counts())
}

func TestStore_ListAndLookupByKind(t *testing.T) {
	store := NewStore()
	store.Install(sampleSnapshot())

	rounds, ok := store.List(models.KindRound)
	require.True(t, ok)
	require.Len(t, rounds, 1)
	assert.Equal(t, "r1", rounds[0].EntityID())

	u, ok := store.Lookup(models.KindUser, "u1")
	require.True(t, ok)
	assert.Equal(t, "cassandra", u.(models.User).Username)

	_, ok = store.Lookup(models.KindUser, "missing")
	assert.False(t, ok)
	_, ok = store.List(models.Kind("comment"))
	assert.False(t, ok)
}

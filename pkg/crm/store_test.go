package crm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAccessors(t *testing.T) {
	r := Record{
		"Id":          "00Q1",
		"Name":        "Bertha Boxer",
		"Amount":      125000.0,
		"Probability": "40",
		"Email":       nil,
	}

	assert.Equal(t, "00Q1", r.ID())
	assert.Equal(t, "Bertha Boxer", r.Name())
	assert.Equal(t, "125000", r.String("Amount"))
	assert.Equal(t, "N/A", r.StringOr("Email", "N/A"))

	amount, ok := r.Float("Amount")
	assert.True(t, ok)
	assert.Equal(t, 125000.0, amount)

	prob, ok := r.Float("Probability")
	assert.True(t, ok)
	assert.Equal(t, 40.0, prob)

	_, ok = r.Float("Email")
	assert.False(t, ok)

	assert.True(t, r.NameContains("bertha"))
	assert.False(t, r.NameContains("phyllis"))
}

func TestRecordCloneIsIndependent(t *testing.T) {
	r := Record{"Name": "A"}
	c := r.Clone()
	c["priority_score"] = 90

	_, leaked := r["priority_score"]
	assert.False(t, leaked)
}

func TestFindByID(t *testing.T) {
	records := []Record{{"Id": "1"}, {"Id": "2"}}

	got, err := FindByID(records, "2")
	require.NoError(t, err)
	assert.Equal(t, "2", got.ID())

	_, err = FindByID(records, "3")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	leads := `[{"Id":"1","Name":"A"},{"Id":"2","Name":"B"},{"Id":"3","Name":"C"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "leads.json"), []byte(leads), 0o644))

	store := NewFileStore(dir, 2)

	got, err := store.GetLeads(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Name())

	_, err = store.GetOpportunities(context.Background())
	assert.Error(t, err)
}

type countingStore struct {
	StaticStore
	calls int
}

func (c *countingStore) GetLeads(ctx context.Context) ([]Record, error) {
	c.calls++
	return c.StaticStore.GetLeads(ctx)
}

func TestCachedStoreServesSnapshot(t *testing.T) {
	inner := &countingStore{StaticStore: StaticStore{Leads: []Record{{"Id": "1"}}}}
	store := NewCachedStore(inner, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := store.GetLeads(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	}
	assert.Equal(t, 1, inner.calls)

	store.Invalidate()
	_, _ = store.GetLeads(ctx)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedStoreDoesNotCacheErrors(t *testing.T) {
	inner := &countingStore{StaticStore: StaticStore{Err: errors.New("offline")}}
	store := NewCachedStore(inner, time.Minute)

	_, err := store.GetLeads(context.Background())
	assert.Error(t, err)

	inner.Err = nil
	inner.Leads = []Record{{"Id": "1"}}
	got, err := store.GetLeads(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

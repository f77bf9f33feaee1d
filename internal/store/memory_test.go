package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.GetDocument(ctx, "games/g1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.SetDocument(ctx, "games/g1", []byte(`{"id":"g1"}`)))
	data, err := m.GetDocument(ctx, "games/g1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"g1"}`, string(data))

	// Mutating a returned slice must not leak into the store.
	data[2] = 'X'
	again, err := m.GetDocument(ctx, "games/g1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"g1"}`, string(again))

	require.NoError(t, m.DeleteDocument(ctx, "games/g1"))
	_, err = m.GetDocument(ctx, "games/g1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateDocumentShallowMerges(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.SetDocument(ctx, "d", []byte(`{"a":1,"b":2}`)))
	require.NoError(t, m.UpdateDocument(ctx, "d", map[string]any{"b": 9, "c": 3}))

	data, err := m.GetDocument(ctx, "d")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1,"b":9,"c":3}`, string(data))
}

func TestListDocumentsByPrefix(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.SetDocument(ctx, "games/g1/chat/b", []byte(`"second"`)))
	require.NoError(t, m.SetDocument(ctx, "games/g1/chat/a", []byte(`"first"`)))
	require.NoError(t, m.SetDocument(ctx, "games/g2/chat/a", []byte(`"other game"`)))

	docs, err := m.ListDocuments(ctx, "games/g1/chat/")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, `"first"`, string(docs[0]), "results are path ordered")
	assert.Equal(t, `"second"`, string(docs[1]))

	docs, err = m.ListDocuments(ctx, "games/g9/")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestTransactionCommitsOnSuccess(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.SetDocument(ctx, "games/g1", []byte(`{"version":1}`)))

	err := m.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.Get(ctx, "games/g1"); err != nil {
			return err
		}
		if err := tx.Set(ctx, "games/g1", []byte(`{"version":2}`)); err != nil {
			return err
		}
		return tx.Set(ctx, "games/g1/actionLog/1", []byte(`{"seq":1}`))
	})
	require.NoError(t, err)

	data, err := m.GetDocument(ctx, "games/g1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":2}`, string(data))
	_, err = m.GetDocument(ctx, "games/g1/actionLog/1")
	assert.NoError(t, err)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.SetDocument(ctx, "games/g1", []byte(`{"version":1}`)))

	boom := errors.New("boom")
	err := m.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Set(ctx, "games/g1", []byte(`{"version":2}`)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	data, err := m.GetDocument(ctx, "games/g1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1}`, string(data), "a failed transaction writes nothing")
}

func TestTransactionReadsItsOwnWrites(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	err := m.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Set(ctx, "d", []byte(`1`)); err != nil {
			return err
		}
		data, err := tx.Get(ctx, "d")
		if err != nil {
			return err
		}
		assert.Equal(t, "1", string(data))
		return nil
	})
	require.NoError(t, err)
}

package filestore_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-client/tokenstore/filestore"
)

func TestReadOfAbsentSlot(t *testing.T) {
	store, err := filestore.New(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	token, err := store.Read()
	require.NoError(t, err)
	require.Empty(t, token)
}

func TestWritesSurviveReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := filestore.New(dir, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, store.Write("T1"))
	require.NoError(t, store.WriteRefresh("R1"))

	// A new instance over the same folder models a process restart.
	reopened, err := filestore.New(dir, zerolog.Nop())
	require.NoError(t, err)

	access, err := reopened.Read()
	require.NoError(t, err)
	require.Equal(t, "T1", access)

	refresh, err := reopened.ReadRefresh()
	require.NoError(t, err)
	require.Equal(t, "R1", refresh)
}

func TestWritePreservesOtherSlot(t *testing.T) {
	store, err := filestore.New(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, store.Write("T1"))
	require.NoError(t, store.WriteRefresh("R1"))
	require.NoError(t, store.Write("T2"))

	refresh, err := store.ReadRefresh()
	require.NoError(t, err)
	require.Equal(t, "R1", refresh)
}

func TestClearRemovesBothSlots(t *testing.T) {
	store, err := filestore.New(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, store.Write("T1"))
	require.NoError(t, store.WriteRefresh("R1"))
	require.NoError(t, store.Clear())

	access, err := store.Read()
	require.NoError(t, err)
	require.Empty(t, access)

	refresh, err := store.ReadRefresh()
	require.NoError(t, err)
	require.Empty(t, refresh)
}

func TestClearIsIdempotent(t *testing.T) {
	store, err := filestore.New(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
}

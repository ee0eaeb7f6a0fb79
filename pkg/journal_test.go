package pkg

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type entry struct {
	Name  string
	Value int
}

func TestJournal(t *testing.T) {
	t.Run("Append and Range preserve order", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "journal.gob")

		j, err := OpenJournal[entry](path)
		require.NoError(t, err)
		defer j.Close()

		require.Equal(t, path, j.Path())
		require.NoError(t, j.Append(entry{"a", 1}))
		require.NoError(t, j.Append(entry{"b", 2}))
		require.Equal(t, uint64(2), j.Len())

		var got []entry
		err = j.Range(func(_ uint64, item entry) error {
			got = append(got, item)
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, []entry{{"a", 1}, {"b", 2}}, got)
	})

	t.Run("Range stops on callback error", func(t *testing.T) {
		j, err := OpenJournal[int](filepath.Join(t.TempDir(), "j.gob"))
		require.NoError(t, err)
		defer j.Close()

		for i := range 5 {
			require.NoError(t, j.Append(i))
		}

		stop := errors.New("stop")
		seen := 0
		err = j.Range(func(index uint64, _ int) error {
			seen++
			if index == 1 {
				return stop
			}

			return nil
		})
		require.ErrorIs(t, err, stop)
		require.Equal(t, 2, seen)
	})

	t.Run("Append after Close fails", func(t *testing.T) {
		j, err := OpenJournal[int](filepath.Join(t.TempDir(), "j.gob"))
		require.NoError(t, err)
		require.NoError(t, j.Close())
		require.NoError(t, j.Close())
		require.Error(t, j.Append(1))
	})

	t.Run("Open truncates previous content", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "j.gob")

		first, err := OpenJournal[int](path)
		require.NoError(t, err)
		require.NoError(t, first.Append(7))
		require.NoError(t, first.Close())

		second, err := OpenJournal[int](path)
		require.NoError(t, err)
		require.NoError(t, second.Close())

		items, err := ReadJournal[int](path)
		require.NoError(t, err)
		require.Empty(t, items)
	})
}

func TestReadJournal(t *testing.T) {
	t.Run("reads all entries", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "j.gob")

		j, err := OpenJournal[entry](path)
		require.NoError(t, err)
		require.NoError(t, j.Append(entry{"x", 1}))
		require.NoError(t, j.Append(entry{"y", 2}))
		require.NoError(t, j.Close())

		items, err := ReadJournal[entry](path)
		require.NoError(t, err)
		require.Equal(t, []entry{{"x", 1}, {"y", 2}}, items)
	})

	t.Run("drops torn trailing entry", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "j.gob")

		j, err := OpenJournal[entry](path)
		require.NoError(t, err)
		require.NoError(t, j.Append(entry{"x", 1}))
		require.NoError(t, j.Append(entry{"a much longer name", 2}))
		require.NoError(t, j.Close())

		info, err := os.Stat(path)
		require.NoError(t, err)
		require.NoError(t, os.Truncate(path, info.Size()-3))

		items, err := ReadJournal[entry](path)
		require.NoError(t, err)
		require.Equal(t, []entry{{"x", 1}}, items)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadJournal[int](filepath.Join(t.TempDir(), "missing.gob"))
		require.Error(t, err)
	})
}

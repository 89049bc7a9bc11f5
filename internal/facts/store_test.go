package facts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleFacts = []string{
	"Toji Fushiguro was born into the Zenin clan.",
	"He has zero cursed energy due to a Heavenly Restriction.",
	"Toji is the father of Megumi Fushiguro.",
	"He carries the Inverted Spear of Heaven.",
	"Toji works as a sorcerer killer for hire.",
	"Discount rate: 100% off for family.",
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	require.NoError(t, s.Insert(ctx, sampleFacts))
	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(sampleFacts), n)

	t.Run("unfiltered listing is capped and ordered", func(t *testing.T) {
		got, err := s.Search(ctx, nil, 3)
		require.NoError(t, err)
		assert.Equal(t, sampleFacts[:3], got)
	})

	t.Run("any keyword matches case-insensitively", func(t *testing.T) {
		got, err := s.Search(ctx, []string{"megumi", "spear"}, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{sampleFacts[2], sampleFacts[3]}, got)
	})

	t.Run("limit applies to matches", func(t *testing.T) {
		got, err := s.Search(ctx, []string{"toji"}, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{sampleFacts[0], sampleFacts[2]}, got)
	})

	t.Run("wildcards match literally", func(t *testing.T) {
		got, err := s.Search(ctx, []string{"100%"}, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{sampleFacts[5]}, got)

		got, err = s.Search(ctx, []string{"zero_"}, 3)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("no match", func(t *testing.T) {
		got, err := s.Search(ctx, []string{"gojo"}, 3)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("exists is substring containment", func(t *testing.T) {
		ok, err := s.Exists(ctx, "father of Megumi")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.Exists(ctx, "Satoru Gojo")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestInMemoryStore(t *testing.T) {
	exerciseStore(t, NewInMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "facts.db"))
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestSearchFoldsUnicodeCaseOnEveryBackend(t *testing.T) {
	ctx := context.Background()
	sqlite, err := NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "facts.db"))
	require.NoError(t, err)
	defer sqlite.Close()

	stores := map[string]Store{
		"memory": NewInMemoryStore(),
		"sqlite": sqlite,
	}
	facts := []string{"ÉCOLE of Toji", "plain fact here", "Über strong"}
	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Insert(ctx, facts))
			got, err := s.Search(ctx, Keywords("école ÜBER"), 3)
			require.NoError(t, err)
			assert.Equal(t, []string{facts[0], facts[2]}, got)
		})
	}
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := NewPostgresStore(ctx, url)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.pool.Exec(ctx, `TRUNCATE character_facts RESTART IDENTITY`)
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestNewStoreSelectsBackend(t *testing.T) {
	ctx := context.Background()

	s, err := NewStore(ctx, Config{Driver: "auto"})
	require.NoError(t, err)
	assert.Equal(t, "memory", s.Backend())

	s, err = NewStore(ctx, Config{SQLitePath: filepath.Join(t.TempDir(), "f.db")})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", s.Backend())
	require.NoError(t, s.Close())

	_, err = NewStore(ctx, Config{Driver: "postgres"})
	assert.Error(t, err)
	_, err = NewStore(ctx, Config{Driver: "pinecone"})
	assert.Error(t, err)
}

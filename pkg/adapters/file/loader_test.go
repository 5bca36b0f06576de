package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lattice/pkg/adapters/file"
	"github.com/aretw0/lattice/pkg/domain"
)

const jsonDoc = `{
  "id": "contact",
  "sections": [
    {"id": "main", "order": 1, "fields": [{"id": "email", "type": "text", "required": true}]}
  ]
}`

const yamlDoc = `id: survey
sections:
  - id: main
    order: 1
    fields:
      - id: rating
        type: rating
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoaderIndexesDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "contact.json", jsonDoc)
	writeFile(t, dir, "survey.yaml", yamlDoc)
	writeFile(t, dir, "notes.txt", "not a schema")

	l, err := file.New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	ids, err := l.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"contact", "survey"}, ids)

	s, err := l.Load(ctx, "survey")
	require.NoError(t, err)
	assert.Equal(t, "survey", s.ID)
	require.Len(t, s.Sections, 1)

	_, err = l.Load(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrSchemaNotFound)
}

func TestLoaderSkipsBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.json", jsonDoc)
	writeFile(t, dir, "bad.json", `{"id": "bad", "sections": [{`)

	l, err := file.New(dir)
	require.NoError(t, err)

	ids, err := l.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"contact"}, ids)
}

func TestLoaderWatch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "contact.json", jsonDoc)

	l, err := file.New(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := l.Watch(ctx)
	require.NoError(t, err)

	// Touch the schema after the watcher is in place.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(jsonDoc), 0o644))

	select {
	case id := <-events:
		assert.Equal(t, "contact", id)
	case <-time.After(5 * time.Second):
		t.Fatal("no change event received")
	}

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-events
		return !open
	}, time.Second, 10*time.Millisecond, "channel must close on cancel")
}

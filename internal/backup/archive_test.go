package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCollectionArchive_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users"+archiveExt)

	docs := []bson.M{
		{"id": "user-1", "name": "Alice", "age": int32(30)},
		{"id": "user-2", "name": "Bob"},
		{"id": "user-3", "name": "Carol", "created_at": time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
	}

	writer, err := newCollectionWriter(path)
	require.NoError(t, err)
	for _, doc := range docs {
		raw, err := bson.Marshal(doc)
		require.NoError(t, err)
		line, err := bson.MarshalExtJSON(bson.Raw(raw), true, false)
		require.NoError(t, err)
		require.NoError(t, writer.WriteLine(line))
	}
	require.NoError(t, writer.Close())

	reader, err := newCollectionReader(path)
	require.NoError(t, err)
	defer reader.Close()

	var restored []bson.M
	for {
		line, ok, err := reader.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		var doc bson.M
		require.NoError(t, bson.UnmarshalExtJSON(line, true, &doc))
		restored = append(restored, doc)
	}

	require.Len(t, restored, len(docs))
	assert.Equal(t, "Alice", restored[0]["name"])
	assert.Equal(t, int32(30), restored[0]["age"])
	assert.Equal(t, "user-2", restored[1]["id"])
	// Extended JSON keeps the value a real timestamp, not a string
	ts, ok := restored[2]["created_at"].(primitive.DateTime)
	require.True(t, ok, "created_at decoded as %T", restored[2]["created_at"])
	assert.Equal(t, 2024, ts.Time().UTC().Year())
}

func TestCollectionArchive_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions"+archiveExt)

	writer, err := newCollectionWriter(path)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader, err := newCollectionReader(path)
	require.NoError(t, err)
	defer reader.Close()

	_, ok, err := reader.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCollectionArchive_LargeDocuments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users"+archiveExt)

	// Bigger than the default bufio.Scanner limit
	big := make([]byte, 128*1024)
	for i := range big {
		big[i] = 'a'
	}

	writer, err := newCollectionWriter(path)
	require.NoError(t, err)
	raw, err := bson.Marshal(bson.M{"id": "user-1", "blob": string(big)})
	require.NoError(t, err)
	line, err := bson.MarshalExtJSON(bson.Raw(raw), true, false)
	require.NoError(t, err)
	require.NoError(t, writer.WriteLine(line))
	require.NoError(t, writer.Close())

	reader, err := newCollectionReader(path)
	require.NoError(t, err)
	defer reader.Close()

	read, ok, err := reader.Next()
	require.NoError(t, err)
	require.True(t, ok)

	var doc bson.M
	require.NoError(t, bson.UnmarshalExtJSON(read, true, &doc))
	assert.Len(t, doc["blob"], len(big))
}

func TestManifest_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	original := &Manifest{
		Database:  "userdb",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Collections: []CollectionInfo{
			{Name: "users", Count: 42, FileName: "users" + archiveExt},
			{Name: "sessions", Count: 7, FileName: "sessions" + archiveExt},
		},
	}
	require.NoError(t, WriteManifest(dir, original))

	loaded, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, manifestVersion, loaded.Version)
	assert.Equal(t, "userdb", loaded.Database)
	require.Len(t, loaded.Collections, 2)
	assert.Equal(t, int64(42), loaded.Collections[0].Count)
	assert.Equal(t, "sessions"+archiveExt, loaded.Collections[1].FileName)
}

func TestReadManifest_Missing(t *testing.T) {
	_, err := ReadManifest(t.TempDir())
	assert.Error(t, err)
}

func TestReadManifest_RejectsUnknownVersion(t *testing.T) {
	dir := t.TempDir()
	m := &Manifest{Database: "userdb", CreatedAt: time.Now()}
	require.NoError(t, WriteManifest(dir, m))

	// Corrupt the version field on disk
	path := filepath.Join(dir, manifestFileName)
	data := fmt.Sprintf(`{"version":99,"database":"userdb","created_at":%q,"collections":[]}`,
		time.Now().UTC().Format(time.RFC3339))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	_, err := ReadManifest(dir)
	assert.ErrorContains(t, err, "unsupported archive version")
}

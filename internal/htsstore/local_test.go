package htsstore

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/biogo/hts/bgzf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveNaming(t *testing.T) {
	store := NewLocalDataStore(t.TempDir(), "http://htsget.test")

	data, index, err := store.Resolve([]string{"batch1", "sample1"}, "BAM", "BAI")
	require.NoError(t, err)
	assert.Equal(t, "batch1/sample1.bam", data.ID())
	assert.Equal(t, "batch1/sample1.bam.bai", index.ID())

	data, index, err = store.Resolve([]string{"sample1"}, "vcf", "tbi")
	require.NoError(t, err)
	assert.Equal(t, "sample1.vcf.gz", data.ID())
	assert.Equal(t, "sample1.vcf.gz.tbi", index.ID())
}

func TestResolveUnsupportedFormats(t *testing.T) {
	store := NewLocalDataStore(t.TempDir(), "http://htsget.test")

	_, _, err := store.Resolve([]string{"sample1"}, "CRAM", "BAI")
	assert.ErrorContains(t, err, "unsupported format")

	_, _, err = store.Resolve([]string{"sample1"}, "BAM", "CSI")
	assert.ErrorContains(t, err, "unsupported index format")
}

func TestLookupConfinesNamesToRoot(t *testing.T) {
	root := t.TempDir()
	store := NewLocalDataStore(root, "http://htsget.test")

	resource, err := store.Lookup("../../etc/passwd")
	require.NoError(t, err)
	local := resource.(*LocalResource)
	assert.Equal(t, "etc/passwd", local.relPath)
	assert.True(t, strings.HasPrefix(local.absPath, root))

	_, err = store.Lookup("")
	assert.Error(t, err)
	_, err = store.Lookup("..")
	assert.Error(t, err)
}

func TestTicketURL(t *testing.T) {
	store := NewLocalDataStore(t.TempDir(), "http://htsget.test/")
	resource, err := store.Lookup("batch1/sample 1.bam")
	require.NoError(t, err)

	ticketURL, err := store.TicketURL(resource, 0, 99)
	require.NoError(t, err)
	assert.Equal(t, "http://htsget.test/block/batch1/sample%201.bam", ticketURL)
}

func TestCreateIsAtomic(t *testing.T) {
	root := t.TempDir()
	store := NewLocalDataStore(root, "http://htsget.test")

	resource, err := store.Lookup("sample1.bam.bai")
	require.NoError(t, err)
	assert.False(t, resource.Exists())

	writer, err := resource.Create()
	require.NoError(t, err)
	_, err = writer.Write([]byte("index bytes"))
	require.NoError(t, err)

	// Not visible under the final name until the writer closes.
	assert.False(t, resource.Exists())
	require.NoError(t, writer.Close())
	assert.True(t, resource.Exists())

	size, err := resource.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(len("index bytes")), size)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "sample1.bam.bai", entries[0].Name())
}

func TestOpenDecompressed(t *testing.T) {
	root := t.TempDir()
	store := NewLocalDataStore(root, "http://htsget.test")

	content := []byte("##fileformat=VCFv4.2\nchr1\t100\n")
	file, err := os.Create(filepath.Join(root, "sample1.vcf.gz"))
	require.NoError(t, err)
	zw := bgzf.NewWriter(file, 1)
	_, err = zw.Write(content)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, file.Close())

	resource, err := store.Lookup("sample1.vcf.gz")
	require.NoError(t, err)

	raw, err := resource.Open(false)
	require.NoError(t, err)
	rawBytes, err := io.ReadAll(raw)
	require.NoError(t, err)
	require.NoError(t, raw.Close())
	assert.NotEqual(t, content, rawBytes)

	inflated, err := resource.Open(true)
	require.NoError(t, err)
	plain, err := io.ReadAll(inflated)
	require.NoError(t, err)
	require.NoError(t, inflated.Close())
	assert.Equal(t, content, plain)
}

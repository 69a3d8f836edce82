package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDestination_Write(t *testing.T) {
	tmp := filepath.Join(t.TempDir(), "out")
	d, err := New(tmp)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, d.Write(ctx, "index.xml", []byte("<feed/>")))
	require.NoError(t, d.Write(ctx, "style/script.js", []byte("//")))
	require.NoError(t, d.Write(ctx, "index.xml", []byte("<feed>v2</feed>")))

	got, err := os.ReadFile(filepath.Join(tmp, "index.xml"))
	require.NoError(t, err)
	assert.Equal(t, "<feed>v2</feed>", string(got))

	_, err = os.Stat(filepath.Join(tmp, "style", "script.js"))
	assert.NoError(t, err)
}

func TestDestination_Path(t *testing.T) {
	d, err := New(t.TempDir())
	require.NoError(t, err)

	p, err := d.Path("/style/atom.xsl")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(d.Dir(), "style", "atom.xsl"), p)

	for _, name := range []string{"", "..", "../escape.xml", "a/../../escape.xml"} {
		_, err := d.Path(name)
		assert.Error(t, err, name)
	}
}

func TestNew_RequiresDir(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
}

func TestDestination_WriteCancelled(t *testing.T) {
	d, err := New(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, d.Write(ctx, "index.xml", nil), context.Canceled)
}

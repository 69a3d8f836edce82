package check

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dataFeed = `<?xml version="1.0" encoding="UTF-8"?>
<?xml-stylesheet type="text/xsl" href="style/atom.xsl" media="screen"?>
<feed xmlns="http://www.w3.org/2005/Atom" xml:lang="nl">
  <id>http://example.com/top10nl.xml</id>
  <title>Top10NL</title>
  <updated>2024-03-01T11:30:00Z</updated>
  <entry>
    <id>http://example.com/downloads/top10nl.gpkg</id>
    <title>Top10NL - GeoPackage download (EPSG:28992)</title>
    <link rel="alternate" href="http://example.com/downloads/top10nl.gpkg" type="application/geopackage+sqlite3" length="3"/>
  </entry>
  <entry>
    <id>http://example.com/downloads/top10nl.gml</id>
    <title>Top10NL - GML download (EPSG:28992)</title>
    <link rel="alternate" href="http://example.com/downloads/top10nl.gml"/>
  </entry>
</feed>`

func TestParse(t *testing.T) {
	report, err := Parse(strings.NewReader(dataFeed))
	require.NoError(t, err)

	assert.Equal(t, "Top10NL", report.Title)
	assert.Equal(t, "2024-03-01T11:30:00Z", report.Updated)
	require.Len(t, report.Entries, 2)
	require.Len(t, report.Entries[0].Links, 1)
	assert.Equal(t, "3", report.Entries[0].Links[0].Length)
	assert.Equal(t, "application/geopackage+sqlite3", report.Entries[0].Links[0].Type)

	assert.False(t, report.OK())
	assert.Equal(t, []string{"entry 1: download http://example.com/downloads/top10nl.gml without type or length"}, report.Problems)
}

func TestParse_NotAFeed(t *testing.T) {
	_, err := Parse(strings.NewReader("<html><body>nope</body></html>"))
	require.Error(t, err)
}

func TestCheck(t *testing.T) {
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "top10nl.xml")
	require.NoError(t, os.WriteFile(path, []byte(dataFeed), 0644))
	report, err := Check(ctx, http.DefaultClient, path)
	require.NoError(t, err)
	assert.Len(t, report.Entries, 2)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/top10nl.xml" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(dataFeed))
	}))
	defer srv.Close()

	report, err = Check(ctx, srv.Client(), srv.URL+"/top10nl.xml")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/top10nl.xml", report.ID)

	_, err = Check(ctx, srv.Client(), srv.URL+"/missing.xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdok/atom-generator/pkg/atomfeed"
	"github.com/pdok/atom-generator/pkg/atomfeed/config"
	"github.com/pdok/atom-generator/pkg/atomfeed/source"
	"github.com/pdok/atom-generator/pkg/atomfeed/storage/memory"
)

const feedDescription = `{
  "service_title": "Top10NL",
  "service_subtitle": "Download service",
  "service_rights": "CC0",
  "service_metadata_identifier": "svc-123",
  "datasets": [{
    "datafeed_name": "top10nl",
    "datafeed_title_nl": "Top10NL",
    "datafeed_summary_nl": "Topografie",
    "datafeed_subtitle_nl": "Topografische kaart",
    "dataset_bbox": {"minx": 10000, "miny": 300000, "maxx": 280000, "maxy": 625000},
    "dataset_metadata_identifier": "ds-456",
    "dataset_source_id": "abc",
    "dataset_source_id_ns": "http://example.com",
    "dataset_rights": "CC0",
    "downloads": [{"download_file": "/data/top10nl.gpkg", "download_espg": 28992}]
  }]
}`

var testEnv = config.Env{
	S3AccessKey:          "a",
	S3SecretKey:          "s",
	S3SigningRegion:      "eu-west-1",
	S3EndpointNoProtocol: "minio:9000",
	NGREnvironment:       "test",
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGenerate_Local(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "values.json")
	require.NoError(t, os.WriteFile(configPath, []byte(feedDescription), 0644))
	out := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(out, 0755))

	cfg, err := config.Load(
		config.WithEnvValues(testEnv),
		config.WithLocations("src", "feeds"),
		config.WithGeneration(configPath, "http://example.com/base/"),
		config.WithOutputPath(out),
		config.WithServicePath("top10"),
	)
	require.NoError(t, err)

	store := memory.New()
	store.Put("src", "feeds/data/top10nl.gpkg", []byte("gpkg"), "application/octet-stream")
	accessor, err := source.New(store, cfg.Locations(), source.WithLogger(discardLogger()))
	require.NoError(t, err)

	require.NoError(t, generate(context.Background(), cfg, accessor, discardLogger()))

	index, err := os.ReadFile(filepath.Join(out, "index.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "http://example.com/base/top10/top10nl.xml")

	data, err := os.ReadFile(filepath.Join(out, "top10nl.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `length="4"`)
	assert.Contains(t, string(data), "application/geopackage+sqlite3")
	assert.Contains(t, string(data), "http://example.com/base/top10/downloads/data/top10nl.gpkg")

	_, err = os.Stat(filepath.Join(out, "style", "atom.xsl"))
	assert.NoError(t, err)

	var report bytes.Buffer
	cmd := NewCheckCommand()
	cmd.SetOut(&report)
	cmd.SetArgs([]string{filepath.Join(out, "index.xml"), filepath.Join(out, "top10nl.xml")})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, report.String(), "http://example.com/base/top10/downloads/data/top10nl.gpkg [application/geopackage+sqlite3, 4 bytes]")
	assert.NotContains(t, report.String(), "problem:")
}

func TestGenerate_CopyMode(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "values.json")
	require.NoError(t, os.WriteFile(configPath, []byte(feedDescription), 0644))

	cfg, err := config.Load(
		config.WithEnvValues(testEnv),
		config.WithLocations("src", "feeds", "dst", "atom/top10"),
		config.WithGeneration(configPath, "http://example.com/base/"),
	)
	require.NoError(t, err)

	store := memory.New()
	store.Put("src", "feeds/data/top10nl.gpkg", []byte("gpkg"), "application/octet-stream")
	store.Put("dst", "atom/top10/index.xml", []byte("old"), "application/xml")
	accessor, err := source.New(store, cfg.Locations(), source.WithLogger(discardLogger()))
	require.NoError(t, err)

	err = generate(context.Background(), cfg, accessor, discardLogger())
	assert.ErrorIs(t, err, atomfeed.ErrDestinationExists)

	cfg.Force = true
	require.NoError(t, generate(context.Background(), cfg, accessor, discardLogger()))

	data, ok := store.Get("dst", "atom/top10/top10nl.xml")
	require.True(t, ok)
	assert.Contains(t, string(data), "http://example.com/base/atom/top10/downloads/top10nl.gpkg")

	_, ok = store.Get("dst", "atom/top10/downloads/top10nl.gpkg")
	assert.True(t, ok)
	index, ok := store.Get("dst", "atom/top10/index.xml")
	require.True(t, ok)
	assert.NotEqual(t, "old", string(index))
}

func TestValidateModelsCommand(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"validate-models"})
	cmd.SetErr(io.Discard)
	require.NoError(t, cmd.Execute())
}

func TestSchemaCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"schema"})
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	require.NoError(t, cmd.Execute())

	var schema map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &schema))
	assert.Equal(t, "Atom feed description", schema["title"])
	assert.Contains(t, out.String(), "datafeed_name")
	assert.Contains(t, out.String(), "download_espg")
}

func TestGenerateCommand_Args(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"generate", "bucket", "values.json", "http://example.com"})
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 or 4 arguments")
}

func TestGenerateCommand_ServicePathAlias(t *testing.T) {
	for _, flag := range []string{"--service-path", "--service_path"} {
		t.Run(flag, func(t *testing.T) {
			cmd := NewGenerateCommand()
			require.NoError(t, cmd.Flags().Parse([]string{flag, "top10"}))
			value, err := cmd.Flags().GetString("service-path")
			require.NoError(t, err)
			assert.Equal(t, "top10", value)
		})
	}

	alias := NewGenerateCommand().Flags().Lookup("service_path")
	require.NotNil(t, alias)
	assert.True(t, alias.Hidden)
}

func TestStat(t *testing.T) {
	store := memory.New()
	store.Put("src", "feeds/top10nl.gml", []byte("<gml/>"), "application/gml+xml")
	accessor, err := source.New(store, source.Config{SourceBucket: "src", SourcePrefix: "feeds"},
		source.WithLogger(discardLogger()))
	require.NoError(t, err)

	var out bytes.Buffer
	cmd := NewStatCommand()
	cmd.SetOut(&out)
	require.NoError(t, stat(context.Background(), cmd, accessor, "top10nl.gml"))
	assert.Contains(t, out.String(), "Key: src/feeds/top10nl.gml")
	assert.Contains(t, out.String(), "Size: 6")
	assert.Contains(t, out.String(), "Media type: application/gml+xml")
}

func TestPreviewRouter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.xml"), []byte("<feed/>"), 0644))
	srv := httptest.NewServer(previewRouter(dir))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(srv.URL + "/")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<feed/>", string(body))
}

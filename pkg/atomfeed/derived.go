package atomfeed

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/pdok/atom-generator/pkg/utils"
)

// TimestampLayout is the layout of every updated element.
const TimestampLayout = "2006-01-02T15:04:05Z"

const defaultDownloadTitle = "Download"

// downloadTitles is matched by filename suffix, most specific first.
var downloadTitles = []struct {
	suffix string
	title  string
}{
	{"gpkg.zip", "Zipped GeoPackage download"},
	{"gml.zip", "Zipped GML download"},
	{"gpkg", "GeoPackage download"},
	{"gml", "GML download"},
}

// Projections maps EPSG codes to their labels.
var Projections = map[string]string{
	"28992": "Amersfoort / RD New",
	"3035":  "ETRS89 / LAEA Europe",
	"7415":  "Amersfoort / RD New + NAP height",
	"4326":  "WGS 84",
	"3857":  "WGS 84 / Pseudo-Mercator",
	"4230":  "ED50",
	"23031": "ED50 / UTM zone 31N",
	"23032": "ED50 / UTM zone 32N",
	"4258":  "ETRS89",
	"4937":  "ETS89 (3D)",
	"3034":  "ETRS89 / LCC Europe",
	"4979":  "WGS 84 (3D)",
	"32631": "WGS 84 / UTM zone 31N",
	"32632": "WGS 84 / UTM zone 32N",
}

var (
	serviceFeedDerived = []string{
		"updated",
		"service_index_url",
		"service_metadata_url",
		"service_opensearch_url",
		"service_metadata_web_url",
	}
	datasetDerived = []string{
		"dataset_polygon",
		"updated",
		"datafeed_url",
		"service_index_url",
		"dataset_metadata_url",
		"dataset_metadata_web_url",
	}
	downloadDerived = []string{
		"has_download_content",
		"download_url",
		"download_id",
		"download_title",
		"crs_uri",
		"crs_label",
		"download_mimetype",
		"download_length",
	}
)

// DerivedFields lists the computed names a ServiceFeed exposes to templates.
func (ServiceFeed) DerivedFields() []string { return serviceFeedDerived }

// DerivedFields lists the computed names a Dataset exposes to templates.
func (Dataset) DerivedFields() []string { return datasetDerived }

// DerivedFields lists the computed names a Download exposes to templates.
func (Download) DerivedFields() []string { return downloadDerived }

// Bind attaches the run environment to the feed and resets memoized values.
func (f *ServiceFeed) Bind(env Environment) *ServiceFeed {
	if env.Now == nil {
		env.Now = time.Now
	}
	f.env = env
	f.updated = ""
	// null entries are left for Validate to report
	for _, ds := range f.Datasets {
		if ds == nil {
			continue
		}
		for _, dl := range ds.Downloads {
			if dl == nil {
				continue
			}
			dl.mediaType = nil
			dl.length = nil
		}
	}
	return f
}

// Env returns the bound run environment.
func (f *ServiceFeed) Env() Environment {
	return f.env
}

// Updated returns the feed timestamp. It is computed on first call and
// reused for the rest of the run.
func (f *ServiceFeed) Updated() string {
	if f.updated == "" {
		now := f.env.Now
		if now == nil {
			now = time.Now
		}
		f.updated = now().UTC().Format(TimestampLayout)
	}
	return f.updated
}

// FeedURL returns the URL of the feed document named entry.
func (f *ServiceFeed) FeedURL(entry string) string {
	return utils.BuildURI(false, f.env.ServiceURL, entry+".xml")
}

func (f *ServiceFeed) IndexURL() string {
	return f.FeedURL("index")
}

// MetadataURL returns the CSW GetRecordById URL of a metadata record.
func (f *ServiceFeed) MetadataURL(metadataID string) string {
	return f.env.CatalogBaseURL + "/geonetwork/srv/dut/csw?" +
		"service=CSW&" +
		"version=2.0.2&" +
		"request=GetRecordById&" +
		"outputschema=http://www.isotc211.org/2005/gmd&" +
		"elementsetname=full&" +
		"id=" + metadataID
}

// MetadataWebURL returns the catalog web page of a metadata record.
func (f *ServiceFeed) MetadataWebURL(metadataID string) string {
	return f.env.CatalogBaseURL + "/geonetwork/srv/dut/catalog.search#/metadata/" + metadataID
}

func (f *ServiceFeed) OpenSearchURL() string {
	return f.env.CatalogBaseURL + "/geonetwork/opensearch/dut/" +
		f.ServiceMetadataIdentifier + "/OpenSearchDescription.xml"
}

// Polygon renders the bounding box as a closed georss polygon (lat lon order).
func (d *Dataset) Polygon() string {
	b := d.DatasetBBox
	return fmt.Sprintf("%s %s %s %s %s %s %s %s %s %s",
		b.MinY, b.MinX, b.MinY, b.MaxX, b.MaxY, b.MaxX, b.MaxY, b.MinX, b.MinY, b.MinX)
}

// URL returns the URL of the dataset feed.
func (d *Dataset) URL(f *ServiceFeed) string {
	return f.FeedURL(d.DatafeedName)
}

func (dl *Download) HasContent() bool {
	return dl.DownloadContent != ""
}

// ObjectName is the download file relative to the source prefix.
func (dl *Download) ObjectName() string {
	return strings.TrimLeft(dl.DownloadFile, "/")
}

// URL returns the public URL of the download.
func (dl *Download) URL(f *ServiceFeed) string {
	file := dl.DownloadFile
	if f.env.FlatDownloads {
		file = path.Base(dl.ObjectName())
	}
	return utils.BuildURI(false, f.env.ServiceURL, "downloads", file)
}

// Title describes the download by kind and coordinate system.
func (dl *Download) Title(d *Dataset) string {
	kind := defaultDownloadTitle
	for _, t := range downloadTitles {
		if strings.HasSuffix(dl.DownloadFile, t.suffix) {
			kind = t.title
			break
		}
	}
	return fmt.Sprintf("%s - %s (EPSG:%s)", d.DatafeedTitleNL, kind, dl.DownloadEPSG)
}

func (dl *Download) CRSURI() string {
	return "http://www.opengis.net/def/crs/EPSG/0/" + dl.DownloadEPSG.String()
}

func (dl *Download) CRSLabel() string {
	return Projections[dl.DownloadEPSG.String()]
}

// MediaType resolves the download media type once per run.
func (dl *Download) MediaType(ctx context.Context, src Source) (string, error) {
	if dl.mediaType != nil {
		return *dl.mediaType, nil
	}
	mediaType, err := src.MediaType(ctx, dl.ObjectName())
	if err != nil {
		return "", fmt.Errorf("media type of %s: %w", dl.DownloadFile, err)
	}
	dl.mediaType = &mediaType
	return mediaType, nil
}

// Length resolves the download size in bytes once per run.
func (dl *Download) Length(ctx context.Context, src Source) (int64, error) {
	if dl.length != nil {
		return *dl.length, nil
	}
	size, err := src.Size(ctx, dl.ObjectName())
	if err != nil {
		return 0, fmt.Errorf("size of %s: %w", dl.DownloadFile, err)
	}
	dl.length = &size
	return size, nil
}

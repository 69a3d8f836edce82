package atomfeed

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServiceFeed is the root of a feed description. It owns the datasets and
// carries the run environment that every derived field is computed against.
type ServiceFeed struct {
	ServiceTitle              string     `json:"service_title" yaml:"service_title"`
	ServiceSubtitle           string     `json:"service_subtitle" yaml:"service_subtitle"`
	ServiceRights             string     `json:"service_rights" yaml:"service_rights"`
	ServiceMetadataIdentifier string     `json:"service_metadata_identifier" yaml:"service_metadata_identifier"`
	Datasets                  []*Dataset `json:"datasets" yaml:"datasets"`

	env     Environment
	updated string
}

// Environment is the read-only context of one generation run.
type Environment struct {
	// Source resolves media types and sizes of download files
	Source Source

	// ServiceURL is the public base URL of the feed, with trailing slash. May be empty.
	ServiceURL string

	// CatalogBaseURL is the metadata catalog (NGR) base URL
	CatalogBaseURL string

	// FlatDownloads addresses downloads by basename (legacy copy mode)
	FlatDownloads bool

	// Now defaults to time.Now
	Now func() time.Time
}

// Dataset is a named collection of downloads with descriptive metadata.
// DatafeedName is unique within a service feed.
type Dataset struct {
	DatafeedName              string      `json:"datafeed_name" yaml:"datafeed_name"`
	DatafeedSummaryNL         string      `json:"datafeed_summary_nl" yaml:"datafeed_summary_nl"`
	DatafeedTitleNL           string      `json:"datafeed_title_nl" yaml:"datafeed_title_nl"`
	DatasetBBox               BBox        `json:"dataset_bbox" yaml:"dataset_bbox" mustache:"-"`
	DatasetMetadataIdentifier string      `json:"dataset_metadata_identifier" yaml:"dataset_metadata_identifier"`
	DatasetInspireDataTheme   string      `json:"dataset_inspire_data_theme,omitempty" yaml:"dataset_inspire_data_theme,omitempty"`
	DatasetSourceID           string      `json:"dataset_source_id" yaml:"dataset_source_id"`
	DatasetSourceIDNS         string      `json:"dataset_source_id_ns" yaml:"dataset_source_id_ns"`
	DatasetRights             string      `json:"dataset_rights" yaml:"dataset_rights"`
	DatafeedSubtitleNL        string      `json:"datafeed_subtitle_nl" yaml:"datafeed_subtitle_nl"`
	Downloads                 []*Download `json:"downloads" yaml:"downloads"`
}

// BBox is a dataset bounding box.
type BBox struct {
	MinX Literal `json:"minx" yaml:"minx"`
	MinY Literal `json:"miny" yaml:"miny"`
	MaxX Literal `json:"maxx" yaml:"maxx"`
	MaxY Literal `json:"maxy" yaml:"maxy"`
}

// Download references one file in the source bucket.
type Download struct {
	DownloadFile    string  `json:"download_file" yaml:"download_file"`
	DownloadEPSG    Literal `json:"download_espg" yaml:"download_espg"`
	DownloadContent string  `json:"download_content,omitempty" yaml:"download_content,omitempty"`

	mediaType *string
	length    *int64
}

// Literal is a string that may be written as a number in the input
// document, e.g. an EPSG code or a coordinate.
type Literal string

func (l *Literal) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = Literal(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(data))
	}
	*l = Literal(n.String())
	return nil
}

func (l *Literal) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar value", value.Line)
	}
	*l = Literal(value.Value)
	return nil
}

func (l Literal) String() string {
	return strings.TrimSpace(string(l))
}

package atomfeed

import (
	"context"
	"errors"
	"strconv"
)

// View builds the render scope of the service feed (index document).
// Storage lookups happen here; results are memoized on the downloads so the
// dataset views of the same run reuse them.
func (f *ServiceFeed) View(ctx context.Context) (map[string]any, error) {
	datasets := make([]map[string]any, 0, len(f.Datasets))
	for _, ds := range f.Datasets {
		v, err := f.DatasetView(ctx, ds)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, v)
	}

	return map[string]any{
		"service_title":               f.ServiceTitle,
		"service_subtitle":            f.ServiceSubtitle,
		"service_rights":              f.ServiceRights,
		"service_metadata_identifier": f.ServiceMetadataIdentifier,
		"datasets":                    datasets,
		"updated":                     f.Updated(),
		"service_index_url":           f.IndexURL(),
		"service_metadata_url":        f.MetadataURL(f.ServiceMetadataIdentifier),
		"service_opensearch_url":      f.OpenSearchURL(),
		"service_metadata_web_url":    f.MetadataWebURL(f.ServiceMetadataIdentifier),
	}, nil
}

// DatasetView builds the render scope of one dataset feed.
func (f *ServiceFeed) DatasetView(ctx context.Context, ds *Dataset) (map[string]any, error) {
	downloads := make([]map[string]any, 0, len(ds.Downloads))
	for _, dl := range ds.Downloads {
		v, err := f.downloadView(ctx, ds, dl)
		if err != nil {
			return nil, err
		}
		downloads = append(downloads, v)
	}

	return map[string]any{
		"datafeed_name":               ds.DatafeedName,
		"datafeed_summary_nl":         ds.DatafeedSummaryNL,
		"datafeed_title_nl":           ds.DatafeedTitleNL,
		"dataset_metadata_identifier": ds.DatasetMetadataIdentifier,
		"dataset_inspire_data_theme":  ds.DatasetInspireDataTheme,
		"dataset_source_id":           ds.DatasetSourceID,
		"dataset_source_id_ns":        ds.DatasetSourceIDNS,
		"dataset_rights":              ds.DatasetRights,
		"datafeed_subtitle_nl":        ds.DatafeedSubtitleNL,
		"downloads":                   downloads,
		"dataset_polygon":             ds.Polygon(),
		"updated":                     f.Updated(),
		"datafeed_url":                ds.URL(f),
		"service_index_url":           f.IndexURL(),
		"dataset_metadata_url":        f.MetadataURL(ds.DatasetMetadataIdentifier),
		"dataset_metadata_web_url":    f.MetadataWebURL(ds.DatasetMetadataIdentifier),
	}, nil
}

func (f *ServiceFeed) downloadView(ctx context.Context, ds *Dataset, dl *Download) (map[string]any, error) {
	if f.env.Source == nil {
		return nil, errors.New("feed has no source bound")
	}
	mediaType, err := dl.MediaType(ctx, f.env.Source)
	if err != nil {
		return nil, err
	}
	length, err := dl.Length(ctx, f.env.Source)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"download_file":        dl.DownloadFile,
		"download_espg":        dl.DownloadEPSG.String(),
		"download_content":     dl.DownloadContent,
		"has_download_content": dl.HasContent(),
		"download_url":         dl.URL(f),
		"download_id":          dl.URL(f),
		"download_title":       dl.Title(ds),
		"crs_uri":              dl.CRSURI(),
		"crs_label":            dl.CRSLabel(),
		"download_mimetype":    mediaType,
		"download_length":      strconv.FormatInt(length, 10),
	}, nil
}

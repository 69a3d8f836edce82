package atomfeed

import (
	"fmt"
	"regexp"
	"strings"
)

var datafeedNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Validate checks the feed structure before anything is rendered. Every
// problem is collected into a single *ValidationError.
func (f *ServiceFeed) Validate() error {
	var problems []string
	required := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			problems = append(problems, field+": required")
		}
	}

	required("service_title", f.ServiceTitle)
	required("service_rights", f.ServiceRights)
	required("service_metadata_identifier", f.ServiceMetadataIdentifier)

	if len(f.Datasets) == 0 {
		problems = append(problems, "datasets: at least one dataset is required")
	}

	seen := make(map[string]int, len(f.Datasets))
	for i, ds := range f.Datasets {
		p := fmt.Sprintf("datasets[%d]", i)
		if ds == nil {
			problems = append(problems, p+": null dataset")
			continue
		}

		switch name := ds.DatafeedName; {
		case strings.TrimSpace(name) == "":
			problems = append(problems, p+".datafeed_name: required")
		case !datafeedNamePattern.MatchString(name):
			problems = append(problems, fmt.Sprintf("%s.datafeed_name: %q is not usable as filename and URL segment", p, name))
		case name == "index":
			problems = append(problems, p+".datafeed_name: \"index\" is reserved for the service feed")
		default:
			if j, dup := seen[name]; dup {
				problems = append(problems, fmt.Sprintf("%s.datafeed_name: %q already used by datasets[%d]", p, name, j))
			}
			seen[name] = i
		}

		required(p+".datafeed_title_nl", ds.DatafeedTitleNL)
		required(p+".dataset_rights", ds.DatasetRights)
		required(p+".dataset_metadata_identifier", ds.DatasetMetadataIdentifier)
		required(p+".dataset_bbox.minx", ds.DatasetBBox.MinX.String())
		required(p+".dataset_bbox.miny", ds.DatasetBBox.MinY.String())
		required(p+".dataset_bbox.maxx", ds.DatasetBBox.MaxX.String())
		required(p+".dataset_bbox.maxy", ds.DatasetBBox.MaxY.String())

		if len(ds.Downloads) == 0 {
			problems = append(problems, p+".downloads: at least one download is required")
		}
		for j, dl := range ds.Downloads {
			dp := fmt.Sprintf("%s.downloads[%d]", p, j)
			if dl == nil {
				problems = append(problems, dp+": null download")
				continue
			}
			required(dp+".download_file", dl.DownloadFile)
			required(dp+".download_espg", dl.DownloadEPSG.String())
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

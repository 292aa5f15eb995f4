package util

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-hebench/report"
)

// ReportFile is a decoded report file.
type ReportFile struct {
	// Path is the path to the report file.
	Path string
	// Report is the decoded report.
	Report *report.Report
}

// LoadReportFile decodes one report file. The encoding is chosen by extension: .json or
// .cbor.
//
// Arguments:
// - path: Path to the report file.
//
// Returns:
// - *report.Report: The decoded report.
// - error: Error if the file cannot be read or decoded.
func LoadReportFile(path string) (*report.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	var r *report.Report
	switch filepath.Ext(path) {
	case ".json":
		r, err = report.ReadJSON(bytes.NewReader(data))
	case ".cbor":
		r, err = report.DecodeCBOR(data)
	default:
		return nil, errors.Errorf("%s is not a report file", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	return r, nil
}

// LoadReportFiles reads all report files from a directory, sorted by name. Files that
// are not .json or .cbor are skipped, as are subdirectories.
//
// Arguments:
// - dir: Directory path containing report files.
//
// Returns:
// - []ReportFile: The decoded reports.
// - error: Error if loading fails.
func LoadReportFiles(dir string) ([]ReportFile, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", dir)
	}

	var reports []ReportFile
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		switch filepath.Ext(file.Name()) {
		case ".json", ".cbor":
			path := filepath.Join(dir, file.Name())
			r, err := LoadReportFile(path)
			if err != nil {
				return nil, err
			}
			reports = append(reports, ReportFile{Path: path, Report: r})
		}
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Path < reports[j].Path
	})

	return reports, nil
}

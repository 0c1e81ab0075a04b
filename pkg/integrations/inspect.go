package integrations

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"

	_ "golang.org/x/image/webp"
)

// PageIssue is a page file that cannot be used as an image.
type PageIssue struct {
	Path   string
	Reason string
}

// InspectReport summarises a directory scan.
type InspectReport struct {
	Checked int
	Issues  []PageIssue
}

// InspectDir decodes every image file under root. Skip checks only test for
// existence, so a page cut short by an interrupted run shows up here.
func InspectDir(root string) (*InspectReport, error) {
	report := &InspectReport{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isImageFile(d.Name()) {
			return nil
		}

		report.Checked++
		if reason := inspectPage(path); reason != "" {
			report.Issues = append(report.Issues, PageIssue{Path: path, Reason: reason})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	return report, nil
}

func inspectPage(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return err.Error()
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err.Error()
	}
	if info.Size() == 0 {
		return "empty file"
	}

	if _, _, err := image.Decode(f); err != nil {
		return fmt.Sprintf("cannot decode: %v", err)
	}
	return ""
}

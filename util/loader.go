package util

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/nvr-ai/kitti-eval/eval"
	"github.com/nvr-ai/kitti-eval/models"
	"github.com/pkg/errors"
)

// AnnotationFile is one per-frame annotation dump.
type AnnotationFile struct {
	// Path is the path to the annotation file.
	Path string
	// Frame is the frame number parsed from the file name.
	Frame int
	// Annotation is the decoded content.
	Annotation models.Annotation
}

// LoadDirectoryAnnotationFiles reads all annotation files from a directory.
//
// Files must be named frame-N.json or N.json; other files are skipped.
//
// Arguments:
// - dir: Directory path containing annotation files.
//
// Returns:
// - []AnnotationFile: The decoded files, sorted by frame number.
// - error: Error if reading or decoding fails.
func LoadDirectoryAnnotationFiles(dir string) ([]AnnotationFile, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var annotations []AnnotationFile
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}

		frame, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(file.Name(), "frame-"), ".json"))
		if err != nil {
			continue
		}

		path := filepath.Join(dir, file.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		var anno models.Annotation
		if err := json.Unmarshal(data, &anno); err != nil {
			return nil, errors.Wrapf(err, "decoding %s", path)
		}
		annotations = append(annotations, AnnotationFile{
			Path:       path,
			Frame:      frame,
			Annotation: anno,
		})
	}

	sort.Slice(annotations, func(i, j int) bool {
		return annotations[i].Frame < annotations[j].Frame
	})

	return annotations, nil
}

// LoadAnnotationDir returns the annotations of dir in frame order.
func LoadAnnotationDir(dir string) ([]models.Annotation, error) {
	files, err := LoadDirectoryAnnotationFiles(dir)
	if err != nil {
		return nil, err
	}

	annos := make([]models.Annotation, len(files))
	for i, f := range files {
		annos[i] = f.Annotation
	}
	return annos, nil
}

// LoadAnnotationPairs loads ground truth and detections and pairs them by
// frame number.
//
// Frames with ground truth but no detection file get an empty detection
// annotation. A detection file whose frame has no ground truth is rejected
// with an error wrapping eval.ErrLengthMismatch.
//
// Arguments:
// - gtDir: Directory of ground-truth annotation files.
// - dtDir: Directory of detection annotation files.
//
// Returns:
// - gt: Ground-truth annotations in frame order.
// - dt: Detection annotations aligned with gt.
// - error: Error if loading fails or the frame sets cannot be paired.
func LoadAnnotationPairs(gtDir, dtDir string) (gt, dt []models.Annotation, err error) {
	gtFiles, err := LoadDirectoryAnnotationFiles(gtDir)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load ground truth")
	}
	dtFiles, err := LoadDirectoryAnnotationFiles(dtDir)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load detections")
	}

	byFrame := make(map[int]models.Annotation, len(dtFiles))
	for _, f := range dtFiles {
		byFrame[f.Frame] = f.Annotation
	}

	gt = make([]models.Annotation, len(gtFiles))
	dt = make([]models.Annotation, len(gtFiles))
	for i, f := range gtFiles {
		gt[i] = f.Annotation
		dt[i] = byFrame[f.Frame]
		delete(byFrame, f.Frame)
	}

	// dtFiles is sorted, so the first stray frame reported is the lowest.
	for _, f := range dtFiles {
		if _, stray := byFrame[f.Frame]; stray {
			return nil, nil, errors.Wrapf(eval.ErrLengthMismatch, "detection frame %d (%s) has no ground truth", f.Frame, f.Path)
		}
	}
	return gt, dt, nil
}

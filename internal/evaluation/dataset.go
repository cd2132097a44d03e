package evaluation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ironsheep/bento-measure-mcp/internal/engine"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// imageExtensions are the file types a dataset folder is scanned for.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
}

// GroundTruth maps an image's base filename to its true physical size.
type GroundTruth map[string]engine.Size

// CollectImages lists the images directly inside dir, sorted by name.
// Extensions match case-insensitively; subdirectories are not descended.
func CollectImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "read image folder")
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadGroundTruth reads a filename to size mapping. Files ending in .yaml or
// .yml are parsed as YAML, anything else as JSON:
//
//	{"box_01.jpg": {"width_mm": 180, "height_mm": 120}}
func LoadGroundTruth(path string) (GroundTruth, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read ground truth")
	}

	truth := GroundTruth{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &truth)
	default:
		err = json.Unmarshal(data, &truth)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "parse ground truth %s", filepath.Base(path))
	}

	for name, size := range truth {
		if size.WidthMM <= 0 || size.HeightMM <= 0 {
			return nil, errors.Errorf("ground truth for %s: dimensions must be positive", name)
		}
	}
	return truth, nil
}

package source

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Discover lists the .xlsx workbooks directly inside dir, sorted by name.
// Office lock files ("~$...") and hidden files are skipped. A missing
// directory yields no files and no error.
func Discover(dir string) ([]DiscoveredFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []DiscoveredFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !IsWorkbookName(name) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, DiscoveredFile{
			Path:      filepath.Join(dir, name),
			Name:      name,
			MtimeNs:   info.ModTime().UnixNano(),
			SizeBytes: info.Size(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Stat describes a single workbook file the same way Discover does.
func Stat(path string) (DiscoveredFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return DiscoveredFile{}, err
	}
	return DiscoveredFile{
		Path:      path,
		Name:      filepath.Base(path),
		MtimeNs:   info.ModTime().UnixNano(),
		SizeBytes: info.Size(),
	}, nil
}

// IsWorkbookName reports whether a file name looks like a readable workbook.
func IsWorkbookName(name string) bool {
	if strings.HasPrefix(name, "~$") || strings.HasPrefix(name, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), ".xlsx")
}

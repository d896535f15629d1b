package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"
)

const (
	KindJSON = "json"
	KindHTML = "html"
)

const resultFile = "result.json"

var pageRe = regexp.MustCompile(`^messages(\d*)\.html$`)

// Source is one export on disk and the files the extractor has to read.
type Source struct {
	Path  string
	Kind  string // KindJSON or KindHTML
	Files []string
	Mtime time.Time // newest file
	Size  int64     // all files together
}

// Detect decides how path should be extracted: a regular file or a directory
// holding result.json is a structured export, any other directory is read as
// HTML pages.
func Detect(path string) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Source{}, err
	}

	if !info.IsDir() {
		return Source{
			Path:  path,
			Kind:  KindJSON,
			Files: []string{path},
			Mtime: info.ModTime(),
			Size:  info.Size(),
		}, nil
	}

	if ri, err := os.Stat(filepath.Join(path, resultFile)); err == nil && !ri.IsDir() {
		return Source{
			Path:  path,
			Kind:  KindJSON,
			Files: []string{filepath.Join(path, resultFile)},
			Mtime: ri.ModTime(),
			Size:  ri.Size(),
		}, nil
	}

	pages, err := HTMLPages(path)
	if err != nil {
		return Source{}, err
	}
	if len(pages) == 0 {
		return Source{}, fmt.Errorf("%s: no %s or messages*.html", path, resultFile)
	}
	src := Source{Path: path, Kind: KindHTML, Files: pages}
	for _, p := range pages {
		pi, err := os.Stat(p)
		if err != nil {
			return Source{}, err
		}
		if pi.ModTime().After(src.Mtime) {
			src.Mtime = pi.ModTime()
		}
		src.Size += pi.Size()
	}
	return src, nil
}

// DetectAll runs Detect on every path. Missing paths are reported together.
func DetectAll(paths []string) ([]Source, error) {
	var sources []Source
	var missing []string
	for _, p := range paths {
		src, err := Detect(p)
		if err != nil {
			if os.IsNotExist(err) {
				missing = append(missing, p)
				continue
			}
			return nil, err
		}
		sources = append(sources, src)
	}
	if len(missing) > 0 {
		return sources, fmt.Errorf("sources not found: %v", missing)
	}
	return sources, nil
}

// HTMLPages lists the messages*.html pages of dir in export order:
// messages.html, messages2.html, ..., messages10.html.
func HTMLPages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type page struct {
		name string
		n    int
	}
	var pages []page
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := pageRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n := 1
		if m[1] != "" {
			n, _ = strconv.Atoi(m[1])
		}
		pages = append(pages, page{name: e.Name(), n: n})
	}
	sort.Slice(pages, func(i, j int) bool {
		if pages[i].n != pages[j].n {
			return pages[i].n < pages[j].n
		}
		return pages[i].name < pages[j].name
	})

	files := make([]string, len(pages))
	for i, p := range pages {
		files[i] = filepath.Join(dir, p.name)
	}
	return files, nil
}

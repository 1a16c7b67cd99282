// Package scanner walks a console folder and turns its entries into game
// candidates. It only reads the filesystem; persisting candidates is the
// caller's job.
package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/xxxsen/gamevault/internal/errs"
	"github.com/xxxsen/gamevault/internal/title"
)

// gameExtensions lists file extensions treated as game images or archives.
var gameExtensions = map[string]struct{}{
	// Nintendo
	".nsp": {}, ".xci": {}, ".nsz": {},
	".iso": {}, ".cso": {}, ".wbfs": {},
	".wad": {},
	".nds": {}, ".3ds": {}, ".cia": {},
	".gba": {}, ".gbc": {}, ".gb": {},
	".snes": {}, ".smc": {}, ".nes": {},
	// Sony
	".bin": {}, ".cue": {}, ".mdf": {},
	".pbp": {},
	// Microsoft
	".xex": {}, ".cci": {},
	// Sega
	".smd": {}, ".md": {}, ".gen": {},
	// Atari
	".a26": {}, ".a52": {}, ".a78": {},
	// Commodore
	".d64": {}, ".crt": {}, ".prg": {},
	// Archives commonly used for ROM dumps
	".zip": {}, ".rar": {}, ".7z": {},
}

// IsGameFile reports whether a file name looks like a game image based on
// its extension.
func IsGameFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	_, ok := gameExtensions[ext]
	return ok
}

// Candidate is one discovered game entry. FolderName keeps the on-disk name
// (minus extension for files); Title is the normalized display title.
type Candidate struct {
	FolderName string
	Title      string
	IsDir      bool
}

// Result summarizes one scan pass.
type Result struct {
	Candidates []Candidate
	Skipped    int
}

type seenEntry struct {
	idx   int
	isDir bool
}

// Scan lists dir and returns the new game candidates. existing holds the
// lowercased, trimmed titles already cataloged for this console; matching
// entries are counted as skipped. When a directory and a game file normalize
// to the same title the directory wins.
func Scan(dir string, existing map[string]struct{}) (*Result, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: console folder %s", errs.ErrNotFound, dir)
		}
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: stat %s", errs.ErrPermissionDenied, dir)
		}
		return nil, fmt.Errorf("stat console folder %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", errs.ErrValidation, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: read %s", errs.ErrPermissionDenied, dir)
		}
		return nil, fmt.Errorf("read console folder %s: %w", dir, err)
	}

	res := &Result{}
	seen := make(map[string]seenEntry)
	for _, entry := range entries {
		var folderName string
		isDir := entry.IsDir()
		if isDir {
			folderName = entry.Name()
		} else {
			if !IsGameFile(entry.Name()) {
				res.Skipped++
				continue
			}
			folderName = strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		}

		name := title.Display(folderName)
		key := strings.TrimSpace(strings.ToLower(name))
		if _, ok := existing[key]; ok {
			res.Skipped++
			continue
		}

		if prev, ok := seen[key]; ok {
			// Directory beats file for the same title; same kind is a
			// plain duplicate.
			if isDir && !prev.isDir {
				res.Candidates[prev.idx] = Candidate{FolderName: folderName, Title: name, IsDir: true}
				seen[key] = seenEntry{idx: prev.idx, isDir: true}
			}
			res.Skipped++
			continue
		}

		seen[key] = seenEntry{idx: len(res.Candidates), isDir: isDir}
		res.Candidates = append(res.Candidates, Candidate{FolderName: folderName, Title: name, IsDir: isDir})
	}
	return res, nil
}

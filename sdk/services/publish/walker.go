// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/scc-digitalhub/mirror-publisher-sdk/sdk/utils"
)

// treeWalker maps the mirror tree onto remote locations. Files are
// submitted to exec as soon as they are listed; subdirectories are walked
// afterwards, one at a time, depth first.
type treeWalker struct {
	exec    Executor
	logger  zerolog.Logger
	newTask func(location, localPath string) func()
	readDir func(dir string) ([]os.DirEntry, error)
}

func (w *treeWalker) publishDirectory(location, dir string) error {
	return w.walk(location, dir, nil)
}

// walk publishes dir. ancestors holds the resolved paths of the directories
// above it, so a symlink pointing back up the branch is skipped.
func (w *treeWalker) walk(location, dir string, ancestors []string) error {
	if abs, err := filepath.Abs(dir); err == nil {
		w.logger.Debug().Msgf("Switching to mirror directory: %s", abs)
	}
	if real, err := filepath.EvalSymlinks(dir); err == nil {
		ancestors = append(ancestors[:len(ancestors):len(ancestors)], real)
	}

	entries, err := w.readDir(dir)
	if err != nil {
		return fmt.Errorf("failed to list mirror directory %s: %w", dir, err)
	}

	var recurse []string
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if isDirectory(path, entry) {
			if loopsBack(path, ancestors) {
				w.logger.Warn().Msgf("Skipping symlink loop: %s", path)
				continue
			}
			recurse = append(recurse, entry.Name())
			continue
		}
		if err := w.exec.Submit(w.newTask(location, path)); err != nil {
			return fmt.Errorf("failed to submit upload of %s: %w", path, err)
		}
	}

	for _, name := range recurse {
		if err := w.walk(utils.AppendURLPathSegment(location, name), filepath.Join(dir, name), ancestors); err != nil {
			return err
		}
	}
	return nil
}

func loopsBack(path string, ancestors []string) bool {
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		return false
	}
	for _, a := range ancestors {
		if a == real {
			return true
		}
	}
	return false
}

// readDirUnsorted lists dir in the order the filesystem reports (os.ReadDir sorts).
func readDirUnsorted(dir string) ([]os.DirEntry, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.ReadDir(-1)
}

// isDirectory follows symlinks; entries that cannot be resolved count as files.
func isDirectory(path string, entry os.DirEntry) bool {
	if entry.Type()&os.ModeSymlink != 0 {
		info, err := os.Stat(path)
		return err == nil && info.IsDir()
	}
	return entry.IsDir()
}

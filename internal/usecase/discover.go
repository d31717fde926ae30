package usecase

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// discoveredFile - файл-кандидат на импорт
type discoveredFile struct {
	Path string
	// Filtered - найден обходом каталога или glob, но формат не поддерживается
	Filtered bool
}

// discoverFiles раскрывает пути: файлы берутся как есть, каталоги обходятся
// рекурсивно, glob-шаблоны раскрываются. Отсутствующий явный путь остаётся в
// списке, чтобы импорт учёл его как ошибку файла.
func discoverFiles(paths []string, supports func(path string) bool, logger *zap.Logger) []discoveredFile {
	var out []discoveredFile
	seen := make(map[string]bool)

	add := func(path string, explicit bool) {
		if seen[path] {
			return
		}
		seen[path] = true
		out = append(out, discoveredFile{
			Path:     path,
			Filtered: !explicit && !supports(path),
		})
	}

	for _, path := range paths {
		if isGlob(path) {
			matches, err := filepath.Glob(path)
			if err != nil {
				logger.Warn("Invalid glob pattern", zap.String("pattern", path), zap.Error(err))
				continue
			}
			if len(matches) == 0 {
				logger.Warn("Glob matched no files", zap.String("pattern", path))
			}
			for _, match := range matches {
				info, err := os.Stat(match)
				if err != nil {
					continue
				}
				if info.IsDir() {
					walkDir(match, func(p string) { add(p, false) }, logger)
					continue
				}
				add(match, false)
			}
			continue
		}

		info, err := os.Stat(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Warn("Path not found", zap.String("path", path))
			add(path, true)
		case err != nil:
			add(path, true)
		case info.IsDir():
			walkDir(path, func(p string) { add(p, false) }, logger)
		default:
			add(path, true)
		}
	}

	return out
}

// walkDir перечисляет обычные файлы каталога в лексикографическом порядке
func walkDir(root string, visit func(path string), logger *zap.Logger) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("Failed to read path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.Type().IsRegular() {
			visit(path)
		}
		return nil
	})
	if err != nil {
		logger.Warn("Failed to walk directory", zap.String("dir", root), zap.Error(err))
	}
}

func isGlob(path string) bool {
	return strings.ContainsAny(path, "*?[")
}

package handler

import (
	"os"
	"strings"

	"video-redub/internal/service"
)

// resolveDownloadPath maps "/tasks/<id>/..." to an existing file under the
// task root. Paths containing ".." are refused outright.
func resolveDownloadPath(requested string) (string, bool) {
	requested = strings.TrimSpace(requested)
	requested = strings.TrimLeft(requested, "/\\")
	if requested == "" || hasParentTraversal(requested) {
		return "", false
	}

	localPath, err := service.ResolveTaskFile(requested)
	if err != nil {
		return "", false
	}
	if _, ok := existingFile(localPath); !ok {
		return "", false
	}
	return localPath, true
}

func hasParentTraversal(path string) bool {
	normalized := strings.ReplaceAll(path, "\\", "/")
	parts := strings.Split(normalized, "/")
	for _, part := range parts {
		if part == ".." {
			return true
		}
	}
	return false
}

func existingFile(path string) (os.FileInfo, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, false
	}
	return info, true
}

package service

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"video-redub/config"
	"video-redub/internal/appdirs"
)

var appDirsResolver = appdirs.Resolve

func resolvePaths() (appdirs.Paths, error) {
	dirs, err := appDirsResolver()
	if err != nil {
		return appdirs.Paths{}, err
	}
	if workDir := strings.TrimSpace(config.Get().App.WorkDir); workDir != "" {
		dirs.WorkDir = workDir
	}
	return dirs, nil
}

// ResolveTaskRoot is the directory every task directory lives under.
func ResolveTaskRoot() (string, error) {
	dirs, err := resolvePaths()
	if err != nil {
		return "", err
	}
	return appdirs.TaskRootFor(dirs), nil
}

func resolveTaskDir(taskID string) (string, error) {
	if strings.TrimSpace(taskID) == "" {
		return "", fmt.Errorf("task id is empty")
	}

	dirs, err := resolvePaths()
	if err != nil {
		return "", err
	}
	return appdirs.TaskDirFor(dirs, taskID), nil
}

// ResolveTaskFile maps a download path such as "tasks/<id>/output/x.mp4" back
// to the local file, rejecting anything that escapes the task root.
func ResolveTaskFile(downloadPath string) (string, error) {
	taskRoot, err := ResolveTaskRoot()
	if err != nil {
		return "", err
	}
	// 以根目录为锚点清理，".." 无法越过任务目录
	rel := strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(downloadPath)), "/")
	if rel == appdirs.TaskRootName {
		rel = ""
	}
	rel = strings.TrimPrefix(rel, appdirs.TaskRootName+"/")
	local := filepath.Join(taskRoot, filepath.FromSlash(rel))
	if err = insideTaskRoot(taskRoot, local); err != nil {
		return "", err
	}
	return local, nil
}

func resolveTaskDownloadPath(localPath string) (string, error) {
	taskRoot, err := ResolveTaskRoot()
	if err != nil {
		return "", err
	}

	cleanedLocalPath := filepath.Clean(localPath)
	if err = insideTaskRoot(taskRoot, cleanedLocalPath); err != nil {
		return "", err
	}
	relPath, _ := filepath.Rel(taskRoot, cleanedLocalPath)
	return filepath.ToSlash(filepath.Join(appdirs.TaskRootName, relPath)), nil
}

func insideTaskRoot(taskRoot, localPath string) error {
	relPath, err := filepath.Rel(taskRoot, localPath)
	if err != nil {
		return err
	}
	if relPath == "." || relPath == "" {
		return fmt.Errorf("task artifact path %q is not a file path", localPath)
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("task artifact path %q is outside task root %q", localPath, taskRoot)
	}
	return nil
}

func resolveCacheDirPath(pathItems ...string) (string, error) {
	dirs, err := resolvePaths()
	if err != nil {
		return "", err
	}
	cacheRoot := strings.TrimSpace(dirs.CacheDir)
	if cacheRoot == "" {
		cacheRoot = "cache"
	}
	return filepath.Join(append([]string{cacheRoot}, pathItems...)...), nil
}

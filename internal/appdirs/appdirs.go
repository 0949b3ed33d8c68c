// Package appdirs decides where video-redub keeps its config, logs, cache and
// task directories, and how a dubbing run lays out its files under a work dir.
package appdirs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

const (
	// PortableEnv switches every directory next to the executable. Accepts
	// the strconv.ParseBool spellings; anything else is an error.
	PortableEnv = "REDUB_PORTABLE"

	TaskRootName    = "tasks"
	SubtitleDirName = "subtitles"
	AudioDirName    = "audio"
	OutputDirName   = "output"

	appName        = "VideoRedub"
	configFileName = "config.toml"
	dbFileName     = "redub.db"
)

var ErrWorkDirNotDir = errors.New("work dir is not a directory")

type Paths struct {
	Portable   bool
	ConfigDir  string
	ConfigFile string
	LogDir     string
	WorkDir    string
	CacheDir   string
}

// WorkLayout is the directory set one dubbing run writes into.
type WorkLayout struct {
	Root        string
	SubtitleDir string
	AudioDir    string
	OutputDir   string
}

// host is the slice of the OS Resolve depends on.
type host struct {
	goos       string
	getenv     func(string) string
	executable func() (string, error)
	configRoot func() (string, error)
	cacheRoot  func() (string, error)
}

var system = host{
	goos:       runtime.GOOS,
	getenv:     os.Getenv,
	executable: os.Executable,
	configRoot: os.UserConfigDir,
	cacheRoot:  os.UserCacheDir,
}

func Resolve() (Paths, error) {
	return system.resolve()
}

func ResolveDBPath() (string, error) {
	paths, err := Resolve()
	if err != nil {
		return "", err
	}
	return DBPathFor(paths), nil
}

func (h host) resolve() (Paths, error) {
	portable, err := ParsePortable(h.getenv(PortableEnv))
	if err != nil {
		return Paths{}, err
	}

	var paths Paths
	switch {
	case portable:
		exe, err := h.executable()
		if err != nil {
			return Paths{}, fmt.Errorf("%s: locate executable: %w", PortableEnv, err)
		}
		dataDir := filepath.Join(filepath.Dir(exe), "data")
		paths = under(dataDir)
		paths.ConfigDir = filepath.Join(dataDir, "config")
		paths.Portable = true
	case h.goos == "windows":
		configRoot, err := userRoot(h.configRoot, "config")
		if err != nil {
			return Paths{}, err
		}
		cacheRoot, err := userRoot(h.cacheRoot, "cache")
		if err != nil {
			return Paths{}, err
		}
		paths = under(filepath.Join(cacheRoot, appName))
		paths.ConfigDir = filepath.Join(configRoot, appName)
	default:
		// 非 Windows 平台沿用相对路径，跟随当前目录
		paths = Paths{ConfigDir: "config", LogDir: ".", WorkDir: ".", CacheDir: "cache"}
	}
	paths.ConfigFile = filepath.Join(paths.ConfigDir, configFileName)
	return paths, nil
}

// under puts logs, work and cache side by side below base.
func under(base string) Paths {
	return Paths{
		LogDir:   filepath.Join(base, "logs"),
		WorkDir:  filepath.Join(base, "work"),
		CacheDir: filepath.Join(base, "cache"),
	}
}

func userRoot(lookup func() (string, error), kind string) (string, error) {
	root, err := lookup()
	if err != nil {
		return "", fmt.Errorf("user %s dir: %w", kind, err)
	}
	if strings.TrimSpace(root) == "" {
		return "", fmt.Errorf("user %s dir is empty", kind)
	}
	return root, nil
}

// ParsePortable reads the PortableEnv value. Empty means off.
func ParsePortable(value string) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return false, nil
	}
	on, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s=%q is not a boolean", PortableEnv, value)
	}
	return on, nil
}

// CheckWorkDir rejects a work dir that cannot hold the run directories: one
// that exists as a regular file, or whose nearest existing parent is a file.
// A missing directory is fine, it is created on first use.
func CheckWorkDir(dir string) error {
	dir = normalizeWorkDir(dir)
	if strings.ContainsRune(dir, 0) {
		return fmt.Errorf("work dir %q contains a NUL byte", dir)
	}
	for probe := dir; ; probe = filepath.Dir(probe) {
		info, err := os.Stat(probe)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("%w: %s", ErrWorkDirNotDir, probe)
			}
			return nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("work dir %s: %w", dir, err)
		}
		if parent := filepath.Dir(probe); parent == probe {
			return nil
		}
	}
}

func WorkLayoutFor(root string) WorkLayout {
	root = normalizeWorkDir(root)
	return WorkLayout{
		Root:        root,
		SubtitleDir: filepath.Join(root, SubtitleDirName),
		AudioDir:    filepath.Join(root, AudioDirName),
		OutputDir:   filepath.Join(root, OutputDirName),
	}
}

func TaskRootFor(paths Paths) string {
	return filepath.Join(normalizeWorkDir(paths.WorkDir), TaskRootName)
}

func TaskDirFor(paths Paths, taskID string) string {
	return filepath.Join(TaskRootFor(paths), taskID)
}

func DBPathFor(paths Paths) string {
	cacheDir := strings.TrimSpace(paths.CacheDir)
	if cacheDir == "" {
		cacheDir = "cache"
	}
	return filepath.Join(filepath.Clean(cacheDir), dbFileName)
}

func normalizeWorkDir(workDir string) string {
	cleaned := strings.TrimSpace(workDir)
	if cleaned == "" {
		return "."
	}
	return filepath.Clean(cleaned)
}

package service

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-redub/config"
	"video-redub/internal/appdirs"
)

func useWorkDir(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()
	originalResolver := appDirsResolver
	originalConf := config.Conf
	t.Cleanup(func() {
		appDirsResolver = originalResolver
		config.Conf = originalConf
	})

	workDir := filepath.Join(tempDir, "work-root")
	config.Conf.App.WorkDir = ""
	appDirsResolver = func() (appdirs.Paths, error) {
		return appdirs.Paths{
			WorkDir:  workDir,
			CacheDir: filepath.Join(tempDir, "cache-root"),
		}, nil
	}
	return workDir
}

func TestResolveTaskDirUsesWorkDir(t *testing.T) {
	workDir := useWorkDir(t)

	got, err := resolveTaskDir("task-001")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(workDir, "tasks", "task-001"), got)

	_, err = resolveTaskDir("  ")
	assert.Error(t, err)
}

func TestResolveTaskDirHonoursConfiguredWorkDir(t *testing.T) {
	useWorkDir(t)
	override := t.TempDir()
	config.Conf.App.WorkDir = override

	got, err := resolveTaskDir("task-001")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(override, "tasks", "task-001"), got)
}

func TestResolveTaskDownloadPath(t *testing.T) {
	workDir := useWorkDir(t)

	localArtifact := filepath.Join(workDir, "tasks", "task-001", "output", "talk_dubbed.mp4")
	got, err := resolveTaskDownloadPath(localArtifact)
	require.NoError(t, err)
	assert.Equal(t, "tasks/task-001/output/talk_dubbed.mp4", got)

	back, err := ResolveTaskFile(got)
	require.NoError(t, err)
	assert.Equal(t, localArtifact, back)
}

func TestResolveTaskDownloadPathRejectsOutsideTaskRoot(t *testing.T) {
	workDir := useWorkDir(t)

	_, err := resolveTaskDownloadPath(filepath.Join(filepath.Dir(workDir), "not-task-root", "subtitle.srt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside task root")
}

func TestResolveTaskFileRejectsTraversal(t *testing.T) {
	workDir := useWorkDir(t)

	got, err := ResolveTaskFile("tasks/../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(workDir, "tasks", "etc", "passwd"), got)

	_, err = ResolveTaskFile("tasks")
	assert.Error(t, err)
	_, err = ResolveTaskFile("/")
	assert.Error(t, err)
}

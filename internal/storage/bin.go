package storage

// External tool paths. Empty means "look up on PATH"; deps.ApplyResolvedPaths
// fills them with what was found at startup.
var (
	FfmpegPath        string
	FfprobePath       string
	EdgeTtsPath       string
	FasterwhisperPath string
)

package types

const (
	DubTaskStatusPending    uint8 = 0
	DubTaskStatusProcessing uint8 = 1
	DubTaskStatusSuccess    uint8 = 2
	DubTaskStatusFailed     uint8 = 3
)

type DubTask struct {
	Id                uint64  `json:"id" gorm:"primaryKey;autoIncrement"`
	TaskId            string  `json:"task_id" gorm:"uniqueIndex;size:64"`
	VideoPath         string  `json:"video_path"`
	VoiceId           string  `json:"voice_id"`
	SpeedRate         float64 `json:"speed_rate"`
	OriginalVolume    float64 `json:"original_volume"`
	ReuseIntermediate bool    `json:"reuse_intermediate"`
	Status            uint8   `json:"status"`
	Stage             string  `json:"stage"`
	StatusMsg         string  `json:"status_msg"`
	FailReason        string  `json:"fail_reason"`
	ErrorCode         int     `json:"error_code"`
	WorkDir           string  `json:"work_dir"`
	EnSubtitlePath    string  `json:"en_subtitle_path"`
	CnSubtitlePath    string  `json:"cn_subtitle_path"`
	OutputPath        string  `json:"output_path"`
	ClipCount         int     `json:"clip_count"`
	CreateTime        int64   `json:"create_time" gorm:"autoCreateTime"`
	UpdateTime        int64   `json:"update_time" gorm:"autoUpdateTime"`
}

// Finished reports whether the task reached a terminal status.
func (t *DubTask) Finished() bool {
	return t.Status == DubTaskStatusSuccess || t.Status == DubTaskStatusFailed
}

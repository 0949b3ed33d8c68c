package dto

type CreateDubTaskReq struct {
	VideoPath         string   `json:"video_path" binding:"required"`
	VoiceId           string   `json:"voice_id"`
	SpeedRate         *float64 `json:"speed_rate"`
	OriginalVolume    *float64 `json:"original_volume"`
	ReuseIntermediate bool     `json:"reuse_intermediate"`
}

type CreateDubTaskResData struct {
	TaskId string `json:"task_id"`
}

type GetDubTaskReq struct {
	TaskId string `form:"task_id" binding:"required"`
}

type DubTaskData struct {
	TaskId         string  `json:"task_id"`
	Status         uint8   `json:"status"`
	Stage          string  `json:"stage"`
	StatusMsg      string  `json:"status_msg"`
	FailReason     string  `json:"fail_reason,omitempty"`
	ErrorCode      int     `json:"error_code,omitempty"`
	VideoPath      string  `json:"video_path"`
	VoiceId        string  `json:"voice_id"`
	SpeedRate      float64 `json:"speed_rate"`
	OriginalVolume float64 `json:"original_volume"`
	ClipCount      int     `json:"clip_count"`
	EnSubtitleUrl  string  `json:"en_subtitle_url,omitempty"`
	CnSubtitleUrl  string  `json:"cn_subtitle_url,omitempty"`
	OutputUrl      string  `json:"output_url,omitempty"`
	OutputPath     string  `json:"output_path,omitempty"`
	CreateTime     int64   `json:"create_time"`
	UpdateTime     int64   `json:"update_time"`
}

type VoiceData struct {
	Id          string `json:"id"`
	Region      string `json:"region"`
	RegionLabel string `json:"region_label"`
	Name        string `json:"name"`
	Gender      string `json:"gender"`
	Label       string `json:"label"`
	Default     bool   `json:"default"`
}

type PreviewVoiceReq struct {
	VoiceId   string  `json:"voice_id" binding:"required"`
	SpeedRate float64 `json:"speed_rate"`
	Text      string  `json:"text"`
}

type PreviewVoiceResData struct {
	AudioUrl string `json:"audio_url"`
}

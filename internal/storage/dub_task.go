package storage

import (
	"errors"

	"gorm.io/gorm"

	"video-redub/internal/types"
)

var errDBNotInitialized = errors.New("database not initialized")

// SaveTask creates the task or updates the row with the same TaskId.
func SaveTask(task *types.DubTask) error {
	if DB == nil {
		return errDBNotInitialized
	}
	var existing types.DubTask
	result := DB.Where("task_id = ?", task.TaskId).First(&existing)

	if result.Error == nil {
		task.Id = existing.Id
		return DB.Save(task).Error
	} else if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return DB.Create(task).Error
	}
	return result.Error
}

func GetTask(taskId string) (*types.DubTask, error) {
	if DB == nil {
		return nil, errDBNotInitialized
	}
	var task types.DubTask
	if err := DB.Where("task_id = ?", taskId).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func GetTaskHistory(limit int) ([]types.DubTask, error) {
	if DB == nil {
		return nil, errDBNotInitialized
	}
	var tasks []types.DubTask
	if err := DB.Order("create_time desc").Order("id desc").Limit(limit).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTasksByStatus returns tasks with status, oldest first.
func GetTasksByStatus(status uint8) ([]types.DubTask, error) {
	if DB == nil {
		return nil, errDBNotInitialized
	}
	var tasks []types.DubTask
	if err := DB.Where("status = ?", status).Order("create_time asc").Order("id asc").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func DeleteTask(taskId string) error {
	if DB == nil {
		return errDBNotInitialized
	}
	return DB.Where("task_id = ?", taskId).Delete(&types.DubTask{}).Error
}

// MarkStaleTasks fails every task left processing by a previous process.
// Call it once at startup before workers run.
func MarkStaleTasks() (int64, error) {
	if DB == nil {
		return 0, errDBNotInitialized
	}
	result := DB.Model(&types.DubTask{}).
		Where("status = ?", types.DubTaskStatusProcessing).
		Updates(map[string]any{
			"status":      types.DubTaskStatusFailed,
			"stage":       "failed",
			"fail_reason": "服务重启，任务被中断 Task interrupted by server restart",
			"status_msg":  "任务超时/中断 Task Timeout/Interrupted",
		})
	return result.RowsAffected, result.Error
}

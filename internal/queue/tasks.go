package queue

import (
	"encoding/json"

	"github.com/phacogen-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCompletionEmail 完成邮件补发任务
	TaskCompletionEmail = constants.TaskSampleOrderCompletionEmail
	// TaskOverdueSweep 超时巡检任务
	TaskOverdueSweep = constants.TaskSampleOrderOverdueSweep
	// TaskAutoCreate 每日自动建单任务
	TaskAutoCreate = constants.TaskSampleOrderAutoCreate
)

// CompletionEmailPayload 完成邮件任务载荷
type CompletionEmailPayload struct {
	OrderID   uint   `json:"order_id"`
	ClinicIDs []uint `json:"clinic_ids,omitempty"`
}

// NewCompletionEmailTask 创建完成邮件任务
func NewCompletionEmailTask(payload CompletionEmailPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCompletionEmail, body), nil
}

// NewOverdueSweepTask 创建超时巡检任务
func NewOverdueSweepTask() *asynq.Task {
	return asynq.NewTask(TaskOverdueSweep, nil)
}

// NewAutoCreateTask 创建自动建单任务
func NewAutoCreateTask() *asynq.Task {
	return asynq.NewTask(TaskAutoCreate, nil)
}

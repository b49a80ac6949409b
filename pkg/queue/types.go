package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultQueueName is the queue used when no queue is specified.
const DefaultQueueName = "default"

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task is a unit of deferred work. Payload is the JSON encoding of the
// value passed to Enqueue; TaskName identifies the handler that decodes it.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	Queue       string     `json:"queue"`
	TaskName    string     `json:"task_name"`
	Payload     []byte     `json:"payload,omitempty"`
	Status      TaskStatus `json:"status"`
	RetryCount  int8       `json:"retry_count"`
	MaxRetries  int8       `json:"max_retries"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TaskName returns the qualified name used to match a payload type to its
// handler, e.g. "notification.DispatchTask".
func TaskName(payload any) string {
	return strings.TrimLeft(fmt.Sprintf("%T", payload), "*")
}

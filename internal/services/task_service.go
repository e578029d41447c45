// internal/services/task_service.go
package services

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Corphon/AnimStudio/internal/models"
)

// 任务状态
const (
	TaskRunning   = "running"
	TaskCompleted = "completed"
	TaskFailed    = "failed"
	TaskDiscarded = "discarded"
)

// TaskUpdate 任务状态快照，用于列表和推送
type TaskUpdate struct {
	TaskID    string      `json:"task_id"`
	Kind      string      `json:"kind"`
	View      models.View `json:"view"`
	Status    string      `json:"status"`
	Message   string      `json:"message,omitempty"`
	StartTime time.Time   `json:"start_time"`
	EndTime   *time.Time  `json:"end_time,omitempty"`
}

// Task 一次进行中的生成，对应界面上的加载指示
type Task struct {
	mu      sync.Mutex
	update  TaskUpdate
	service *TaskService
}

// TaskService 跟踪生成任务
type TaskService struct {
	mu          sync.RWMutex
	tasks       map[string]*Task
	subscribers map[chan TaskUpdate]struct{}
	now         func() time.Time
}

// NewTaskService 创建任务服务
func NewTaskService() *TaskService {
	return &TaskService{
		tasks:       make(map[string]*Task),
		subscribers: make(map[chan TaskUpdate]struct{}),
		now:         time.Now,
	}
}

// Start 登记一个开始运行的任务
func (s *TaskService) Start(kind string, view models.View) *Task {
	t := &Task{
		service: s,
		update: TaskUpdate{
			TaskID:    uuid.NewString(),
			Kind:      kind,
			View:      view,
			Status:    TaskRunning,
			StartTime: s.now(),
		},
	}

	s.mu.Lock()
	s.tasks[t.update.TaskID] = t
	s.mu.Unlock()

	s.broadcast(t.Snapshot())
	return t
}

// ID 任务ID
func (t *Task) ID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.update.TaskID
}

// Snapshot 当前状态
func (t *Task) Snapshot() TaskUpdate {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.update
}

func (t *Task) finish(status, message string) {
	t.mu.Lock()
	if t.update.Status != TaskRunning {
		t.mu.Unlock()
		return
	}
	end := t.service.now()
	t.update.Status = status
	t.update.Message = message
	t.update.EndTime = &end
	update := t.update
	t.mu.Unlock()

	t.service.broadcast(update)
}

// Complete 标记任务完成
func (t *Task) Complete() {
	t.finish(TaskCompleted, "")
}

// Fail 标记任务失败
func (t *Task) Fail(err error) {
	msg := "failed"
	if err != nil {
		msg = err.Error()
	}
	t.finish(TaskFailed, msg)
}

// Discard 结果因导航而被丢弃
func (t *Task) Discard() {
	t.finish(TaskDiscarded, "result discarded after navigation")
}

// Get 按ID读取任务
func (s *TaskService) Get(id string) (TaskUpdate, bool) {
	s.mu.RLock()
	t, ok := s.tasks[id]
	s.mu.RUnlock()
	if !ok {
		return TaskUpdate{}, false
	}
	return t.Snapshot(), true
}

// List 按开始时间列出任务，running 为 true 时只返回进行中的任务
func (s *TaskService) List(running bool) []TaskUpdate {
	s.mu.RLock()
	out := make([]TaskUpdate, 0, len(s.tasks))
	for _, t := range s.tasks {
		u := t.Snapshot()
		if running && u.Status != TaskRunning {
			continue
		}
		out = append(out, u)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

// Subscribe 订阅任务更新，缓冲区满时丢弃
func (s *TaskService) Subscribe() (<-chan TaskUpdate, func()) {
	ch := make(chan TaskUpdate, 16)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *TaskService) broadcast(update TaskUpdate) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subscribers {
		select {
		case ch <- update:
		default:
		}
	}
}

// CleanupFinished 清理结束超过 maxAge 的任务
func (s *TaskService) CleanupFinished(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	now := s.now()
	for id, t := range s.tasks {
		u := t.Snapshot()
		if u.EndTime != nil && now.Sub(*u.EndTime) > maxAge {
			delete(s.tasks, id)
			removed++
		}
	}
	return removed
}

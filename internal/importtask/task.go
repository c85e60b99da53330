package importtask

import (
	"time"

	"testplan/internal/api"
)

// Clock supplies timestamps for task bookkeeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// LogEntry is one timestamped line of a task log.
type LogEntry struct {
	Time    time.Time
	Message string
}

// String formats the entry the way it is shown to clients.
func (e LogEntry) String() string {
	return "[" + e.Time.Format("15:04:05") + "] " + e.Message
}

// Task is the registry's record of one import. It is only mutated by the
// Registry while holding its lock.
type Task struct {
	ID        string
	Project   string
	Version   string
	Status    api.TaskStatus
	Progress  int
	Logs      []LogEntry
	Result    *api.ImportResult
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// snapshot returns a deep copy in wire form.
func (t *Task) snapshot(withLogs bool) api.ImportStatus {
	s := api.ImportStatus{
		TaskID:      t.ID,
		ProjectName: t.Project,
		Version:     t.Version,
		Status:      t.Status,
		Progress:    t.Progress,
		Error:       t.Error,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.Result != nil {
		r := *t.Result
		r.SuiteIDs = append([]int(nil), t.Result.SuiteIDs...)
		r.Failures = append([]api.ScenarioFailure(nil), t.Result.Failures...)
		s.Result = &r
	}
	if withLogs {
		s.Logs = make([]string, 0, len(t.Logs))
		for _, e := range t.Logs {
			s.Logs = append(s.Logs, e.String())
		}
	}
	return s
}

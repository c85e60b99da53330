package importtask

import (
	"fmt"

	"testplan/pkg/logging"
)

// taskSink routes reconciliation progress of one task into the registry.
type taskSink struct {
	registry *Registry
	id       string
}

func (s *taskSink) Logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logging.Debug("Orchestrator", "[%s] %s", s.id, msg)
	if err := s.registry.AppendLog(s.id, msg); err != nil {
		logging.Warn("Orchestrator", "Dropping log line of task %s: %v", s.id, err)
	}
}

func (s *taskSink) SetProgress(percent int) {
	if err := s.registry.SetProgress(s.id, percent); err != nil {
		logging.Warn("Orchestrator", "Dropping progress of task %s: %v", s.id, err)
	}
}

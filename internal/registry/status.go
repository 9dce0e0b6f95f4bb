package registry

import (
	"fmt"
	"time"
)

const taskDidNotRun = "Task did not Run"

// WorkflowStatus is a workflow document as returned by the API.
type WorkflowStatus struct {
	ID            string       `json:"id"`
	Owner         string       `json:"owner,omitempty"`
	State         interface{}  `json:"state"`
	SubmittedTime string       `json:"submitted_time"`
	CompletedTime string       `json:"completed_time"`
	Tasks         []TaskStatus `json:"tasks"`
}

type TaskStatus struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	TaskType  string      `json:"taskType,omitempty"`
	State     interface{} `json:"state"`
	Note      string      `json:"note"`
	StartTime string      `json:"start_time"`
}

// Event is one task state transition.
type Event struct {
	Task      string `json:"task"`
	TaskID    string `json:"task_id,omitempty"`
	State     string `json:"state"`
	Event     string `json:"event,omitempty"`
	Timestamp string `json:"timestamp"`
}

type EventList struct {
	Events []Event `json:"Events"`
}

// SearchRequest filters a workflow search. Nil fields are not sent.
type SearchRequest struct {
	LookbackHours *int    `json:"lookback_h,omitempty"`
	Owner         *string `json:"owner,omitempty"`
	State         *string `json:"state,omitempty"`
}

// BuildWorkflowStatus summarizes workflow documents for display. With less,
// each workflow is reduced to its state. Otherwise tasks are listed and the
// workflow runtime is measured from the earliest task start to completion;
// when events is non-nil each task also gets its runtime.
func BuildWorkflowStatus(statuses []WorkflowStatus, events *EventList, less bool) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(statuses))

	for _, wf := range statuses {
		key := fmt.Sprintf("Workflow %s", wf.ID)
		if less {
			out = append(out, map[string]interface{}{key: wf.State})
			continue
		}

		var start time.Time
		tasks := make([]map[string]interface{}, 0, len(wf.Tasks))
		for _, task := range wf.Tasks {
			detail := map[string]interface{}{
				"id":         task.ID,
				"name":       task.Name,
				"state":      task.State,
				"note":       task.Note,
				"start time": task.StartTime,
			}
			if t, ok := parseTimestamp(task.StartTime); ok && (start.IsZero() || t.Before(start)) {
				start = t
			}
			if events != nil {
				detail["runtime"] = TaskRuntime(task.Name, events.Events)
			}
			tasks = append(tasks, detail)
		}

		out = append(out, map[string]interface{}{
			key: map[string]interface{}{
				"Tasks":          tasks,
				"Status":         wf.State,
				"Submitted Time": wf.SubmittedTime,
				"Runtime":        workflowRuntime(start, wf.CompletedTime),
			},
		})
	}

	return out
}

// TaskRuntime is the time from the task's last running event to its last
// complete event.
func TaskRuntime(task string, events []Event) string {
	var start, end time.Time
	for _, e := range events {
		if e.Task != task {
			continue
		}
		switch e.State {
		case "running":
			if t, ok := parseTimestamp(e.Timestamp); ok {
				start = t
			}
		case "complete":
			if t, ok := parseTimestamp(e.Timestamp); ok {
				end = t
			}
		}
	}
	if start.IsZero() || end.IsZero() {
		return taskDidNotRun
	}
	return end.Sub(start).String()
}

func workflowRuntime(start time.Time, completed string) string {
	end, ok := parseTimestamp(completed)
	if !ok || start.IsZero() {
		return "Workflow has not completed"
	}
	return end.Sub(start).String()
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleStatuses() []WorkflowStatus {
	return []WorkflowStatus{{
		ID:            "4350494649661385313",
		State:         map[string]interface{}{"state": "complete", "event": "succeeded"},
		SubmittedTime: "2016-06-10T19:13:40.000000+00:00",
		CompletedTime: "2016-06-10T19:20:00.000000+00:00",
		Tasks: []TaskStatus{
			{ID: "1", Name: "aop", State: "complete", Note: "ok", StartTime: "2016-06-10T19:15:00.000000+00:00"},
			{ID: "2", Name: "s3", State: "complete", StartTime: "2016-06-10T19:14:00.000000+00:00"},
		},
	}}
}

func TestBuildWorkflowStatus_Less(t *testing.T) {
	got := BuildWorkflowStatus(sampleStatuses(), nil, true)
	assert.Equal(t, []map[string]interface{}{
		{"Workflow 4350494649661385313": map[string]interface{}{"state": "complete", "event": "succeeded"}},
	}, got)
}

func TestBuildWorkflowStatus_Verbose(t *testing.T) {
	events := &EventList{Events: []Event{
		{Task: "aop", State: "running", Timestamp: "2016-06-10T19:15:00+00:00"},
		{Task: "aop", State: "complete", Timestamp: "2016-06-10T19:17:30+00:00"},
		{Task: "s3", State: "submitted", Timestamp: "2016-06-10T19:14:00+00:00"},
	}}

	got := BuildWorkflowStatus(sampleStatuses(), events, false)
	require.Len(t, got, 1)

	wf, ok := got[0]["Workflow 4350494649661385313"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "6m0s", wf["Runtime"], "runtime starts at the earliest task start")
	assert.Equal(t, "2016-06-10T19:13:40.000000+00:00", wf["Submitted Time"])

	tasks, ok := wf["Tasks"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, tasks, 2)
	assert.Equal(t, "2m30s", tasks[0]["runtime"])
	assert.Equal(t, "Task did not Run", tasks[1]["runtime"])
	assert.Equal(t, "ok", tasks[0]["note"])
}

func TestBuildWorkflowStatus_WithoutEvents(t *testing.T) {
	statuses := sampleStatuses()
	statuses[0].CompletedTime = ""

	got := BuildWorkflowStatus(statuses, nil, false)
	wf := got[0]["Workflow 4350494649661385313"].(map[string]interface{})
	assert.Equal(t, "Workflow has not completed", wf["Runtime"])

	for _, task := range wf["Tasks"].([]map[string]interface{}) {
		assert.NotContains(t, task, "runtime")
	}
}

func TestTaskRuntime(t *testing.T) {
	tests := []struct {
		name   string
		events []Event
		want   string
	}{
		{name: "no events", want: "Task did not Run"},
		{
			name: "never completed",
			events: []Event{
				{Task: "t", State: "running", Timestamp: "2016-06-10T19:15:00"},
			},
			want: "Task did not Run",
		},
		{
			name: "last running counts",
			events: []Event{
				{Task: "t", State: "running", Timestamp: "2016-06-10T19:15:00"},
				{Task: "t", State: "running", Timestamp: "2016-06-10T19:16:00"},
				{Task: "other", State: "complete", Timestamp: "2016-06-10T19:30:00"},
				{Task: "t", State: "complete", Timestamp: "2016-06-10T19:16:01.5"},
			},
			want: "1.5s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TaskRuntime("t", tt.events))
		})
	}
}

package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMessageTemplateEngine_Render(t *testing.T) {
	engine := NewMessageTemplateEngine()

	tests := []struct {
		name     string
		reason   EventReason
		data     EventData
		expected string
	}{
		{
			name:     "step success",
			reason:   ReasonStepSucceeded,
			data:     EventData{Timestamp: "2020-05-01 10:00:00", Description: "Stop worker"},
			expected: "2020-05-01 10:00:00 Stop worker success...",
		},
		{
			name:     "step failure with error",
			reason:   ReasonStepFailed,
			data:     EventData{Timestamp: "2020-05-01 10:00:00", Description: "Start broker", Error: "boom"},
			expected: "2020-05-01 10:00:00 Start broker failed: boom",
		},
		{
			name:     "step failure without error",
			reason:   ReasonStepFailed,
			data:     EventData{Timestamp: "t", Description: "Start broker"},
			expected: "t Start broker failed",
		},
		{
			name:     "restart success",
			reason:   ReasonRestartSucceeded,
			data:     EventData{Name: "workspace1"},
			expected: "Successfully Restart workspace workspace1.",
		},
		{
			name:     "transition success with duration",
			reason:   ReasonTransitionSucceeded,
			data:     EventData{Operation: "stop", Kind: "stream", Name: "s1", Duration: 2 * time.Second},
			expected: "Successfully stop stream s1 in 2s.",
		},
		{
			name:     "transition failure is the error",
			reason:   ReasonTransitionFailed,
			data:     EventData{Error: `Try to stop stream: "s1" failed after retry 5 times.`},
			expected: `Try to stop stream: "s1" failed after retry 5 times.`,
		},
		{
			name:     "unknown reason",
			reason:   EventReason("Custom"),
			data:     EventData{Kind: "broker", Name: "bk"},
			expected: "Event: Custom for broker bk",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, engine.Render(tt.reason, tt.data))
		})
	}
}

func TestMessageTemplateEngine_SetTemplate(t *testing.T) {
	engine := NewMessageTemplateEngine()
	engine.SetTemplate(ReasonRestartSucceeded, "done {{.Name}}")

	tmpl, ok := engine.GetTemplate(ReasonRestartSucceeded)
	assert.True(t, ok)
	assert.Equal(t, "done {{.Name}}", tmpl)
	assert.Equal(t, "done ws", engine.Render(ReasonRestartSucceeded, EventData{Name: "ws"}))
}

func TestGetEventType(t *testing.T) {
	assert.Equal(t, EventTypeError, getEventType(ReasonStepFailed))
	assert.Equal(t, EventTypeError, getEventType(ReasonRestartFailed))
	assert.Equal(t, EventTypeError, getEventType(ReasonTransitionFailed))
	assert.Equal(t, EventTypeInfo, getEventType(ReasonStepSucceeded))
	assert.Equal(t, EventTypeInfo, getEventType(ReasonRestartSucceeded))
}

func TestMessageTemplateEngine_InvalidTemplateKeepsPrevious(t *testing.T) {
	engine := NewMessageTemplateEngine()

	err := engine.SetTemplate(ReasonRestartSucceeded, "done {{.Name")
	assert.Error(t, err)
	assert.Equal(t, "Successfully Restart workspace ws.", engine.Render(ReasonRestartSucceeded, EventData{Name: "ws"}))
}

func TestMessageTemplateEngine_SprigFunctions(t *testing.T) {
	engine := NewMessageTemplateEngine()
	assert.NoError(t, engine.SetTemplate(ReasonStepSucceeded, `{{.Description | upper}} ok`))

	assert.Equal(t, "STOP WORKER ok", engine.Render(ReasonStepSucceeded, EventData{Description: "Stop worker"}))
	assert.Equal(t, "t Start broker failed: boom", engine.Render(ReasonStepFailed, EventData{Timestamp: "t", Description: "Start broker", Error: "boom\n"}))
}

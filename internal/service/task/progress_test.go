package task

import (
	"testing"

	"questboard/internal/model"
)

func TestProgress(t *testing.T) {
	tests := []struct {
		name     string
		subtasks []model.Subtask
		want     int
	}{
		{"no subtasks", nil, 0},
		{"empty slice", []model.Subtask{}, 0},
		{"none completed", []model.Subtask{{}, {}, {}}, 0},
		{"all completed", []model.Subtask{{Completed: true}, {Completed: true}}, 100},
		{"one of three", []model.Subtask{{Completed: true}, {}, {}}, 33},
		{"two of three", []model.Subtask{{Completed: true}, {Completed: true}, {}}, 67},
		{"one of six rounds up", []model.Subtask{{Completed: true}, {}, {}, {}, {}, {}}, 17},
		{"half", []model.Subtask{{Completed: true}, {}}, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Progress(tt.subtasks); got != tt.want {
				t.Errorf("Progress() = %d, want %d", got, tt.want)
			}
		})
	}
}

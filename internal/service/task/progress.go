package task

import (
	"math"

	"questboard/internal/model"
)

// Progress derives the completion percentage from the subtask checklist:
// 0 with no subtasks, otherwise round(100 * completed / total).
func Progress(subtasks []model.Subtask) int {
	if len(subtasks) == 0 {
		return 0
	}

	completed := 0
	for _, st := range subtasks {
		if st.Completed {
			completed++
		}
	}

	return int(math.Round(100 * float64(completed) / float64(len(subtasks))))
}

package labels

import (
	"encoding/json"
	"fmt"
)

// Header is the label list of one image together with its metadata.
type Header struct {
	ImageID        string   `json:"image_id"`
	Labels         []Model  `json:"labels"`
	Complete       bool     `json:"complete"`
	TimeElapsed    float64  `json:"timeElapsed,omitempty"`
	CompletedTasks []string `json:"completed_tasks,omitempty"`
	SessionID      string   `json:"session_id,omitempty"`
}

// NewHeader creates an empty header for an image.
func NewHeader(imageID string) *Header {
	return &Header{ImageID: imageID, Labels: []Model{}}
}

// IndexOf returns the position of m in the label list, or -1.
func (h *Header) IndexOf(m Model) int {
	for i, l := range h.Labels {
		if l == m {
			return i
		}
	}
	return -1
}

// SetTaskComplete adds or removes a task name from the completed list.
func (h *Header) SetTaskComplete(task string, complete bool) {
	index := -1
	for i, t := range h.CompletedTasks {
		if t == task {
			index = i
		}
	}

	if complete {
		if index == -1 {
			h.CompletedTasks = append(h.CompletedTasks, task)
		}
	} else if index != -1 {
		h.CompletedTasks = append(h.CompletedTasks[:index], h.CompletedTasks[index+1:]...)
	}
}

// MarshalJSON always writes labels as an array.
func (h Header) MarshalJSON() ([]byte, error) {
	type alias Header
	out := alias(h)
	if out.Labels == nil {
		out.Labels = []Model{}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the label list by label_type.
func (h *Header) UnmarshalJSON(data []byte) error {
	type alias Header
	var raw struct {
		alias
		Labels []json.RawMessage `json:"labels"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	models, err := decodeAll(raw.Labels)
	if err != nil {
		return fmt.Errorf("header %q: %w", raw.ImageID, err)
	}
	*h = Header(raw.alias)
	h.Labels = models
	return nil
}

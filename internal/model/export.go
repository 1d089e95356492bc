package model

import "time"

// QuestionSetExport is the top-level JSON structure written by the export command.
type QuestionSetExport struct {
	Mode        Mode                `json:"mode"`
	Group       float64             `json:"group"`
	Source      string              `json:"source"`
	GeneratedAt time.Time           `json:"generated_at"`
	Groups      []float64           `json:"groups"`
	Questions   []PresentedQuestion `json:"questions"`
	Warnings    []string            `json:"warnings,omitempty"`
}

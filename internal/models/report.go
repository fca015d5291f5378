package models

// ScaleChange compares one sub-scale between pretest and posttest
type ScaleChange struct {
	Name     string `json:"name"`
	Pretest  int    `json:"pretest"`
	Posttest int    `json:"posttest"`
	Delta    int    `json:"delta"`
	Improved bool   `json:"improved"`
}

// ProgressReport is the read-only summary parents see for a therapy
type ProgressReport struct {
	Therapy     TherapyWithChild `json:"therapy"`
	Screening   *Assessment      `json:"screening,omitempty"`
	Pretest     *Assessment      `json:"pretest,omitempty"`
	Observation *Assessment      `json:"observation,omitempty"`
	Posttest    *Assessment      `json:"posttest,omitempty"`
	Changes     []ScaleChange    `json:"changes,omitempty"`
	Complete    bool             `json:"complete"`
}

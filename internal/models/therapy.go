package models

import "time"

// Therapy links one child to one counselor. ChildID and ParentID never change
// after creation.
type Therapy struct {
	ID          int64     `json:"id"`
	ChildID     int64     `json:"child_id"`
	CounselorID int64     `json:"counselor_id"`
	ParentID    int64     `json:"parent_id"`
	Title       string    `json:"title"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TherapyWithChild combines a therapy with the child it belongs to
type TherapyWithChild struct {
	Therapy
	ChildName string `json:"child_name"`
}

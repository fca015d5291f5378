package models

import (
	"fmt"
	"strings"
	"time"
)

// Child represents a child profile owned by a parent account
type Child struct {
	ID             int64      `json:"id"`
	ParentID       int64      `json:"parent_id"`
	Fullname       string     `json:"fullname"`
	Nickname       string     `json:"nickname"`
	ChildOrder     int        `json:"child_order"`
	BirthDate      *time.Time `json:"birth_date,omitempty"`
	Gender         string     `json:"gender"`
	EducationStage string     `json:"education_stage"`
	EducationClass string     `json:"education_class"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// DisplayName returns the full name, falling back to "Child #<order>"
func (c *Child) DisplayName() string {
	if c == nil {
		return ""
	}
	if name := strings.TrimSpace(c.Fullname); name != "" {
		return name
	}
	return fmt.Sprintf("Child #%d", c.ChildOrder)
}

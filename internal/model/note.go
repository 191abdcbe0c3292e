package model

import "time"

// Note is free text pinned to a record.
type Note struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Content    string     `json:"content"`
	LinkedType EntityType `json:"linked_type"`
	LinkedID   string     `json:"linked_id"`
	Author     *string    `json:"author"`
	Pinned     bool       `json:"pinned"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

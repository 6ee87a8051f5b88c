package model

import (
	"strings"
	"time"
)

// Event is an alumni gathering that users can register for.
//
// RegisteredUsers is owned by the event and kept in registration order.
// It is never nil so the API always returns [] rather than null.
type Event struct {
	ID              string    `json:"id"              bson:"_id,omitempty"`
	Title           string    `json:"title"           bson:"title"           validate:"required"`
	Description     string    `json:"description"     bson:"description"     validate:"required"`
	Date            time.Time `json:"date"            bson:"date"            validate:"required"`
	Location        string    `json:"location"        bson:"location"        validate:"required"`
	Image           string    `json:"image,omitempty" bson:"image,omitempty"`
	RegisteredUsers []string  `json:"registeredUsers" bson:"registeredUsers"`
	CreatedBy       string    `json:"createdBy"       bson:"createdBy"       validate:"required"`
	CreatedAt       time.Time `json:"createdAt"       bson:"createdAt"`
}

// Normalize trims the free-text fields and makes sure RegisteredUsers is
// an empty list rather than nil.
func (e *Event) Normalize() {
	e.Title = strings.TrimSpace(e.Title)
	e.Description = strings.TrimSpace(e.Description)
	e.Location = strings.TrimSpace(e.Location)
	e.Image = strings.TrimSpace(e.Image)
	if e.RegisteredUsers == nil {
		e.RegisteredUsers = []string{}
	}
}

// IsRegistered reports whether userID already holds a place.
func (e *Event) IsRegistered(userID string) bool {
	for _, id := range e.RegisteredUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// EventPatch is an admin edit. CreatedBy and RegisteredUsers are not
// editable through it.
type EventPatch struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Date        *time.Time `json:"date"`
	Location    *string    `json:"location"`
	Image       *string    `json:"image"`
}

func (p EventPatch) Apply(e *Event) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Image != nil {
		e.Image = *p.Image
	}
	e.Normalize()
}

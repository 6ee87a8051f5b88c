package model

import (
	"strings"
	"time"
)

// Category classifies a news item.
type Category string

const (
	CategoryAnnouncement Category = "announcement"
	CategoryAchievement  Category = "achievement"
	CategoryEvent        Category = "event"
	CategoryGeneral      Category = "general"
)

// Categories lists every valid Category.
var Categories = []Category{CategoryAnnouncement, CategoryAchievement, CategoryEvent, CategoryGeneral}

// News is a feed item published by an admin.
type News struct {
	ID        string    `json:"id"              bson:"_id,omitempty"`
	Title     string    `json:"title"           bson:"title"    validate:"required"`
	Content   string    `json:"content"         bson:"content"  validate:"required"`
	Image     string    `json:"image,omitempty" bson:"image,omitempty"`
	Category  Category  `json:"category"        bson:"category" validate:"required,oneof=announcement achievement event general"`
	Author    string    `json:"author"          bson:"author"   validate:"required"`
	CreatedAt time.Time `json:"createdAt"       bson:"createdAt"`
}

// Normalize trims the text fields and defaults Category to general.
func (n *News) Normalize() {
	n.Title = strings.TrimSpace(n.Title)
	n.Content = strings.TrimSpace(n.Content)
	n.Image = strings.TrimSpace(n.Image)
	if n.Category == "" {
		n.Category = CategoryGeneral
	}
}

// NewsPatch is an admin edit; Author is not editable.
type NewsPatch struct {
	Title    *string   `json:"title"`
	Content  *string   `json:"content"`
	Image    *string   `json:"image"`
	Category *Category `json:"category"`
}

func (p NewsPatch) Apply(n *News) {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.Image != nil {
		n.Image = *p.Image
	}
	if p.Category != nil {
		n.Category = *p.Category
	}
	n.Normalize()
}

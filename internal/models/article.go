package models

import "time"

type ArticleStatus string

const (
	ArticleDraft     ArticleStatus = "draft"
	ArticlePublished ArticleStatus = "published"
)

type Article struct {
	BaseModel

	Title       string        `gorm:"not null" json:"title"`
	Slug        string        `gorm:"uniqueIndex;not null" json:"slug"`
	Excerpt     string        `json:"excerpt"`
	Body        string        `gorm:"type:text" json:"body"`
	AuthorID    string        `gorm:"type:uuid;index" json:"author_id"`
	OrgID       *string       `gorm:"column:organization_id;type:uuid;index" json:"organization_id"`
	Status      ArticleStatus `gorm:"type:varchar(16);index;default:draft" json:"status"`
	PublishedAt *time.Time    `gorm:"index" json:"published_at,omitempty"`
}

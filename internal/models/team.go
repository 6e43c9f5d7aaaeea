package models

// Team owns projects and configures suggested tags as a comma-separated list.
type Team struct {
	Slug          string `json:"slug" yaml:"slug"`
	Name          string `json:"name" yaml:"name"`
	SuggestedTags string `json:"get_suggested_tags,omitempty" yaml:"suggested_tags"`
}

// Project groups sources inside a team.
type Project struct {
	ID       int64  `json:"dbid"`
	Title    string `json:"title,omitempty"`
	TeamSlug string `json:"team_slug,omitempty"`
}

// User is the identity that authors annotations.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

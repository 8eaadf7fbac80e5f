package model

type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	CreatedBy   string `json:"created_by"`
	CreatedAt   int64  `json:"created_at"`
}

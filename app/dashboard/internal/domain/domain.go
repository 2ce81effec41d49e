package domain

import "time"

// User 看板用户
type User struct {
	Username     string
	PasswordHash string
}

// Artifact 可下载的产物
type Artifact struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

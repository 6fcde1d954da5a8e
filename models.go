package main

import "time"

// User represents a registered user.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:64;uniqueIndex"`
	Email        string `gorm:"size:120;uniqueIndex"`
	PasswordHash string `gorm:"size:128"`
	AboutMe      string `gorm:"size:140"`
	LastSeen     *time.Time
	Posts        []Post `gorm:"foreignKey:UserID"`
}

// Post is a short message. Posts are never edited once stored.
type Post struct {
	ID        uint      `gorm:"primaryKey"`
	Body      string    `gorm:"size:140"`
	Timestamp time.Time `gorm:"index"`
	UserID    uint      `gorm:"index"`
	Author    User      `gorm:"foreignKey:UserID"`
	Language  string    `gorm:"size:5"`
}

// Follow is a directed edge: FollowerID's feed includes FollowedID's posts.
// The table has no key of its own.
type Follow struct {
	FollowerID uint
	FollowedID uint
}

func (Follow) TableName() string { return "followers" }

// Page is one page of a newest-first post listing.
type Page struct {
	Items   []Post
	Number  int
	PerPage int
	HasNext bool
	HasPrev bool
}

func (p Page) NextNum() int { return p.Number + 1 }

func (p Page) PrevNum() int { return p.Number - 1 }

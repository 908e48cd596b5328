package models

import "time"

// File is attachment metadata for an issue. Filenames are unique per issue;
// StoreKey is the opaque name the blob is stored under on disk.
type File struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Filename   string    `gorm:"uniqueIndex:idx_file_issue_name;size:255;not null" json:"filename"`
	IssueID    uint      `gorm:"uniqueIndex:idx_file_issue_name;not null" json:"issue_id"`
	Issue      *Issue    `gorm:"foreignKey:IssueID" json:"issue,omitempty"`
	StoreKey   string    `gorm:"uniqueIndex;size:36;not null" json:"-"`
	Size       int64     `gorm:"not null" json:"size"`
	UploaderID uint      `gorm:"index;not null" json:"uploader_id"`
	Uploader   *User     `gorm:"foreignKey:UploaderID" json:"uploader,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (File) TableName() string { return "files" }

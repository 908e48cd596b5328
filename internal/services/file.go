package services

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/issueless/issueless/internal/config"
	"github.com/issueless/issueless/internal/models"
	"github.com/issueless/issueless/pkg/logger"
	"gorm.io/gorm"
)

// FileStorage stores attachment blobs on disk under opaque UUID keys, so
// user-supplied filenames never touch the filesystem.
type FileStorage struct {
	dir string
}

func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &FileStorage{dir: dir}, nil
}

// Save writes the blob under a fresh key and returns the key and byte count.
func (fs *FileStorage) Save(r io.Reader) (string, int64, error) {
	key := uuid.NewString()
	f, err := os.Create(filepath.Join(fs.dir, key))
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	n, err := io.Copy(f, r)
	if err != nil {
		os.Remove(f.Name())
		return "", 0, err
	}
	return key, n, nil
}

// Open returns a reader for a stored blob. The caller closes it.
func (fs *FileStorage) Open(key string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(fs.dir, key))
}

// Remove deletes a stored blob. Missing blobs are not an error.
func (fs *FileStorage) Remove(key string) error {
	err := os.Remove(filepath.Join(fs.dir, key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// FileService manages issue attachments. Metadata lives in the database,
// blobs in FileStorage; the same participation rule as comments applies.
type FileService struct {
	db      *gorm.DB
	storage *FileStorage
	uploads config.UploadConfig
}

func NewFileService(db *gorm.DB, storage *FileStorage, uploads config.UploadConfig) *FileService {
	return &FileService{db: db, storage: storage, uploads: uploads}
}

// MaxUploadBytes is the configured per-file size limit.
func (s *FileService) MaxUploadBytes() int64 {
	return int64(s.uploads.MaxSizeMB) << 20
}

// Upload attaches a file to an In Progress issue. Filenames are unique per
// issue. The blob is written first; if the metadata insert fails the blob is
// removed again.
func (s *FileService) Upload(actorID, projectID, issueID uint, filename string, r io.Reader) (*models.File, error) {
	if filename == "" {
		return nil, NewValidation("Please provide a filename.")
	}

	var file models.File
	err := s.db.Transaction(func(tx *gorm.DB) error {
		membership, issue, err := requireIssue(tx, actorID, projectID, issueID)
		if err != nil {
			return err
		}

		if issue.Status != models.StatusInProgress {
			return NewValidation("Files can only be attached to an issue in progress.")
		}
		if !canParticipate(membership, issue, actorID) {
			return NewForbidden("only the creator, the assignee or an issue manager can attach files to this issue")
		}

		var count int64
		if err := tx.Model(&models.File{}).
			Where("issue_id = ? AND filename = ?", issue.ID, filename).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return NewValidation(fmt.Sprintf("A file named %s already exists on this issue.", filename))
		}

		key, size, err := s.storage.Save(io.LimitReader(r, s.MaxUploadBytes()+1))
		if err != nil {
			return err
		}
		if size > s.MaxUploadBytes() {
			if rmErr := s.storage.Remove(key); rmErr != nil {
				logger.Warn().Err(rmErr).Str("key", key).Msg("failed to remove oversized upload")
			}
			return NewValidation(fmt.Sprintf("The file must not exceed %d MB.", s.uploads.MaxSizeMB))
		}

		file = models.File{
			Filename:   filename,
			IssueID:    issue.ID,
			StoreKey:   key,
			Size:       size,
			UploaderID: actorID,
		}
		if err := tx.Create(&file).Error; err != nil {
			if rmErr := s.storage.Remove(key); rmErr != nil {
				logger.Warn().Err(rmErr).Str("key", key).Msg("failed to remove orphaned upload")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// Download returns a file's metadata and an open reader for its blob.
// Requires READ_PROJECT and an assigned issue. The caller closes the reader.
func (s *FileService) Download(userID, projectID, issueID, fileID uint) (*models.File, io.ReadCloser, error) {
	_, issue, file, err := s.getFile(s.db, userID, projectID, issueID, fileID)
	if err != nil {
		return nil, nil, err
	}
	if issue.AssigneeID == nil {
		return nil, nil, NewValidation("Files can only be downloaded from an assigned issue.")
	}
	rc, err := s.storage.Open(file.StoreKey)
	if err != nil {
		return nil, nil, err
	}
	return file, rc, nil
}

// Delete removes a file. Only its uploader or a MANAGE_ISSUES holder may
// delete it. The blob is removed after the metadata delete commits.
func (s *FileService) Delete(actorID, projectID, issueID, fileID uint) error {
	var storeKey string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		membership, _, file, err := s.getFile(tx, actorID, projectID, issueID, fileID)
		if err != nil {
			return err
		}
		if file.UploaderID != actorID && !membership.Can(models.PermissionManageIssues) {
			return NewForbidden("only the uploader or an issue manager can delete a file")
		}
		storeKey = file.StoreKey
		return tx.Delete(file).Error
	})
	if err != nil {
		return err
	}
	if err := s.storage.Remove(storeKey); err != nil {
		logger.Warn().Err(err).Str("key", storeKey).Msg("failed to remove stored file")
	}
	return nil
}

// List returns an issue's files, oldest first. Requires READ_PROJECT.
func (s *FileService) List(userID, projectID, issueID uint) ([]models.File, error) {
	if _, _, err := requireIssue(s.db, userID, projectID, issueID); err != nil {
		return nil, err
	}

	var files []models.File
	err := s.db.Preload("Uploader").
		Where("issue_id = ?", issueID).
		Order("created_at").
		Find(&files).Error
	return files, err
}

func (s *FileService) getFile(db *gorm.DB, userID, projectID, issueID, fileID uint) (*models.Membership, *models.Issue, *models.File, error) {
	membership, issue, err := requireIssue(db, userID, projectID, issueID)
	if err != nil {
		return nil, nil, nil, err
	}

	var file models.File
	if err := db.First(&file, fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, NewNotFound("file")
		}
		return nil, nil, nil, err
	}
	if file.IssueID != issue.ID {
		return nil, nil, nil, NewValidation("The file does not belong to this issue.")
	}
	return membership, issue, &file, nil
}

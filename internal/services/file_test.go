package services

import (
	"io"
	"strings"
	"testing"

	"github.com/issueless/issueless/internal/config"
	"github.com/issueless/issueless/internal/models"
)

func newTestFileService(t *testing.T) (*testEnv, *FileService) {
	t.Helper()

	env := newTestEnv(t)
	storage, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create file storage: %v", err)
	}
	files := NewFileService(env.db, storage, config.UploadConfig{Dir: "unused", MaxSizeMB: 1})
	return env, files
}

func TestFileStorage_RoundTrip(t *testing.T) {
	storage, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStorage failed: %v", err)
	}

	key, size, err := storage.Save(strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if size != 5 {
		t.Errorf("size = %d, expected 5", size)
	}

	rc, err := storage.Open(key)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "hello" {
		t.Errorf("content = %q, expected %q", data, "hello")
	}

	if err := storage.Remove(key); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	// Removing a missing blob is fine.
	if err := storage.Remove(key); err != nil {
		t.Errorf("second Remove should be a no-op, got %v", err)
	}
}

func TestFileUpload_OnlyInProgress(t *testing.T) {
	env, files := newTestFileService(t)
	admin := createUser(t, env.db, "admin")
	project := createProject(t, env.db, admin, "Apollo")
	issue := createIssue(t, env.db, admin, project, models.StatusOpen, nil)

	_, err := files.Upload(admin.ID, project.ID, issue.ID, "log.txt", strings.NewReader("x"))
	assertValidationError(t, err, "Files can only be attached to an issue in progress.")
}

func TestFileUpload_DuplicateFilenameRejected(t *testing.T) {
	env, files := newTestFileService(t)
	admin := createUser(t, env.db, "admin")
	project := createProject(t, env.db, admin, "Apollo")
	issue := createIssue(t, env.db, admin, project, models.StatusInProgress, admin)

	if _, err := files.Upload(admin.ID, project.ID, issue.ID, "log.txt", strings.NewReader("x")); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	_, err := files.Upload(admin.ID, project.ID, issue.ID, "log.txt", strings.NewReader("y"))
	assertValidationError(t, err, "A file named log.txt already exists on this issue.")
}

func TestFileUpload_ParticipantsOnly(t *testing.T) {
	env, files := newTestFileService(t)
	admin := createUser(t, env.db, "admin")
	assignee := createUser(t, env.db, "assignee")
	bystander := createUser(t, env.db, "bystander")
	project := createProject(t, env.db, admin, "Apollo")
	addMember(t, env.db, assignee, project, models.RoleDeveloper)
	addMember(t, env.db, bystander, project, models.RoleDeveloper)
	issue := createIssue(t, env.db, admin, project, models.StatusInProgress, assignee)

	_, err := files.Upload(bystander.ID, project.ID, issue.ID, "log.txt", strings.NewReader("x"))
	assertForbidden(t, err)

	if _, err := files.Upload(assignee.ID, project.ID, issue.ID, "log.txt", strings.NewReader("x")); err != nil {
		t.Fatalf("assignee upload failed: %v", err)
	}
}

func TestFileDownload_RequiresAssignedIssue(t *testing.T) {
	env, files := newTestFileService(t)
	admin := createUser(t, env.db, "admin")
	assignee := createUser(t, env.db, "assignee")
	project := createProject(t, env.db, admin, "Apollo")
	addMember(t, env.db, assignee, project, models.RoleDeveloper)
	issue := createIssue(t, env.db, admin, project, models.StatusInProgress, assignee)

	uploaded, err := files.Upload(admin.ID, project.ID, issue.ID, "log.txt", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	// Clear the assignment out from under the file.
	if err := env.db.Model(&models.Issue{}).Where("id = ?", issue.ID).
		Updates(map[string]interface{}{"assignee_id": nil, "status": models.StatusOpen}).Error; err != nil {
		t.Fatalf("failed to clear assignee: %v", err)
	}

	_, _, err = files.Download(admin.ID, project.ID, issue.ID, uploaded.ID)
	assertValidationError(t, err, "Files can only be downloaded from an assigned issue.")
}

func TestFileDownloadAndDelete(t *testing.T) {
	env, files := newTestFileService(t)
	admin := createUser(t, env.db, "admin")
	assignee := createUser(t, env.db, "assignee")
	project := createProject(t, env.db, admin, "Apollo")
	addMember(t, env.db, assignee, project, models.RoleDeveloper)
	issue := createIssue(t, env.db, admin, project, models.StatusInProgress, assignee)

	uploaded, err := files.Upload(admin.ID, project.ID, issue.ID, "log.txt", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	file, rc, err := files.Download(assignee.ID, project.ID, issue.ID, uploaded.ID)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "payload" || file.Filename != "log.txt" {
		t.Errorf("download returned %q / %q", file.Filename, data)
	}

	// The assignee did not upload it and is no manager, so no delete.
	err = files.Delete(assignee.ID, project.ID, issue.ID, uploaded.ID)
	assertForbidden(t, err)

	if err := files.Delete(admin.ID, project.ID, issue.ID, uploaded.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	var count int64
	env.db.Model(&models.File{}).Where("id = ?", uploaded.ID).Count(&count)
	if count != 0 {
		t.Error("file row should be gone")
	}
}

package services

import (
	"strings"
	"testing"

	"github.com/issueless/issueless/internal/models"
)

func TestCommentAdd_OnlyInProgress(t *testing.T) {
	env := newTestEnv(t)
	admin := createUser(t, env.db, "admin")
	project := createProject(t, env.db, admin, "Apollo")
	issue := createIssue(t, env.db, admin, project, models.StatusOpen, nil)

	_, err := env.comments.Add(admin.ID, project.ID, issue.ID, "too early")
	assertValidationError(t, err, "Only an issue in progress can be commented on.")
}

func TestCommentAdd_ParticipantsOnly(t *testing.T) {
	env := newTestEnv(t)
	admin := createUser(t, env.db, "admin")
	assignee := createUser(t, env.db, "assignee")
	bystander := createUser(t, env.db, "bystander")
	project := createProject(t, env.db, admin, "Apollo")
	addMember(t, env.db, assignee, project, models.RoleDeveloper)
	addMember(t, env.db, bystander, project, models.RoleDeveloper)
	issue := createIssue(t, env.db, admin, project, models.StatusInProgress, assignee)

	// Another developer who is neither creator nor assignee may not post.
	_, err := env.comments.Add(bystander.ID, project.ID, issue.ID, "drive-by")
	assertForbidden(t, err)

	comment, err := env.comments.Add(assignee.ID, project.ID, issue.ID, "working on it")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if comment.UserID != assignee.ID {
		t.Errorf("comment author = %d, expected %d", comment.UserID, assignee.ID)
	}

	// Posting notifies the Admins and Reviewers, minus the commenter.
	list, _ := env.notifications.List(admin.ID, nil)
	found := false
	for _, n := range list {
		if n.Name == KindNewComment {
			found = true
		}
	}
	if !found {
		t.Errorf("admin should get a %s notification", KindNewComment)
	}
}

func TestCommentAdd_LengthLimit(t *testing.T) {
	env := newTestEnv(t)
	admin := createUser(t, env.db, "admin")
	project := createProject(t, env.db, admin, "Apollo")
	issue := createIssue(t, env.db, admin, project, models.StatusInProgress, admin)

	_, err := env.comments.Add(admin.ID, project.ID, issue.ID, strings.Repeat("x", 1001))
	assertValidationError(t, err, "The comment must not exceed 1000 characters.")

	_, err = env.comments.Add(admin.ID, project.ID, issue.ID, "   ")
	assertValidationError(t, err, "Please provide a comment.")
}

func TestCommentDelete_AuthorOrManager(t *testing.T) {
	env := newTestEnv(t)
	admin := createUser(t, env.db, "admin")
	assignee := createUser(t, env.db, "assignee")
	project := createProject(t, env.db, admin, "Apollo")
	addMember(t, env.db, assignee, project, models.RoleDeveloper)
	issue := createIssue(t, env.db, admin, project, models.StatusInProgress, assignee)

	adminComment, err := env.comments.Add(admin.ID, project.ID, issue.ID, "status?")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	ownComment, err := env.comments.Add(assignee.ID, project.ID, issue.ID, "nearly done")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// The assignee cannot delete the admin's comment.
	err = env.comments.Delete(assignee.ID, project.ID, issue.ID, adminComment.ID)
	assertForbidden(t, err)

	if err := env.comments.Delete(assignee.ID, project.ID, issue.ID, ownComment.ID); err != nil {
		t.Fatalf("delete own comment failed: %v", err)
	}
	if err := env.comments.Delete(admin.ID, project.ID, issue.ID, adminComment.ID); err != nil {
		t.Fatalf("delete as manager failed: %v", err)
	}
}

func TestCommentList_OrderedOldestFirst(t *testing.T) {
	env := newTestEnv(t)
	admin := createUser(t, env.db, "admin")
	project := createProject(t, env.db, admin, "Apollo")
	issue := createIssue(t, env.db, admin, project, models.StatusInProgress, admin)

	for _, text := range []string{"first", "second", "third"} {
		if _, err := env.comments.Add(admin.ID, project.ID, issue.ID, text); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	comments, err := env.comments.List(admin.ID, project.ID, issue.ID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(comments) != 3 {
		t.Fatalf("expected 3 comments, got %d", len(comments))
	}
	if comments[0].Text != "first" || comments[2].Text != "third" {
		t.Error("comments should be ordered oldest first")
	}
}

package services

import (
	"sort"

	"github.com/issueless/issueless/internal/models"
	"gorm.io/gorm"
)

// DashboardService assembles the landing page: every project the user
// belongs to and the open workload assigned to them.
type DashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// Dashboard is the per-user overview.
type Dashboard struct {
	Memberships    []models.Membership `json:"memberships"`
	AssignedIssues []models.Issue      `json:"assigned_issues"`
}

// Get returns the user's memberships ordered by join time and their
// In Progress issues ordered by priority, highest first.
func (s *DashboardService) Get(userID uint) (*Dashboard, error) {
	var memberships []models.Membership
	err := s.db.Preload("Project").Preload("Role").
		Where("user_id = ?", userID).
		Order("created_at").
		Find(&memberships).Error
	if err != nil {
		return nil, err
	}

	var issues []models.Issue
	err = s.db.Preload("Project").Preload("Creator").
		Where("assignee_id = ? AND status = ?", userID, models.StatusInProgress).
		Find(&issues).Error
	if err != nil {
		return nil, err
	}
	sort.SliceStable(issues, func(i, j int) bool {
		var ri, rj = 3, 3
		if issues[i].Priority != nil {
			ri = issues[i].Priority.Rank()
		}
		if issues[j].Priority != nil {
			rj = issues[j].Priority.Rank()
		}
		return ri < rj
	})

	return &Dashboard{
		Memberships:    memberships,
		AssignedIssues: issues,
	}, nil
}

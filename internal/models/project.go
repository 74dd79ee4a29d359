package models

import (
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Project overall status values.
const (
	ProjectStatusPending    = "pending"
	ProjectStatusApproved   = "approved"
	ProjectStatusInProgress = "in-progress"
	ProjectStatusCompleted  = "completed"
	ProjectStatusRejected   = "rejected"
)

// Project type values. Journals use continuous autosave instead of discrete
// submit/approve cycles.
const (
	ProjectTypeProject = "project"
	ProjectTypeJournal = "journal"
)

// FinalSubmissionKey closes a project without advancing the current stage.
const FinalSubmissionKey = "finalsubmission"

// Project is the aggregate root for one student's (or group's) submission effort.
// The stage map is stored as a single JSON document so every mutation replaces it
// atomically; Version guards against concurrent writers.
type Project struct {
	ID            uint                         `gorm:"primaryKey" json:"id"`
	Title         string                       `gorm:"size:255;not null" json:"title"`
	StudentID     *uint                        `gorm:"index" json:"student_id"`
	GroupID       *uint                        `gorm:"index" json:"group_id"`
	SupervisorID  uint                         `gorm:"index;not null" json:"supervisor_id"`
	OverallStatus string                       `gorm:"size:32;not null" json:"overall_status"`
	CurrentStage  string                       `gorm:"size:64" json:"current_stage"`
	ProjectType   string                       `gorm:"size:32;not null;default:project" json:"project_type"`
	StagesLocked  bool                         `gorm:"not null;default:false" json:"stages_locked"`
	Stages        datatypes.JSONType[StageMap] `gorm:"column:submission_stages" json:"submission_stages"`
	Version       uint                         `gorm:"not null;default:0" json:"version"`
	CreatedAt     time.Time                    `json:"created_at"`
	UpdatedAt     time.Time                    `json:"updated_at"`
	Student       *User                        `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Group         *Group                       `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	Supervisor    User                         `gorm:"foreignKey:SupervisorID" json:"supervisor"`
}

// StageMap keys stages by their derived key. Keys are unique per project and each
// stage carries a unique order rank.
type StageMap map[string]Stage

// Stage is one unit of submission work within a project.
type Stage struct {
	Label             string       `json:"label"`
	Order             int          `json:"order"`
	Content           string       `json:"content"`
	Submitted         bool         `json:"submitted"`
	SubmittedAt       *time.Time   `json:"submitted_at,omitempty"`
	EditableByStudent bool         `json:"editable_by_student"`
	Completed         bool         `json:"completed"`
	ApprovedAt        *time.Time   `json:"approved_at,omitempty"`
	Deadline          *time.Time   `json:"deadline,omitempty"`
	Fine              *Fine        `json:"fine,omitempty"`
	Grade             *Grade       `json:"grade,omitempty"`
	Resubmitted       bool         `json:"resubmitted"`
	ResubmittedCount  int          `json:"resubmitted_count"`
	Attachments       []Attachment `json:"attachments,omitempty"`
}

// Fine is a monetary penalty attached to a stage for a missed deadline. Applied
// flips false->true exactly once per missed deadline; IsPaid only after Applied.
type Fine struct {
	Amount         float64    `json:"amount"`
	Currency       string     `json:"currency"`
	Reason         string     `json:"reason"`
	Applied        bool       `json:"applied"`
	IsPaid         bool       `json:"is_paid"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	PaymentService string     `json:"payment_service,omitempty"`
}

// Grade is an optional score attached to a completed stage.
type Grade struct {
	Score    float64   `json:"score"`
	Comment  string    `json:"comment"`
	GradedAt time.Time `json:"graded_at"`
}

// Attachment references an uploaded file bound to a stage.
type Attachment struct {
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	UploadedBy string    `json:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// StageKey derives a map key from a human label by lower-casing and removing
// whitespace ("Chapter 1" -> "chapter1"). The label itself is stored on the
// stage; the reverse transform is intentionally not implemented.
func StageKey(label string) string {
	lowered := strings.ToLower(label)
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == '\n' {
			return -1
		}
		return r
	}, lowered)
}

// IsGroupProject reports whether the project is authored by a group.
func (p Project) IsGroupProject() bool {
	return p.GroupID != nil
}

// StageMapValue unwraps the JSON column into a mutable copy.
func (p Project) StageMapValue() StageMap {
	stages := p.Stages.Data()
	copied := make(StageMap, len(stages))
	for key, stage := range stages {
		copied[key] = stage
	}
	return copied
}

// SetStages replaces the stage document wholesale.
func (p *Project) SetStages(stages StageMap) {
	p.Stages = datatypes.NewJSONType(stages)
}

// OrderedKeys returns stage keys sorted by their order rank.
func (m StageMap) OrderedKeys() []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return m[keys[i]].Order < m[keys[j]].Order
	})
	return keys
}

// NextKey returns the key following current in stage order, or false when
// current is the last stage (or unknown).
func (m StageMap) NextKey(current string) (string, bool) {
	keys := m.OrderedKeys()
	for i, key := range keys {
		if key == current && i+1 < len(keys) {
			return keys[i+1], true
		}
	}
	return "", false
}

// LastKey returns the key of the highest-ordered stage.
func (m StageMap) LastKey() string {
	keys := m.OrderedKeys()
	if len(keys) == 0 {
		return ""
	}
	return keys[len(keys)-1]
}

// AverageScore computes the simple mean across stages carrying a numeric grade.
// Stages without a grade are excluded. The second result is the number of
// graded stages; zero means no average exists.
func (m StageMap) AverageScore() (float64, int) {
	var total float64
	var count int
	for _, stage := range m {
		if stage.Grade != nil {
			total += stage.Grade.Score
			count++
		}
	}
	if count == 0 {
		return 0, 0
	}
	return total / float64(count), count
}

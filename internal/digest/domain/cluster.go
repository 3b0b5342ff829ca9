package domain

import "time"

// Cluster groups a user's same-day messages into one triage unit. Clusters
// are append-only snapshots: messages may be added until the digest is
// generated, never removed.
type Cluster struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	UserID      string    `json:"user_id" gorm:"index:idx_cluster_user_day;not null"`
	DigestDate  string    `json:"digest_date" gorm:"index:idx_cluster_user_day;not null"` // YYYY-MM-DD in the user's zone
	AlgoVersion string    `json:"algo_version" gorm:"default:clustering_v1;not null"`
	Title       string    `json:"title,omitempty"`
	SummaryJSON JSONMap   `json:"summary_json,omitempty" gorm:"type:text"` // Opaque summary payload
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Cluster) TableName() string {
	return "clusters"
}

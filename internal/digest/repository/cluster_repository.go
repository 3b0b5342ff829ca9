package repository

import (
	"errors"
	"time"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// clusterRepository implements ClusterRepository using GORM
type clusterRepository struct {
	db *gorm.DB
}

// NewClusterRepository creates a new GORM-based ClusterRepository
func NewClusterRepository(db *gorm.DB) ClusterRepository {
	return &clusterRepository{db: db}
}

func (r *clusterRepository) FindByID(id string) (*digestdomain.Cluster, error) {
	var cluster digestdomain.Cluster
	err := r.db.Where("id = ?", id).First(&cluster).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cluster, nil
}

func (r *clusterRepository) FindByUserAndDate(userID, digestDate, algoVersion string) ([]*digestdomain.Cluster, error) {
	var clusters []*digestdomain.Cluster
	query := r.db.Where("user_id = ? AND digest_date = ?", userID, digestDate)
	if algoVersion != "" {
		query = query.Where("algo_version = ?", algoVersion)
	}
	err := query.Order("created_at ASC").Find(&clusters).Error
	return clusters, err
}

func (r *clusterRepository) CreateWithMessages(cluster *digestdomain.Cluster, messageIDs []string) (int, error) {
	if len(messageIDs) == 0 {
		return 0, digestdomain.ErrConflict
	}
	if cluster.ID == "" {
		cluster.ID = uuid.New().String()
	}
	cluster.CreatedAt = time.Now()

	var assigned int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(cluster).Error; err != nil {
			return err
		}
		// The cluster_id IS NULL guard makes a retried run claim only the
		// messages a previous partial run left behind
		result := tx.Model(&digestdomain.Message{}).
			Where("id IN ? AND user_id = ? AND cluster_id IS NULL", messageIDs, cluster.UserID).
			Updates(map[string]interface{}{
				"cluster_id": cluster.ID,
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// Every message was claimed elsewhere; roll back so no empty
			// cluster is left behind
			return digestdomain.ErrConflict
		}
		assigned = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(assigned), nil
}

func (r *clusterRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		// Messages detach, suggested actions go with the cluster
		if err := tx.Model(&digestdomain.Message{}).Where("cluster_id = ?", id).
			Update("cluster_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("cluster_id = ?", id).Delete(&digestdomain.SuggestedAction{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&digestdomain.Cluster{}).Error
	})
}

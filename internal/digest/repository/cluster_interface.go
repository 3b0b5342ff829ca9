package repository

import (
	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
)

// ClusterRepository defines the interface for cluster data access
type ClusterRepository interface {
	// FindByID finds a cluster by ID. Returns (nil, nil) when absent.
	FindByID(id string) (*digestdomain.Cluster, error)

	// FindByUserAndDate returns the clusters of one digest run
	FindByUserAndDate(userID, digestDate, algoVersion string) ([]*digestdomain.Cluster, error)

	// CreateWithMessages creates the cluster and assigns it to the given
	// messages in one transaction. Only messages that are still unclustered
	// are claimed; if none can be, nothing is created and
	// domain.ErrConflict is returned so the caller can skip the group. A
	// cluster therefore never exists with zero messages.
	CreateWithMessages(cluster *digestdomain.Cluster, messageIDs []string) (assigned int, err error)

	// Delete removes a cluster, detaches (does not delete) its messages and
	// removes its suggested actions
	Delete(id string) error
}

package notifications

import "github.com/demandradar/demand-radar/internal/models"

// Notifier delivers periodic digests of finished analysis runs.
type Notifier interface {
	SendDigest(period string, records []*models.RequestStatus) error
}

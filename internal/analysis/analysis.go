package analysis

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/rfmseg/internal/rfm"
	"github.com/MrJamesThe3rd/rfmseg/internal/transaction"
)

var ErrNotFound = errors.New("analysis run not found")

// Run is one persisted segmentation of a transaction snapshot.
type Run struct {
	ID                 uuid.UUID
	AnalysisDate       time.Time
	ChurnThresholdDays int
	Filter             transaction.ListFilter
	Portfolio          rfm.Portfolio
	Segments           []rfm.SegmentSummary
	Customers          []rfm.ScoredCustomer // Only set on runs fresh from Service.Run or the cache
	CreatedAt          time.Time
}

// SnapshotFilter is the run's transaction filter bounded to rows stored by the time the run was created.
func (r *Run) SnapshotFilter() transaction.ListFilter {
	f := r.Filter
	f.CreatedBefore = new(r.CreatedAt)

	return f
}

// CustomerOrder selects the ordering of a customer listing.
type CustomerOrder string

const (
	OrderByCustomerID   CustomerOrder = "customer_id"
	OrderByMonetaryDesc CustomerOrder = "monetary_desc"
)

// CustomerFilter narrows the scored customers of a run. A zero Limit means no limit.
type CustomerFilter struct {
	Segments []rfm.Segment
	OrderBy  CustomerOrder
	Limit    int
}

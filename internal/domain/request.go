package domain

import "time"

// Asset request status constants (wire values fixed by the backend).
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
	RequestStatusReturned = "returned"
)

// AssetRequest is an employee's request for an asset. CorrelationID is set
// only on optimistic client-side entries and never sent to the backend; the
// authoritative refetch replaces such entries by (AssetID, RequesterEmail).
type AssetRequest struct {
	ID             string    `json:"_id,omitempty"`
	AssetID        string    `json:"assetId"`
	AssetName      string    `json:"assetName"`
	AssetType      string    `json:"assetType,omitempty"`
	RequesterEmail string    `json:"requesterEmail"`
	RequesterName  string    `json:"requesterName,omitempty"`
	HREmail        string    `json:"hrEmail,omitempty"`
	Note           string    `json:"note,omitempty"`
	RequestStatus  string    `json:"requestStatus"`
	RequestDate    time.Time `json:"requestDate,omitempty"`
	ApprovalDate   time.Time `json:"approvalDate,omitempty"`
	CorrelationID  string    `json:"-"`
}

// statusRank orders request statuses so that terminal states outrank pending.
func statusRank(s string) int {
	switch s {
	case RequestStatusPending:
		return 0
	case RequestStatusApproved, RequestStatusRejected:
		return 1
	case RequestStatusReturned:
		return 2
	default:
		return -1
	}
}

// StatusCanTransition reports whether a request may move from one status to
// another. Statuses are monotonic: approved and rejected never fall back to
// pending.
func StatusCanTransition(from, to string) bool {
	if from == to {
		return false
	}
	fr, tr := statusRank(from), statusRank(to)
	if fr < 0 || tr < 0 {
		return false
	}
	if from == RequestStatusRejected && to == RequestStatusReturned {
		return false
	}
	return tr > fr
}

// Open reports whether the request still blocks resubmission for its asset.
func (r AssetRequest) Open() bool {
	switch r.RequestStatus {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected:
		return true
	default:
		return false
	}
}

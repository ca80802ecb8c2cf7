package http

import "time"

type createReq struct {
	VendorID          string   `json:"vendor_id"`
	Title             string   `json:"title"`
	Brief             string   `json:"brief"`
	ReferenceLinks    []string `json:"reference_links"`
	Price             int64    `json:"price"`
	Deadline          *string  `json:"deadline"` // RFC 3339
	EstimatedDays     *int     `json:"estimated_days"`
	RevisionsIncluded int      `json:"revisions_included"`
}

func (r createReq) deadlineTime() (*time.Time, error) {
	if r.Deadline == nil || *r.Deadline == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *r.Deadline)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type declineReq struct {
	Reason *string `json:"reason"`
}

type deliverReq struct {
	DeliveryNotes *string `json:"delivery_notes"`
}

type revisionReq struct {
	Feedback string `json:"feedback"`
}

package domain

import "time"

// Role identifies which side of a project a user is acting as.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
)

// PartyRefKind discriminates the two forms a party reference can take.
type PartyRefKind string

const (
	PartyRefID     PartyRefKind = "id"
	PartyRefInline PartyRefKind = "inline"
)

// Party is the inline identity attached to detail payloads.
type Party struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
}

// PartyRef references one side of a project: either a bare user id or a
// hydrated inline identity. UserID is the single resolver; callers never
// inspect Kind directly to get at the id.
type PartyRef struct {
	Kind  PartyRefKind `json:"kind"`
	ID    string       `json:"id,omitempty"`
	Party *Party       `json:"party,omitempty"`
}

func RefByID(id string) PartyRef {
	return PartyRef{Kind: PartyRefID, ID: id}
}

func RefInline(p Party) PartyRef {
	return PartyRef{Kind: PartyRefInline, Party: &p}
}

func (r PartyRef) UserID() string {
	if r.Kind == PartyRefInline && r.Party != nil {
		return r.Party.ID
	}
	return r.ID
}

// Project is the aggregate root for one commissioned unit of remote work.
// Files and messages belong to a project and never outlive it.
type Project struct {
	ID             string   `json:"id"`
	PublicID       string   `json:"public_id"`
	Title          string   `json:"title"`
	Brief          string   `json:"brief"`
	ReferenceLinks []string `json:"reference_links,omitempty"`

	Price       int64 `json:"price"`
	DepositPaid bool  `json:"deposit_paid"`
	FinalPaid   bool  `json:"final_paid"`

	Deadline      *time.Time `json:"deadline,omitempty"`
	EstimatedDays *int       `json:"estimated_days,omitempty"`

	RevisionsIncluded int `json:"revisions_included"`
	RevisionsUsed     int `json:"revisions_used"`

	Status   Status   `json:"status"`
	Customer PartyRef `json:"customer"`
	Vendor   PartyRef `json:"vendor"`

	DeclineReason    *string `json:"decline_reason,omitempty"`
	DeliveryNotes    *string `json:"delivery_notes,omitempty"`
	RevisionFeedback *string `json:"revision_feedback,omitempty"`
	CancelledBy      *string `json:"cancelled_by,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	DeclinedAt  *time.Time `json:"declined_at,omitempty"`
}

// RoleOf derives the viewer's role from the party references. The second
// return is false when the user is not a participant.
func (p *Project) RoleOf(userID string) (Role, bool) {
	switch userID {
	case "":
		return "", false
	case p.Customer.UserID():
		return RoleCustomer, true
	case p.Vendor.UserID():
		return RoleVendor, true
	}
	return "", false
}

// Closed reports whether the project reached a terminal status. Closed
// projects accept no file or message mutations.
func (p *Project) Closed() bool {
	return p.Status.Terminal()
}

// RevisionsLeft never goes below zero.
func (p *Project) RevisionsLeft() int {
	if left := p.RevisionsIncluded - p.RevisionsUsed; left > 0 {
		return left
	}
	return 0
}

package notifications

import (
	"time"
)

// Kind identifies what collaboration event a notification describes.
type Kind string

const (
	KindInvitation         Kind = "invitation"
	KindInvitationResponse Kind = "invitation_response"
	KindComment            Kind = "comment"
	KindApproval           Kind = "approval"
	KindSectionUpdate      Kind = "section_update"
	KindRevenueProposal    Kind = "revenue_proposal"
	KindMintReady          Kind = "mint_ready"
)

// Valid reports whether the kind is one of the known variants. Unknown
// kinds still round-trip through the cache untouched; Valid exists for
// consumers that want to branch on the closed set.
func (k Kind) Valid() bool {
	switch k {
	case KindInvitation, KindInvitationResponse, KindComment, KindApproval,
		KindSectionUpdate, KindRevenueProposal, KindMintReady:
		return true
	}
	return false
}

// Actor is the user that triggered a notification.
type Actor struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// Notification is the core domain model, shaped after the server's wire
// representation. Title, Message and ActionURL are opaque display strings.
// Read is the only field the engine ever mutates, and only false->true;
// everything else is immutable once the server created the notification.
type Notification struct {
	ID        int64     `json:"id"`
	Kind      Kind      `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	ProjectID *int64    `json:"project_id,omitempty"`
	From      Actor     `json:"from_user"`
	ActionURL string    `json:"action_url,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

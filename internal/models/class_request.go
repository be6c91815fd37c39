package models

import "time"

// ClassRequestStatus captures the review state of a class-teaching grant request.
type ClassRequestStatus string

const (
	ClassRequestStatusPending  ClassRequestStatus = "pending"
	ClassRequestStatusApproved ClassRequestStatus = "approved"
	ClassRequestStatusRejected ClassRequestStatus = "rejected"
)

// ClassRequestTransitions lists the allowed review outcomes. Approved and rejected are terminal.
var ClassRequestTransitions = NewTransitionTable("class_request",
	Transition[ClassRequestStatus]{From: ClassRequestStatusPending, To: ClassRequestStatusApproved},
	Transition[ClassRequestStatus]{From: ClassRequestStatusPending, To: ClassRequestStatusRejected},
)

// ClassRequest asks for permission to tutor a class.
type ClassRequest struct {
	ID            string             `db:"id" json:"id"`
	UID           string             `db:"uid" json:"uid"`
	Subject       string             `db:"subject" json:"subject"`
	Class         string             `db:"class" json:"class"`
	Status        ClassRequestStatus `db:"status" json:"status"`
	UserEmail     string             `db:"user_email" json:"userEmail"`
	UserName      string             `db:"user_name" json:"userName"`
	AutoApproved  bool               `db:"auto_approved" json:"autoApproved,omitempty"`
	DecidedAt     *time.Time         `db:"decided_at" json:"decidedAt,omitempty"`
	DecidedByUID  *string            `db:"decided_by_uid" json:"decidedByUid,omitempty"`
	DecidedByRole *string            `db:"decided_by_role" json:"decidedByRole,omitempty"`
}

// IsPending checks if the request still awaits a decision.
func (r ClassRequest) IsPending() bool {
	return r.Status == ClassRequestStatusPending
}

// IsApproved checks if the request was granted.
func (r ClassRequest) IsApproved() bool {
	return r.Status == ClassRequestStatusApproved
}

package types

// InvitationStatus represents the state of an organization invitation.
// Accepted and declined are terminal.
type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusDeclined InvitationStatus = "declined"
)

func (s InvitationStatus) IsValid() bool {
	switch s {
	case InvitationStatusPending, InvitationStatusAccepted, InvitationStatusDeclined:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the invitation can no longer be answered
func (s InvitationStatus) IsTerminal() bool {
	return s == InvitationStatusAccepted || s == InvitationStatusDeclined
}

func (s InvitationStatus) String() string {
	return string(s)
}

// MemberRole is the role of a user inside an organization
type MemberRole string

const (
	MemberRoleOwner  MemberRole = "owner"
	MemberRoleMember MemberRole = "member"
)

func (r MemberRole) IsValid() bool {
	return r == MemberRoleOwner || r == MemberRoleMember
}

func (r MemberRole) String() string {
	return string(r)
}

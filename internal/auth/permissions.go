package auth

// Capability names a single permission in the role matrix.
type Capability string

const (
	CapCreate                 Capability = "create"
	CapEditOwnDraftOrRejected Capability = "edit_own_draft_or_rejected"
	CapEditAny                Capability = "edit_any"
	CapSubmitForApproval      Capability = "submit_for_approval"
	CapApprove                Capability = "approve"
	CapReject                 Capability = "reject"
	CapDelete                 Capability = "delete"
)

// Permissions is the capability set granted to one role. Zero value denies everything.
type Permissions struct {
	CanCreate                 bool `yaml:"can_create" json:"can_create"`
	CanEditOwnDraftOrRejected bool `yaml:"can_edit_own_draft_or_rejected" json:"can_edit_own_draft_or_rejected"`
	CanEditAny                bool `yaml:"can_edit_any" json:"can_edit_any"`
	CanSubmitForApproval      bool `yaml:"can_submit_for_approval" json:"can_submit_for_approval"`
	CanApprove                bool `yaml:"can_approve" json:"can_approve"`
	CanReject                 bool `yaml:"can_reject" json:"can_reject"`
	CanDelete                 bool `yaml:"can_delete" json:"can_delete"`
}

func (p Permissions) Allows(capability Capability) bool {
	switch capability {
	case CapCreate:
		return p.CanCreate
	case CapEditOwnDraftOrRejected:
		return p.CanEditOwnDraftOrRejected
	case CapEditAny:
		return p.CanEditAny
	case CapSubmitForApproval:
		return p.CanSubmitForApproval
	case CapApprove:
		return p.CanApprove
	case CapReject:
		return p.CanReject
	case CapDelete:
		return p.CanDelete
	default:
		return false
	}
}

// Matrix maps roles to their capability sets. It is loaded once at startup
// and only read afterwards, so it is safe to share without locking.
type Matrix map[Role]Permissions

// For returns the permissions of role. Unknown roles get nothing.
func (m Matrix) For(role Role) Permissions {
	if m == nil {
		return Permissions{}
	}
	return m[role]
}

// DefaultMatrix grants collaborators the authoring flow and admins everything.
func DefaultMatrix() Matrix {
	return Matrix{
		RoleCollaborator: {
			CanCreate:                 true,
			CanEditOwnDraftOrRejected: true,
			CanSubmitForApproval:      true,
		},
		RoleAdmin: {
			CanCreate:                 true,
			CanEditOwnDraftOrRejected: true,
			CanEditAny:                true,
			CanSubmitForApproval:      true,
			CanApprove:                true,
			CanReject:                 true,
			CanDelete:                 true,
		},
	}
}

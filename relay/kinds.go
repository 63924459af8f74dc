package relay

// Event kind ranges and specific kinds from spec.md §6.
const (
	KindChatMessage = 9
	KindReply       = 10
	KindNote        = 11
	KindNoteReply   = 12

	KindModerationLow  = 9000
	KindModerationHigh = 9020

	KindJoinRequest  = 9021
	KindLeaveRequest = 9022

	KindRelayAuth = 22242

	KindDKGInit      = 28000
	KindDKGRound1    = 28001
	KindDKGRound2    = 28002
	KindDKGComplete  = 28003

	KindCapabilityGrant    = 29000
	KindCapabilityRevoke   = 29001
	KindCapabilityDelegate = 29002

	KindGroupMetadata = 39000
	KindGroupAdmins   = 39001
	KindGroupMembers  = 39002
)

// Specific moderation kinds and the permission each requires, per the
// moderation permission table in spec.md §6.
const (
	ModAddUser       = 9000
	ModRemoveUser    = 9001
	ModEditMetadata  = 9002
	ModDeleteEvent   = 9005
	ModDeleteGroup   = 9008

	// ModCreateGroup is the group-creation kind exempted from the
	// "group must exist" admission check of spec.md §4.E step 4 — it is
	// the event that brings a GroupState into existence.
	ModCreateGroup = 9007
)

// Permission is an admin capability over a group, held in GroupState's
// admins map.
type Permission string

const (
	PermAddUser      Permission = "add-user"
	PermRemoveUser   Permission = "remove-user"
	PermEditMetadata Permission = "edit-metadata"
	PermDeleteEvent  Permission = "delete-event"
	PermDeleteGroup  Permission = "delete-group"
)

// moderationPermission maps a moderation kind to the permission it
// requires. Kinds in 9000-9020 outside this table, other than
// ModCreateGroup, are unrecognized moderation actions: admission rejects
// them as blocked before any admin check.
var moderationPermission = map[int64]Permission{
	ModAddUser:      PermAddUser,
	ModRemoveUser:   PermRemoveUser,
	ModEditMetadata: PermEditMetadata,
	ModDeleteEvent:  PermDeleteEvent,
	ModDeleteGroup:  PermDeleteGroup,
}

func isChatKind(kind int64) bool {
	switch kind {
	case KindChatMessage, KindReply, KindNote, KindNoteReply:
		return true
	}
	return false
}

func isModerationKind(kind int64) bool {
	return kind >= KindModerationLow && kind <= KindModerationHigh
}

func isGroupUserKind(kind int64) bool {
	return isChatKind(kind) || isModerationKind(kind) || kind == KindJoinRequest || kind == KindLeaveRequest
}

func isCapabilityKind(kind int64) bool {
	switch kind {
	case KindCapabilityGrant, KindCapabilityRevoke, KindCapabilityDelegate:
		return true
	}
	return false
}

func isMetadataKind(kind int64) bool {
	switch kind {
	case KindGroupMetadata, KindGroupAdmins, KindGroupMembers:
		return true
	}
	return false
}

package common

// BatchIDSize is the number of random bytes behind a batch id; the
// hex-encoded id is twice as long.
const BatchIDSize = 8

// Callback payloads carried by inline keyboard buttons.
const (
	CallbackDoneUpload   = "done_upload"
	CallbackCheckJoinPfx = "check_join_"
)

// Membership states accepted by the access gate.
const (
	MemberStatusMember        = "member"
	MemberStatusAdministrator = "administrator"
	MemberStatusCreator       = "creator"
)

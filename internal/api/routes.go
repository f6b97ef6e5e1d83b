package api

const (
	HealthCheckRoute = "/healthz"
	AboutRoute       = "/v1/about"

	BeginEnrollmentRoute    = "/v1/enrollments"
	CompleteEnrollmentRoute = "/v1/enrollments/complete"
	VerifyEnrollmentRoute   = "/v1/enrollments/verify"

	AdminParent = "/v1/admin/"

	ListRequestsRoute    = AdminParent + "requests"
	RequestHistoryRoute  = AdminParent + "requests/history"
	CreateRequestRoute   = AdminParent + "requests"
	ApproveRequestRoute  = AdminParent + "requests/{id}/approve"
	DenyRequestRoute     = AdminParent + "requests/{id}/deny"
	ListInvitationsRoute = AdminParent + "invitations"

	ListUsersRoute      = AdminParent + "directory/users"
	ListGroupsRoute     = AdminParent + "directory/groups"
	MemberOfGroupsRoute = AdminParent + "directory/users/{id}/groups"
	MembershipRoute     = AdminParent + "directory/users/{id}/groups/{groupID}"

	ListAuditsRoute = AdminParent + "audits"

	TaskParent       = AdminParent + "tasks/"
	ListTasksRoute   = TaskParent
	TriggerTaskRoute = TaskParent + "{name}/trigger"
	LogsForTaskRoute = TaskParent + "{name}/logs"
)

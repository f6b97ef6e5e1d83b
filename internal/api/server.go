package api

import (
	"net/http"

	"github.com/bobbylite/enrollhub/internal/api/middleware"
	"github.com/bobbylite/enrollhub/internal/audit"
	"github.com/bobbylite/enrollhub/internal/core"
	"github.com/bobbylite/enrollhub/internal/enrollment"
	"github.com/bobbylite/enrollhub/internal/requests"
	"github.com/bobbylite/enrollhub/internal/tasks"
)

type Server struct {
	store       *requests.Store
	workflow    *enrollment.Workflow
	directory   core.Directory
	taskManager *tasks.Manager
	auditor     core.Auditor
}

func NewServer(
	store *requests.Store,
	workflow *enrollment.Workflow,
	directory core.Directory,
	taskManager *tasks.Manager,
	auditor core.Auditor,
) *Server {
	if auditor == nil {
		auditor = audit.NewNoopAuditor()
	}

	return &Server{
		store:       store,
		workflow:    workflow,
		directory:   directory,
		taskManager: taskManager,
		auditor:     auditor,
	}
}

func (s *Server) Routes(adminVerifier middleware.TokenVerifier) http.Handler {
	mux := http.NewServeMux()

	// public routes
	mux.HandleFunc("GET "+HealthCheckRoute, s.handleHealth)
	mux.HandleFunc("GET "+AboutRoute, s.handleAbout)

	// enrollment routes, reachable by invitees holding a magic link
	mux.HandleFunc("POST "+CompleteEnrollmentRoute, s.handleCompleteEnrollment)
	mux.HandleFunc("POST "+VerifyEnrollmentRoute, s.handleVerifyEnrollment)

	// admin routes
	adminMux := http.NewServeMux()
	adminMux.HandleFunc("POST "+BeginEnrollmentRoute, s.handleBeginEnrollment)
	adminMux.HandleFunc("GET "+ListInvitationsRoute, s.handleListInvitations)

	adminMux.HandleFunc("GET "+ListRequestsRoute, s.handleListRequests)
	adminMux.HandleFunc("GET "+RequestHistoryRoute, s.handleRequestHistory)
	adminMux.HandleFunc("POST "+CreateRequestRoute, s.handleCreateRequest)
	adminMux.HandleFunc("POST "+ApproveRequestRoute, s.handleApproveRequest)
	adminMux.HandleFunc("POST "+DenyRequestRoute, s.handleDenyRequest)

	adminMux.HandleFunc("GET "+ListUsersRoute, s.handleListUsers)
	adminMux.HandleFunc("GET "+ListGroupsRoute, s.handleListGroups)
	adminMux.HandleFunc("GET "+MemberOfGroupsRoute, s.handleMemberOfGroups)
	adminMux.HandleFunc("POST "+MembershipRoute, s.handleProvisionMembership)
	adminMux.HandleFunc("DELETE "+MembershipRoute, s.handleDeprovisionMembership)

	adminMux.HandleFunc("GET "+ListAuditsRoute, s.handleAdminAudit)

	adminMux.HandleFunc("GET "+ListTasksRoute, s.handleListTasks)
	adminMux.HandleFunc("POST "+TriggerTaskRoute, s.handleTriggerTask)
	adminMux.HandleFunc("GET "+LogsForTaskRoute, s.handleLogsForTask)

	adminHandler := http.Handler(adminMux)
	if adminVerifier != nil {
		adminHandler = middleware.AdminAuth(adminVerifier)(adminMux)
	}
	mux.Handle(AdminParent, adminHandler)
	// begin-enrollment lives outside the admin prefix but requires the
	// same session
	mux.Handle("POST "+BeginEnrollmentRoute, adminHandler)

	return middleware.RecoverMiddleware(
		middleware.CorrelationIDMiddleware(
			middleware.LoggingMiddleware(HealthCheckRoute)(
				mux)))
}

package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/realtime"
)

// RouteConfig bundles dependencies for route registration. CRM is nil when the integration is not configured.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Users          *handlers.UsersHandler
	Departments    *handlers.DepartmentsHandler
	AdminConfig    *handlers.AdminConfigHandler
	Tasks          *handlers.TasksHandler
	Chat           *handlers.ChatHandler
	CRM            *handlers.CRMHandler
	Streams        *handlers.StreamsHandler
	Metrics        *observability.Metrics
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics.Handler())
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/signup", cfg.Auth.Signup)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)
	authGroup.Post("/password", cfg.AuthMiddleware.Handle, cfg.Auth.ChangePassword)

	widget := app.Group("/chat/sessions")
	widget.Post("/", cfg.Chat.StartSession)
	widget.Get("/:id", cfg.Chat.GetSession)
	widget.Get("/:id/messages", cfg.Chat.VisitorMessages)
	widget.Post("/:id/messages", cfg.Chat.PostVisitorMessage)
	widget.Post("/:id/request-agent", cfg.Chat.RequestAgent)
	widget.Post("/:id/close", cfg.Chat.CloseByVisitor)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)

	tickets := api.Group("/tickets")
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/counts", cfg.Tickets.CountTickets)
	tickets.Post("/bulk", cfg.Tickets.BulkUpdate)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)
	tickets.Put("/:id/assignee", cfg.Tickets.AssignTicket)
	tickets.Post("/:id/collaborators", cfg.Tickets.AddCollaborator)
	tickets.Delete("/:id/collaborators/:profileId", cfg.Tickets.RemoveCollaborator)
	tickets.Get("/:id/comments", cfg.Tickets.ListComments)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Get("/:id/history", cfg.Tickets.ListHistory)
	tickets.Get("/:id/sla", cfg.Tickets.TicketSLA)
	api.Get("/attachments/:id", cfg.Tickets.DownloadAttachment)

	users := api.Group("/users")
	users.Get("/", cfg.Users.ListUsers)
	users.Get("/:id", cfg.Users.GetUser)
	users.Put("/:id/role", cfg.Users.UpdateRole)
	users.Put("/:id/department", cfg.Users.UpdateDepartment)
	users.Post("/:id/deactivate", cfg.Users.Deactivate)
	users.Post("/:id/reactivate", cfg.Users.Reactivate)
	users.Delete("/:id", cfg.Users.HardDelete)

	departments := api.Group("/departments")
	departments.Get("/", cfg.Departments.List)
	departments.Post("/", cfg.Departments.Create)
	departments.Put("/:id", cfg.Departments.Update)
	departments.Delete("/:id", cfg.Departments.Delete)

	sla := api.Group("/sla-policies")
	sla.Get("/", cfg.AdminConfig.ListSLAPolicies)
	sla.Post("/", cfg.AdminConfig.CreateSLAPolicy)
	sla.Put("/:id", cfg.AdminConfig.UpdateSLAPolicy)
	sla.Delete("/:id", cfg.AdminConfig.DeleteSLAPolicy)

	templates := api.Group("/templates")
	templates.Get("/", cfg.AdminConfig.ListTemplates)
	templates.Post("/", cfg.AdminConfig.CreateTemplate)
	templates.Put("/:id", cfg.AdminConfig.UpdateTemplate)
	templates.Delete("/:id", cfg.AdminConfig.DeleteTemplate)

	questions := api.Group("/prefilled-questions")
	questions.Get("/", cfg.AdminConfig.ListQuestions)
	questions.Post("/", cfg.AdminConfig.CreateQuestion)
	questions.Put("/:id", cfg.AdminConfig.UpdateQuestion)
	questions.Delete("/:id", cfg.AdminConfig.DeleteQuestion)

	tasks := api.Group("/tasks", auth.RequireStaff())
	tasks.Get("/", cfg.Tasks.Board)
	tasks.Post("/", cfg.Tasks.Create)
	tasks.Put("/:id", cfg.Tasks.Update)
	tasks.Post("/:id/move", cfg.Tasks.Move)
	tasks.Delete("/:id", cfg.Tasks.Delete)

	chats := api.Group("/chats", auth.RequireStaff())
	chats.Get("/", cfg.Chat.ListSessions)
	chats.Get("/:id/messages", cfg.Chat.AgentMessages)
	chats.Post("/:id/takeover", cfg.Chat.TakeOver)
	chats.Post("/:id/reply", cfg.Chat.Reply)
	chats.Post("/:id/close", cfg.Chat.CloseByAgent)

	if cfg.CRM != nil {
		crmGroup := api.Group("/crm", auth.RequireStaff())
		crmGroup.Get("/tickets", cfg.CRM.ListTickets)
		crmGroup.Get("/tickets/:id", cfg.CRM.GetTicket)
		crmGroup.Patch("/tickets/:id", cfg.CRM.UpdateTicket)
		crmGroup.Post("/tickets/:id/close", cfg.CRM.CloseTicket)
		crmGroup.Post("/tickets/:id/comments", cfg.CRM.AddComment)
		crmGroup.Put("/tickets/:id/comments/:commentId", cfg.CRM.UpdateComment)
		crmGroup.Delete("/tickets/:id/comments/:commentId", cfg.CRM.DeleteComment)
		crmGroup.Get("/users", cfg.CRM.SearchUsers)
		crmGroup.Get("/categories", cfg.CRM.ListCategories)
		crmGroup.Get("/managers", cfg.CRM.ListManagers)
		crmGroup.Post("/sync", cfg.CRM.Sync)
	}

	if cfg.Streams != nil {
		ws := app.Group("/ws", realtime.RequireUpgrade)
		ws.Get("/tickets/:id", cfg.AuthMiddleware.HandleQueryToken, cfg.Streams.AuthorizeTicket, cfg.Streams.Ticket())
		ws.Get("/chat/:id/:secret", cfg.Streams.AuthorizeChat, cfg.Streams.Chat())
		ws.Get("/agent/chat/:id", cfg.AuthMiddleware.HandleQueryToken, cfg.Streams.AuthorizeAgentChat, cfg.Streams.Chat())
	}
}

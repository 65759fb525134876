package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/access-management/internal/auth"
	"github.com/frahmantamala/access-management/internal/feature"
	"github.com/frahmantamala/access-management/internal/permission"
	"github.com/frahmantamala/access-management/internal/role"
	"github.com/frahmantamala/access-management/internal/transport/middleware"
	"github.com/frahmantamala/access-management/internal/transport/swagger"
	"github.com/frahmantamala/access-management/internal/user"
	"github.com/frahmantamala/access-management/internal/userrole"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/redis/go-redis/v9"
)

type Handlers struct {
	Auth       *auth.Handler
	RBAC       *auth.RBACMiddleware
	Feature    *feature.Handler
	Permission *permission.Handler
	Role       *role.Handler
	UserRole   *userrole.Handler
	User       *user.Handler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, redisClient *redis.Client, h Handlers, allowedOrigins string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db, redisClient)

	// Apply global middleware
	router.Use(middleware.CORS(allowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		// Health check route
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Auth routes
		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.Refresh)

			sr.Group(func(pr chi.Router) {
				pr.Use(h.Auth.AuthMiddleware)
				pr.Post("/logout", h.Auth.Logout)
			})
		})

		// Protected routes that require authentication
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Route("/features", func(fr chi.Router) {
				fr.Get("/", h.Feature.List)
				fr.Get("/{id}", h.Feature.Get)
				fr.Get("/{id}/children", h.Feature.ListChildren)

				fr.Group(func(mr chi.Router) {
					mr.Use(h.RBAC.Require("features:CREATE"))
					mr.Post("/", h.Feature.Create)
				})
				fr.Group(func(mr chi.Router) {
					mr.Use(h.RBAC.Require("features:UPDATE"))
					mr.Put("/{id}", h.Feature.Update)
					mr.Put("/{id}/parent", h.Feature.SetParent)
				})
				fr.Group(func(mr chi.Router) {
					mr.Use(h.RBAC.Require("features:DELETE"))
					mr.Delete("/{id}", h.Feature.Delete)
				})
			})

			pr.Route("/permissions", func(pmr chi.Router) {
				pmr.Get("/", h.Permission.List)
				pmr.Get("/actions", h.Permission.ListActions)
				pmr.Get("/{id}", h.Permission.Get)

				pmr.Group(func(mr chi.Router) {
					mr.Use(h.RBAC.Require("permissions:CREATE"))
					mr.Post("/", h.Permission.Create)
				})
				pmr.Group(func(mr chi.Router) {
					mr.Use(h.RBAC.Require("permissions:UPDATE"))
					mr.Put("/{id}", h.Permission.Update)
				})
				pmr.Group(func(mr chi.Router) {
					mr.Use(h.RBAC.Require("permissions:DELETE"))
					mr.Delete("/{id}", h.Permission.Delete)
				})
			})

			pr.Route("/roles", func(rr chi.Router) {
				rr.Get("/", h.Role.List)
				rr.Get("/{id}", h.Role.Get)
				rr.Get("/{id}/permissions", h.Role.ListPermissions)

				rr.Group(func(mr chi.Router) {
					mr.Use(h.RBAC.Require("roles:CREATE"))
					mr.Post("/", h.Role.Create)
				})
				rr.Group(func(mr chi.Router) {
					mr.Use(h.RBAC.Require("roles:UPDATE"))
					mr.Put("/{id}", h.Role.Update)
					mr.Put("/{id}/parent", h.Role.SetParent)
					mr.Post("/{id}/permissions/{permissionID}", h.Role.AddPermission)
					mr.Delete("/{id}/permissions/{permissionID}", h.Role.RemovePermission)
				})
				rr.Group(func(mr chi.Router) {
					mr.Use(h.RBAC.Require("roles:DELETE"))
					mr.Delete("/{id}", h.Role.Delete)
				})
			})

			pr.Route("/user-roles", func(ur chi.Router) {
				ur.Get("/{id}", h.UserRole.Get)

				ur.Group(func(mr chi.Router) {
					mr.Use(h.RBAC.Require("users:ASSIGN_ROLE"))
					mr.Post("/", h.UserRole.Assign)
					mr.Post("/{id}/revoke", h.UserRole.Revoke)
					mr.Post("/{id}/extend", h.UserRole.ExtendValidity)
					mr.Delete("/{id}", h.UserRole.Remove)
				})
				ur.Group(func(mr chi.Router) {
					mr.Use(h.RBAC.Require("assignments:LIST"))
					mr.Get("/pending", h.UserRole.ListPending)
					mr.Get("/expiring", h.UserRole.ListExpiring)
				})
				ur.Group(func(mr chi.Router) {
					mr.Use(h.RBAC.Require("assignments:APPROVE"))
					mr.Post("/{id}/approve", h.UserRole.Approve)
				})
				ur.Group(func(mr chi.Router) {
					mr.Use(h.RBAC.Require("assignments:REJECT"))
					mr.Post("/{id}/reject", h.UserRole.Reject)
				})
			})

			pr.Route("/users", func(usr chi.Router) {
				usr.Get("/", h.User.List)
				usr.Get("/{id}", h.User.Get)
				usr.Get("/{userID}/roles", h.UserRole.ListByUser)

				usr.Group(func(mr chi.Router) {
					mr.Use(h.RBAC.Require("users:CREATE"))
					mr.Post("/", h.User.Create)
				})
				usr.Group(func(mr chi.Router) {
					mr.Use(h.RBAC.Require("users:UPDATE"))
					mr.Put("/{id}", h.User.Update)
					mr.Post("/{id}/activate", h.User.Activate)
					mr.Post("/{id}/deactivate", h.User.Deactivate)
					mr.Post("/{id}/unlock", h.User.Unlock)
					mr.Get("/{id}/permissions", h.User.ListPermissions)
					mr.Post("/{id}/permissions/{permissionID}", h.User.GrantPermission)
					mr.Delete("/{id}/permissions/{permissionID}", h.User.RevokePermission)
				})
			})
		})
	})
}

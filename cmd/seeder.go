package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with the base authority graph",
	Long:  `Seed the database with the administrative features, permissions, roles and an admin account for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlxDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlxDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			for _, table := range []string{"user_roles", "user_permissions", "role_permissions", "permissions", "features", "roles", "users"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		seedAuthorityGraph(db)
		seedAdminUser(db, cfg.Security.BCryptCost)
	},
}

// The administrative features and the actions that exist on each. These are
// the authorities the service's own API is guarded with.
var seedFeatures = map[string][]string{
	"features":    {"VIEW", "LIST", "CREATE", "UPDATE", "DELETE"},
	"permissions": {"VIEW", "LIST", "CREATE", "UPDATE", "DELETE"},
	"roles":       {"VIEW", "LIST", "CREATE", "UPDATE", "DELETE"},
	"users":       {"VIEW", "LIST", "CREATE", "UPDATE", "DELETE", "ASSIGN_ROLE"},
	"assignments": {"VIEW", "LIST", "APPROVE", "REJECT"},
}

func seedAuthorityGraph(db *gorm.DB) {
	order := 0
	for featureCode, actions := range seedFeatures {
		order++
		if err := db.Exec(
			"INSERT INTO features (code, name, display_order, enabled, created_at, updated_at) VALUES (?, ?, ?, true, now(), now()) ON CONFLICT (code) DO NOTHING",
			featureCode, featureCode, order).Error; err != nil {
			log.Fatalf("failed to seed feature %s: %v", featureCode, err)
		}

		for _, action := range actions {
			if err := db.Exec(
				"INSERT INTO permissions (feature_id, action, requires_approval, created_at, updated_at) SELECT id, ?, false, now(), now() FROM features WHERE code = ? ON CONFLICT (feature_id, action) DO NOTHING",
				action, featureCode).Error; err != nil {
				log.Fatalf("failed to seed permission %s:%s: %v", featureCode, action, err)
			}
		}
	}
	fmt.Println("Seeded administrative features and permissions")

	if err := db.Exec(
		"INSERT INTO roles (code, name, priority, system_role, default_role, created_at, updated_at) VALUES ('ADMIN', 'Administrator', 100, true, false, now(), now()) ON CONFLICT (code) DO NOTHING").Error; err != nil {
		log.Fatalf("failed to seed admin role: %v", err)
	}
	if err := db.Exec(
		"INSERT INTO roles (code, name, priority, system_role, default_role, created_at, updated_at) VALUES ('VIEWER', 'Viewer', 10, false, true, now(), now()) ON CONFLICT (code) DO NOTHING").Error; err != nil {
		log.Fatalf("failed to seed viewer role: %v", err)
	}

	// Admin holds every permission; viewer holds the read-only ones.
	if err := db.Exec(
		"INSERT INTO role_permissions (role_id, permission_id, created_at) SELECT r.id, p.id, now() FROM roles r CROSS JOIN permissions p WHERE r.code = 'ADMIN' ON CONFLICT DO NOTHING").Error; err != nil {
		log.Fatalf("failed to attach admin permissions: %v", err)
	}
	if err := db.Exec(
		"INSERT INTO role_permissions (role_id, permission_id, created_at) SELECT r.id, p.id, now() FROM roles r CROSS JOIN permissions p WHERE r.code = 'VIEWER' AND p.action IN ('VIEW', 'LIST') ON CONFLICT DO NOTHING").Error; err != nil {
		log.Fatalf("failed to attach viewer permissions: %v", err)
	}
	fmt.Println("Seeded ADMIN and VIEWER roles")
}

func seedAdminUser(db *gorm.DB, bcryptCost int) {
	adminEmail := "admin@mail.com"

	var exists int
	row := db.Raw("SELECT 1 FROM users WHERE email = ?", adminEmail).Row()
	if err := row.Scan(&exists); err == nil {
		fmt.Println("admin user already exists; skipping")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcryptCost)
	if err != nil {
		log.Fatalf("failed to hash admin password: %v", err)
	}

	if err := db.Exec(
		"INSERT INTO users (email, name, password_hash, is_active, is_locked, created_at, updated_at) VALUES (?, 'Administrator', ?, true, false, now(), now())",
		adminEmail, string(hash)).Error; err != nil {
		log.Fatalf("failed to insert admin user: %v", err)
	}

	if err := db.Exec(
		"INSERT INTO user_roles (user_id, role_id, assigned_at, valid_from, status, active, inherit_permissions, created_at, updated_at) SELECT u.id, r.id, now(), now(), 'ACTIVE', true, true, now(), now() FROM users u, roles r WHERE u.email = ? AND r.code = 'ADMIN'",
		adminEmail).Error; err != nil {
		log.Fatalf("failed to assign admin role: %v", err)
	}

	fmt.Println("Seeded admin user:", adminEmail)
}

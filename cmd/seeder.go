package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/frahmantamala/supplier-portal/internal/core/events"
	"github.com/frahmantamala/supplier-portal/internal/core/user"
	"github.com/frahmantamala/supplier-portal/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	seedAdminEmail      string
	seedAdminPassword   string
	seedAnalystName     string
	seedAnalystEmail    string
	seedAnalystPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the bootstrap accounts",
	Long: `Create the administrator account (from flags or bootstrap.admin_* config) and,
optionally, an analyst account. Existing emails are left untouched.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		lg := logger.LoggerWrapper()

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		gdb, err := initGorm(db)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		svc := newAuthService(cfg, gdb, events.NewEventBus(lg), lg)
		ctx := context.Background()

		adminEmail, adminPassword := cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword
		if seedAdminEmail != "" {
			adminEmail, adminPassword = seedAdminEmail, seedAdminPassword
		}
		if adminEmail == "" || adminPassword == "" {
			fmt.Println("no admin credentials given; skipping admin")
		} else {
			created, err := svc.EnsureAdmin(ctx, adminEmail, adminPassword)
			reportSeed(adminEmail, created, err)
		}

		if seedAnalystEmail != "" {
			created, err := svc.EnsureUser(ctx, seedAnalystName, seedAnalystEmail, seedAnalystPassword, user.RoleAnalyst)
			reportSeed(seedAnalystEmail, created, err)
		}
	},
}

func reportSeed(email string, created bool, err error) {
	switch {
	case err != nil:
		log.Fatalf("failed to seed %s: %v", email, err)
	case created:
		fmt.Println("Seeded user:", email)
	default:
		fmt.Println("user already exists:", email)
	}
}

func init() {
	seedCmd.Flags().StringVar(&seedAdminEmail, "admin-email", "", "administrator email (overrides bootstrap.admin_email)")
	seedCmd.Flags().StringVar(&seedAdminPassword, "admin-password", "", "administrator password")
	seedCmd.Flags().StringVar(&seedAnalystName, "analyst-name", "Analyst", "analyst display name")
	seedCmd.Flags().StringVar(&seedAnalystEmail, "analyst-email", "", "analyst email; empty skips the analyst")
	seedCmd.Flags().StringVar(&seedAnalystPassword, "analyst-password", "", "analyst password")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"github.com/clarion-legal/careers/internal/app"
	"github.com/clarion-legal/careers/internal/config"
	"github.com/clarion-legal/careers/internal/db"
	"github.com/clarion-legal/careers/internal/logging"
	"github.com/clarion-legal/careers/internal/models"
	"github.com/clarion-legal/careers/internal/security"
	"github.com/clarion-legal/careers/internal/storage"
)

var configFlag = &cli.StringFlag{
	Name:  "config",
	Value: "",
	Usage: "path to the YAML config file (CAREERS_CONFIG is used when unset)",
}

func main() {
	cliApp := &cli.App{
		Name:  "careers-server",
		Usage: "careers site backend and back-office for Clarion Legal",
		Flags: []cli.Flag{configFlag},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			adminCommand(),
			storageCommand(),
		},
	}
	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	path := config.ResolveConfigPath(c.String("config"))
	return config.Load(path)
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the careers API server",
		Action: func(c *cli.Context) error {
			cfg, errLoad := loadConfig(c)
			if errLoad != nil {
				return errLoad
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return app.RunServer(ctx, cfg)
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply database schema migrations and exit",
		Action: func(c *cli.Context) error {
			cfg, errLoad := loadConfig(c)
			if errLoad != nil {
				return errLoad
			}
			logging.Setup(cfg.Logging)
			if errMigrate := app.Migrate(c.Context, cfg); errMigrate != nil {
				return errMigrate
			}
			log.Info("migrations applied")
			return nil
		},
	}
}

func adminCommand() *cli.Command {
	return &cli.Command{
		Name:  "admin",
		Usage: "manage back-office administrator accounts",
		Subcommands: []*cli.Command{
			adminGrantCommand(),
			adminRevokeCommand(),
			adminListCommand(),
			adminInspectCommand(),
		},
	}
}

func adminGrantCommand() *cli.Command {
	return &cli.Command{
		Name:  "grant",
		Usage: "create an administrator or update an existing one",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true, Usage: "account email"},
			&cli.StringFlag{Name: "password", Usage: "account password (required for new accounts)"},
			&cli.StringFlag{Name: "name", Usage: "display name"},
			&cli.StringFlag{Name: "role", Value: "admin", Usage: "admin, superAdmin or restrictedAdmin"},
		},
		Action: func(c *cli.Context) error {
			cfg, errLoad := loadConfig(c)
			if errLoad != nil {
				return errLoad
			}
			conn, errOpen := openDatabase(cfg)
			if errOpen != nil {
				return errOpen
			}

			role := c.String("role")
			if role != "admin" && role != "superAdmin" && role != "restrictedAdmin" {
				return fmt.Errorf("unknown role %q", role)
			}
			email := strings.ToLower(strings.TrimSpace(c.String("email")))

			var admin models.Admin
			errFind := conn.First(&admin, "email = ?", email).Error
			switch {
			case errFind == nil:
				admin.IsSuperAdmin = role == "superAdmin"
				admin.IsRestrictedAdmin = role == "restrictedAdmin"
				admin.Active = true
				if name := strings.TrimSpace(c.String("name")); name != "" {
					admin.DisplayName = name
				}
				if password := c.String("password"); password != "" {
					hash, errHash := security.HashPassword(password)
					if errHash != nil {
						return errHash
					}
					admin.PasswordHash = hash
				}
				if errSave := conn.Save(&admin).Error; errSave != nil {
					return errSave
				}
				fmt.Printf("updated %s (role=%s)\n", email, role)
				return nil
			case errors.Is(errFind, gorm.ErrRecordNotFound):
				password := c.String("password")
				if len(password) < 6 {
					return errors.New("password of at least 6 characters required for new accounts")
				}
				hash, errHash := security.HashPassword(password)
				if errHash != nil {
					return errHash
				}
				admin = models.Admin{
					ID:                uuid.NewString(),
					Email:             email,
					PasswordHash:      hash,
					DisplayName:       strings.TrimSpace(c.String("name")),
					Active:            true,
					IsSuperAdmin:      role == "superAdmin",
					IsRestrictedAdmin: role == "restrictedAdmin",
				}
				if errCreate := conn.Create(&admin).Error; errCreate != nil {
					return errCreate
				}
				fmt.Printf("created %s (role=%s)\n", email, role)
				return nil
			default:
				return errFind
			}
		},
	}
}

func adminRevokeCommand() *cli.Command {
	return &cli.Command{
		Name:  "revoke",
		Usage: "deactivate an administrator and invalidate their sessions",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true, Usage: "account email"},
		},
		Action: func(c *cli.Context) error {
			cfg, errLoad := loadConfig(c)
			if errLoad != nil {
				return errLoad
			}
			conn, errOpen := openDatabase(cfg)
			if errOpen != nil {
				return errOpen
			}

			email := strings.ToLower(strings.TrimSpace(c.String("email")))
			now := time.Now().UTC()
			result := conn.Model(&models.Admin{}).
				Where("email = ?", email).
				Updates(map[string]any{
					"active":              false,
					"sessions_revoked_at": now,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("no account with email %s", email)
			}
			fmt.Printf("revoked %s\n", email)
			return nil
		},
	}
}

func adminListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "list administrator accounts",
		Action: func(c *cli.Context) error {
			cfg, errLoad := loadConfig(c)
			if errLoad != nil {
				return errLoad
			}
			conn, errOpen := openDatabase(cfg)
			if errOpen != nil {
				return errOpen
			}

			var admins []models.Admin
			if errFind := conn.Order("created_at ASC").Find(&admins).Error; errFind != nil {
				return errFind
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "EMAIL\tNAME\tROLE\tACTIVE\tTOTP")
			for i := range admins {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%t\n",
					admins[i].Email,
					admins[i].DisplayName,
					roleName(&admins[i]),
					admins[i].Active,
					admins[i].TOTPSecret != "")
			}
			return w.Flush()
		},
	}
}

func adminInspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "show one administrator account in detail",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true, Usage: "account email"},
		},
		Action: func(c *cli.Context) error {
			cfg, errLoad := loadConfig(c)
			if errLoad != nil {
				return errLoad
			}
			conn, errOpen := openDatabase(cfg)
			if errOpen != nil {
				return errOpen
			}

			email := strings.ToLower(strings.TrimSpace(c.String("email")))
			var admin models.Admin
			if errFind := conn.First(&admin, "email = ?", email).Error; errFind != nil {
				if errors.Is(errFind, gorm.ErrRecordNotFound) {
					return fmt.Errorf("no account with email %s", email)
				}
				return errFind
			}

			fmt.Printf("uid:          %s\n", admin.ID)
			fmt.Printf("email:        %s\n", admin.Email)
			fmt.Printf("name:         %s\n", admin.DisplayName)
			fmt.Printf("role:         %s\n", roleName(&admin))
			fmt.Printf("active:       %t\n", admin.Active)
			fmt.Printf("totp:         %t\n", admin.TOTPSecret != "")
			fmt.Printf("claims:       %v\n", admin.Claims())
			fmt.Printf("created:      %s\n", admin.CreatedAt.Format(time.RFC3339))
			if admin.LastLoginAt != nil {
				fmt.Printf("last login:   %s\n", admin.LastLoginAt.Format(time.RFC3339))
			}
			if admin.SessionsRevokedAt != nil {
				fmt.Printf("revoked at:   %s\n", admin.SessionsRevokedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func storageCommand() *cli.Command {
	return &cli.Command{
		Name:  "storage",
		Usage: "object storage maintenance",
		Subcommands: []*cli.Command{
			{
				Name:  "clean-temp",
				Usage: "delete abandoned temporary uploads",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "max-age", Value: 24 * time.Hour, Usage: "delete temp uploads older than this"},
				},
				Action: func(c *cli.Context) error {
					cfg, errLoad := loadConfig(c)
					if errLoad != nil {
						return errLoad
					}
					logging.Setup(cfg.Logging)
					store, errStore := app.Storage(cfg)
					if errStore != nil {
						return errStore
					}
					removed, errClean := storage.CleanTemp(c.Context, store, c.Duration("max-age"))
					if errClean != nil {
						return errClean
					}
					fmt.Printf("removed %d temporary upload(s)\n", removed)
					return nil
				},
			},
		},
	}
}

func roleName(admin *models.Admin) string {
	switch {
	case admin.IsSuperAdmin:
		return "superAdmin"
	case admin.IsRestrictedAdmin:
		return "restrictedAdmin"
	default:
		return "admin"
	}
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	conn, errOpen := app.Database(cfg)
	if errOpen != nil {
		return nil, errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return nil, errMigrate
	}
	return conn, nil
}

// Command healthctl performs administrative tasks against the registry
// database: schema setup, admin accounts, API keys and diagnostics.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/healthdesk/client-registry/internal/config"
	"github.com/healthdesk/client-registry/internal/database"
	"github.com/healthdesk/client-registry/internal/logger"
	"github.com/healthdesk/client-registry/internal/services"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	dbPath string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "healthctl",
		Short:         "Administer the health client registry",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.dbPath != "" {
				return nil
			}
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			logger.Init(cfg.LogLevel, true)
			a.dbPath = cfg.DatabasePath
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "path to the SQLite database (defaults to DATABASE_PATH)")

	root.AddCommand(
		a.initDBCmd(),
		a.createAdminCmd(),
		a.rotateKeyCmd(),
		a.checkDBCmd(),
	)
	return root
}

// open connects to the database and applies pending migrations.
func (a *app) open() (*sql.DB, error) {
	db, err := database.New(a.dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", a.dbPath, err)
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (a *app) userService(db *sql.DB) *services.UserService {
	return services.NewUserService(db, services.NewEventService(db))
}

func (a *app) initDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.open()
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Database initialized at %s\n", a.dbPath)
			return nil
		},
	}
}

func (a *app) createAdminCmd() *cobra.Command {
	var username, password, apiKey string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account, or reset the password of an existing one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.open()
			if err != nil {
				return err
			}
			defer db.Close()

			users := a.userService(db)
			user, err := users.UpsertAdmin(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			key := *user.APIKey
			if apiKey != "" {
				if err := users.AssignAPIKey(cmd.Context(), user.Username, apiKey); err != nil {
					return err
				}
				key = apiKey
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Admin user %q is ready.\n", user.Username)
			fmt.Fprintf(out, "API key: %s\n", key)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "admin username")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key to assign (generated when empty)")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) rotateKeyCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "rotate-key",
		Short: "Issue a new API key for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.open()
			if err != nil {
				return err
			}
			defer db.Close()

			key, err := a.userService(db).RotateAPIKey(cmd.Context(), username)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "New API key for %q: %s\n", username, key)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "user whose key is replaced")
	cmd.MarkFlagRequired("username")
	return cmd
}

func (a *app) checkDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-db",
		Short: "Print tables, columns, row counts and accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.open()
			if err != nil {
				return err
			}
			defer db.Close()
			return a.report(cmd.Context(), cmd.OutOrStdout(), db)
		},
	}
}

func (a *app) report(ctx context.Context, out io.Writer, db *sql.DB) error {
	tables, err := database.Inspect(ctx, db)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Database: %s\n\n", a.dbPath)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tROWS\tCOLUMNS")
	for _, t := range tables {
		cols := ""
		for i, c := range t.Columns {
			if i > 0 {
				cols += ", "
			}
			cols += c.Name + " " + c.Type
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", t.Name, t.RowCount, cols)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	users, err := a.userService(db).ListUsers(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nUsers (%d):\n", len(users))
	for _, u := range users {
		key := "none"
		if u.APIKey != nil {
			key = "set"
		}
		fmt.Fprintf(out, "  %d  %s  admin=%t  api_key=%s\n", u.ID, u.Username, u.IsAdmin, key)
	}

	var missing int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE password_hash IS NULL OR password_hash = ''").Scan(&missing); err != nil {
		return err
	}
	if missing > 0 {
		fmt.Fprintf(out, "\nWARNING: %d user(s) have no password hash and cannot log in.\n", missing)
	}
	return nil
}

// libraryctl is the operator CLI: overdue sweeps, semester rollover,
// account creation and clearance rechecks without going through the
// HTTP API.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/smartlib/library-api/internal/config"
	"github.com/smartlib/library-api/internal/database"
	"github.com/smartlib/library-api/internal/model"
	"github.com/smartlib/library-api/internal/policy"
	"github.com/smartlib/library-api/internal/queue"
	"github.com/smartlib/library-api/internal/repository"
	"github.com/smartlib/library-api/internal/service"
)

func openDB() (*sql.DB, config.Config, error) {
	_ = godotenv.Load()
	cfg := config.Load()
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, cfg, err
	}
	return db, cfg, nil
}

func rulesFrom(cfg config.Config) policy.Circulation {
	return policy.Circulation{
		DailyFineCents:  uint32(cfg.DailyFineCents),
		StudentLimit:    cfg.StudentLimit,
		StudentLoanDays: cfg.StudentLoanDays,
		StaffLoanDays:   cfg.StaffLoanDays,
		GraceDays:       cfg.GraceDays,
	}
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Mark past-due loans overdue and assess daily fines",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cfg, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			ledger := &service.LedgerService{
				DB:           db,
				Books:        repository.NewBookRepo(db),
				Users:        repository.NewUserRepo(db),
				Txns:         repository.NewTransactionRepo(db),
				Fines:        repository.NewFineRepo(db),
				Reservations: repository.NewReservationRepo(db),
				Rules:        rulesFrom(cfg),
				Publish: func(ctx context.Context, ev queue.FineAssessedEvent) {
					_ = queue.PublishFineAssessed(ctx, ev)
				},
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()
			n, err := ledger.SweepOverdue(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("swept %d loan(s)\n", n)
			return nil
		},
	}
}

func newActivateSemesterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate-semester <id>",
		Short: "Make a semester the current one (deactivates the rest)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			db, _, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			semesters := repository.NewSemesterRepo(db)
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				return err
			}
			defer tx.Rollback()
			if err := semesters.ActivateTx(ctx, tx, id); err != nil {
				return err
			}
			if err := tx.Commit(); err != nil {
				return err
			}

			sem, err := semesters.GetByID(ctx, id)
			if err != nil {
				return err
			}
			fmt.Printf("current semester: %s (%s to %s)\n",
				sem.Name, sem.StartDate.Format("2006-01-02"), sem.EndDate.Format("2006-01-02"))
			return nil
		},
	}
}

func newCreateUserCmd() *cobra.Command {
	var role, studentNumber, firstName, lastName string
	cmd := &cobra.Command{
		Use:   "create-user <email>",
		Short: "Create an account, prompting for the password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := args[0]
			switch role {
			case model.RoleStudent, model.RoleTeacher, model.RoleStaff, model.RoleLibrarian:
			default:
				return fmt.Errorf("unknown role %q", role)
			}
			var sn *string
			if role == model.RoleStudent {
				if studentNumber == "" {
					return fmt.Errorf("--student-number is required for students")
				}
				sn = &studentNumber
			} else if studentNumber != "" {
				return fmt.Errorf("--student-number only applies to students")
			}

			fmt.Fprint(os.Stderr, "password: ")
			pw, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return err
			}
			if len(pw) < 8 {
				return fmt.Errorf("password must be at least 8 characters")
			}

			db, cfg, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			id, err := repository.NewUserRepo(db).Create(
				ctx, email, string(pw), role, sn, firstName, lastName, cfg.BcryptCost)
			if err != nil {
				return err
			}
			fmt.Printf("created user %d (%s, %s)\n", id, email, role)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", model.RoleStudent, "STUDENT, TEACHER, STAFF or LIBRARIAN")
	cmd.Flags().StringVar(&studentNumber, "student-number", "", "student number (students only)")
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	return cmd
}

func newRecomputeClearanceCmd() *cobra.Command {
	var semesterID uint64
	cmd := &cobra.Command{
		Use:   "recompute-clearance <user-id>",
		Short: "Re-evaluate and store a borrower's clearance standing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0])
			if err != nil {
				return err
			}
			db, cfg, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			if semesterID == 0 {
				sem, err := repository.NewSemesterRepo(db).Current(ctx)
				if err != nil {
					return fmt.Errorf("no current semester: %w", err)
				}
				semesterID = sem.ID
			}

			svc := &service.ClearanceService{
				DB:         db,
				Txns:       repository.NewTransactionRepo(db),
				Fines:      repository.NewFineRepo(db),
				Clearances: repository.NewClearanceRepo(db),
				Rules:      rulesFrom(cfg),
			}
			ev, err := svc.Recompute(ctx, userID, semesterID)
			if err != nil {
				return err
			}
			fmt.Printf("user %d semester %d: %s", userID, semesterID, ev.Status)
			if len(ev.OpenTransactionIDs) > 0 {
				fmt.Printf(" open-loans=%v", ev.OpenTransactionIDs)
			}
			if len(ev.UnpaidFineIDs) > 0 {
				fmt.Printf(" unpaid-fines=%v", ev.UnpaidFineIDs)
			}
			fmt.Println()
			return nil
		},
	}
	cmd.Flags().Uint64Var(&semesterID, "semester", 0, "semester id (defaults to the current one)")
	return cmd
}

func main() {
	root := &cobra.Command{
		Use:           "libraryctl",
		Short:         "Library operations toolbox",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newSweepCmd(),
		newActivateSemesterCmd(),
		newCreateUserCmd(),
		newRecomputeClearanceCmd(),
	)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

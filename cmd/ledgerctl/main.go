package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/qs3c/credit_go_server/config"
	"github.com/qs3c/credit_go_server/internal/database"
	"github.com/qs3c/credit_go_server/internal/model"
	"github.com/qs3c/credit_go_server/internal/pkg/logger"
	"github.com/qs3c/credit_go_server/internal/pkg/payment"
	"github.com/qs3c/credit_go_server/internal/repository"
	"github.com/qs3c/credit_go_server/internal/service"
)

// app 命令行可调用的账本服务
type app struct {
	admin    *service.AdminService
	purchase *service.PurchaseService
	usage    *service.UsageService
}

type opener func(configPath string) (*app, error)

// openApp 连接生产数据库，不连 Redis：余额变更不推送，使用记录不经过队列
func openApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Init(logger.Config{Level: cfg.Log.Level, Format: "console", Component: "ledgerctl"})

	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return newApp(repository.NewStore(db), cfg), nil
}

func newApp(store *repository.Store, cfg *config.Config) *app {
	core := service.NewCore(store, cfg)
	gateway := payment.NewRazorpayGateway(&cfg.Payment, cfg.Ledger.StoreTimeout())
	return &app{
		admin:    service.NewAdminService(core),
		purchase: service.NewPurchaseService(core, gateway, nil),
		usage:    service.NewUsageService(store.UsageLogs, cfg),
	}
}

func newRootCmd(open opener) *cobra.Command {
	var configPath string
	var a *app

	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Credit ledger operator tool",
		Long:          `Assign plans, adjust balances and run maintenance jobs directly against the ledger database`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = open(configPath)
			return err
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", envOr("CONFIG_PATH", "config.yaml"), "config file path")

	get := func() *app { return a }
	root.AddCommand(newPlanCmd(get), newCreditsCmd(get), newPruneCmd(get), newExpireCmd(get))
	return root
}

func newPlanCmd(get func() *app) *cobra.Command {
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan management",
	}

	var email, plan string
	var months int
	assignCmd := &cobra.Command{
		Use:   "assign",
		Short: "Assign a plan to an existing account",
		Example: `  # Pro for three months
  ledgerctl plan assign --email user@example.com --plan pro --months 3

  # Pro without expiry
  ledgerctl plan assign --email user@example.com --plan pro`,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := get().admin.AssignPlan(cmd.Context(), email, plan, months)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	assignCmd.Flags().StringVar(&email, "email", "", "account email")
	assignCmd.Flags().StringVar(&plan, "plan", model.PlanPro, "plan (free, pro)")
	assignCmd.Flags().IntVar(&months, "months", 0, "subscription length in months, 0 for no expiry")
	_ = assignCmd.MarkFlagRequired("email")

	var cancelEmail string
	cancelCmd := &cobra.Command{
		Use:   "cancel",
		Short: "Downgrade an account to free",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := get().admin.CancelPlan(cmd.Context(), cancelEmail)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	cancelCmd.Flags().StringVar(&cancelEmail, "email", "", "account email")
	_ = cancelCmd.MarkFlagRequired("email")

	planCmd.AddCommand(assignCmd, cancelCmd)
	return planCmd
}

func newCreditsCmd(get func() *app) *cobra.Command {
	creditsCmd := &cobra.Command{
		Use:   "credits",
		Short: "Balance management",
	}

	var email string
	var monthly, purchased int
	adjustCmd := &cobra.Command{
		Use:   "adjust",
		Short: "Add or remove monthly / purchased credits",
		Example: `  ledgerctl credits adjust --email user@example.com --purchased 500
  ledgerctl credits adjust --email user@example.com --monthly=-100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if monthly == 0 && purchased == 0 {
				return fmt.Errorf("nothing to adjust: set --monthly or --purchased")
			}
			res, err := get().admin.AdjustCredits(cmd.Context(), email, monthly, purchased)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	adjustCmd.Flags().StringVar(&email, "email", "", "account email")
	adjustCmd.Flags().IntVar(&monthly, "monthly", 0, "monthly credits delta")
	adjustCmd.Flags().IntVar(&purchased, "purchased", 0, "purchased credits delta")
	_ = adjustCmd.MarkFlagRequired("email")

	creditsCmd.AddCommand(adjustCmd)
	return creditsCmd
}

func newPruneCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prune-usage",
		Short: "Delete usage logs older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := get().usage.Prune(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d usage log rows\n", n)
			return nil
		},
	}
}

func newExpireCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "expire-orders",
		Short: "Mark stale pending payment orders as failed",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := get().purchase.ExpirePendingOrders(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d pending orders\n", n)
			return nil
		},
	}
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := newRootCmd(openApp).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

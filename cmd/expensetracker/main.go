package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"expensetracker/internal/cache"
	"expensetracker/internal/config"
	"expensetracker/internal/core"
	"expensetracker/internal/credstore"
	"expensetracker/internal/gateway"
	"expensetracker/internal/log"
	"expensetracker/internal/report"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	logger := log.New(log.Config{Level: level, Component: log.ComponentApp})
	log.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, err := storage.NewSQLiteKV(cfg.StateDBPath)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer kv.Close()

	creds := credstore.New(kv, logger)
	if err := creds.Load(ctx); err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	gw := gateway.New(gateway.Config{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.HTTPTimeout,
		Tokens:  creds,
		Logger:  logger,
	})

	store := cache.New(logger)
	defer store.Dispose()

	client := services.New(gw, store, creds, logger)

	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
		return nil
	}

	switch args[0] {
	case "login":
		return cmdLogin(ctx, client, args[1:])
	case "logout":
		return client.Logout(ctx)
	case "register":
		return cmdRegister(ctx, client, args[1:])
	case "verify":
		return cmdVerify(ctx, client, args[1:])
	case "dashboard":
		return cmdDashboard(ctx, client, creds)
	case "budgets":
		return cmdBudgets(ctx, client, creds)
	case "add-expense":
		return cmdAddExpense(ctx, client, creds, args[1:])
	case "add-category":
		return cmdAddCategory(ctx, client, creds, args[1:])
	case "set-currency":
		return cmdSetCurrency(ctx, creds, args[1:])
	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: expensetracker <command> [flags]

commands:
  login         -email -password      start a session
  logout                              end the session
  register      -username -email -password
  verify        -email -code          confirm the email verification code
  dashboard                           balance, breakdown, 7-day trend, top transactions
  budgets                             budget utilization per category
  add-expense   -category -amount -date [-note]
  add-category  -name -type [-color]
  set-currency  <code>                display currency preference`)
}

func cmdLogin(ctx context.Context, client *services.Client, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	fs.Parse(args)

	res, err := client.Login(ctx, services.LoginRequest{Email: *email, Password: *password})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	fmt.Printf("Logged in as %s\n", res.User.Username)
	return nil
}

func cmdRegister(ctx context.Context, client *services.Client, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	username := fs.String("username", "", "username")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	fs.Parse(args)

	err := client.Register(ctx, services.RegisterRequest{
		Username:     *username,
		Email:        *email,
		PasswordHash: *password,
	})
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	fmt.Println("Registered. Check your email for the verification code.")
	return nil
}

func cmdVerify(ctx context.Context, client *services.Client, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	code := fs.String("code", "", "verification code")
	fs.Parse(args)

	if err := client.Verify(ctx, services.VerifyRequest{Email: *email, Code: *code}); err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	fmt.Println("Email verified.")
	return nil
}

// loadCollections fetches the three collections in parallel through the
// cache. Completion order is not guaranteed, which is fine: each view
// treats a missing collection as empty.
func loadCollections(ctx context.Context, client *services.Client) ([]core.Category, []core.Expense, []core.Budget, error) {
	var (
		categories []core.Category
		expenses   []core.Expense
		budgets    []core.Budget
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		categories, err = client.Categories(gctx)
		return err
	})
	g.Go(func() (err error) {
		expenses, err = client.Expenses(gctx)
		return err
	})
	g.Go(func() (err error) {
		budgets, err = client.Budgets(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	return categories, expenses, budgets, nil
}

func cmdDashboard(ctx context.Context, client *services.Client, creds *credstore.Store) error {
	categories, expenses, _, err := loadCollections(ctx, client)
	if err != nil {
		return err
	}
	currency := creds.Currency()

	summary := report.Summarize(expenses, categories)
	fmt.Printf("Income:   %s\n", core.FormatAmount(summary.Income, currency))
	fmt.Printf("Expenses: %s\n", core.FormatAmount(summary.Expenses, currency))
	fmt.Printf("Balance:  %s\n", core.FormatAmount(summary.Balance, currency))

	fmt.Println("\nSpending by category:")
	for _, slice := range report.Breakdown(expenses, categories) {
		fmt.Printf("  %-20s %s\n", slice.Name, core.FormatAmount(slice.Value, currency))
	}

	fmt.Println("\nSpending trend (last 7 days):")
	for _, p := range report.Trend(expenses, categories, core.Today(), 7) {
		fmt.Printf("  %s %s  %s\n", p.Label, p.Date, core.FormatAmount(p.Amount, currency))
	}

	fmt.Println("\nHighest transactions:")
	for _, e := range report.Top(expenses, 5) {
		fmt.Printf("  %-20s %s  %s\n",
			report.CategoryName(categories, e.CategoryID),
			core.FormatAmount(e.Amount, currency),
			e.Date)
	}
	return nil
}

func cmdBudgets(ctx context.Context, client *services.Client, creds *credstore.Store) error {
	budgets, err := client.Budgets(ctx)
	if err != nil {
		return err
	}
	currency := creds.Currency()

	for _, u := range report.BudgetUsageAll(budgets) {
		name := u.Budget.CategoryName
		if name == "" {
			name = report.Uncategorized
		}
		fmt.Printf("%-20s %6.1f%% of %s  remaining %s  [%s]\n",
			name,
			u.Percent,
			core.FormatAmount(u.Budget.LimitAmount, currency),
			core.FormatAmount(u.Remaining, currency),
			u.Tier)
	}
	return nil
}

func cmdAddExpense(ctx context.Context, client *services.Client, creds *credstore.Store, args []string) error {
	fs := flag.NewFlagSet("add-expense", flag.ExitOnError)
	categoryID := fs.Int64("category", 0, "category id")
	amount := fs.String("amount", "", "amount, e.g. 12.50")
	date := fs.String("date", core.Today().String(), "date (YYYY-MM-DD)")
	note := fs.String("note", "", "optional note")
	fs.Parse(args)

	user, _ := creds.Current()
	if user == nil {
		return fmt.Errorf("not logged in")
	}
	amt, err := decimal.NewFromString(*amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", *amount, err)
	}
	d, err := core.ParseDate(*date)
	if err != nil {
		return err
	}

	expense, err := client.CreateExpense(ctx, services.CreateExpenseRequest{
		CategoryID: *categoryID,
		Amount:     amt,
		Date:       d,
		Note:       *note,
		UserID:     user.ID,
	})
	if err != nil {
		return fmt.Errorf("add expense: %w", err)
	}
	fmt.Printf("Recorded expense #%d\n", expense.ID)
	return nil
}

func cmdAddCategory(ctx context.Context, client *services.Client, creds *credstore.Store, args []string) error {
	fs := flag.NewFlagSet("add-category", flag.ExitOnError)
	name := fs.String("name", "", "category name")
	kind := fs.String("type", string(core.KindExpense), "Income or Expense")
	color := fs.String("color", "#ef4444", "display color")
	fs.Parse(args)

	user, _ := creds.Current()
	if user == nil {
		return fmt.Errorf("not logged in")
	}

	category, err := client.CreateCategory(ctx, services.CreateCategoryRequest{
		Name:   *name,
		UserID: user.ID,
		Kind:   core.CategoryKind(*kind),
		Color:  *color,
	})
	if err != nil {
		return fmt.Errorf("add category: %w", err)
	}
	fmt.Printf("Created category #%d %s\n", category.ID, category.Name)
	return nil
}

func cmdSetCurrency(ctx context.Context, creds *credstore.Store, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: set-currency <code>")
	}
	if err := creds.SetCurrency(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("Display currency set to %s\n", args[0])
	return nil
}

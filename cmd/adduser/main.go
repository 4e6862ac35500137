package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"finsync/internal/db"
	"finsync/internal/prompt"
	"finsync/internal/repository"
	"finsync/internal/service"
)

type stores struct {
	users        repository.UserRepository
	accounts     repository.AccountRepository
	transactions repository.TransactionRepository
	close        func()
}

// openStores abre postgres y aplica la migración. Reemplazable en tests.
var openStores = func(ctx context.Context, databaseURL string) (stores, error) {
	pool, err := db.NewPoolFromURL(ctx, databaseURL)
	if err != nil {
		return stores{}, err
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return stores{}, err
	}
	return stores{
		users:        repository.NewPgUserRepository(pool),
		accounts:     repository.NewPgAccountRepository(pool),
		transactions: repository.NewPgTransactionRepository(pool),
		close:        pool.Close,
	}, nil
}

func main() {
	_ = godotenv.Load()
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)

	email := fs.String("email", "", "Email")
	name := fs.String("name", "", "Display name")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	databaseURL := fs.String("db", os.Getenv("DATABASE_URL"), "Postgres connection URL")
	demo := fs.Bool("demo", false, "Seed demo accounts and transactions for the new user")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" || *databaseURL == "" {
		fmt.Fprintln(stdout, "Usage: adduser -email <email> [-name <name>] [-password <password>] [-db <url>] [-demo]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: email, db")
	}

	password := *passwordFlag
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = prompt.Password(stdin, bufio.NewReader(stdin))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout)
	}
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be empty")
	}

	st, err := openStores(ctx, *databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.close()

	users := service.NewUserService(zap.NewNop(), st.users, nil)
	user, err := users.CreateUser(ctx, service.CreateUserInput{
		Email:       *email,
		DisplayName: *name,
		Password:    password,
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	fmt.Fprintf(stdout, "User %s created successfully with ID %s\n", user.Email, user.ID)

	if *demo {
		if err := service.SeedDemoData(ctx, st.accounts, st.transactions, user.ID, time.Now()); err != nil {
			return fmt.Errorf("failed to seed demo data: %w", err)
		}
		fmt.Fprintln(stdout, "Demo accounts and transactions added")
	}
	return nil
}

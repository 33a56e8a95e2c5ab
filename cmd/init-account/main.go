// Package main provisions a console account from the command line. The
// console has no self-service signup; operators are created out of band
// with this tool.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	dbutils "github.com/tendant/db-utils/db"

	"github.com/gla1v3/console-auth/pkg/account"
	"github.com/gla1v3/console-auth/pkg/config"
	"github.com/gla1v3/console-auth/pkg/utils"
)

func main() {
	username := flag.String("username", "", "account username (required)")
	password := flag.String("password", "", "account password (generated when empty)")
	role := flag.String("role", "operator", "account role (operator or admin)")
	remove := flag.Bool("delete", false, "delete the account instead of creating it")
	flag.Parse()

	if *username == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed loading config", "err", err)
		os.Exit(-1)
	}

	pool, err := dbutils.NewDbPool(context.Background(), cfg.Database.ToDbConfig())
	if err != nil {
		slog.Error("Failed creating dbpool", "host", cfg.Database.Host, "db", cfg.Database.Database, "err", err)
		os.Exit(-1)
	}
	defer pool.Close()

	accountService := account.NewService(account.NewPostgresRepository(pool), nil)

	if *remove {
		if err := accountService.DeleteAccount(context.Background(), *username); err != nil {
			slog.Error("Failed deleting account", "username", *username, "err", err)
			os.Exit(-1)
		}
		fmt.Printf("Deleted account %s\n", *username)
		return
	}

	plaintext := *password
	generated := false
	if plaintext == "" {
		plaintext = utils.GenerateRandomString(20)
		generated = true
	}

	entity, err := accountService.CreateAccount(context.Background(), account.CreateParams{
		Username: *username,
		Password: plaintext,
		Role:     *role,
	})
	if err != nil {
		slog.Error("Failed creating account", "username", *username, "err", err)
		os.Exit(-1)
	}

	fmt.Printf("Created account %s (role %s)\n", entity.Username, entity.Role)
	if generated {
		fmt.Printf("Generated password: %s\n", plaintext)
	}
	fmt.Println("Enroll a second factor from the console after first login.")
}

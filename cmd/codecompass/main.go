// Command codecompass runs the authentication API.
//
//	codecompass [serve]              run the HTTP server (default)
//	codecompass migrate              apply pending migrations and exit
//	codecompass create-admin -email  create or promote an administrator
//	codecompass version              print build information
//
// Every command accepts -config and -env to point at explicit files.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/kbukum/codecompass/app"
	"github.com/kbukum/codecompass/config"
	"github.com/kbukum/codecompass/user"
	"github.com/kbukum/codecompass/version"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "codecompass:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := "serve"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", "", "path to config.yml")
	envFile := fs.String("env", "", "path to .env")
	email := fs.String("email", "", "administrator email (create-admin)")
	name := fs.String("name", "", "administrator display name (create-admin)")

	switch cmd {
	case "version":
		fmt.Fprintln(stdout, version.Get().String())
		return nil
	case "serve", "migrate", "create-admin":
	default:
		return fmt.Errorf("unknown command %q (use serve, migrate, create-admin or version)", cmd)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	var opts []config.LoaderOption
	if *configFile != "" {
		opts = append(opts, config.WithConfigFile(*configFile))
	}
	if *envFile != "" {
		opts = append(opts, config.WithEnvFile(*envFile))
	}
	cfg, err := app.Load(opts...)
	if err != nil {
		return err
	}

	switch cmd {
	case "migrate":
		cfg.Database.AutoMigrate = false
		a, err := app.New(cfg)
		if err != nil {
			return err
		}
		return a.RunTask(ctx, func(ctx context.Context) error {
			applied, err := a.Migrate(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "applied %d migration(s)\n", len(applied))
			for _, id := range applied {
				fmt.Fprintln(stdout, "  "+id)
			}
			return nil
		})

	case "create-admin":
		if *email == "" {
			return fmt.Errorf("create-admin: -email is required")
		}
		secret, err := promptPassword(stdout)
		if err != nil {
			return err
		}
		a, err := app.New(cfg)
		if err != nil {
			return err
		}
		return a.RunTask(ctx, func(ctx context.Context) error {
			outcome, err := a.EnsureAdmin(ctx, user.AdminConfig{Name: *name, Email: *email, Password: secret})
			if err != nil {
				return err
			}
			switch outcome {
			case user.AdminCreated:
				fmt.Fprintf(stdout, "administrator %s created\n", *email)
			case user.AdminPromoted:
				fmt.Fprintf(stdout, "%s promoted to administrator\n", *email)
			default:
				fmt.Fprintf(stdout, "%s is already an administrator\n", *email)
			}
			return nil
		})

	default:
		a, err := app.New(cfg)
		if err != nil {
			return err
		}
		return a.Run(ctx)
	}
}

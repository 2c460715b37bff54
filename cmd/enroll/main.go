// Command enroll provisions the second-factor channel and login accounts.
//
// Usage:
//
//	enroll totp -account ops@example.com -qr totp.png
//	enroll user -username alice -email alice@example.com   (password read from RISKGATE_PASSWORD)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BradenHooton/riskgate/internal/auth"
	"github.com/BradenHooton/riskgate/internal/config"
	"github.com/BradenHooton/riskgate/internal/database"
	"github.com/BradenHooton/riskgate/internal/models"
	"github.com/BradenHooton/riskgate/internal/repositories"
	pkgauth "github.com/BradenHooton/riskgate/pkg/auth"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "totp":
		err = runTOTP(os.Args[2:])
	case "user":
		err = runUser(os.Args[2:], logger)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Error("enroll failed", slog.String("command", os.Args[1]), slog.Any("error", err))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: enroll <totp|user> [flags]")
}

func runTOTP(args []string) error {
	fs := flag.NewFlagSet("totp", flag.ExitOnError)
	issuer := fs.String("issuer", "riskgate", "issuer shown in the authenticator app")
	account := fs.String("account", "", "account label shown in the authenticator app")
	qrPath := fs.String("qr", "totp.png", "where to write the QR code PNG")
	size := fs.Int("size", 256, "QR code size in pixels")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *account == "" {
		return errors.New("-account is required")
	}

	enrollment, err := auth.Enroll(*issuer, *account, *size)
	if err != nil {
		return err
	}

	if err := os.WriteFile(*qrPath, enrollment.QRCode, 0o600); err != nil {
		return fmt.Errorf("failed to write QR code: %w", err)
	}

	fmt.Printf("CHALLENGE_MODE=totp\nCHALLENGE_TOTP_SECRET=%s\n", enrollment.Secret)
	fmt.Fprintf(os.Stderr, "provisioning URL: %s\nQR code written to %s\n", enrollment.URL, *qrPath)
	return nil
}

func runUser(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("user", flag.ExitOnError)
	username := fs.String("username", "", "login name")
	email := fs.String("email", "", "address for block alerts (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	name := strings.ToLower(strings.TrimSpace(*username))
	if name == "" {
		return errors.New("-username is required")
	}

	password := os.Getenv("RISKGATE_PASSWORD")
	if err := pkgauth.ValidatePassword(password); err != nil {
		return err
	}
	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		return err
	}

	dbCfg := config.LoadDatabase()
	db, err := database.NewConnection(&dbCfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := repositories.NewUserRepository(db).Create(ctx, &models.User{
		Username:     name,
		Email:        strings.TrimSpace(*email),
		PasswordHash: hash,
	})
	if errors.Is(err, models.ErrConflict) {
		return fmt.Errorf("user %q already exists", name)
	}
	if err != nil {
		return err
	}

	logger.Info("user created", slog.String("id", user.ID), slog.String("username", user.Username))
	return nil
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-maintenance-api/internal/cli"
	"github.com/noah-isme/hostel-maintenance-api/internal/repository"
	"github.com/noah-isme/hostel-maintenance-api/internal/service"
	"github.com/noah-isme/hostel-maintenance-api/pkg/config"
	"github.com/noah-isme/hostel-maintenance-api/pkg/logger"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		if err := hashPassword(os.Stdin, os.Stdout); err != nil {
			log.Fatalf("hash-password: %v", err)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.NewCLI(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	store, err := repository.NewCSVStore(cfg.Storage.File, logr)
	if err != nil {
		logr.Fatal("failed to open request store", zap.Error(err))
	}
	if err := store.EnsureStorage(context.Background()); err != nil {
		logr.Fatal("request store unavailable", zap.String("path", store.Path()), zap.Error(err))
	}

	requests := service.NewRequestService(repository.NewRequestRepository(store), validator.New(), logr, nil)
	auth := service.NewBcryptAuthenticator(cfg.Admin.Username, cfg.Admin.PasswordHash)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := cli.NewSession(os.Stdin, os.Stdout, requests, auth, logr)
	if err := session.Run(ctx); err != nil && ctx.Err() == nil {
		logr.Error("session ended with error", zap.Error(err))
		os.Exit(1)
	}
}

// hashPassword reads one line and prints its bcrypt hash for ADMIN_PASSWORD_HASH.
func hashPassword(in io.Reader, out io.Writer) error {
	fmt.Fprint(out, "Password: ")
	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return err
	}
	password := strings.TrimRight(line, "\r\n")
	hash, err := service.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, hash)
	return nil
}

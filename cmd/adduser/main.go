// Command adduser provisions a dashboard account, or prints a password hash
// for manual inserts with -hash-only.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/term"

	"secdash/internal/audit"
	"secdash/internal/auth"
	"secdash/internal/config"
	"secdash/internal/db"
	"secdash/internal/logger"
	"secdash/internal/metrics"
	"secdash/internal/model"
	"secdash/internal/repository"
	"secdash/internal/service"
)

func main() {
	username := flag.String("username", "", "account name (required unless -hash-only)")
	role := flag.String("role", string(model.RoleUser), "admin, user or viewer")
	email := flag.String("email", "", "optional email")
	fullName := flag.String("full-name", "", "optional full name")
	hashOnly := flag.Bool("hash-only", false, "print a password hash and exit")
	flag.Parse()

	password, err := readPassword(os.Stdin)
	if err != nil {
		log.Fatalf("read password: %v", err)
	}

	hasher := auth.NewArgon2Hasher(auth.DefaultArgon2Params)
	if *hashOnly {
		hash, err := hasher.Hash(password)
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		fmt.Println(hash)
		return
	}

	if *username == "" {
		log.Fatal("-username is required")
	}
	parsedRole, err := model.ParseRole(*role)
	if err != nil {
		log.Fatalf("role: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN, zl)
	if err != nil {
		zl.Fatal("open database", zap.Error(err))
	}
	if err := db.Migrate(gormDB, false); err != nil {
		zl.Fatal("migrate", zap.Error(err))
	}

	m := metrics.New()
	recorder := audit.NewLogger(repository.NewAuditLogRepository(gormDB), zl, m, cfg.StoreTimeout)
	users := service.NewUserService(repository.NewUserRepository(gormDB), hasher, recorder, validator.New(), m, zl, cfg.StoreTimeout)

	user, err := users.CreateUser(context.Background(), service.NewUserInput{
		Username: *username,
		Password: password,
		Role:     parsedRole,
		Email:    *email,
		FullName: *fullName,
	}, audit.Meta{Resource: "cli:adduser"})
	if err != nil {
		zl.Fatal("create user", zap.String("username", *username), zap.Error(err))
	}
	zl.Info("user created", zap.Uint("id", user.ID), zap.String("username", user.Username), zap.String("role", user.Role.String()))
}

// readPassword prompts twice on a terminal and reads one line otherwise.
func readPassword(in *os.File) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return readLine(in)
	}

	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	fmt.Fprint(os.Stderr, "Repeat password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password")
	}
	return line, nil
}

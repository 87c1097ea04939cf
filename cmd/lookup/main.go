package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-userview/internal/auth"
	"github.com/ovaphlow/pitchfork/service-userview/internal/userview"
	"github.com/ovaphlow/pitchfork/service-userview/pkg/database"
	"github.com/ovaphlow/pitchfork/service-userview/pkg/utilities"
)

const (
	exitOK       = 0
	exitError    = 1
	exitNotFound = 2
)

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("lookup", flag.ContinueOnError)
	fs.SetOutput(stderr)
	by := fs.String("by", string(userview.KeyLocalUserID), "lookup kind: id, person, name, email, name-or-email")
	q := fs.String("q", "", "lookup value")
	settings := fs.Bool("settings", false, "print the redacted settings view (id and person only)")
	token := fs.Bool("token", false, "print a signed access token for local user -q instead of a view")
	admin := fs.Bool("admin", false, "with -token: set the admin claim")
	if err := fs.Parse(args); err != nil {
		return exitError
	}

	if *token {
		return issueToken(*q, *admin, stdout, stderr)
	}

	key, err := userview.ParseKey(*by, *q)
	if err != nil {
		fmt.Fprintf(stderr, "lookup: %v\n", err)
		return exitError
	}

	logCfg, err := utilities.ConfigFromEnv()
	if err != nil {
		fmt.Fprintf(stderr, "lookup: %v\n", err)
		return exitError
	}
	lg, err := utilities.Init(logCfg)
	if err != nil {
		fmt.Fprintf(stderr, "failed to init logger: %v\n", err)
		return exitError
	}
	defer lg.Sync()
	sugar := lg.Sugar()

	dbCfg, err := database.ConfigFromEnv()
	if err != nil {
		fmt.Fprintf(stderr, "lookup: %v\n", err)
		return exitError
	}
	db, err := database.Open(dbCfg)
	if err != nil {
		sugar.Errorw("db connect failed", "err", err)
		return exitError
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), dbCfg.OpTimeout())
	defer cancel()

	svc := userview.NewService(db, nil)
	var view any
	switch {
	case *settings && key.Kind == userview.KeyLocalUserID:
		view, err = svc.Settings(ctx, key.ID)
	case *settings && key.Kind == userview.KeyPersonID:
		view, err = svc.PublicSettings(ctx, key.ID)
	case *settings:
		fmt.Fprintln(stderr, "lookup: -settings supports -by id or -by person")
		return exitError
	default:
		view, err = svc.Lookup(ctx, key)
	}
	if errors.Is(err, userview.ErrNotFound) {
		fmt.Fprintln(stderr, "no such user")
		return exitNotFound
	}
	if err != nil {
		sugar.Errorw("lookup failed", "by", key.Kind, "err", err)
		return exitError
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(view); err != nil {
		fmt.Fprintf(stderr, "lookup: encode: %v\n", err)
		return exitError
	}
	return exitOK
}

func issueToken(subject string, admin bool, stdout, stderr io.Writer) int {
	id, err := strconv.ParseInt(subject, 10, 64)
	if err != nil || id <= 0 {
		fmt.Fprintf(stderr, "lookup: -token needs a local user id in -q, got %q\n", subject)
		return exitError
	}
	cfg, err := auth.ConfigFromEnv()
	if err != nil {
		fmt.Fprintf(stderr, "lookup: %v\n", err)
		return exitError
	}
	issuer, err := auth.NewIssuer(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "lookup: %v\n", err)
		return exitError
	}
	tok, err := issuer.Issue(id, admin)
	if err != nil {
		fmt.Fprintf(stderr, "lookup: sign token: %v\n", err)
		return exitError
	}
	fmt.Fprintln(stdout, tok)
	return exitOK
}

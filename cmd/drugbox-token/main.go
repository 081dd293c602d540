// Command drugbox-token mints an HS256 bearer token for the admin API.
//
//	DRUGBOX_ADMIN_JWT_SECRET=s3cret drugbox-token -sub ops -ttl 8h
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BrandonDHaskell/drugbox/internal/auth"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr, os.Getenv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "drugbox-token:", err)
		os.Exit(2)
	}
}

func run(args []string, out, errOut io.Writer, getenv func(string) string) error {
	fs := flag.NewFlagSet("drugbox-token", flag.ContinueOnError)
	fs.SetOutput(errOut)

	secret := fs.String("secret", getenv("DRUGBOX_ADMIN_JWT_SECRET"), "HMAC secret (defaults to DRUGBOX_ADMIN_JWT_SECRET)")
	issuer := fs.String("issuer", envOr(getenv, "DRUGBOX_ADMIN_JWT_ISSUER", "drugbox"), "token issuer")
	subject := fs.String("sub", "admin", "token subject, logged on admin writes")
	role := fs.String("role", auth.RoleAdmin, "role claim")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *secret == "" {
		return errors.New("no secret: pass -secret or set DRUGBOX_ADMIN_JWT_SECRET")
	}
	if *ttl <= 0 {
		return errors.New("ttl must be positive")
	}

	tok, err := auth.NewSigner(*secret, *issuer).Issue(*subject, *role, *ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, tok)
	return err
}

func envOr(getenv func(string) string, key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

// Command genjwt mints HS256 bearer tokens for local testing and operator
// use, reading a YAML claims fixture (the Go counterpart of the original
// system's scripts/generate-jwt.py). The gateway itself only validates
// externally-minted tokens; this is the out-of-scope minting tool spec.md
// §1 names as an external collaborator.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tacedge/gateway/internal/auth"
)

// claimsFixture is the YAML shape operators hand-write to mint a token.
type claimsFixture struct {
	Subject        string `yaml:"subject"`
	Role           string `yaml:"role"`
	NodeID         string `yaml:"node_id"`
	Classification string `yaml:"classification"`
	TTL            string `yaml:"ttl"`
}

func main() {
	fixturePath := flag.String("fixture", "", "path to a YAML claims fixture (required)")
	secret := flag.String("secret", "", "JWT signing secret (defaults to $JWT_SECRET)")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "error: -fixture is required")
		os.Exit(1)
	}

	signingSecret := *secret
	if signingSecret == "" {
		signingSecret = os.Getenv("JWT_SECRET")
	}
	if signingSecret == "" {
		fmt.Fprintln(os.Stderr, "error: no signing secret: pass -secret or set JWT_SECRET")
		os.Exit(1)
	}

	raw, err := os.ReadFile(*fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: reading fixture: %v\n", err)
		os.Exit(1)
	}

	var fixture claimsFixture
	if err := yaml.Unmarshal(raw, &fixture); err != nil {
		fmt.Fprintf(os.Stderr, "error: parsing fixture YAML: %v\n", err)
		os.Exit(1)
	}

	if fixture.Subject == "" {
		fmt.Fprintln(os.Stderr, "error: fixture missing required field: subject")
		os.Exit(1)
	}

	classification := auth.Unclassified
	if fixture.Classification != "" {
		c, ok := auth.ParseClassification(fixture.Classification)
		if !ok {
			fmt.Fprintf(os.Stderr, "error: unrecognized classification: %s\n", fixture.Classification)
			os.Exit(1)
		}
		classification = c
	}

	ttl := time.Hour
	if fixture.TTL != "" {
		d, err := time.ParseDuration(fixture.TTL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: invalid ttl %q: %v\n", fixture.TTL, err)
			os.Exit(1)
		}
		ttl = d
	}

	validator := auth.NewValidator(signingSecret)
	token, err := validator.IssueToken(fixture.Subject, auth.Role(fixture.Role), fixture.NodeID, classification, ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: signing token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}

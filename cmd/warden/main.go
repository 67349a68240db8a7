// ABOUTME: Operational CLI for the toolwarden authorization engine
// ABOUTME: Config inspection, catalog listing, credential minting, policy and credit checks

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/2389/toolwarden/internal/auth"
	"github.com/2389/toolwarden/internal/catalog"
	"github.com/2389/toolwarden/internal/config"
	"github.com/2389/toolwarden/internal/credits"
	"github.com/2389/toolwarden/internal/intent"
	"github.com/2389/toolwarden/internal/policy"
	"github.com/2389/toolwarden/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "config":
		err = cmdConfig()
	case "catalog":
		err = cmdCatalog(args)
	case "token":
		err = cmdToken(args)
	case "policy":
		err = cmdPolicy(args)
	case "credit":
		err = cmdCredit(ctx, args)
	case "resolve":
		err = cmdResolve(ctx, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	yellow := color.New(color.FgYellow)

	fmt.Println("Usage: warden <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  config                     Validate and print the effective configuration")
	fmt.Println("  catalog [network]          List tool definitions for a network")
	fmt.Println("  token create               Create a JWT credential for a signing address")
	fmt.Println("  policy check <schema>      Validate a policy blob from stdin or a file")
	fmt.Println("  credit status <signer>     Show the cached capacity credit for a signer")
	fmt.Println("  resolve <text>             Resolve intent text against the network catalog")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  WARDEN_CONFIG              Config file path (default: ./config.yaml)")
	fmt.Println()
	yellow.Println("Examples:")
	fmt.Println("  warden token create --address 0xabc... --role delegatee")
	fmt.Println("  warden policy check ERC20Transfer@1.0.0 < policy.json")
	fmt.Println("  warden resolve \"send 5 USDC to 0x5aAe...\"")
	fmt.Println()
}

// loadConfig reads the config from WARDEN_CONFIG or ./config.yaml.
func loadConfig() (*config.Config, error) {
	path := os.Getenv("WARDEN_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	return config.Load(path)
}

// cmdConfig validates the configuration and prints the effective values.
func cmdConfig() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)

	fmt.Println()
	cyan.Println("  Configuration")
	cyan.Println("  -------------")
	fmt.Printf("  Network:        %s\n", cfg.Network.Name)
	fmt.Printf("  Database:       %s\n", cfg.Database.Path)
	fmt.Printf("  Model:          %s\n", orNone(cfg.Model.Name))
	fmt.Printf("  Token TTL:      %s\n", cfg.Auth.TokenTTL)
	fmt.Printf("  Credits:        %d req/ks, %d day(s)\n",
		cfg.Credits.RequestsPerKilosecond, cfg.Credits.DaysUntilExpiration)

	dep, err := credits.DeploymentByName(cfg.Network.Name)
	if err != nil {
		return err
	}
	if dep.RequiresCredits {
		fmt.Printf("  Rate limits:    enforced (capacity credits required)\n")
	} else {
		fmt.Printf("  Rate limits:    not enforced\n")
	}
	fmt.Println()
	green.Println("  ✓ Configuration is valid")
	fmt.Println()
	return nil
}

// cmdCatalog lists the tool definitions for a network.
func cmdCatalog(args []string) error {
	network := ""
	if len(args) > 0 {
		network = args[0]
	} else {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		network = cfg.Network.Name
	}

	cat, err := catalog.ForNetwork(network)
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Printf("  Tool Catalog (%s)\n", network)
	cyan.Println("  ------------")

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  TOOL ID\tKIND\tSCHEMA\tPARAMS")
	fmt.Fprintln(w, "  -------\t----\t------\t------")
	for _, def := range cat.Definitions() {
		params := make([]string, len(def.Params))
		for i, p := range def.Params {
			params[i] = p.Name
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n",
			def.ToolID, def.Kind, def.PolicySchema, strings.Join(params, ","))
	}
	w.Flush()
	fmt.Println()
	return nil
}

// cmdToken creates a JWT credential signed with the configured secret.
func cmdToken(args []string) error {
	if len(args) < 1 || args[0] != "create" {
		return fmt.Errorf("usage: token create --address <addr> --role <admin|delegatee> [--ttl <duration>]")
	}
	args = args[1:]

	var address, roleStr, ttlStr string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--address", "-a":
			if i+1 < len(args) {
				address = args[i+1]
				i++
			}
		case "--role", "-r":
			if i+1 < len(args) {
				roleStr = args[i+1]
				i++
			}
		case "--ttl", "-t":
			if i+1 < len(args) {
				ttlStr = args[i+1]
				i++
			}
		}
	}

	if address == "" || roleStr == "" {
		return fmt.Errorf("usage: token create --address <addr> --role <admin|delegatee> [--ttl <duration>]")
	}

	var role auth.Role
	switch roleStr {
	case "admin":
		role = auth.RoleAdmin
	case "delegatee":
		role = auth.RoleDelegatee
	default:
		return fmt.Errorf("invalid role %q (use admin or delegatee)", roleStr)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ttl := cfg.Auth.TokenTTL
	if ttlStr != "" {
		ttl, err = time.ParseDuration(ttlStr)
		if err != nil {
			return fmt.Errorf("invalid ttl: %w", err)
		}
	}

	verifier := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	token, err := verifier.Generate(address, role, ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	fmt.Println()
	green.Println("  Token created")
	fmt.Println()
	cyan.Println("  Address:  " + address)
	cyan.Println("  Role:     " + roleStr)
	cyan.Println("  Expires:  " + time.Now().Add(ttl).Format(time.RFC3339))
	fmt.Println()
	fmt.Println("  Token (keep this secret!):")
	fmt.Println()
	fmt.Println("  " + token)
	fmt.Println()
	return nil
}

// cmdPolicy validates a policy blob against a named schema.
func cmdPolicy(args []string) error {
	if len(args) < 2 || args[0] != "check" {
		return fmt.Errorf("usage: policy check <Type[@Version]> [file]")
	}

	schema, err := parseSchema(args[1])
	if err != nil {
		return err
	}

	var data []byte
	if len(args) >= 3 {
		data, err = os.ReadFile(args[2])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("reading policy blob: %w", err)
	}

	codec := policy.NewCodec()
	decoded, err := codec.Decode(schema, data)
	if err != nil {
		return err
	}

	normalized, err := codec.Encode(decoded)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Printf("✓ Valid %s policy\n", schema)
	fmt.Println()
	fmt.Println(string(normalized))
	return nil
}

// parseSchema parses "Type" or "Type@Version", defaulting to version 1.0.0.
func parseSchema(s string) (policy.Schema, error) {
	typ, version, found := strings.Cut(s, "@")
	if !found {
		version = "1.0.0"
	}
	if typ == "" || version == "" {
		return policy.Schema{}, fmt.Errorf("invalid schema %q (use Type or Type@Version)", s)
	}
	return policy.Schema{Type: typ, Version: version}, nil
}

// cmdCredit inspects the local credit cache.
func cmdCredit(ctx context.Context, args []string) error {
	if len(args) < 2 || args[0] != "status" {
		return fmt.Errorf("usage: credit status <signer>")
	}
	signer := args[1]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)
	green := color.New(color.FgGreen)

	credit, err := db.GetCredit(ctx, signer)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			yellow.Printf("No cached credit for %s\n", signer)
			return nil
		}
		return err
	}

	fmt.Println()
	cyan.Println("  Capacity Credit")
	cyan.Println("  ---------------")
	fmt.Printf("  ID:        %s\n", credit.ID)
	fmt.Printf("  Signer:    %s\n", credit.Signer)
	fmt.Printf("  Rate:      %d req/ks\n", credit.RequestsPerKilosecond)
	fmt.Printf("  Minted:    %s\n", credit.MintedAt.Format(time.RFC3339))
	fmt.Printf("  Expires:   %s\n", credit.ExpiresAt.Format(time.RFC3339))
	if credits.Expired(credit, time.Now()) {
		color.Red("  Status:    EXPIRED")
	} else {
		green.Println("  Status:    active")
	}
	fmt.Println()
	return nil
}

// cmdResolve runs intent resolution against the full network catalog. This
// is a debugging aid; the delegatee facade resolves only against permitted
// tools.
func cmdResolve(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: resolve <intent text>")
	}
	text := strings.Join(args, " ")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	model, err := intent.NewOpenAIClient(cfg.Model.APIKey, cfg.Model.BaseURL, cfg.Model.Name)
	if err != nil {
		return err
	}
	cat, err := catalog.ForNetwork(cfg.Network.Name)
	if err != nil {
		return err
	}

	resolver := intent.NewResolver(model)
	result, err := resolver.Resolve(ctx, text, cat.Definitions())
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	fmt.Println()
	if result.Tool == nil {
		yellow.Println("  No catalog tool matches this request")
		fmt.Println()
		return nil
	}

	green.Printf("  Matched: %s (%s)\n", result.Tool.Kind, result.Tool.ToolID)
	fmt.Println()

	if len(result.FoundParams) > 0 {
		cyan.Println("  Found parameters:")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for name, value := range result.FoundParams {
			fmt.Fprintf(w, "    %s\t%s\n", name, value)
		}
		w.Flush()
	}
	if len(result.MissingParams) > 0 {
		yellow.Printf("  Missing parameters: %s\n", strings.Join(result.MissingParams, ", "))
	}
	for _, ve := range result.ValidationErrors {
		color.Red("  Invalid %s: %s", ve.Param, ve.Message)
	}
	fmt.Println()
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(not configured)"
	}
	return s
}

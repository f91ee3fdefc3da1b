// Command validator runs live smoke checks against a Chartwell server.
// It signs in with the supplied credentials, optionally exercises a raw
// request and a file download, signs out again, and writes a JSON
// report of what passed.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chartwell-io/chartwell-go/pkg/chartwell"
	"golang.org/x/term"
)

// ValidatorConfig holds configuration for the validator
type ValidatorConfig struct {
	ServerURL   string
	Site        string
	Name        string
	Secret      string
	Mode        string
	RawURL      string
	DownloadURL string
	DownloadDir string
	OutputDir   string
	Verbose     bool
}

// ValidationResult represents the result of a single check
type ValidationResult struct {
	Check    string        `json:"check"`
	Passed   bool          `json:"passed"`
	Detail   interface{}   `json:"detail,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// ValidationReport represents the full validation report
type ValidationReport struct {
	Timestamp   time.Time          `json:"timestamp"`
	ServerURL   string             `json:"server_url"`
	Site        string             `json:"site,omitempty"`
	TotalChecks int                `json:"total_checks"`
	Passed      int                `json:"passed"`
	Failed      int                `json:"failed"`
	SuccessRate float64            `json:"success_rate"`
	Results     []ValidationResult `json:"results"`
}

// readPassword is swapped out in tests
var readPassword = term.ReadPassword

func main() {
	config := parseFlags()

	if config.ServerURL == "" {
		log.Fatal("A server URL is required. Pass -server or set CHARTWELL_SERVER.")
	}

	// Prompt for the secret when none came from flags or environment
	if config.Secret == "" {
		secret, err := promptSecret(fmt.Sprintf("Secret for %s: ", config.Name))
		if err != nil {
			log.Fatalf("Failed to read secret: %v", err)
		}
		config.Secret = secret
	}

	// Create output directory
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	// Run validation
	validator := NewValidator(config)
	defer validator.Close()

	report := validator.Run(context.Background())

	// Save report
	reportPath := filepath.Join(config.OutputDir, fmt.Sprintf("validation_report_%d.json", time.Now().Unix()))
	if err := saveReport(report, reportPath); err != nil {
		log.Fatalf("Failed to save report: %v", err)
	}

	// Print summary
	printSummary(report, reportPath)

	// Exit with non-zero if any checks failed
	if report.Failed > 0 {
		os.Exit(1)
	}
}

func parseFlags() *ValidatorConfig {
	config := &ValidatorConfig{}

	flag.StringVar(&config.ServerURL, "server", os.Getenv("CHARTWELL_SERVER"), "Chartwell server base URL")
	flag.StringVar(&config.Site, "site", os.Getenv("CHARTWELL_SITE"), "Site content URL (empty for the default site)")
	flag.StringVar(&config.Name, "name", os.Getenv("CHARTWELL_NAME"), "User name or personal access token name")
	flag.StringVar(&config.Secret, "secret", os.Getenv("CHARTWELL_SECRET"), "Password or token secret (prompted when empty)")
	flag.StringVar(&config.Mode, "mode", envOr("CHARTWELL_MODE", "password"), "Credential mode: password or access-token")
	flag.StringVar(&config.RawURL, "raw-url", "", "Optional URL to fetch as a raw JSON request check")
	flag.StringVar(&config.DownloadURL, "download-url", "", "Optional URL to fetch as a download check")
	flag.StringVar(&config.DownloadDir, "download-dir", ".", "Directory for the download check")
	flag.StringVar(&config.OutputDir, "output", "./validation_results", "Output directory for the report")
	flag.BoolVar(&config.Verbose, "verbose", false, "Verbose output")

	flag.Parse()

	return config
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	secret, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(secret), nil
}

// Validator handles the validation process
type Validator struct {
	config *ValidatorConfig
	client *chartwell.Client
}

// NewValidator creates a new validator
func NewValidator(config *ValidatorConfig) *Validator {
	var credentials chartwell.Credentials
	switch config.Mode {
	case "password":
		credentials = chartwell.PasswordCredentials(config.Name, config.Secret)
	case "access-token":
		credentials = chartwell.AccessTokenCredentials(config.Name, config.Secret)
	default:
		log.Fatalf("Unknown credential mode %q. Use password or access-token.", config.Mode)
	}

	opts := &chartwell.ClientOptions{
		ServerURL:   config.ServerURL,
		Site:        config.Site,
		Credentials: credentials,
	}
	if config.Verbose {
		opts.Logger = stderrLogger{}
	}

	client, err := chartwell.NewClient(opts)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}

	return &Validator{
		config: config,
		client: client,
	}
}

// Close releases client resources
func (v *Validator) Close() {
	v.client.Close()
}

// Run executes the checks in order. A sign-in failure skips the checks
// that need a session but the report still covers them.
func (v *Validator) Run(ctx context.Context) *ValidationReport {
	report := &ValidationReport{
		Timestamp: time.Now(),
		ServerURL: v.config.ServerURL,
		Site:      v.config.Site,
		Results:   make([]ValidationResult, 0),
	}

	checks := []string{"sign_in", "session"}
	if v.config.RawURL != "" {
		checks = append(checks, "raw_request")
	}
	if v.config.DownloadURL != "" {
		checks = append(checks, "download")
	}
	checks = append(checks, "sign_out")

	signedIn := false
	for _, check := range checks {
		if v.config.Verbose {
			fmt.Printf("Checking %s...\n", check)
		}

		if check != "sign_in" && !signedIn {
			report.Results = append(report.Results, ValidationResult{
				Check: check,
				Error: "skipped: no session",
			})
			report.Failed++
			continue
		}

		result := v.runCheck(ctx, check)
		report.Results = append(report.Results, result)

		if result.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
		if check == "sign_in" {
			signedIn = result.Passed
		}
	}

	report.TotalChecks = len(report.Results)
	if report.TotalChecks > 0 {
		report.SuccessRate = float64(report.Passed) / float64(report.TotalChecks) * 100
	}

	return report
}

// runCheck executes a single check
func (v *Validator) runCheck(ctx context.Context, check string) ValidationResult {
	start := time.Now()
	result := ValidationResult{
		Check: check,
	}

	detail, err := v.executeCheck(ctx, check)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Detail = detail
	result.Passed = true
	return result
}

func (v *Validator) executeCheck(ctx context.Context, check string) (interface{}, error) {
	switch check {
	case "sign_in":
		ok, err := v.client.Auth.SignIn(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("server accepted the request but returned no user")
		}
		return map[string]interface{}{"signed_in": true}, nil

	case "session":
		session, err := v.client.Auth.Session()
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"site_id": session.SiteID,
			"user_id": session.UserID,
		}, nil

	case "raw_request":
		var payload map[string]interface{}
		err := v.client.Requests.JSON(ctx, http.MethodGet, v.config.RawURL, "validator raw request", &payload, nil)
		if err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(payload))
		for k := range payload {
			keys = append(keys, k)
		}
		return map[string]interface{}{"top_level_keys": keys}, nil

	case "download":
		result, err := v.client.Files.Download(ctx, v.config.DownloadURL, v.config.DownloadDir, "validator_download", nil)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"path":         result.Path,
			"bytes":        result.Size,
			"content_type": result.ContentType,
		}, nil

	case "sign_out":
		if err := v.client.Auth.SignOut(ctx); err != nil {
			return nil, err
		}
		return map[string]interface{}{"signed_out": true}, nil

	default:
		return nil, fmt.Errorf("unknown check: %s", check)
	}
}

func saveReport(report *ValidationReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func printSummary(report *ValidationReport, reportPath string) {
	fmt.Println("\n=== Validation Report ===")
	fmt.Printf("Server: %s\n", report.ServerURL)
	if report.Site != "" {
		fmt.Printf("Site: %s\n", report.Site)
	}
	fmt.Printf("Total Checks: %d\n", report.TotalChecks)
	fmt.Printf("Passed: %d\n", report.Passed)
	fmt.Printf("Failed: %d\n", report.Failed)
	fmt.Printf("Success Rate: %.1f%%\n", report.SuccessRate)

	if report.Failed > 0 {
		fmt.Println("\nFailed Checks:")
		for _, result := range report.Results {
			if !result.Passed {
				fmt.Printf("  - %s: %s\n", result.Check, result.Error)
			}
		}
	}

	fmt.Printf("\nReport saved to: %s\n", reportPath)
}

// stderrLogger writes the client status log to standard error
type stderrLogger struct{}

func (stderrLogger) log(level, msg string, keysAndValues []interface{}) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", level, msg)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	log.Print(b.String())
}

func (l stderrLogger) Debug(msg string, keysAndValues ...interface{}) { l.log("DEBUG", msg, keysAndValues) }
func (l stderrLogger) Info(msg string, keysAndValues ...interface{})  { l.log("INFO", msg, keysAndValues) }
func (l stderrLogger) Warn(msg string, keysAndValues ...interface{})  { l.log("WARN", msg, keysAndValues) }
func (l stderrLogger) Error(msg string, keysAndValues ...interface{}) { l.log("ERROR", msg, keysAndValues) }

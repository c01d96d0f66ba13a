package preflight

import (
	"context"
	"fmt"
	"log"
	"time"

	"listai/internal/config"
	"listai/internal/jobs"
)

// Check statuses
const (
	StatusPass    = "pass"
	StatusFail    = "fail"
	StatusWarning = "warning"
)

// CheckResult represents the result of a preflight check
type CheckResult struct {
	Name    string
	Status  string
	Message string
	Error   error
}

// Pinger is a dependency that can be probed
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker performs pre-flight checks before server starts
type Checker struct {
	db  Pinger
	cfg *config.Config
}

// NewChecker creates a new preflight checker
func NewChecker(db Pinger, cfg *config.Config) *Checker {
	return &Checker{db: db, cfg: cfg}
}

// RunAll runs all preflight checks and returns results
func (c *Checker) RunAll(ctx context.Context) []CheckResult {
	log.Println("🔍 Running pre-flight checks...")

	results := []CheckResult{
		c.checkDatabaseConnection(ctx),
		c.checkJWTSecret(),
		c.checkLLMConfig(),
		c.checkCleanupSchedule(),
		c.checkTimezone(),
		c.checkPlannerConfig(),
	}

	passed, failed, warnings := 0, 0, 0
	for _, result := range results {
		switch result.Status {
		case StatusPass:
			log.Printf("   ✅ %s: %s", result.Name, result.Message)
			passed++
		case StatusFail:
			log.Printf("   ❌ %s: %s", result.Name, result.Message)
			if result.Error != nil {
				log.Printf("      Error: %v", result.Error)
			}
			failed++
		case StatusWarning:
			log.Printf("   ⚠️  %s: %s", result.Name, result.Message)
			warnings++
		}
	}

	log.Printf("📊 Pre-flight summary: %d passed, %d failed, %d warnings", passed, failed, warnings)
	return results
}

// HasFailures returns true if any check failed
func HasFailures(results []CheckResult) bool {
	for _, result := range results {
		if result.Status == StatusFail {
			return true
		}
	}
	return false
}

func (c *Checker) checkDatabaseConnection(ctx context.Context) CheckResult {
	const name = "Database Connection"
	if c.db == nil {
		return CheckResult{Name: name, Status: StatusFail, Message: "No database configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.db.Ping(ctx); err != nil {
		return CheckResult{Name: name, Status: StatusFail, Message: "Cannot connect to MongoDB", Error: err}
	}
	return CheckResult{Name: name, Status: StatusPass, Message: "MongoDB connection successful"}
}

// checkJWTSecret fails in production without a secret; development falls
// back to an insecure one.
func (c *Checker) checkJWTSecret() CheckResult {
	const name = "JWT Secret"
	switch {
	case c.cfg.JWTSecret != "":
		if c.cfg.JWTRefreshSecret == "" {
			return CheckResult{Name: name, Status: StatusWarning, Message: "JWT_REFRESH_SECRET not set, refresh tokens share the access secret"}
		}
		return CheckResult{Name: name, Status: StatusPass, Message: "Access and refresh secrets configured"}
	case c.cfg.IsProduction():
		return CheckResult{Name: name, Status: StatusFail, Message: "JWT_SECRET is required in production"}
	default:
		return CheckResult{Name: name, Status: StatusWarning, Message: "JWT_SECRET not set, using a development secret"}
	}
}

func (c *Checker) checkLLMConfig() CheckResult {
	const name = "Text Generation"
	if c.cfg.LLM.MaxPlanAttempts < 1 {
		return CheckResult{Name: name, Status: StatusFail, Message: fmt.Sprintf("LLM_MAX_PLAN_ATTEMPTS must be at least 1, got %d", c.cfg.LLM.MaxPlanAttempts)}
	}
	if c.cfg.LLM.APIKey == "" {
		return CheckResult{Name: name, Status: StatusWarning, Message: "OPENAI_API_KEY not set, generation calls will fail"}
	}
	return CheckResult{Name: name, Status: StatusPass, Message: fmt.Sprintf("Model %s at %s", c.cfg.LLM.Model, c.cfg.LLM.BaseURL)}
}

func (c *Checker) checkCleanupSchedule() CheckResult {
	const name = "Plan Job Cleanup"
	if err := jobs.ValidateCron(c.cfg.PlanJobCleanupCron); err != nil {
		return CheckResult{Name: name, Status: StatusFail, Message: "PLAN_JOB_CLEANUP_CRON is invalid", Error: err}
	}
	next, _ := jobs.NextRun(c.cfg.PlanJobCleanupCron, time.Now())
	return CheckResult{Name: name, Status: StatusPass, Message: fmt.Sprintf("Next run at %s", next.Format(time.RFC3339))}
}

func (c *Checker) checkTimezone() CheckResult {
	const name = "Timezone"
	if _, err := time.LoadLocation(c.cfg.Timezone); err != nil {
		return CheckResult{Name: name, Status: StatusWarning, Message: fmt.Sprintf("Unknown TIMEZONE %q, falling back to UTC", c.cfg.Timezone), Error: err}
	}
	return CheckResult{Name: name, Status: StatusPass, Message: c.cfg.Timezone}
}

func (c *Checker) checkPlannerConfig() CheckResult {
	const name = "Planner Config"
	if c.cfg.PlannerConfigFile == "" {
		return CheckResult{Name: name, Status: StatusPass, Message: "No override file, using environment settings"}
	}
	if _, err := config.LoadLLMOverrides(c.cfg.PlannerConfigFile); err != nil {
		return CheckResult{Name: name, Status: StatusWarning, Message: "Override file could not be loaded, using environment settings", Error: err}
	}
	return CheckResult{Name: name, Status: StatusPass, Message: "Loaded " + c.cfg.PlannerConfigFile}
}

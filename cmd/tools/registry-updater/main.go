// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pairing-workers/internal/common/validation"
	"pairing-workers/pkg/registry"
)

func main() {
	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "list":
		err = runList(os.Args[2:])
	case "validate":
		err = runValidate(os.Args[2:])
	case "check":
		err = runCheck(os.Args[2:])
	case "export":
		err = runExport(os.Args[2:])
	case "update":
		err = runUpdate(os.Args[2:])
	default:
		help()
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runList(args []string) error {
	cmd := flag.NewFlagSet("list", flag.ExitOnError)
	path := cmd.String("path", "", "Registry file (empty uses the embedded registry)")
	cmd.Parse(args)

	reg, err := registry.Load(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	for _, a := range reg.Activities {
		fmt.Printf("%-24s %-28s %-12s timeout=%s retries=%d errors=%s\n",
			a.TaskType, a.ID, a.ImplementationStatus, a.Timeout, a.Retries, strings.Join(a.ErrorCodes, ","))
	}
	return nil
}

func runValidate(args []string) error {
	cmd := flag.NewFlagSet("validate", flag.ExitOnError)
	path := cmd.String("path", "", "Registry file (empty uses the embedded registry)")
	cmd.Parse(args)

	reg, err := registry.Load(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if len(reg.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}
	problems := reg.Validate()
	for _, a := range reg.Activities {
		if a.DisplayName == "" {
			problems = append(problems, fmt.Sprintf("activity %s: missing displayName", a.ID))
		}
		if _, err := time.ParseDuration(a.Timeout); a.Timeout != "" && err != nil {
			problems = append(problems, fmt.Sprintf("activity %s: invalid timeout %q", a.ID, a.Timeout))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("registry validation failed:\n  %s", strings.Join(problems, "\n  "))
	}

	fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))
	return nil
}

// runCheck validates a job variables document against an activity's input schema.
func runCheck(args []string) error {
	cmd := flag.NewFlagSet("check", flag.ExitOnError)
	path := cmd.String("path", "", "Registry file (empty uses the embedded registry)")
	taskType := cmd.String("taskType", "", "Task type whose input schema to use")
	input := cmd.String("input", "", "File holding job variables as JSON")
	cmd.Parse(args)

	if *taskType == "" || *input == "" {
		cmd.Usage()
		return fmt.Errorf("taskType and input are required")
	}

	reg, err := registry.Load(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if _, ok := reg.Find(*taskType); !ok {
		return fmt.Errorf("no activity registered for task type %s", *taskType)
	}

	raw, err := os.ReadFile(*input)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	res, err := validation.ValidateJSON(reg.InputSchema(*taskType), string(raw))
	if err != nil {
		return err
	}
	if !res.Valid {
		return fmt.Errorf("input rejected:\n  %s", strings.Join(res.GetErrorMessages(), "\n  "))
	}
	fmt.Printf("Input is valid for %s.\n", *taskType)
	return nil
}

// runExport writes the embedded registry to disk so it can be edited and pointed at with
// registry.path.
func runExport(args []string) error {
	cmd := flag.NewFlagSet("export", flag.ExitOnError)
	out := cmd.String("out", "configs/activity-registry.json", "Destination file")
	cmd.Parse(args)

	reg, err := registry.Default()
	if err != nil {
		return err
	}
	if err := saveRegistry(reg, *out); err != nil {
		return err
	}
	fmt.Printf("Exported %d activities to %s\n", len(reg.Activities), *out)
	return nil
}

func runUpdate(args []string) error {
	cmd := flag.NewFlagSet("update", flag.ExitOnError)
	path := cmd.String("path", "configs/activity-registry.json", "Registry file")
	taskType := cmd.String("taskType", "", "Task type of the activity to update")
	field := cmd.String("field", "", "Field to update (status, version, description, timeout, retries)")
	value := cmd.String("value", "", "New value for the field")
	cmd.Parse(args)

	if *taskType == "" || *field == "" || *value == "" {
		cmd.Usage()
		return fmt.Errorf("taskType, field, and value are required")
	}

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	a, ok := reg.Find(*taskType)
	if !ok {
		return fmt.Errorf("no activity registered for task type %s", *taskType)
	}

	switch *field {
	case "status":
		a.ImplementationStatus = *value
	case "version":
		a.Version = *value
	case "description":
		a.Description = *value
	case "timeout":
		if _, err := time.ParseDuration(*value); err != nil {
			return fmt.Errorf("invalid timeout value: %w", err)
		}
		a.Timeout = *value
	case "retries":
		retries, err := strconv.Atoi(*value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		a.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", *field)
	}

	reg.LastUpdated = time.Now().Format("2006-01-02")
	if err := saveRegistry(reg, *path); err != nil {
		return err
	}
	fmt.Printf("Updated %s: %s = %s\n", *taskType, *field, *value)
	return nil
}

func saveRegistry(reg *registry.ActivityRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func help() {
	fmt.Println(`
Usage: registry-updater <command> [flags]

Commands:
  list      List registered activities
  validate  Validate a registry file
  check     Validate job variables against an activity's input schema
  export    Write the embedded registry to a file
  update    Update a field of an exported registry

Examples:
  registry-updater list
  registry-updater check -taskType calculate-pairings -input vars.json
  registry-updater export -out configs/activity-registry.json
  registry-updater update -taskType get-pairing-details -field timeout -value 45s

Use 'registry-updater <command> -h' for more information about a command.`)
}

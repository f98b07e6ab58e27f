// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"recruit-workers/pkg/registry"
)

const defaultPath = "configs/activity-registry.json"

func main() {
	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}
	if err := run(os.Args[1], os.Args[2:], time.Now().UTC()); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run(command string, args []string, now time.Time) error {
	switch command {
	case "add":
		fs := flag.NewFlagSet("add", flag.ExitOnError)
		path := fs.String("path", defaultPath, "Path to registry file")
		id := fs.String("id", "", "Activity ID (e.g., detect-duplicates)")
		displayName := fs.String("displayName", "", "Display Name (e.g., Detect Duplicates)")
		description := fs.String("description", "", "Description")
		category := fs.String("category", "", "Category (intake, campaign)")
		taskType := fs.String("taskType", "", "Camunda Task Type (e.g., detect-duplicates)")
		version := fs.String("version", "1.0.0", "Version")
		status := fs.String("status", registry.StatusPlanned, "Implementation Status (planned, in-progress, completed, verified)")
		errorCodes := fs.String("errorCodes", "", "Comma separated BPMN error codes")
		fs.Parse(args)

		if *id == "" || *displayName == "" || *description == "" || *category == "" || *taskType == "" {
			fs.Usage()
			return fmt.Errorf("error: id, displayName, description, category, and taskType are required for add")
		}
		reg, err := registry.LoadRegistry(*path)
		if os.IsNotExist(err) {
			reg = &registry.ActivityRegistry{Version: "1.0.0", Activities: []registry.Activity{}}
		} else if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}

		codes := []string{}
		if *errorCodes != "" {
			codes = strings.Split(*errorCodes, ",")
		}
		err = reg.Add(registry.Activity{
			ID:                   *id,
			DisplayName:          *displayName,
			Description:          *description,
			Category:             *category,
			Version:              *version,
			TaskType:             *taskType,
			ImplementationStatus: *status,
			InputSchema:          map[string]interface{}{},
			OutputSchema:         map[string]interface{}{},
			ErrorCodes:           codes,
			Timeout:              "30s",
			Workflows:            []string{},
			Tags:                 []string{},
		}, now)
		if err != nil {
			return fmt.Errorf("error adding activity: %w", err)
		}
		if err := registry.SaveRegistry(reg, *path); err != nil {
			return err
		}
		fmt.Printf("Added activity: %s\n", *id)

	case "update":
		fs := flag.NewFlagSet("update", flag.ExitOnError)
		path := fs.String("path", defaultPath, "Path to registry file")
		id := fs.String("id", "", "Activity ID to update")
		field := fs.String("field", "", "Field to update (status, version, timeout, retries, ...)")
		value := fs.String("value", "", "New value for the field")
		fs.Parse(args)

		if *id == "" || *field == "" || *value == "" {
			fs.Usage()
			return fmt.Errorf("error: id, field, and value are required for update")
		}
		reg, err := registry.LoadRegistry(*path)
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		if err := reg.Update(*id, *field, *value, now); err != nil {
			return fmt.Errorf("error updating activity: %w", err)
		}
		if err := registry.SaveRegistry(reg, *path); err != nil {
			return err
		}
		fmt.Printf("Updated activity %s, field %s to %s\n", *id, *field, *value)

	case "validate":
		fs := flag.NewFlagSet("validate", flag.ExitOnError)
		path := fs.String("path", defaultPath, "Path to registry file")
		taskTypes := fs.String("taskTypes", "", "Comma separated task types the worker manager serves")
		fs.Parse(args)

		reg, err := registry.LoadRegistry(*path)
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		if err := reg.Validate(); err != nil {
			return fmt.Errorf("registry validation failed: %w", err)
		}
		if *taskTypes != "" {
			drift := reg.CheckTaskTypes(strings.Split(*taskTypes, ","))
			if !drift.Empty() {
				return fmt.Errorf("registry drift: unregistered=%v missing=%v", drift.Unregistered, drift.Missing)
			}
		}
		fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))

	case "help":
		help()

	default:
		help()
		return fmt.Errorf("unknown command: %s", command)
	}
	return nil
}

func help() {
	fmt.Println(`
Usage: registry-updater <command> [flags]

Commands:
  add      Add a new activity to the registry
  update   Update an existing activity's field
  validate Validate the registry file, optionally against served task types
  help     Show this help message

Examples:
  registry-updater add -id detect-duplicates -displayName "Detect Duplicates" -description "Flags duplicate candidates" -category intake -taskType detect-duplicates
  registry-updater update -id detect-duplicates -field status -value completed
  registry-updater validate -path configs/activity-registry.json -taskTypes parse-candidate-upload,detect-duplicates

Use 'registry-updater <command> -h' for more information about a command.`)
}

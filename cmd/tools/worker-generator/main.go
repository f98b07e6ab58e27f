// cmd/tools/worker-generator/main.go
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"recruit-workers/pkg/registry"
)

const modulePath = "recruit-workers"

// WorkerData holds data for templates
type WorkerData struct {
	Module      string
	Name        string
	PackageName string
	TaskType    string
	Description string
	Category    string
	Timeout     string
	Retries     int
	ErrorCodes  []string
	Required    []Field
	Outputs     []Field
}

// Field is one job variable rendered as a struct field.
type Field struct {
	GoName string
	JSON   string
}

// schemaFields reads field names from a registry schema entry, which is either
// a list of names or a JSON-schema style properties object.
func schemaFields(schema map[string]interface{}, key string) []Field {
	var names []string
	switch v := schema[key].(type) {
	case []interface{}:
		for _, n := range v {
			if s, ok := n.(string); ok && s != "" {
				names = append(names, s)
			}
		}
	case map[string]interface{}:
		for n := range v {
			names = append(names, n)
		}
		sort.Strings(names)
	}

	fields := make([]Field, 0, len(names))
	for _, n := range names {
		fields = append(fields, Field{GoName: goFieldName(n), JSON: n})
	}
	return fields
}

// goFieldName exports a camelCase variable name, keeping Go initialisms.
func goFieldName(name string) string {
	if name == "" {
		return name
	}
	out := strings.ToUpper(name[:1]) + name[1:]
	switch {
	case strings.HasSuffix(out, "Ids"):
		out = strings.TrimSuffix(out, "Ids") + "IDs"
	case strings.HasSuffix(out, "Id"):
		out = strings.TrimSuffix(out, "Id") + "ID"
	}
	return out
}

func packageName(id string) string {
	return strings.ReplaceAll(id, "-", "")
}

const configTemplate = `package {{ .PackageName }}

import (
	"fmt"
	"time"

	"{{ .Module }}/internal/common/config"
)

type Config struct {
	Enabled       bool          ` + "`mapstructure:\"enabled\"`" + `
	MaxJobsActive int           ` + "`mapstructure:\"max_jobs_active\"`" + `
	Timeout       time.Duration ` + "`mapstructure:\"timeout\"`" + `
}

func DefaultConfig() *Config {
	timeout, _ := time.ParseDuration("{{ .Timeout }}")
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       timeout,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

func ConfigFromApp(app *config.Config) *Config {
	cfg := DefaultConfig()
	if app == nil {
		return cfg
	}
	if wc, ok := app.Workers[TaskType]; ok {
		cfg.Enabled = wc.Enabled
		if wc.MaxJobsActive > 0 {
			cfg.MaxJobsActive = wc.MaxJobsActive
		}
		if wc.Timeout > 0 {
			cfg.Timeout = config.GetDuration(wc.Timeout)
		}
	}
	return cfg
}
`

const modelsTemplate = `package {{ .PackageName }}

type Input struct {
{{- range .Required }}
	{{ .GoName }} string ` + "`json:\"{{ .JSON }}\"`" + `
{{- end }}
}

type Output struct {
{{- range .Outputs }}
	{{ .GoName }} interface{} ` + "`json:\"{{ .JSON }},omitempty\"`" + `
{{- end }}
}
`

const validationTemplate = `package {{ .PackageName }}

import "{{ .Module }}/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{ {{- range $i, $f := .Required }}{{ if $i }}, {{ end }}"{{ $f.JSON }}"{{ end -}} },
		Properties: map[string]validation.Property{
{{- range .Required }}
			"{{ .JSON }}": {Type: "string", MinLength: validation.IntPtr(1)},
{{- end }}
		},
		AdditionalProperties: true,
	}
}
`

const handlerTemplate = `package {{ .PackageName }}

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"{{ .Module }}/internal/common/camunda"
	apperrors "{{ .Module }}/internal/common/errors"
	"{{ .Module }}/internal/common/logger"
	"{{ .Module }}/internal/common/metrics"
	"{{ .Module }}/internal/common/observability"
)

const TaskType = "{{ .TaskType }}"

// Handler serves {{ .Name }}: {{ .Description }}
type Handler struct {
	config *Config
	logger logger.Logger
	obs    *observability.Observability
	errors *apperrors.ErrorHandler
}

func NewHandler(config *Config, obs *observability.Observability, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		logger: log,
		obs:    obs,
		errors: apperrors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	err := camunda.ParseVariables(job, GetInputSchema(), &input)
	var output *Output
	if err == nil {
		output, err = h.Execute(ctx, &input)
	}
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.Normalize(err).Code)).Inc()
		h.obs.RecordJob(ctx, TaskType, observability.StatusFailed, time.Since(start))
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	if err := camunda.CompleteJob(ctx, client, job, output, h.logger); err != nil {
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.obs.RecordJob(ctx, TaskType, observability.StatusCompleted, time.Since(start))
}

// Execute may fail with: {{ range $i, $c := .ErrorCodes }}{{ if $i }}, {{ end }}{{ $c }}{{ end }}
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	// TODO: implement {{ .TaskType }}
	return &Output{}, nil
}
`

const testTemplate = `package {{ .PackageName }}

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"{{ .Module }}/internal/common/logger"
	"{{ .Module }}/internal/common/observability"
)

func TestHandler_Execute(t *testing.T) {
	h := NewHandler(DefaultConfig(), observability.Noop(), logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.NotNil(t, out)
}

func TestConfigFromApp_Defaults(t *testing.T) {
	cfg := ConfigFromApp(nil)
	assert.True(t, cfg.Enabled)
	assert.NoError(t, cfg.Validate())
}
`

var templates = map[string]string{
	"config.go":       configTemplate,
	"models.go":       modelsTemplate,
	"validation.go":   validationTemplate,
	"handler.go":      handlerTemplate,
	"handler_test.go": testTemplate,
}

var errExists = errors.New("worker directory already exists")

// generate renders a worker scaffold for act under outputDir/<category>/<id>
// and returns the written file paths in name order.
func generate(act registry.Activity, outputDir string, force bool) ([]string, error) {
	data := WorkerData{
		Module:      modulePath,
		Name:        act.DisplayName,
		PackageName: packageName(act.ID),
		TaskType:    act.TaskType,
		Description: act.Description,
		Category:    act.Category,
		Timeout:     act.Timeout,
		Retries:     act.Retries,
		ErrorCodes:  act.ErrorCodes,
		Required:    schemaFields(act.InputSchema, "required"),
		Outputs:     schemaFields(act.OutputSchema, "properties"),
	}

	workerDir := filepath.Join(outputDir, strings.ToLower(act.Category), act.ID)
	if _, err := os.Stat(workerDir); err == nil && !force {
		return nil, fmt.Errorf("%w: %s", errExists, workerDir)
	}
	if err := os.MkdirAll(workerDir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating directory: %w", err)
	}

	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)

	written := make([]string, 0, len(names))
	for _, filename := range names {
		tmpl, err := template.New(filename).Parse(templates[filename])
		if err != nil {
			return written, fmt.Errorf("error parsing template %s: %w", filename, err)
		}

		filePath := filepath.Join(workerDir, filename)
		file, err := os.Create(filePath)
		if err != nil {
			return written, fmt.Errorf("error creating file %s: %w", filePath, err)
		}
		err = tmpl.Execute(file, data)
		file.Close()
		if err != nil {
			return written, fmt.Errorf("error executing template for %s: %w", filename, err)
		}
		written = append(written, filePath)
	}
	return written, nil
}

func main() {
	activity := flag.String("activity", "", "Activity task type from registry (e.g., detect-duplicates)")
	outputDir := flag.String("output", "./internal/workers/", "Output directory for the generated worker")
	registryPath := flag.String("registry", "configs/activity-registry.json", "Path to the activity registry JSON file")
	force := flag.Bool("force", false, "Overwrite an existing worker directory")
	flag.Parse()

	if *activity == "" {
		fmt.Println("Usage: worker-generator --activity <id> [--output <dir>] [--registry <path>] [--force]")
		os.Exit(1)
	}

	reg, err := registry.LoadRegistry(*registryPath)
	if err != nil {
		fmt.Printf("Error loading registry from %s: %v\n", *registryPath, err)
		os.Exit(1)
	}

	act, ok := reg.Find(*activity)
	if !ok {
		fmt.Printf("Activity '%s' not found in registry %s\n", *activity, *registryPath)
		os.Exit(1)
	}

	written, err := generate(act, *outputDir, *force)
	for _, path := range written {
		fmt.Printf("Generated %s\n", path)
	}
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	fmt.Printf("\nNext steps:\n")
	fmt.Printf("  1. Implement Execute in handler.go\n")
	fmt.Printf("  2. Register the worker in cmd/worker-manager/main.go\n")
	fmt.Printf("  3. Add a workers.%s entry to configs/config.yaml\n", act.TaskType)
}

package snapshot

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/gridwatch/alertflow/internal/logging"
	"github.com/gridwatch/alertflow/internal/models"
)

// FileSource loads the alert configuration from a single YAML file. It is
// meant for small deployments and for local development; production setups
// use the database-backed source.
type FileSource struct {
	path string
}

// NewFileSource creates a file source for the given path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// fileConfig is the YAML layout of a configuration file.
type fileConfig struct {
	Rules     []fileRule     `yaml:"rules"`
	Templates []fileTemplate `yaml:"templates"`
	Receivers []fileReceiver `yaml:"receivers"`
}

// fileRule mirrors models.AlertRule with the cooldown as a duration string
// (e.g. "5m"), matching how operators write the file.
type fileRule struct {
	ID               int64   `yaml:"id"`
	Name             string  `yaml:"name"`
	MetricName       string  `yaml:"metric_name"`
	Operator         string  `yaml:"operator"`
	Threshold        float64 `yaml:"threshold"`
	Level            string  `yaml:"level"`
	DeviceFilter     string  `yaml:"device_filter,omitempty"`
	ConsecutiveCount int     `yaml:"consecutive_count"`
	Cooldown         string  `yaml:"cooldown,omitempty"`
	TemplateID       int64   `yaml:"template_id,omitempty"`
	Enabled          *bool   `yaml:"enabled,omitempty"`
}

func (fr *fileRule) toModel() (*models.AlertRule, error) {
	var cooldown time.Duration
	if fr.Cooldown != "" {
		d, err := time.ParseDuration(fr.Cooldown)
		if err != nil {
			return nil, fmt.Errorf("invalid cooldown %q for rule %q: %w", fr.Cooldown, fr.Name, err)
		}
		cooldown = d
	}
	enabled := true
	if fr.Enabled != nil {
		enabled = *fr.Enabled
	}
	count := fr.ConsecutiveCount
	if count == 0 {
		count = 1
	}
	return &models.AlertRule{
		ID:               fr.ID,
		Name:             fr.Name,
		MetricName:       fr.MetricName,
		Operator:         fr.Operator,
		Threshold:        fr.Threshold,
		Level:            models.ParseSeverity(fr.Level),
		DeviceFilter:     fr.DeviceFilter,
		ConsecutiveCount: count,
		Cooldown:         cooldown,
		TemplateID:       fr.TemplateID,
		Enabled:          enabled,
	}, nil
}

// fileTemplate mirrors models.AlertTemplate; like rules, entries are enabled
// unless the file says otherwise.
type fileTemplate struct {
	ID              int64  `yaml:"id"`
	Name            string `yaml:"name"`
	TitleTemplate   string `yaml:"title_template"`
	MessageTemplate string `yaml:"message_template"`
	Enabled         *bool  `yaml:"enabled,omitempty"`
}

func (ft *fileTemplate) toModel() *models.AlertTemplate {
	enabled := true
	if ft.Enabled != nil {
		enabled = *ft.Enabled
	}
	return &models.AlertTemplate{
		ID:              ft.ID,
		Name:            ft.Name,
		TitleTemplate:   ft.TitleTemplate,
		MessageTemplate: ft.MessageTemplate,
		Enabled:         enabled,
	}
}

// fileReceiver mirrors models.AlertReceiver with the same enabled default.
type fileReceiver struct {
	ID          int64  `yaml:"id"`
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Contact     string `yaml:"contact"`
	LevelFilter string `yaml:"level_filter,omitempty"`
	Enabled     *bool  `yaml:"enabled,omitempty"`
}

func (fr *fileReceiver) toModel() *models.AlertReceiver {
	enabled := true
	if fr.Enabled != nil {
		enabled = *fr.Enabled
	}
	return &models.AlertReceiver{
		ID:          fr.ID,
		Name:        fr.Name,
		Type:        models.ReceiverType(fr.Type),
		Contact:     fr.Contact,
		LevelFilter: fr.LevelFilter,
		Enabled:     enabled,
	}
}

// Load reads and parses the configuration file.
func (f *FileSource) Load(ctx context.Context) ([]*models.AlertRule, []*models.AlertTemplate, []*models.AlertReceiver, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses a YAML configuration document into model collections.
func ParseConfig(data []byte) ([]*models.AlertRule, []*models.AlertTemplate, []*models.AlertReceiver, error) {
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, nil, nil, fmt.Errorf("parse config YAML: %w", err)
	}

	rules := make([]*models.AlertRule, 0, len(cfg.Rules))
	for i := range cfg.Rules {
		rule, err := cfg.Rules[i].toModel()
		if err != nil {
			return nil, nil, nil, err
		}
		rules = append(rules, rule)
	}

	templates := make([]*models.AlertTemplate, 0, len(cfg.Templates))
	for i := range cfg.Templates {
		if cfg.Templates[i].ID == 0 {
			return nil, nil, nil, fmt.Errorf("template %q is missing an id", cfg.Templates[i].Name)
		}
		templates = append(templates, cfg.Templates[i].toModel())
	}

	receivers := make([]*models.AlertReceiver, 0, len(cfg.Receivers))
	for i := range cfg.Receivers {
		receivers = append(receivers, cfg.Receivers[i].toModel())
	}

	return rules, templates, receivers, nil
}

// Watch triggers a forced provider refresh whenever the file changes, in
// addition to the provider's periodic refresh. Editors replace files on save,
// so both Write and Create/Rename events count as changes.
func (f *FileSource) Watch(ctx context.Context, provider *Provider) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(f.path); err != nil {
		return fmt.Errorf("watch %s: %w", f.path, err)
	}

	log := logging.WithComponent("filesource")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				log.Info().Str("file", f.path).Msg("config file changed, refreshing")
				provider.ForceRefresh()
				// Re-add after rename/replace; ignore failure, the next
				// periodic refresh still picks up changes.
				if event.Op&fsnotify.Rename != 0 {
					_ = watcher.Add(f.path)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("config file watch error")
		}
	}
}

package contract

import (
	"fmt"
	"maps"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/kpiscore/schema"
	"github.com/shopspring/decimal"
)

// Default values for configuration.
const (
	DefaultPrecision     = 1
	DefaultSourceDir     = "data"
	DefaultSourceTimeout = 30 * time.Second
	DefaultServeAddr     = ":8080"
	DefaultLogLevel      = "info"
)

// DefaultWorkers is the default number of concurrent source loads.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// dateFormats are the absolute date layouts accepted for --as-of, --epoch and window bounds.
var dateFormats = []string{time.RFC3339, "2006-01-02"}

// Config holds the runtime configuration for a computation.
// This struct remains the "final, validated" config.
type Config struct {
	Granularity  schema.Granularity
	Epoch        time.Time
	AsOf         time.Time
	From         schema.Period // null means the start of the canonical range
	To           schema.Period // null means the end of the canonical range
	Filters      map[string]string
	PartialStart bool // the first period of every process is incomplete

	Kind      schema.CommitmentKind // commitment and trend target
	Category  schema.Category       // counts target
	Column    string                // counts timestamp column
	Breakdown string                // counts categorical breakdown column

	Weights         map[schema.Category]float64
	CompositeOffset float64
	Goals           map[schema.CommitmentKind]float64

	SourceDir     string
	SourceFormat  schema.SourceFormat
	SourceURL     string // when set, records are fetched over HTTP instead of read from SourceDir
	SourceTimeout time.Duration

	Workers    int
	Precision  int
	Output     schema.OutputMode
	OutputFile string
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext

	ServeAddr string
	LogLevel  string
	LogFile   string
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	Granularity      string `mapstructure:"granularity"`
	Start            string `mapstructure:"start"`
	End              string `mapstructure:"end"`
	AsOf             string `mapstructure:"as-of"`
	Epoch            string `mapstructure:"epoch"`
	Filter           string `mapstructure:"filter"`
	PartialStart     bool   `mapstructure:"partial-start"`
	SourceDir        string `mapstructure:"source-dir"`
	SourceFormat     string `mapstructure:"source-format"`
	SourceURL        string `mapstructure:"source-url"`
	SourceTimeout    string `mapstructure:"source-timeout"`
	Workers          int    `mapstructure:"workers"`
	Precision        int    `mapstructure:"precision"`
	Output           string `mapstructure:"output"`
	OutputFile       string `mapstructure:"output-file"`
	Width            int    `mapstructure:"width"`
	Color            string `mapstructure:"color"`
	CacheBackend     string `mapstructure:"cache-backend"`
	CacheDBConnect   string `mapstructure:"cache-db-connect"`
	HistoryBackend   string `mapstructure:"history-backend"`
	HistoryDBConnect string `mapstructure:"history-db-connect"`
	LogLevel         string `mapstructure:"log-level"`
	LogFile          string `mapstructure:"log-file"`

	// --- Fields from countsCmd.Flags() ---
	Column    string `mapstructure:"column"`
	Breakdown string `mapstructure:"breakdown"`

	// --- Fields from compositeCmd.Flags() ---
	WeightsStr      string   `mapstructure:"weights-override"`
	CompositeOffset *float64 `mapstructure:"composite-offset"`

	// --- Fields from serveCmd.Flags() ---
	Addr string `mapstructure:"addr"`

	// --- Composite weights from config file ---
	Weights map[string]float64 `mapstructure:"weights"`

	// --- Goal thresholds from config file ---
	Goals map[string]float64 `mapstructure:"goals"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Filters != nil {
		clone.Filters = make(map[string]string, len(c.Filters))
		maps.Copy(clone.Filters, c.Filters)
	}
	if c.Weights != nil {
		clone.Weights = make(map[schema.Category]float64, len(c.Weights))
		maps.Copy(clone.Weights, c.Weights)
	}
	if c.Goals != nil {
		clone.Goals = make(map[schema.CommitmentKind]float64, len(c.Goals))
		maps.Copy(clone.Goals, c.Goals)
	}
	return &clone
}

// Query returns the query context of the configuration.
func (c *Config) Query() schema.QueryContext {
	q := schema.QueryContext{
		Granularity: c.Granularity,
		Epoch:       c.Epoch,
		AsOf:        c.AsOf,
		From:        c.From,
		To:          c.To,
		Filters:     c.Filters,
	}
	return q.Clone()
}

// Goal returns the goal of a commitment kind, or nil when it has none.
func (c *Config) Goal(kind schema.CommitmentKind) *float64 {
	v, ok := c.Goals[kind]
	if !ok {
		return nil
	}
	return &v
}

// ProcessAndValidate performs all complex parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processTimeRange(cfg, input); err != nil {
		return err
	}
	if err := processFilters(cfg, input); err != nil {
		return err
	}
	if err := processWeights(cfg, input); err != nil {
		return err
	}
	if err := processGoals(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfigs validates cache and history backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	// --- History Backend Validation ---
	cfg.HistoryBackend = schema.DatabaseBackend(strings.ToLower(input.HistoryBackend))
	if cfg.HistoryBackend == "" {
		cfg.HistoryBackend = schema.NoneBackend
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.HistoryBackend]; !ok {
		return fmt.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", input.HistoryBackend)
	}
	cfg.HistoryDBConnect = input.HistoryDBConnect
	if err := ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return err
	}

	// Validate that cache and history use different databases
	if cfg.CacheBackend == cfg.HistoryBackend && cfg.CacheBackend != schema.NoneBackend {
		if cfg.CacheBackend == schema.SQLiteBackend {
			cacheDBPath := cfg.CacheDBConnect
			if cacheDBPath == "" {
				cacheDBPath = GetCacheDBFilePath()
			}
			historyDBPath := cfg.HistoryDBConnect
			if historyDBPath == "" {
				historyDBPath = GetHistoryDBFilePath()
			}
			if cacheDBPath == historyDBPath {
				return fmt.Errorf("cache and history storage must use different SQLite database files. Both resolve to %q", cacheDBPath)
			}
		} else if cfg.CacheDBConnect == cfg.HistoryDBConnect {
			return fmt.Errorf("cache and history storage must use different %s databases", cfg.CacheBackend)
		}
	}

	return nil
}

// validateSimpleInputs processes and validates all non-time related fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 0. Transfer simple non-validated fields from input -> cfg ---
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.PartialStart = input.PartialStart
	cfg.Column = strings.TrimSpace(input.Column)
	cfg.Breakdown = strings.TrimSpace(input.Breakdown)
	cfg.SourceURL = strings.TrimRight(strings.TrimSpace(input.SourceURL), "/")
	cfg.LogFile = input.LogFile

	cfg.ServeAddr = input.Addr
	if cfg.ServeAddr == "" {
		cfg.ServeAddr = DefaultServeAddr
	}
	cfg.LogLevel = strings.ToLower(input.LogLevel)
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	// Parse color flag
	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	// --- 1. Granularity Validation ---
	cfg.Granularity = schema.Granularity(strings.ToLower(input.Granularity))
	if _, ok := schema.ValidGranularities[cfg.Granularity]; !ok {
		return fmt.Errorf("invalid granularity '%s'. must be month, quarter, year", input.Granularity)
	}

	// --- 2. Workers Validation ---
	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	// --- 3. Precision and Output Validation ---
	if input.Precision < 1 || input.Precision > 2 {
		return fmt.Errorf("precision must be 1 or 2 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", cfg.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}

	// --- 4. Source Validation ---
	cfg.SourceDir = input.SourceDir
	if cfg.SourceDir == "" {
		cfg.SourceDir = DefaultSourceDir
	}
	cfg.SourceFormat = schema.SourceFormat(strings.ToLower(input.SourceFormat))
	if cfg.SourceFormat == "" {
		cfg.SourceFormat = schema.CSVSource
	}
	if _, ok := schema.ValidSourceFormats[cfg.SourceFormat]; !ok {
		return fmt.Errorf("invalid source format '%s'. must be csv, json", input.SourceFormat)
	}
	cfg.SourceTimeout = DefaultSourceTimeout
	if input.SourceTimeout != "" {
		d, err := time.ParseDuration(input.SourceTimeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid source timeout '%s'. Expected a positive duration such as 30s", input.SourceTimeout)
		}
		cfg.SourceTimeout = d
	}

	// --- 5. Backend Validation ---
	return validateBackendConfigs(cfg, input)
}

// processTimeRange handles the epoch, as-of and display window parsing.
func processTimeRange(cfg *Config, input *ConfigRawInput) error {
	cfg.AsOf = time.Now().UTC()
	if input.AsOf != "" {
		t, err := ParseDate(input.AsOf)
		if err != nil {
			return fmt.Errorf("invalid as-of date '%s': %w", input.AsOf, err)
		}
		cfg.AsOf = t
	}

	cfg.Epoch = schema.Epoch
	if input.Epoch != "" {
		t, err := ParseDate(input.Epoch)
		if err != nil {
			return fmt.Errorf("invalid epoch date '%s': %w", input.Epoch, err)
		}
		cfg.Epoch = t
	}
	if cfg.AsOf.Before(cfg.Epoch) {
		return fmt.Errorf("as-of date (%s) cannot be before the epoch (%s)", cfg.AsOf.Format(DateTimeFormat), cfg.Epoch.Format(DateTimeFormat))
	}

	var err error
	if cfg.From, err = ParseWindowBound(input.Start, cfg.Granularity); err != nil {
		return fmt.Errorf("invalid start '%s': %w", input.Start, err)
	}
	if cfg.To, err = ParseWindowEnd(input.End, cfg.Granularity); err != nil {
		return fmt.Errorf("invalid end '%s': %w", input.End, err)
	}
	if !cfg.From.IsZero() && !cfg.To.IsZero() && cfg.From.After(cfg.To) {
		return fmt.Errorf("%w: start (%s) cannot be after end (%s)", schema.ErrInvalidWindow, cfg.From, cfg.To)
	}
	return nil
}

// processFilters parses "column=value,column=value" into cfg.Filters.
func processFilters(cfg *Config, input *ConfigRawInput) error {
	filters, err := ParseFilterString(input.Filter)
	if err != nil {
		return fmt.Errorf("invalid --filter format: %w", err)
	}
	cfg.Filters = filters
	return nil
}

// processWeights builds the composite weights. The command-line override takes precedence
// over the config file, which takes precedence over the defaults.
func processWeights(cfg *Config, input *ConfigRawInput) error {
	cfg.CompositeOffset = schema.CompositeOffset
	if input.CompositeOffset != nil {
		cfg.CompositeOffset = *input.CompositeOffset
	}

	weights := make(map[schema.Category]decimal.Decimal)
	switch {
	case input.WeightsStr != "":
		parsed, err := ParseWeightsString(input.WeightsStr)
		if err != nil {
			return fmt.Errorf("invalid --weights format: %w", err)
		}
		weights = parsed
	case len(input.Weights) > 0:
		for name, v := range input.Weights {
			c, err := parseCompositeCategory(name)
			if err != nil {
				return err
			}
			weights[c] = decimal.NewFromFloat(v)
		}
	default:
		cfg.Weights = schema.GetDefaultWeights()
		return nil
	}

	result, err := ProcessWeights(weights)
	if err != nil {
		return err
	}
	cfg.Weights = result
	return nil
}

// ProcessWeights validates composite weights and converts them to floats.
// Every weight must be within [0, 1] and the sum must be exactly 1.
func ProcessWeights(weights map[schema.Category]decimal.Decimal) (map[schema.Category]float64, error) {
	sum := decimal.Zero
	result := make(map[schema.Category]float64, len(weights))
	for c, w := range weights {
		if w.IsNegative() || w.GreaterThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("weight for %s must be between 0 and 1 (received %s)", c, w)
		}
		sum = sum.Add(w)
		result[c] = w.InexactFloat64()
	}
	if !sum.Equal(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("composite weights must sum to 1, got %s", sum)
	}
	return result, nil
}

// processGoals builds the per-commitment goals from defaults and the config file.
func processGoals(cfg *Config, input *ConfigRawInput) error {
	goals := schema.GetDefaultGoals()
	for name, v := range input.Goals {
		kind := schema.CommitmentKind(strings.ToLower(strings.TrimSpace(name)))
		if _, ok := schema.ValidCommitmentKinds[kind]; !ok {
			return fmt.Errorf("invalid goal '%s'. must be one of %s", name, commitmentKindList())
		}
		if v < 0 || v > 100 {
			return fmt.Errorf("goal for %s must be between 0 and 100 (received %.2f)", kind, v)
		}
		goals[kind] = v
	}
	cfg.Goals = goals
	return nil
}

// ParseDate parses an absolute date in RFC3339 or YYYY-MM-DD form, in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("expected RFC3339 or YYYY-MM-DD")
}

// ParseWindowBound parses a display window bound at granularity g. Periods
// (YYYY-MM, YYYY-Qn, YYYY) and dates are accepted; the result is the period of g
// containing the bound. An empty string is the null period.
func ParseWindowBound(s string, g schema.Granularity) (schema.Period, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return schema.Period{}, nil
	}
	if t, err := ParseDate(s); err == nil {
		return schema.PeriodAt(t, g), nil
	}
	p, err := schema.ParsePeriod(s)
	if err != nil {
		return schema.Period{}, err
	}
	return p.As(g), nil
}

// ParseWindowEnd parses an inclusive end bound. It differs from ParseWindowBound
// for coarser periods, which end at their last period of g: 2024 is 2024-12.
func ParseWindowEnd(s string, g schema.Granularity) (schema.Period, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return schema.Period{}, nil
	}
	if t, err := ParseDate(s); err == nil {
		return schema.PeriodAt(t, g), nil
	}
	p, err := schema.ParsePeriod(s)
	if err != nil {
		return schema.Period{}, err
	}
	return p.LastAs(g), nil
}

// ParseFilterString parses a string like "Device Type=Scanner,Status=Open".
func ParseFilterString(s string) (map[string]string, error) {
	filters := make(map[string]string)
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		col, value, ok := strings.Cut(part, "=")
		col, value = strings.TrimSpace(col), strings.TrimSpace(value)
		if !ok || col == "" {
			return nil, fmt.Errorf("invalid filter '%s', expected 'column=value'", part)
		}
		filters[col] = value
	}
	return filters, nil
}

// ParseWeightsString parses a string like "audits:0.2,capas:0.25,complaints:0.35,training:0.2".
func ParseWeightsString(s string) (map[schema.Category]decimal.Decimal, error) {
	weights := make(map[schema.Category]decimal.Decimal)
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, valueStr, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("invalid weight format '%s', expected 'category:value'", part)
		}
		c, err := parseCompositeCategory(name)
		if err != nil {
			return nil, err
		}
		value, err := decimal.NewFromString(strings.TrimSpace(valueStr))
		if err != nil {
			return nil, fmt.Errorf("invalid weight value '%s' for %s: %w", valueStr, c, err)
		}
		weights[c] = value
	}
	return weights, nil
}

func parseCompositeCategory(name string) (schema.Category, error) {
	c := schema.Category(strings.ToLower(strings.TrimSpace(name)))
	if !slices.Contains(schema.CompositeCategories, c) {
		return "", fmt.Errorf("%w: '%s'. must be audits, capas, complaints, training", schema.ErrUnknownCategory, name)
	}
	return c, nil
}

func commitmentKindList() string {
	names := make([]string, len(schema.AllCommitmentKinds))
	for i, k := range schema.AllCommitmentKinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

// ParseCommitmentKind validates a commitment kind name.
func ParseCommitmentKind(s string) (schema.CommitmentKind, error) {
	kind := schema.CommitmentKind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := schema.ValidCommitmentKinds[kind]; !ok {
		return "", fmt.Errorf("%w: '%s'. must be one of %s", schema.ErrUnknownCommitment, s, commitmentKindList())
	}
	return kind, nil
}

// ParseCategory validates a record category name.
func ParseCategory(s string) (schema.Category, error) {
	c := schema.Category(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := schema.ValidCategories[c]; !ok {
		return "", fmt.Errorf("%w: '%s'. must be audits, capas, complaints, training, usage", schema.ErrUnknownCategory, s)
	}
	return c, nil
}

// RevalidateQuery applies per-request query overrides to a cloned config.
// Empty arguments keep the configured values; a new granularity converts the existing window.
func RevalidateQuery(cfg *Config, granularity, start, end string) error {
	if granularity != "" {
		g := schema.Granularity(strings.ToLower(strings.TrimSpace(granularity)))
		if _, ok := schema.ValidGranularities[g]; !ok {
			return fmt.Errorf("invalid granularity '%s'. must be month, quarter, year", granularity)
		}
		cfg.Granularity = g
		cfg.From = cfg.From.As(g)
		cfg.To = cfg.To.LastAs(g)
	}

	var err error
	if start != "" {
		if cfg.From, err = ParseWindowBound(start, cfg.Granularity); err != nil {
			return fmt.Errorf("invalid start '%s': %w", start, err)
		}
	}
	if end != "" {
		if cfg.To, err = ParseWindowEnd(end, cfg.Granularity); err != nil {
			return fmt.Errorf("invalid end '%s': %w", end, err)
		}
	}
	if !cfg.From.IsZero() && !cfg.To.IsZero() && cfg.From.After(cfg.To) {
		return fmt.Errorf("%w: start (%s) cannot be after end (%s)", schema.ErrInvalidWindow, cfg.From, cfg.To)
	}
	return nil
}

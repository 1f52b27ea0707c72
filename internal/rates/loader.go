package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for local JSON rate files.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a file-based rate table loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "rates-loader").Logger(),
	}
}

// Load reads a JSON rate table from disk.
func (l *fileLoader) Load(ctx context.Context, filePath string) (*Table, error) {
	l.logger.Info().Str("file", filePath).Msg("loading rate table")

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to read rate file")
		return nil, fmt.Errorf("failed to read rate file %s: %w", filePath, err)
	}

	table, err := parseTable(data)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to parse rate file")
		return nil, fmt.Errorf("failed to parse rate file %s: %w", filePath, err)
	}

	l.logger.Info().
		Str("file", filePath).
		Int("countries", len(table.Countries)).
		Msg("rate table loaded")

	return table, nil
}

// parseTable decodes and sanity-checks a rate table.
func parseTable(data []byte) (*Table, error) {
	var table Table
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, err
	}

	if len(table.Default.ShippingOptions) == 0 {
		return nil, fmt.Errorf("rate table has no default shipping options")
	}
	if table.Default.TaxRate < 0 || table.Default.TaxRate >= 1 {
		return nil, fmt.Errorf("default tax rate %v out of range [0, 1)", table.Default.TaxRate)
	}
	for country, rates := range table.Countries {
		if rates.TaxRate < 0 || rates.TaxRate >= 1 {
			return nil, fmt.Errorf("tax rate %v for %s out of range [0, 1)", rates.TaxRate, country)
		}
	}

	if table.Countries == nil {
		table.Countries = map[string]CountryRates{}
	}

	return &table, nil
}

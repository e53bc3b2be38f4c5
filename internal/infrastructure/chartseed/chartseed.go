// Package chartseed loads a chart of accounts override from YAML.
package chartseed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/iho/bookkeeper/internal/domain"
)

type file struct {
	// Extend appends the listed accounts to the default chart instead of replacing it.
	Extend   bool                `yaml:"extend"`
	Accounts []domain.ChartEntry `yaml:"accounts"`
}

// Load reads a chart file. An empty path returns the default chart.
func Load(path string) ([]domain.ChartEntry, error) {
	if path == "" {
		return domain.DefaultChart, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chart file: %w", err)
	}
	chart, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return chart, nil
}

// Parse decodes and validates a chart document.
func Parse(r io.Reader) ([]domain.ChartEntry, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domain.NewValidationError("accounts", "chart file is empty")
		}
		return nil, domain.NewValidationError("accounts", "invalid chart YAML: "+err.Error())
	}
	if len(f.Accounts) == 0 {
		return nil, domain.NewValidationError("accounts", "chart lists no accounts")
	}

	chart := f.Accounts
	if f.Extend {
		chart = make([]domain.ChartEntry, 0, len(domain.DefaultChart)+len(f.Accounts))
		chart = append(chart, domain.DefaultChart...)
		chart = append(chart, f.Accounts...)
	}

	if err := domain.ValidateChart(chart); err != nil {
		return nil, err
	}
	return chart, nil
}
